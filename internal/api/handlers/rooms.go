package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/occupancy"
)

// RoomsHandler exposes the per-property detail endpoints: room lists,
// per-room-type occupancy and daily assignments.
type RoomsHandler struct {
	service *occupancy.Service
	logger  *zap.Logger
}

func NewRoomsHandler(service *occupancy.Service, logger *zap.Logger) *RoomsHandler {
	return &RoomsHandler{service: service, logger: logger}
}

// GetRooms lists every property's rooms, failures inline.
func (h *RoomsHandler) GetRooms(c *gin.Context) {
	results := h.service.ListRooms(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "properties": results})
}

// GetRoomAvailability flags each room type of one property as
// occupied when it has zero rooms available.
func (h *RoomsHandler) GetRoomAvailability(c *gin.Context) {
	property := c.Query("property")
	dateRaw := c.Query("date")
	if property == "" || dateRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing parameters"})
		return
	}
	if _, err := core.ParseDate(dateRaw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	rooms, err := h.service.RoomAvailability(c.Request.Context(), property)
	if err != nil {
		if errors.Is(err, occupancy.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid property ID"})
			return
		}
		h.logger.Warn("room availability failed",
			zap.String("property", property),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

// GetAssignments lists every property's room assignments for a day.
func (h *RoomsHandler) GetAssignments(c *gin.Context) {
	dateRaw := c.Query("date")
	if dateRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing date param (YYYY-MM-DD)"})
		return
	}
	date, err := core.ParseDate(dateRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	results, err := h.service.Assignments(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "properties": results, "date": date.String()})
}
