package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/occupancy"
)

// OccupancyHandler holds the thin routes in front of the occupancy
// engine: parse the query string, call the service, write the payload.
type OccupancyHandler struct {
	service *occupancy.Service
	logger  *zap.Logger
}

func NewOccupancyHandler(service *occupancy.Service, logger *zap.Logger) *OccupancyHandler {
	return &OccupancyHandler{service: service, logger: logger}
}

// GetReservations serves the month aggregate in history mode
// (occupancy derived from discrete reservations).
func (h *OccupancyHandler) GetReservations(c *gin.Context) {
	h.aggregate(c, core.ModeHistory)
}

// GetAvailability serves the month aggregate in availability mode
// (coarse occupancy from room-type availability counts).
func (h *OccupancyHandler) GetAvailability(c *gin.Context) {
	h.aggregate(c, core.ModeAvailability)
}

func (h *OccupancyHandler) aggregate(c *gin.Context, mode core.OccupancyMode) {
	query, err := occupancy.ParseQuery(mode,
		c.Query("startDate"),
		c.Query("endDate"),
		c.Query("adults"),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	payload, err := h.service.GetOccupancy(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// GetReservationsByDate lists the reservations covering one day,
// derived from the month aggregate.
func (h *OccupancyHandler) GetReservationsByDate(c *gin.Context) {
	dateRaw := c.Query("date")
	monthStartRaw := c.Query("monthStart")
	monthEndRaw := c.Query("monthEnd")
	if dateRaw == "" || monthStartRaw == "" || monthEndRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing date or month range"})
		return
	}

	date, err := core.ParseDate(dateRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	monthStart, err := core.ParseDate(monthStartRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	monthEnd, err := core.ParseDate(monthEndRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	detail, err := h.service.GetReservationsForDay(c.Request.Context(), date, monthStart, monthEnd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *OccupancyHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, occupancy.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	h.logger.Error("occupancy request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
}
