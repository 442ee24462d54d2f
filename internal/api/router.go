package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/api/handlers"
	"github.com/aangelzurita/calendario-cloudbeds/internal/api/middleware"
	"github.com/aangelzurita/calendario-cloudbeds/internal/config"
	"github.com/aangelzurita/calendario-cloudbeds/internal/occupancy"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	Service *occupancy.Service
	Logger  *zap.Logger
}

func NewServer(cfg *config.Config, service *occupancy.Service, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	server := &Server{
		Config:  cfg,
		Router:  router,
		Service: service,
		Logger:  logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", handlers.HealthCheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	occupancyHandler := handlers.NewOccupancyHandler(s.Service, s.Logger)
	roomsHandler := handlers.NewRoomsHandler(s.Service, s.Logger)

	// Same route shape the calendar UI already speaks
	cb := s.Router.Group("/api/cloudbeds")
	{
		cb.GET("/reservations", occupancyHandler.GetReservations)
		cb.GET("/availability", occupancyHandler.GetAvailability)
		cb.GET("/reservations-by-date", occupancyHandler.GetReservationsByDate)
		cb.GET("/room-availability", roomsHandler.GetRoomAvailability)
		cb.GET("/rooms", roomsHandler.GetRooms)
		cb.GET("/assignments", roomsHandler.GetAssignments)
	}
}
