package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyroom/internal/auth"
	"studyroom/internal/config"
	"studyroom/internal/reservation"
	"studyroom/internal/room"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

type Handlers struct {
	Reservations *reservation.Handler
	Rooms        *room.Handler
	// Checks back the readiness probe, keyed by dependency name.
	Checks map[string]Check
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health)
	router.GET("/ready", Ready(h.Checks))
	router.GET("/metrics", Metrics())

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	writeLimit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateBurst)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/rooms", h.Rooms.ListRooms)
		protected.GET("/rooms/:roomID/status", h.Rooms.GetRoomStatus)
		protected.GET("/rooms/:roomID/slots", h.Reservations.SlotStates)

		protected.GET("/reservations/active", h.Reservations.ListActive)
		protected.GET("/reservations/mine", h.Reservations.ListMine)
		protected.POST("/reservations/validate", h.Reservations.Validate)
		protected.POST("/reservations", writeLimit, h.Reservations.Create)
		protected.POST("/reservations/:id/cancel", writeLimit, h.Reservations.Cancel)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.PUT("/rooms/:roomID/status", h.Rooms.UpdateRoomStatus)
		admin.POST("/reservations/:id/force-cancel", h.Reservations.ForceCancel)
		admin.GET("/reservations/stats", h.Reservations.Stats)
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
