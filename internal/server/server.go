// Package server assembles the relay's HTTP surface.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"whiteboard-relay/internal/middleware"
)

// Stats reports live rooms and memberships
type Stats interface {
	Stats() (rooms, members int)
}

// Deps: everything the router serves
type Deps struct {
	WebSocket   http.Handler
	Connections func() int
	Rooms       Stats
	Occupancy   func() map[string]int
	IPLimiter   *middleware.IPRateLimit
	Logger      *slog.Logger
}

// NewRouter: gin engine with /ws, /health, /stats and /stats/rooms
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	ws := []gin.HandlerFunc{}
	if d.IPLimiter != nil {
		ws = append(ws, middleware.LimitConnections(d.IPLimiter))
	}
	ws = append(ws, gin.WrapH(d.WebSocket))
	r.GET("/ws", ws...)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(c *gin.Context) {
		rooms, members := d.Rooms.Stats()
		connections := 0
		if d.Connections != nil {
			connections = d.Connections()
		}
		c.JSON(http.StatusOK, gin.H{
			"rooms":       rooms,
			"connections": connections,
			"members":     members,
		})
	})

	r.GET("/stats/rooms", func(c *gin.Context) {
		occupancy := map[string]int{}
		if d.Occupancy != nil {
			occupancy = d.Occupancy()
		}
		c.JSON(http.StatusOK, occupancy)
	})

	return r
}

// requestLogger: one debug line per request, through slog
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"remote", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}
