package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Bookings       BookingService
	Slots          SlotService
	Health         Pinger
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Recovery(cfg.Logger), RequestLogger(cfg.Logger), Timeout(cfg.RequestTimeout))

	router.GET("/healthz", healthz(cfg.Health))

	h := NewHandler(cfg.Bookings, cfg.Slots, cfg.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings", h.BookSlot)
		v1.DELETE("/bookings/:id", h.CancelBooking)
		v1.GET("/teachers/:id/enrollments", h.ListTeacherEnrollments)

		v1.POST("/slots", h.CreateSlot)
		v1.GET("/slots", h.ListOpenSlots)
		v1.GET("/slots/:id", h.GetSlot)
		v1.POST("/slots/:id/cancel", h.CancelSlot)
	}

	return router
}

func healthz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			if err := p.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
