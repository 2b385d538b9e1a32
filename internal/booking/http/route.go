package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the booking endpoints. writerMiddleware guards the routes
// that change the timetable; ownership is checked by the service.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, writerMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/mine", h.Mine)
		group.GET("/today", h.Today)
		group.GET("/summary", h.Summary)
		group.POST("/check", h.Check)
		group.GET("/:id", h.Get)
	}

	// === Lecturer and Admin Routes ===
	writers := group.Group("", writerMiddleware)
	{
		writers.POST("", h.Create)
		writers.PATCH("/:id", h.Reschedule)
		writers.DELETE("/:id", h.Delete)
	}
}
