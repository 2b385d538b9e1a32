package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	venues := r.Group("/venues", authMiddleware)
	{
		venues.GET("", h.List)
		venues.GET("/:id", h.Get)
	}
}
