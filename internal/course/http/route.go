package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	courses := r.Group("/courses", authMiddleware)
	{
		courses.GET("", h.List)
		courses.GET("/:id", h.Get)
	}
}
