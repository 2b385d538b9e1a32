package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *UserHandler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	r.GET("/me", authMiddleware, h.Me)

	users := r.Group("/users", authMiddleware, adminMiddleware)
	{
		users.GET("", h.List)
		users.GET("/:id", h.Get)
	}
}
