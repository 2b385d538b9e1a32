package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/timetable-backend/internal/auth"
	"github.com/nekogravitycat/timetable-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/timetable-backend/internal/booking/http"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	courseHttp "github.com/nekogravitycat/timetable-backend/internal/course/http"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	userHttp "github.com/nekogravitycat/timetable-backend/internal/user/http"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
	venueHttp "github.com/nekogravitycat/timetable-backend/internal/venue/http"
)

// Config lists what the router needs from the rest of the application.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	Logger         *zap.Logger
	UserService    user.Service
	CourseService  course.Service
	VenueService   venue.Service
	BookingService booking.Service
	BookingQuery   booking.Query
	JWTManager     *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log))

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		config.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000", // web client
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// authMiddleware: Validates the JWT and resolves the caller's role.
	authMiddleware := auth.AuthRequired(cfg.JWTManager, cfg.UserService)
	adminMiddleware := auth.RequireRole(user.RoleAdmin)
	writerMiddleware := auth.RequireRole(user.RoleAdmin, user.RoleLecturer)

	userHandler := userHttp.NewHandler(cfg.UserService)
	courseHandler := courseHttp.NewHandler(cfg.CourseService)
	venueHandler := venueHttp.NewHandler(cfg.VenueService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.BookingQuery)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, adminMiddleware)
		courseHttp.RegisterRoutes(v1, courseHandler, authMiddleware)
		venueHttp.RegisterRoutes(v1, venueHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, writerMiddleware)
	}

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
