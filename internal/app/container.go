package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/timetable-backend/internal/api"
	"github.com/nekogravitycat/timetable-backend/internal/auth"
	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/events"
	"github.com/nekogravitycat/timetable-backend/internal/memstore"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

// Config holds the dependencies and settings required to start the application.
// Exactly one of DBPool and Store is set.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	Logger          *zap.Logger
	DBPool          *pgxpool.Pool
	Store           *memstore.Store
	SlotLockTimeout time.Duration
	JWTSecret       string
	JWTTTL          time.Duration
	Publisher       events.Publisher
	Now             func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	UserService    user.Service
	BookingService booking.Service
	BookingQuery   booking.Query
}

type repositories struct {
	users    user.Repository
	courses  course.Repository
	venues   venue.Repository
	bookings booking.Repository
}

func newRepositories(cfg Config) repositories {
	if cfg.Store != nil {
		return repositories{
			users:    cfg.Store.Users(),
			courses:  cfg.Store.Courses(),
			venues:   cfg.Store.Venues(),
			bookings: cfg.Store.Bookings(),
		}
	}
	return repositories{
		users:    user.NewPgxRepository(cfg.DBPool),
		courses:  course.NewPgxRepository(cfg.DBPool),
		venues:   venue.NewPgxRepository(cfg.DBPool),
		bookings: booking.NewPgxRepository(cfg.DBPool, cfg.SlotLockTimeout),
	}
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	repos := newRepositories(cfg)

	// Catalog modules
	userService := user.NewService(repos.users)
	courseService := course.NewService(repos.courses)
	venueService := venue.NewService(repos.venues)

	// Booking module
	bookingService := booking.NewService(
		repos.bookings,
		courseService,
		venueService,
		userService,
		cfg.Publisher,
		cfg.Logger.Named("booking"),
	)
	bookingQuery := booking.NewQueryWithClock(repos.bookings, courseService, venueService, userService, cfg.Now)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         cfg.Logger.Named("http"),
		UserService:    userService,
		CourseService:  courseService,
		VenueService:   venueService,
		BookingService: bookingService,
		BookingQuery:   bookingQuery,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		UserService:    userService,
		BookingService: bookingService,
		BookingQuery:   bookingQuery,
	}
}
