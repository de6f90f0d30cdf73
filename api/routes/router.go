// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	_ "slotify/docs"
	"slotify/internal/activities"
	"slotify/internal/availability"
	"slotify/internal/customers"
	"slotify/internal/payments"
	"slotify/internal/pricing"
	"slotify/internal/realtime"
	"slotify/internal/reservations"
	"slotify/internal/shared/clock"
	"slotify/internal/shared/config"
	"slotify/internal/shared/database"
	"slotify/internal/shared/middleware"
	"slotify/internal/venues"
	"slotify/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	bus     *realtime.Bus
	gateway payments.Gateway
	clock   clock.Clock

	// shared between route groups
	activityService     activities.Service
	venueService        venues.Service
	availabilityService availability.Service
	pricingService      pricing.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, bus *realtime.Bus, gateway payments.Gateway) *Router {
	return &Router{
		config:  cfg,
		db:      db,
		bus:     bus,
		gateway: gateway,
		clock:   clock.Real{},
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API docs
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := middleware.JWTAuth(r.config.JWT.Secret)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Catalog first: availability, pricing and reservations depend on it
		r.setupCatalogRoutes(api, auth)
		r.setupAvailabilityRoutes(api)
		r.setupPricingRoutes(api)
		r.setupReservationRoutes(api, auth)
		r.setupRealtimeRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "slotify",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now(),
			"service":     "slotify",
			"subscribers": r.bus.SubscriberCount(),
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "operational",
			"api_version":     r.config.APIVersion,
			"realtime_broker": r.config.Realtime.Broker,
			"payment_gateway": r.config.Payments.Gateway,
			"timestamp":       time.Now(),
		})
	})
}

// setupCatalogRoutes configures venue and activity routes
func (r *Router) setupCatalogRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	venueRepo := venues.NewRepository(r.db.GetPostgreSQL())
	r.venueService = venues.NewService(venueRepo)
	venues.SetupVenueRoutes(rg, venues.NewController(r.venueService))

	activityRepo := activities.NewRepository(r.db.GetPostgreSQL())
	r.activityService = activities.NewService(activityRepo, r.bus)

	// Inject cache service dependency
	if redisClient := r.db.GetRedisClient(); redisClient != nil {
		r.activityService.SetCacheService(cache.NewService(redisClient))
	}

	activities.SetupActivityRoutes(rg, activities.NewController(r.activityService), auth)
}

// setupAvailabilityRoutes configures slot listing and checks
func (r *Router) setupAvailabilityRoutes(rg *gin.RouterGroup) {
	var dayCache availability.DayCache
	if redisClient := r.db.GetRedisClient(); redisClient != nil {
		dayCache = availability.NewRedisCache(cache.NewService(redisClient), r.config.Availability.CacheTTL)
	} else {
		dayCache = availability.NewMemoryCache(r.clock, r.config.Availability.CacheTTL)
	}
	r.bus.Observe(availability.InvalidateOn(dayCache))

	r.availabilityService = availability.NewService(
		r.activityService,
		reservations.NewRepository(r.db.GetPostgreSQL()),
		availability.Options{
			Cache:       dayCache,
			Clock:       r.clock,
			MaxScanDays: r.config.Availability.MaxScanDays,
		},
	)

	availability.SetupAvailabilityRoutes(rg, availability.NewController(r.availabilityService))
}

// setupPricingRoutes configures promo, gift card and quote previews
func (r *Router) setupPricingRoutes(rg *gin.RouterGroup) {
	pricingRepo := pricing.NewRepository(r.db.GetPostgreSQL())
	r.pricingService = pricing.NewService(pricingRepo, r.clock, r.config.Payments.Currency)

	pricing.SetupPricingRoutes(rg, pricing.NewController(r.pricingService))
}

// setupReservationRoutes configures the reservation coordinator
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	reservationService := reservations.NewService(reservations.Dependencies{
		Repo:       reservations.NewRepository(r.db.GetPostgreSQL()),
		Activities: r.activityService,
		Customers:  customers.NewService(customers.NewRepository(r.db.GetPostgreSQL())),
		Pricing:    r.pricingService,
		Gateway:    r.gateway,
		Publisher:  r.bus,
		Clock:      r.clock,
	})

	reservations.SetupReservationRoutes(rg, reservations.NewController(reservationService, r.availabilityService), auth)
}

// setupRealtimeRoutes configures the SSE availability streams
func (r *Router) setupRealtimeRoutes(rg *gin.RouterGroup) {
	resolver := scopeResolver{activities: r.activityService, venues: r.venueService}
	realtime.SetupRealtimeRoutes(rg, realtime.NewController(r.bus, resolver))
}
