package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"logbook/internal/handler"
	"logbook/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	ReadingHandler *handler.ReadingHandler
	VehicleHandler *handler.VehicleHandler
	PeriodHandler  *handler.PeriodHandler
	ReportHandler  *handler.ReportHandler
	AuditHandler   *handler.AuditHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	JWTSecret      string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check. Unauthenticated.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. Everything below requires a verified principal.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		// Trip ledger routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.GetAllTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.PATCH("/:id", deps.TripHandler.UpdateTrip)
			trips.DELETE("/:id", deps.TripHandler.DeleteTrip)
		}

		// Vehicle and odometer reading routes.
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", deps.VehicleHandler.SyncVehicle)
			vehicles.GET("", deps.VehicleHandler.GetAllVehicles)
			vehicles.GET("/:id", deps.VehicleHandler.GetVehicle)
			vehicles.GET("/:id/business-use", deps.VehicleHandler.GetBusinessUse)
			vehicles.POST("/:id/readings", deps.ReadingHandler.CreateReading)
			vehicles.POST("/:id/readings/ocr", deps.ReadingHandler.IngestOCRReading)
			vehicles.GET("/:id/readings", deps.ReadingHandler.ListReadings)
		}

		// Period lock routes.
		periods := v1.Group("/periods")
		{
			periods.POST("/lock", deps.PeriodHandler.LockPeriod)
			periods.GET("/:scope/:key", deps.PeriodHandler.GetPeriod)
		}

		// VAT report routes.
		reports := v1.Group("/reports")
		{
			reports.POST("", deps.ReportHandler.GenerateReport)
			reports.GET("/:id", deps.ReportHandler.GetReport)
		}

		// Audit log routes.
		v1.GET("/audit", deps.AuditHandler.ListAudit)
	}

	return router
}
