package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"main/handler"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// Check required environment variables
	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"JWT_SECRET_KEY",
		"PORT",
	}

	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()
	utils.InitJWT()
	utils.InitMongoClient()
}

func setupRouter(analyticsCache *services.AnalyticsCache) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	// Stores
	eventsRepo := repository.GetEventsRepo(utils.MongoClient)
	guidanceRepo := repository.GetGuidanceRepo(utils.MongoClient)
	templatesRepo := repository.GetTemplatesRepo(utils.MongoClient)

	// Services
	guidanceService := usecase.NewGuidanceService(guidanceRepo, eventsRepo, templatesRepo)
	analyticsService := &usecase.AnalyticsService{
		Events:     eventsRepo,
		Catalog:    templatesRepo,
		Thresholds: usecase.InsightThresholdsFromEnv(),
	}
	if analyticsCache != nil {
		analyticsService.Snapshots = analyticsCache
	}

	// Handlers
	guidanceHandler := handler.NewGuidanceHandler(guidanceService)
	templatesHandler := handler.NewTemplatesHandler(guidanceService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	// Public routes
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		guidance := protected.Group("/guidance")
		{
			guidance.POST("/start", guidanceHandler.StartGuidance)
			guidance.POST("/steps/:stepId/complete", guidanceHandler.CompleteStep)
			guidance.POST("/steps/:stepId/view", guidanceHandler.RecordStepView)
			guidance.POST("/steps/:stepId/skip", guidanceHandler.SkipStep)
			guidance.POST("/tutorial/complete", guidanceHandler.CompleteTutorial)
			guidance.GET("/progress", guidanceHandler.GetProgress)
			guidance.GET("/current-step", guidanceHandler.GetCurrentStep)
		}

		templates := protected.Group("/templates")
		templates.Use(middleware.CacheControlMiddleware("300"))
		{
			templates.GET("/", templatesHandler.ListTemplates)
			templates.GET("/recommended", templatesHandler.GetRecommendedTemplates)
		}

		analytics := protected.Group("/analytics")
		analytics.Use(middleware.CacheControlMiddleware("60"))
		{
			analytics.GET("/onboarding", analyticsHandler.GetOnboardingAnalytics)
			analytics.GET("/journey", analyticsHandler.GetUserJourney)
			analytics.GET("/insights", analyticsHandler.GetInsights)
		}
	}

	return router
}

func main() {
	// Indexes and starter catalog
	db := utils.MongoClient.Database(os.Getenv("MONGO_DB"))
	if err := repository.SetupIndexes(db); err != nil {
		log.Fatalf("Failed to set up indexes: %v", err)
	}

	templatesRepo := repository.GetTemplatesRepo(utils.MongoClient)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := templatesRepo.SeedTemplates(ctx); err != nil {
		log.Printf("Warning: could not seed template catalog: %v", err)
	}
	cancel()

	// Snapshot cache is optional; the service degrades to recompute-only
	var analyticsCache *services.AnalyticsCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err := services.NewAnalyticsCache(redisURL,
			utils.GetEnvAsDuration("ANALYTICS_SNAPSHOT_TTL", 24*time.Hour))
		if err != nil {
			log.Printf("Warning: analytics snapshot cache disabled: %v", err)
		} else {
			analyticsCache = cache
		}
	}

	utils.StartSystemMetricsCollector(utils.GetEnvAsDuration("SYSTEM_METRICS_INTERVAL", 30*time.Second))

	router := setupRouter(analyticsCache)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	serverAddr := fmt.Sprintf(":%s", port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
