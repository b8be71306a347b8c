package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	automationapp "github.com/propman/backend/internal/application/automation"
	workflowapp "github.com/propman/backend/internal/application/workflow"
	"github.com/propman/backend/internal/domain/aiusage"
	automationdomain "github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/infrastructure/ai"
	"github.com/propman/backend/internal/infrastructure/auth"
	"github.com/propman/backend/internal/infrastructure/cache"
	"github.com/propman/backend/internal/infrastructure/config"
	"github.com/propman/backend/internal/infrastructure/logger"
	"github.com/propman/backend/internal/infrastructure/notify"
	"github.com/propman/backend/internal/infrastructure/persistence"
	"github.com/propman/backend/internal/infrastructure/scheduler"
	"github.com/propman/backend/internal/infrastructure/storage"
	"github.com/propman/backend/internal/infrastructure/telemetry"
	"github.com/propman/backend/internal/interfaces/http/handler"
	"github.com/propman/backend/internal/interfaces/http/middleware"
	"github.com/propman/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//	@title			PropMan AI Governance API
//	@version		1.0
//	@description	AI usage governance service for the PropMan property-management platform: usage ledger, rate limits, budgets, workflows, automation rules and cost optimization.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/propman/backend
//	@contact.email	support@propman.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting AI governance service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	usageEventRepo := persistence.NewUsageEventRepository(db.DB)
	policyRepo := persistence.NewRateLimitPolicyRepository(db.DB)
	budgetRepo := persistence.NewFeatureBudgetRepository(db.DB)
	workflowRepo := persistence.NewWorkflowRepository(db.DB)
	ruleRepo := persistence.NewAutomationRuleRepository(db.DB)
	featureSwitchRepo := persistence.NewFeatureSwitchRepository(db.DB)

	// Shared price table for cost accounting and estimates
	priceTable := aiusage.DefaultPriceTable()

	// AI provider and anomaly classifier
	var (
		provider   aiusage.Provider
		classifier *ai.OpenAIClassifier
	)
	switch cfg.AI.Provider {
	case "openai":
		openAICfg := ai.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		}
		provider, err = ai.NewOpenAIProvider(openAICfg, log)
		if err != nil {
			log.Fatal("Failed to initialize OpenAI provider", zap.Error(err))
		}
		classifier, err = ai.NewOpenAIClassifier(openAICfg, cfg.AI.ClassifierModel, log)
		if err != nil {
			log.Fatal("Failed to initialize OpenAI classifier", zap.Error(err))
		}
		log.Info("Using OpenAI provider", zap.String("classifier_model", cfg.AI.ClassifierModel))
	default:
		provider = ai.NewStubProvider()
		log.Warn("Using stub AI provider; ai_classification triggers stay dormant",
			zap.String("configured_provider", cfg.AI.Provider))
	}

	// Redis backs the cross-instance firing guard and in-app notifications.
	// Losing Redis degrades both: the DB compare-and-set still prevents double
	// firing, and failed notification sends are logged by the engine.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var firingGuard automationapp.FiringGuard
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unavailable, firing guard disabled", zap.Error(err))
		} else {
			firingGuard = cache.NewRedisFiringGuardWithClient(redisClient, "")
			log.Info("Redis connected, firing guard enabled")
		}
		cancel()
	}

	// Object storage for ledger exports
	var exportStorage aiusageapp.ObjectStorageService
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(context.Background()); err != nil {
			log.Warn("Failed to ensure export bucket", zap.Error(err))
		}
		exportStorage = s3Storage
		log.Info("Object storage configured", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		exportStorage = storage.NewStubObjectStorage()
		log.Warn("No export bucket configured, using in-memory stub storage")
	}

	// Initialize application services
	gateService := aiusageapp.NewGateService(usageEventRepo, policyRepo, budgetRepo, log)
	gateService.SetDefaultCaps(cfg.Gate.DefaultHourlyCap, cfg.Gate.DefaultDailyCap)
	ledgerService := aiusageapp.NewLedgerService(usageEventRepo, gateService, featureSwitchRepo, provider, priceTable, log)
	policyService := aiusageapp.NewPolicyService(policyRepo, budgetRepo, featureSwitchRepo, log)
	exportService := aiusageapp.NewExportService(usageEventRepo, exportStorage, log)
	advisorService := aiusageapp.NewAdvisorService(usageEventRepo, workflowRepo, priceTable, log)
	workflowService := workflowapp.NewWorkflowService(workflowRepo, priceTable, log)
	ruleService := automationapp.NewRuleService(ruleRepo, log)

	// Automation engine with its action sinks
	sinks := automationapp.ActionSinks{
		Email:    notify.NewLogEmailSender(log),
		Notify:   notify.NewRedisNotificationPublisher(redisClient, ""),
		Tasks:    notify.NewLogTaskCreator(log),
		Webhooks: notify.NewHTTPWebhookSender(),
		Disabler: featureSwitchRepo,
	}
	var engineClassifier automationdomain.Classifier
	if classifier != nil {
		engineClassifier = classifier
	}
	engine := automationapp.NewEngine(
		ruleRepo, usageEventRepo, budgetRepo,
		engineClassifier, sinks, firingGuard,
		cfg.Automation.EvaluationWindow, log,
	)

	// Rule engine scheduler
	ruleScheduler := scheduler.NewRuleEngineScheduler(engine, log, scheduler.RuleEngineSchedulerConfig{
		Enabled:      cfg.Automation.Enabled,
		TickInterval: cfg.Automation.TickInterval,
		PassTimeout:  cfg.Automation.PassTimeout,
	})
	if err := ruleScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start rule engine scheduler", zap.Error(err))
	}
	defer func() {
		if err := ruleScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping rule engine scheduler", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	gateHandler := handler.NewAIGateHandler(gateService)
	usageHandler := handler.NewAIUsageHandler(ledgerService, exportService)
	policyHandler := handler.NewAIPolicyHandler(policyService)
	workflowHandler := handler.NewAIWorkflowHandler(workflowService)
	ruleHandler := handler.NewAutomationRuleHandler(ruleService)
	optimizationHandler := handler.NewAIOptimizationHandler(advisorService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engineHTTP := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engineHTTP.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - OTLP spans (if enabled)
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	engineHTTP.Use(middleware.RequestID())
	engineHTTP.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engineHTTP.Use(middleware.Tracing())
	}
	engineHTTP.Use(logger.GinMiddleware(log))
	engineHTTP.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engineHTTP.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engineHTTP.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engineHTTP.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engineHTTP, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes. Tenant and user
	// identity come from token claims; login/session management lives in the
	// platform's identity service, not here.
	jwtService := auth.NewJWTService(cfg.JWT)
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: auth.NewRedisTokenBlacklistWithClient(redisClient),
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// AI governance domain
	aiRoutes := router.NewDomainGroup("ai", "/ai")
	aiRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ai governance service ready"})
	})

	// Gate checks (advisory pre-checks; enforcement happens on /ai/invoke)
	aiRoutes.POST("/gate/rate-limit/check", gateHandler.CheckRateLimit)
	aiRoutes.POST("/gate/budget/check", gateHandler.CheckBudget)

	// Usage ledger
	aiRoutes.POST("/usage", usageHandler.Record)
	aiRoutes.GET("/usage", usageHandler.List)
	aiRoutes.GET("/usage/summary", usageHandler.Summary)
	aiRoutes.POST("/usage/export", usageHandler.Export)
	aiRoutes.POST("/invoke", usageHandler.Invoke)

	// Governance policies
	aiRoutes.PUT("/policies/rate-limits", policyHandler.SetRateLimit)
	aiRoutes.GET("/policies/rate-limits", policyHandler.ListRateLimits)
	aiRoutes.DELETE("/policies/rate-limits/:id", policyHandler.DeleteRateLimit)
	aiRoutes.PUT("/policies/budgets", policyHandler.SetBudget)
	aiRoutes.GET("/policies/budgets", policyHandler.ListBudgets)
	aiRoutes.DELETE("/policies/budgets/:id", policyHandler.DeleteBudget)

	// Feature switches
	aiRoutes.GET("/features/disabled", policyHandler.ListDisabledFeatures)
	aiRoutes.POST("/features/:feature/enable", policyHandler.EnableFeature)

	// Workflows
	aiRoutes.POST("/workflows", workflowHandler.Create)
	aiRoutes.GET("/workflows", workflowHandler.List)
	aiRoutes.GET("/workflows/:id", workflowHandler.GetByID)
	aiRoutes.PUT("/workflows/:id", workflowHandler.Update)
	aiRoutes.DELETE("/workflows/:id", workflowHandler.Delete)
	aiRoutes.POST("/workflows/:id/steps", workflowHandler.AddStep)
	aiRoutes.DELETE("/workflows/:id/steps/:order", workflowHandler.RemoveStep)
	aiRoutes.POST("/workflows/:id/duplicate", workflowHandler.Duplicate)
	aiRoutes.GET("/workflows/:id/optimizations", optimizationHandler.ForWorkflow)

	// Automation rules
	aiRoutes.POST("/automation/rules", ruleHandler.Create)
	aiRoutes.GET("/automation/rules", ruleHandler.List)
	aiRoutes.GET("/automation/rules/:id", ruleHandler.GetByID)
	aiRoutes.PUT("/automation/rules/:id", ruleHandler.Update)
	aiRoutes.DELETE("/automation/rules/:id", ruleHandler.Delete)
	aiRoutes.POST("/automation/rules/:id/activate", ruleHandler.Activate)
	aiRoutes.POST("/automation/rules/:id/deactivate", ruleHandler.Deactivate)

	// Cost optimization advisor
	aiRoutes.GET("/optimizations", optimizationHandler.List)

	r.Register(aiRoutes)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engineHTTP.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engineHTTP,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
