package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/SamFowlerFWD/JTHHorseboxes-sub002/api/swagger" // swagger docs
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/config"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/database"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/handler"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/notify"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/quote"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           JTH Horsebox API
// @version         1.0
// @description     Configurator pricing, sales pipeline and production handover for J Taylor Horseboxes.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.JWTSecret != "" {
		middleware.SetJWTSecret([]byte(cfg.JWTSecret))
	}

	db, err := database.NewConnection(cfg.DSN)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL successfully")

	// Repositories
	catalogRepo := repository.NewCatalogRepository(db)
	ruleRepo := repository.NewAutomationRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.SeedCatalog(seedCtx, catalogRepo, cfg.CatalogFile); err != nil {
		slog.Error("Failed to seed catalog", "error", err)
		os.Exit(1)
	}
	if err := database.SeedRules(seedCtx, ruleRepo); err != nil {
		slog.Error("Failed to seed automation rules", "error", err)
		os.Exit(1)
	}
	cancelSeed()

	// Background workers
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	notifier := notify.NewEmailNotifier(cfg.SMTP, logger)
	if cfg.SMTP.Host == "" {
		slog.Warn("SMTP_HOST not set, emails will be logged instead of sent")
	}

	quotes, err := quote.NewRenderer(cfg.QuoteNodeID)
	if err != nil {
		slog.Error("Failed to create quote renderer", "error", err)
		os.Exit(1)
	}

	machine := pipeline.NewMachine(repository.NewPipelineStore(db), notifier, wsHub, logger)

	// Services
	catalogService := service.NewCatalogService(catalogRepo, cfg.Pricing, cfg.CatalogTTL)
	optionService := service.NewOptionService(catalogRepo, auditRepo, catalogService)
	configurationService := service.NewConfigurationService(repository.NewConfigurationRepository(db), catalogService)
	leadService := service.NewLeadService(service.LeadServiceDeps{
		Leads:      leadRepo,
		Activities: repository.NewActivityRepository(db),
		Audit:      auditRepo,
		Catalog:    catalogService,
		Machine:    machine,
		Notifier:   notifier,
		Publisher:  wsHub,
		Quotes:     quotes,
		Tx:         repository.NewTransactionManager(db),
	})
	ruleService := service.NewAutomationRuleService(ruleRepo, auditRepo)
	buildService := service.NewBuildService(repository.NewBuildRepository(db))
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(repository.NewStatisticsRepository(db), leadRepo)

	// Set up Gin Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// Pipeline event stream for the back office
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret(), middleware.RoleAdmin, middleware.RoleSales, middleware.RoleProduction)
	})

	api := router.Group("")
	handler.NewCatalogHandler(catalogService).RegisterRoutes(api)
	handler.NewConfigurationHandler(configurationService).RegisterRoutes(api)
	handler.NewLeadHandler(leadService).RegisterRoutes(api)
	handler.NewAutomationRuleHandler(ruleService).RegisterRoutes(api)
	handler.NewOptionHandler(optionService).RegisterRoutes(api)
	handler.NewBuildHandler(buildService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService).RegisterRoutes(api)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Drain queued emails after the last request has finished.
	notifier.Close()
	wsHub.Stop()

	slog.Info("Server exited")
}
