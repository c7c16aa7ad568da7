package main

import (
	"fmt"
	"log"
	"net/http"

	"callsight/internal/api"
	"callsight/internal/api/handlers"
	"callsight/internal/api/middleware"
	"callsight/internal/engine/analytics"
	"callsight/internal/engine/calls"
	"callsight/internal/engine/campaigns"
	"callsight/internal/engine/ingest"
	"callsight/internal/pkg/logger"
	"callsight/internal/platform/audit"
	"callsight/internal/platform/auth"
	"callsight/internal/platform/config"
	"callsight/internal/platform/database"
	"callsight/internal/platform/registry"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Repositories
	webhookRegistry := registry.New(db)
	campaignRepo := campaigns.NewRepository(db)
	callRepo := calls.NewRepository(db)
	analyticsRepo := analytics.NewRepository(db)
	deliveryRepo := ingest.NewDeliveryRepository(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLogger := audit.NewLogger(db)
	forwarder := ingest.NewForwarder(deliveryRepo, webhookRegistry, cfg.Forwarder.Timeout)
	ingestSvc := ingest.NewService(webhookRegistry, campaignRepo, callRepo, forwarder)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(webhookRegistry, auditLogger, cfg.Domains.IngestBaseURL)
	ingestHandler := handlers.NewIngestHandler(ingestSvc)
	callHandler := handlers.NewCallHandler(callRepo)
	campaignHandler := handlers.NewCampaignHandler(campaignRepo, analyticsRepo)
	healthHandler := handlers.NewHealthHandler(db)
	metricsHandler := handlers.NewMetricsHandler(ingestSvc.Metrics())

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	middleware.SetLimits(cfg.RateLimit.IngestPerMinute, cfg.RateLimit.APIReadPerMinute, cfg.RateLimit.APIWritePerMinute)

	// Router
	deps := &api.Dependencies{
		WebhookHandler:  webhookHandler,
		IngestHandler:   ingestHandler,
		CallHandler:     callHandler,
		CampaignHandler: campaignHandler,
		HealthHandler:   healthHandler,
		MetricsHandler:  metricsHandler,
		AuthMiddleware:  authMiddleware,
	}
	router := api.NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
