package main

import (
	"log"
	"time"

	"callsight/internal/engine/analytics"
	"callsight/internal/engine/campaigns"
	"callsight/internal/engine/ingest"
	"callsight/internal/pkg/logger"
	"callsight/internal/platform/config"
	"callsight/internal/platform/database"
	"callsight/internal/platform/registry"
	"callsight/internal/workers"
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

	campaignRepo := campaigns.NewRepository(db)
	analyticsRepo := analytics.NewRepository(db)
	deliveryRepo := ingest.NewDeliveryRepository(db)
	webhookRegistry := registry.New(db)
	forwarder := ingest.NewForwarder(deliveryRepo, webhookRegistry, cfg.Forwarder.Timeout)

	log.Println("Starting background workers...")

	// Start daily stats aggregator
	go runDailyStatsWorker(campaignRepo, analyticsRepo)

	// Start delivery retry worker
	go runDeliveryRetryWorker(forwarder, cfg.Forwarder)

	// Keep process alive
	select {}
}

func runDailyStatsWorker(campaignRepo *campaigns.Repository, analyticsRepo *analytics.Repository) {
	// Run at 01:00 UTC daily
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 1, 0, 0, 0, time.UTC)
		duration := next.Sub(now)

		if duration < 0 {
			duration = time.Minute
		}

		log.Printf("Daily stats worker sleeping for %v", duration)
		time.Sleep(duration)

		log.Println("Running daily stats aggregation...")
		if err := workers.AggregateDailyStats(campaignRepo, analyticsRepo, ""); err != nil {
			log.Printf("Error aggregating stats: %v", err)
		}
	}
}

func runDeliveryRetryWorker(forwarder *ingest.Forwarder, cfg config.ForwarderConfig) {
	ticker := time.NewTicker(cfg.RetryInterval)
	defer ticker.Stop()

	for range ticker.C {
		workers.RetryFailedDeliveries(forwarder, cfg.MaxAttempts)
	}
}
