package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/example/letterpress-shop/internal/config"
	"github.com/example/letterpress-shop/internal/kafka"
	"github.com/example/letterpress-shop/internal/projection"
	"github.com/example/letterpress-shop/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Projector] Configuration error: %v", err)
	}

	consumerGroup := "reporting-projector"

	log.Println("[Projector] ========================================")
	log.Println("[Projector] Letterpress Shop - Reporting Projector")
	log.Println("[Projector] ========================================")
	log.Printf("[Projector] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Projector] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Projector] Group: %s", consumerGroup)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := reporting.ConnectPostgres(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("[Projector] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("[Projector] Connected to PostgreSQL")

	sink := reporting.NewStore(db)
	if err := sink.EnsureSchema(); err != nil {
		log.Fatalf("[Projector] Failed to ensure schema: %v", err)
	}

	projector := projection.NewProjector(sink)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("[Projector] Starting event consumer...")
		if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
			log.Printf("[Projector] Consumer error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Projector] Shutting down...")
	cancel()
	wg.Wait()
}
