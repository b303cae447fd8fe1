package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/example/letterpress-shop/internal/api"
	"github.com/example/letterpress-shop/internal/auth"
	"github.com/example/letterpress-shop/internal/checkout"
	"github.com/example/letterpress-shop/internal/config"
	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/user"
	"github.com/example/letterpress-shop/internal/email"
	"github.com/example/letterpress-shop/internal/invoice"
	"github.com/example/letterpress-shop/internal/kafka"
	"github.com/example/letterpress-shop/internal/payment"
	"github.com/example/letterpress-shop/internal/reporting"
	"github.com/example/letterpress-shop/internal/store"
)

// storage is the union of persistence interfaces the API binary wires up.
type storage interface {
	cart.Store
	checkout.CheckoutStore
	checkout.ReconcilerStore
	checkout.PollerStore
	order.Store
	user.Store
	api.OrderReader
	api.AdminCatalog
	api.UserDirectory
	api.CheckoutMaintenance
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Configuration error: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Letterpress Shop - Storefront API")
	log.Println("[API] ========================================")
	log.Printf("[API] Storage: %s", cfg.StorageBackend)
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)
	log.Printf("[API] Minimum order: %d", cfg.MinOrderAmount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend
	var db storage
	switch cfg.StorageBackend {
	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("[API] Failed to load AWS config: %v", err)
		}
		db = store.NewDynamo(dynamodb.NewFromConfig(awsCfg), store.DynamoTables{
			Carts:     cfg.CartsTable,
			Checkouts: cfg.CheckoutsTable,
			Orders:    cfg.OrdersTable,
			Products:  cfg.ProductsTable,
			Users:     cfg.UsersTable,
		})
		log.Println("[API] Connected to DynamoDB")
	default:
		db = store.NewMemory()
		log.Println("[API] Using in-memory storage")
	}

	// Event stream
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Reporting read DB (optional)
	var reports *reporting.Store
	if cfg.PostgresURL != "" {
		pg, err := reporting.ConnectPostgres(cfg.PostgresURL)
		if err != nil {
			log.Printf("[API] Reporting DB unavailable, admin reports disabled: %v", err)
		} else {
			defer pg.Close()
			reports = reporting.NewStore(pg)
			log.Println("[API] Connected to PostgreSQL (reporting)")
		}
	}

	// Payment platform
	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	// Domain services
	cartSvc := cart.NewService(db)
	userSvc := user.NewService(db)
	orderSvc := order.NewService(db, producer)

	initiator := checkout.NewInitiator(db, provider, cfg.MinOrderAmount, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	reconciler := checkout.NewReconciler(db, producer)
	poller := checkout.NewConfirmationPoller(db, checkout.PollerConfig{
		InitialDelay:  cfg.PollInitialDelay,
		RetryInterval: cfg.PollInterval,
		MaxRetries:    cfg.PollMaxRetries,
	})

	jwtService := auth.NewJWTService(
		cfg.JWTSecret,
		15*time.Minute, // Access token expiry
		7*24*time.Hour, // Refresh token expiry (7 days)
	)

	mailer := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	invoices := invoice.NewRenderer(cfg.BusinessName)

	// HTTP layer
	handlers := api.NewHandlers(db, cartSvc, db, initiator, reconciler, poller, provider, invoices)
	authHandlers := api.NewAuthHandlers(userSvc, jwtService, db)
	adminHandlers := api.NewAdminHandlers(orderSvc, userSvc, db, db, db, reports, mailer)
	router := api.NewRouter(handlers, authHandlers, adminHandlers, jwtService)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
