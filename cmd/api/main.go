package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/rest"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/observability"
	"github.com/example/storefront/internal/projection"
	"github.com/example/storefront/internal/query"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		// No logger yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New("storefront-api", cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, "storefront-api", cfg.OTELEndpoint)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	logger.Info("starting",
		zap.String("event_store", cfg.EventStore),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("checkout_ids", cfg.CheckoutIDStrategy),
	)

	// Read side: PostgreSQL whenever events are persisted, so the projector binaries see the same tables
	var db *sql.DB
	var readStore store.ReadStoreInterface = store.NewReadStore()
	if cfg.EventStore != config.StoreMemory {
		db, err = store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()
		if err := store.Migrate(db); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		readStore = store.NewPostgresReadStore(db)
	}

	projector := projection.NewProjector(readStore, logger)

	// Without a broker the projector runs in-process on every append
	var publisher store.Publisher
	inline := len(cfg.KafkaBrokers) == 0
	if inline {
		publisher = projection.NewInlinePublisher(logger, projector)
	} else {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	var eventStore store.EventStoreInterface
	switch cfg.EventStore {
	case config.StorePostgres:
		eventStore = store.NewPostgresEventStore(db, publisher)
	case config.StoreDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal("load AWS config", zap.Error(err))
		}
		// Events reach the projector through the table's Kinesis stream
		eventStore = store.NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoEventsTable, cfg.DynamoSnapshotsTable)
	default:
		eventStore = store.NewEventStore(publisher)
	}

	if inline && cfg.EventStore == config.StorePostgres {
		replayEvents(ctx, eventStore, projector, logger)
	}

	opts := rest.Options{
		Timeout:     cfg.RequestTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		Logger:      logger,
	}
	inventory := rest.NewInventoryClient(cfg.InventoryURL, opts)
	payments := rest.NewPaymentClient(cfg.PaymentURL, opts)
	deliveries := rest.NewDeliveryClient(cfg.DeliveryURL, opts)
	reviews := rest.NewReviewsClient(cfg.ReviewsURL, opts)

	cartSvc := cart.NewService(eventStore, logger)
	orderSvc := order.NewService(eventStore, logger)

	var ids checkout.IDAllocator = checkout.ServerAssigned{}
	if cfg.CheckoutIDStrategy == config.IDsMaxScan {
		ids = checkout.MaxScan{Deliveries: deliveries}
	}

	orchestrator := checkout.New(checkout.Deps{
		Payments:   payments,
		Deliveries: deliveries,
		Inventory:  inventory,
		Carts:      cartSvc,
		IDs:        ids,
		Recorder:   order.NewJournal(orderSvc, logger),
		Logger:     logger,
	})

	cmdHandler := command.NewHandler(inventory, reviews, cartSvc, orchestrator, logger)
	queryHandler := query.NewHandler(inventory, reviews, cartSvc, deliveries, payments, readStore, logger)

	jwtService := auth.NewJWTService(cfg.JWTSecret, 15*time.Minute)
	router := api.NewRouter(api.NewHandlers(cmdHandler, queryHandler, logger), api.RouterConfig{
		Validator:      jwtService,
		Logger:         logger,
		RequestTimeout: 2 * cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// replayEvents rebuilds the checkout read models from the event log
func replayEvents(ctx context.Context, es store.EventStoreInterface, projector *projection.Projector, logger *zap.Logger) {
	events, err := es.GetAllEvents(ctx)
	if err != nil {
		logger.Error("replay: load events", zap.Error(err))
		return
	}
	logger.Info("replaying events", zap.Int("count", len(events)))

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Warn("replay: marshal event", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		if err := projector.HandleEvent(ctx, []byte(event.AggregateID), data); err != nil {
			logger.Warn("replay: project event", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
}
