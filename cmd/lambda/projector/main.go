package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kinesis"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/projection"
	"go.uber.org/zap"
)

var (
	projector *projection.Projector
	logger    *zap.Logger
)

func init() {
	cfg, err := config.LoadWorker()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if logger, err = logging.New("storefront-projector-lambda", cfg.LogLevel); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to PostgreSQL", zap.Error(err))
	}
	projector = projection.NewProjector(store.NewPostgresReadStore(db), logger)
	logger.Info("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Dispatch(ctx, batch, projector, logger), nil
}

func main() {
	lambda.Start(handler)
}
