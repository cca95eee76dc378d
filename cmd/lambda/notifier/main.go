package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/kinesis"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/notification"
	"go.uber.org/zap"
)

var (
	notifier *notification.Handler
	logger   *zap.Logger
)

func init() {
	cfg, err := config.LoadWorker()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if logger, err = logging.New("storefront-notifier-lambda", cfg.LogLevel); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	notifier = notification.NewHandler(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), logger)
	logger.Info("initialized", zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort))
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Dispatch(ctx, batch, notifier, logger), nil
}

func main() {
	lambda.Start(handler)
}
