package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/config"
	"github.com/imrishuroy/go-bakery-orderflow/internal/logging"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateWorker(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	mailer, err := notify.NewMailer(clients.SES, cfg.Mail.From)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	metrics := aws.NewRecorder(clients.CloudWatch, cfg.Metrics.Namespace, logger)
	p := NewProcessor(mailer, notify.Options{
		PickupDetails:   cfg.Mail.PickupDetails,
		DeliveryDetails: cfg.Mail.DeliveryDetails,
	}, metrics, logger)

	// RUN_LOCAL=true processes a single message taken from LOCAL_SQS_BODY.
	if cfg.App.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY is required when running locally")
		}
		ev := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(context.Background(), ev)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local delivery failed", zap.Error(err), zap.Int("failures", len(resp.BatchItemFailures)))
		}
		return
	}

	lambda.Start(p.Handle)
}
