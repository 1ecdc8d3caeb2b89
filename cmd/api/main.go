package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/auth"
	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/config"
	"github.com/imrishuroy/go-bakery-orderflow/internal/handlers"
	"github.com/imrishuroy/go-bakery-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-bakery-orderflow/internal/logging"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/payments"
	"github.com/imrishuroy/go-bakery-orderflow/internal/settings"
	"github.com/imrishuroy/go-bakery-orderflow/internal/workflow"
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

	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	gateway, err := payments.NewAdapter(payments.Config{SecretKey: cfg.Stripe.SecretKey, Currency: cfg.Stripe.Currency})
	if err != nil {
		logger.Fatal("failed to init payment adapter", zap.Error(err))
	}

	authn, err := auth.New(cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if err != nil {
		logger.Fatal("failed to init admin auth", zap.Error(err))
	}

	dispatcher, err := newDispatcher(cfg, clients)
	if err != nil {
		logger.Fatal("failed to init notifications", zap.Error(err))
	}

	metrics := aws.NewRecorder(clients.CloudWatch, cfg.Metrics.Namespace, logger)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.Tables.Orders)

	ctrl := workflow.New(workflow.Deps{
		Orders:      orderStore,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.Tables.IdempotencyTTL),
		Gateway:     gateway,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gin.SetMode(gin.ReleaseMode)
	r := handlers.NewRouter(handlers.Config{
		Workflow: ctrl,
		Orders:   orderStore,
		Settings: settings.NewStore(clients.DynamoDB, cfg.Tables.Settings),
		Auth:     authn,
		Logger:   logger,
		Registry: reg,
	})

	if cfg.App.RunLocal {
		runLocal(cfg.App.Addr, r, ctrl, metrics, cfg.Metrics.FlushInterval, logger)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		// the execution environment freezes once the handler returns
		ctrl.Wait()
		if ferr := metrics.Flush(ctx); ferr != nil {
			logger.Warn("metrics flush failed", zap.Error(ferr))
		}
		return resp, err
	})
}

// newDispatcher prefers the notification queue and falls back to sending mail in-process.
func newDispatcher(cfg *config.Config, clients *aws.AWSClients) (notify.Dispatcher, error) {
	if cfg.Notify.QueueURL != "" {
		return notify.NewQueueDispatcher(aws.NewPublisher(clients.SQS, cfg.Notify.QueueURL)), nil
	}
	mailer, err := notify.NewMailer(clients.SES, cfg.Mail.From)
	if err != nil {
		return nil, err
	}
	return notify.NewDirectDispatcher(mailer, notify.Options{
		PickupDetails:   cfg.Mail.PickupDetails,
		DeliveryDetails: cfg.Mail.DeliveryDetails,
	}), nil
}

// runLocal serves HTTP until SIGINT/SIGTERM, then drains dispatches and flushes metrics.
func runLocal(addr string, r *gin.Engine, ctrl *workflow.Controller, metrics *aws.Recorder, flushEvery time.Duration, logger *zap.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go metrics.Run(ctx, flushEvery)

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("running local server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	ctrl.Wait()
	if err := metrics.Flush(shutdownCtx); err != nil {
		logger.Warn("metrics flush failed", zap.Error(err))
	}
}
