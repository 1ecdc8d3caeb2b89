package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
)

// SES client-fault codes that succeed on a later attempt.
var retryableCodes = map[string]bool{
	"TooManyRequestsException": true,
	"LimitExceededException":   true,
	"SendingPausedException":   true,
}

// Processor delivers queued order confirmations.
type Processor struct {
	sink    notify.Sink
	opts    notify.Options
	metrics *aws.Recorder
	logger  *zap.Logger
}

// NewProcessor creates a processor sending through sink. metrics may be nil.
func NewProcessor(sink notify.Sink, opts notify.Options, metrics *aws.Recorder, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{sink: sink, opts: opts, metrics: metrics, logger: logger}
}

// Handle processes a batch and reports only the messages worth retrying, so one bad
// message does not redeliver the whole batch.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Warn("confirmation delivery failed, will retry",
				zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	if err := p.metrics.Flush(ctx); err != nil {
		p.logger.Warn("metrics flush failed", zap.Error(err))
	}
	return resp, nil
}

// processMessage returns an error only for failures a redelivery can fix.
func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	log := p.logger.With(zap.String("message_id", rec.MessageId))

	var c notify.Confirmation
	if err := json.Unmarshal([]byte(rec.Body), &c); err != nil {
		p.metrics.Incr(aws.MetricNotificationsFailed)
		log.Error("dropping malformed confirmation", zap.Error(err))
		return nil
	}
	if c.OrderID == "" || c.CustomerEmail == "" {
		p.metrics.Incr(aws.MetricNotificationsFailed)
		log.Error("dropping incomplete confirmation", zap.String("order_id", c.OrderID))
		return nil
	}
	log = log.With(zap.String("order_id", c.OrderID))

	err := notify.Deliver(ctx, p.sink, p.opts, c)
	switch {
	case err == nil:
		p.metrics.Incr(aws.MetricNotificationsSent)
		log.Info("confirmation sent")
		return nil
	case permanent(err):
		p.metrics.Incr(aws.MetricNotificationsFailed)
		log.Error("dropping undeliverable confirmation", zap.Error(err))
		return nil
	default:
		return fmt.Errorf("order %s: %w", c.OrderID, err)
	}
}

// permanent reports whether err is a rejection that retrying cannot change.
func permanent(err error) bool {
	if errors.Is(err, errorx.ErrValidation) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorFault() == smithy.FaultClient && !retryableCodes[apiErr.ErrorCode()]
	}
	return false
}
