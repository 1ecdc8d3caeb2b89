package aws

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Business counters published to CloudWatch.
const (
	MetricOrdersCreated        = "OrdersCreated"
	MetricPaymentsConfirmed    = "PaymentsConfirmed"
	MetricPaymentsNotSucceeded = "PaymentsNotSucceeded"
	MetricNotificationsSent    = "NotificationsSent"
	MetricNotificationsFailed  = "NotificationsFailed"
)

// Recorder aggregates counters in memory and pushes them to CloudWatch on Flush.
// Incr never blocks on the network. A nil *Recorder is a no-op.
type Recorder struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
	nowFunc   func() time.Time

	mu     sync.Mutex
	counts map[string]float64
}

// NewRecorder creates a Recorder publishing under namespace.
func NewRecorder(client CloudWatchAPI, namespace string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
		counts:    map[string]float64{},
	}
}

// Incr adds one to the named counter.
func (r *Recorder) Incr(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.counts[name]++
	r.mu.Unlock()
}

// Pending returns the unflushed value of a counter.
func (r *Recorder) Pending(name string) float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// Flush publishes and resets the aggregated counters. On failure the counts are kept
// for the next attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	snapshot := r.counts
	r.counts = map[string]float64{}
	r.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	now := r.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(names))
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(name),
			Unit:       cwtypes.StandardUnitCount,
			Value:      sdkaws.Float64(snapshot[name]),
			Timestamp:  sdkaws.Time(now),
		})
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		r.mu.Lock()
		for name, v := range snapshot {
			r.counts[name] += v
		}
		r.mu.Unlock()
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	if r == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Warn("metrics flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Flush(final); err != nil {
				r.logger.Warn("final metrics flush failed", zap.Error(err))
			}
			cancel()
			return
		}
	}
}
