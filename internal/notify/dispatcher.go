package notify

import (
	"context"
	"fmt"
)

// Dispatcher hands a confirmation off for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, c Confirmation) error
}

// Sink delivers a rendered message.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher is satisfied by aws.Publisher.
type Publisher interface {
	PublishJSON(ctx context.Context, payload interface{}, attributes map[string]string) (string, error)
}

// QueueDispatcher enqueues confirmations for the notification worker.
type QueueDispatcher struct {
	publisher Publisher
}

func NewQueueDispatcher(p Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: p}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, c Confirmation) error {
	_, err := d.publisher.PublishJSON(ctx, c, map[string]string{
		"order_id": c.OrderID,
		"kind":     "order_confirmation",
	})
	if err != nil {
		return fmt.Errorf("enqueue confirmation for order %s: %w", c.OrderID, err)
	}
	return nil
}

// DirectDispatcher renders and sends in the calling goroutine.
type DirectDispatcher struct {
	sink Sink
	opts Options
}

func NewDirectDispatcher(sink Sink, opts Options) *DirectDispatcher {
	return &DirectDispatcher{sink: sink, opts: opts}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, c Confirmation) error {
	return Deliver(ctx, d.sink, d.opts, c)
}

// Deliver renders c and sends it through sink.
func Deliver(ctx context.Context, sink Sink, opts Options, c Confirmation) error {
	msg, err := Render(c, opts)
	if err != nil {
		return err
	}
	if err := sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", c.OrderID, err)
	}
	return nil
}
