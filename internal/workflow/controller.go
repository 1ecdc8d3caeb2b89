// Package workflow owns the order lifecycle: creation, payment intents, payment
// confirmation and the confirmation notification that follows it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
	"github.com/imrishuroy/go-bakery-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/payments"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

const defaultDispatchTimeout = 30 * time.Second

// OrderStore is the part of orders.Store the controller needs.
type OrderStore interface {
	Create(ctx context.Context, order orders.Order) error
	CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, order orders.Order, ttlWindow time.Duration) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	TransitionPaymentStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
}

// IdempotencyStore is the part of idempotency.Store the controller needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	NewRecord(key, orderID, requestHash string) idempotency.Record
	Table() string
	TTL() time.Duration
}

// Gateway is the payment provider adapter.
type Gateway interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*payments.IntentDetails, error)
}

// Metrics counts business events. *aws.Recorder satisfies it.
type Metrics interface {
	Incr(name string)
}

// Deps wires a Controller. Idempotency, Dispatcher, Metrics and Logger are optional.
type Deps struct {
	Orders      OrderStore
	Idempotency IdempotencyStore
	Gateway     Gateway
	Dispatcher  notify.Dispatcher
	Metrics     Metrics
	Logger      *zap.Logger
}

// Controller coordinates the order store, the payment gateway and notifications.
type Controller struct {
	orders     OrderStore
	idem       IdempotencyStore
	gateway    Gateway
	dispatcher notify.Dispatcher
	metrics    Metrics
	logger     *zap.Logger
	validate   *validatorv10.Validate

	dispatchTimeout time.Duration
	nowFunc         func() time.Time
	newID           func() string

	wg sync.WaitGroup
}

// CreateResult is returned by CreateOrder.
type CreateResult struct {
	OrderID string `json:"order_id"`
	// Replayed is set when an earlier request with the same idempotency key created the order.
	Replayed bool `json:"-"`
}

// ConfirmResult is returned by ConfirmPayment.
type ConfirmResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// New builds a Controller.
func New(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		orders:          d.Orders,
		idem:            d.Idempotency,
		gateway:         d.Gateway,
		dispatcher:      d.Dispatcher,
		metrics:         d.Metrics,
		logger:          logger,
		validate:        validation.New(),
		dispatchTimeout: defaultDispatchTimeout,
		nowFunc:         time.Now,
		newID:           uuid.NewString,
	}
}

// CreateOrder validates req and stores a new order with both statuses pending and today's
// date. With a non-empty idempotencyKey a repeated request returns the first order id;
// the same key with a different body is a conflict. No notification is sent.
func (c *Controller) CreateOrder(ctx context.Context, req validation.CreateOrderRequest, idempotencyKey string) (CreateResult, error) {
	if err := validation.Check(c.validate, req); err != nil {
		return CreateResult{}, err
	}

	now := c.nowFunc().UTC()
	order := orders.Order{
		OrderID:           c.newID(),
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		Items:             req.OrderItems(),
		DeliveryType:      req.DeliveryType,
		TotalAmount:       req.TotalAmount,
		OrderDate:         now.Format(orders.OrderDateLayout),
		PaymentStatus:     orders.PaymentPending,
		FulfillmentStatus: orders.FulfillmentPending,
		IsTestOrder:       req.IsTestOrder,
		CreatedAt:         now,
	}
	if req.DeliveryType == orders.DeliveryDelivery {
		order.DeliveryAddress = req.DeliveryAddress
	}

	if idempotencyKey == "" || c.idem == nil {
		if err := c.orders.Create(ctx, order); err != nil {
			return CreateResult{}, err
		}
		c.created(order)
		return CreateResult{OrderID: order.OrderID}, nil
	}

	hash, err := idempotency.HashRequest(req)
	if err != nil {
		return CreateResult{}, err
	}
	if res, ok, err := c.replay(ctx, idempotencyKey, hash); err != nil || ok {
		return res, err
	}

	rec := c.idem.NewRecord(idempotencyKey, order.OrderID, hash)
	err = c.orders.CreateWithIdempotencyTransaction(ctx, c.idem.Table(), rec, order, c.idem.TTL())
	if errors.Is(err, orders.ErrIdempotencyKeyExists) {
		// lost a race with a concurrent request carrying the same key
		res, ok, rerr := c.replay(ctx, idempotencyKey, hash)
		if rerr != nil {
			return CreateResult{}, rerr
		}
		if ok {
			return res, nil
		}
		return CreateResult{}, errorx.Conflict("idempotency key is being used by a concurrent request")
	}
	if err != nil {
		return CreateResult{}, err
	}
	c.created(order)
	return CreateResult{OrderID: order.OrderID}, nil
}

func (c *Controller) replay(ctx context.Context, key, hash string) (CreateResult, bool, error) {
	rec, err := c.idem.Get(ctx, key)
	if err != nil {
		return CreateResult{}, false, err
	}
	if rec == nil {
		return CreateResult{}, false, nil
	}
	if rec.RequestHash != hash {
		return CreateResult{}, false, errorx.Conflict("idempotency key was already used with a different request body")
	}
	c.logger.Info("order create replayed", zap.String("order_id", rec.OrderID), zap.String("idempotency_key", key))
	return CreateResult{OrderID: rec.OrderID, Replayed: true}, true, nil
}

func (c *Controller) created(o orders.Order) {
	c.incr(aws.MetricOrdersCreated)
	c.logger.Info("order created",
		zap.String("order_id", o.OrderID),
		zap.String("delivery_type", o.DeliveryType),
		zap.Float64("total_amount", o.TotalAmount),
		zap.Bool("is_test_order", o.IsTestOrder))
}

// CreatePaymentIntent opens a provider intent for an existing, unpaid order. The amount must
// equal the stored order total.
func (c *Controller) CreatePaymentIntent(ctx context.Context, req validation.PaymentIntentRequest) (*payments.Intent, error) {
	if err := validation.Check(c.validate, req); err != nil {
		return nil, err
	}
	order, err := c.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != orders.PaymentPending {
		return nil, errorx.Conflict(fmt.Sprintf("order %s is already %s", order.OrderID, order.PaymentStatus))
	}
	want := decimal.NewFromFloat(order.TotalAmount).Round(2)
	if !decimal.NewFromFloat(req.Amount).Round(2).Equal(want) {
		return nil, errorx.Validation("amount", "must equal the order total "+want.StringFixed(2))
	}

	intent, err := c.gateway.CreateIntent(ctx, payments.IntentRequest{
		Amount:        req.Amount,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		OrderID:       req.OrderID,
	})
	if err != nil {
		c.logger.Warn("create payment intent failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, err
	}
	c.logger.Info("payment intent created", zap.String("order_id", req.OrderID), zap.String("intent_id", intent.ID))
	return intent, nil
}

// ConfirmPayment checks the provider intent and, when it succeeded, moves the order from
// pending to confirmed. Repeated calls succeed without a second transition or notification.
// A non-succeeded intent is reported as {false, status} and changes nothing.
func (c *Controller) ConfirmPayment(ctx context.Context, intentID, orderID string) (ConfirmResult, error) {
	if err := validation.Check(c.validate, validation.ConfirmPaymentRequest{IntentID: intentID, OrderID: orderID}); err != nil {
		return ConfirmResult{}, err
	}
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return ConfirmResult{}, err
	}

	intent, err := c.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		c.logger.Warn("retrieve payment intent failed", zap.String("order_id", orderID), zap.String("intent_id", intentID), zap.Error(err))
		return ConfirmResult{}, err
	}
	if intent.OrderID != "" && intent.OrderID != orderID {
		return ConfirmResult{}, errorx.Validation("intent_id", "payment intent belongs to a different order")
	}
	if want := payments.ToMinorUnits(decimal.NewFromFloat(order.TotalAmount)); intent.Amount != want {
		c.logger.Warn("payment intent amount mismatch", zap.String("order_id", orderID), zap.String("intent_id", intentID),
			zap.Int64("intent_amount", intent.Amount), zap.Int64("order_amount", want))
		return ConfirmResult{}, errorx.Validation("intent_id", "payment intent amount does not match the order total")
	}
	if intent.Status != payments.StatusSucceeded {
		c.incr(aws.MetricPaymentsNotSucceeded)
		c.logger.Info("payment not succeeded", zap.String("order_id", orderID), zap.String("status", intent.Status))
		return ConfirmResult{Success: false, Status: intent.Status}, nil
	}

	err = c.orders.TransitionPaymentStatus(ctx, orderID, orders.PaymentPending, orders.PaymentConfirmed)
	var mismatch *orders.StatusMismatchError
	switch {
	case err == nil:
	case errors.As(err, &mismatch) && (mismatch.Current == orders.PaymentConfirmed || mismatch.Current == orders.PaymentCompleted):
		c.logger.Info("payment already confirmed", zap.String("order_id", orderID), zap.String("payment_status", mismatch.Current))
		return ConfirmResult{Success: true, Status: intent.Status}, nil
	default:
		return ConfirmResult{}, err
	}

	c.incr(aws.MetricPaymentsConfirmed)
	c.logger.Info("payment confirmed", zap.String("order_id", orderID), zap.String("intent_id", intentID))

	c.dispatchAsync(ctx, notify.FromOrder(*order))
	return ConfirmResult{Success: true, Status: intent.Status}, nil
}

// dispatchAsync hands the confirmation off without holding up the caller. The request
// context's values are kept but its cancellation is not.
func (c *Controller) dispatchAsync(ctx context.Context, conf notify.Confirmation) {
	if c.dispatcher == nil {
		c.logger.Warn("no notification dispatcher configured", zap.String("order_id", conf.OrderID))
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.dispatchTimeout)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		if err := c.dispatcher.Dispatch(dctx, conf); err != nil {
			c.incr(aws.MetricNotificationsFailed)
			c.logger.Error("confirmation dispatch failed", zap.String("order_id", conf.OrderID), zap.Error(err))
			return
		}
		c.incr(aws.MetricNotificationsSent)
		c.logger.Info("confirmation dispatched", zap.String("order_id", conf.OrderID))
	}()
}

// Wait blocks until every in-flight notification dispatch has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) incr(name string) {
	if c.metrics != nil {
		c.metrics.Incr(name)
	}
}
