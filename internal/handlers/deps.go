package handlers

import (
	"context"
	"time"

	"github.com/imrishuroy/go-bakery-orderflow/internal/auth"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/payments"
	"github.com/imrishuroy/go-bakery-orderflow/internal/settings"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
	"github.com/imrishuroy/go-bakery-orderflow/internal/workflow"
)

// Workflow is implemented by *workflow.Controller.
type Workflow interface {
	CreateOrder(ctx context.Context, req validation.CreateOrderRequest, idempotencyKey string) (workflow.CreateResult, error)
	CreatePaymentIntent(ctx context.Context, req validation.PaymentIntentRequest) (*payments.Intent, error)
	ConfirmPayment(ctx context.Context, intentID, orderID string) (workflow.ConfirmResult, error)
}

// OrderStore is the read and admin-write side of *orders.Store.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error)
	SetPaymentStatus(ctx context.Context, orderID, status string) error
	SetFulfillmentStatus(ctx context.Context, orderID, status string) error
}

// SettingsStore is implemented by *settings.Store.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*settings.Setting, error)
	Bool(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value interface{}) (*settings.Setting, error)
	Toggle(ctx context.Context, key string) (bool, error)
}

// Authenticator is implemented by *auth.Authenticator.
type Authenticator interface {
	Login(password string) (string, time.Time, error)
	ValidateToken(token string) (*auth.Claims, error)
}
