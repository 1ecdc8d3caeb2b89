// Package payments wraps the hosted payment provider. Only two provider calls are
// made: create a payment intent and retrieve one.
package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// StatusSucceeded is the intent status that allows an order to be confirmed.
const StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// Metadata keys attached to every intent.
const (
	MetadataOrderID      = "orderId"
	MetadataCustomerName = "customerName"
)

// IntentsAPI is the subset of the provider's payment intent client the adapter uses.
type IntentsAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

var _ IntentsAPI = (*paymentintent.Client)(nil)

// Config holds the provider credentials.
type Config struct {
	SecretKey string
	Currency  string
}

// Adapter translates between orders and provider payment intents.
type Adapter struct {
	intents  IntentsAPI
	currency string
}

// IntentRequest describes the charge for one order.
type IntentRequest struct {
	Amount        float64
	CustomerEmail string
	CustomerName  string
	OrderID       string
}

// Intent is what the client needs to collect the card.
type Intent struct {
	ID           string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// IntentDetails is the read-only view of an existing intent.
type IntentDetails struct {
	ID      string
	Status  string
	OrderID string
	Amount  int64
}

// NewAdapter builds an adapter backed by the provider's API. A missing secret key is a
// configuration error reported here, not on first use.
func NewAdapter(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errorx.Configuration("payment provider secret key is not set")
	}
	sc := client.New(cfg.SecretKey, nil)
	return NewAdapterWithClient(sc.PaymentIntents, cfg.Currency), nil
}

// NewAdapterWithClient builds an adapter over any IntentsAPI. Currency defaults to usd.
func NewAdapterWithClient(intents IntentsAPI, currency string) *Adapter {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Adapter{intents: intents, currency: strings.ToLower(currency)}
}

// CreateIntent asks the provider for a new payment intent covering req.Amount.
func (a *Adapter) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	minor := ToMinorUnits(decimal.NewFromFloat(req.Amount))
	if minor <= 0 {
		return nil, errorx.Validation("amount", "amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(a.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(MetadataOrderID, req.OrderID)
	params.AddMetadata(MetadataCustomerName, req.CustomerName)

	pi, err := a.intents.New(params)
	if err != nil {
		return nil, errorx.Gateway("create payment intent", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// RetrieveIntent fetches an intent. It never mutates provider state.
func (a *Adapter) RetrieveIntent(ctx context.Context, intentID string) (*IntentDetails, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, errorx.Validation("intent_id", "intent id is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := a.intents.Get(intentID, params)
	if err != nil {
		return nil, errorx.Gateway("retrieve payment intent", err)
	}
	return &IntentDetails{
		ID:      pi.ID,
		Status:  string(pi.Status),
		OrderID: pi.Metadata[MetadataOrderID],
		Amount:  pi.Amount,
	}, nil
}

// RetrieveIntentStatus returns only the intent status.
func (a *Adapter) RetrieveIntentStatus(ctx context.Context, intentID string) (string, error) {
	d, err := a.RetrieveIntent(ctx, intentID)
	if err != nil {
		return "", err
	}
	return d.Status, nil
}

// ToMinorUnits converts a currency amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
