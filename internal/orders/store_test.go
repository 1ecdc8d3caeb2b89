package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws/dynamotest"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

const (
	ordersTable = "orders"
	idempTable  = "idempotency"
)

func newTestStore() (*Store, *dynamotest.Fake) {
	fake := dynamotest.New().
		AddTable(ordersTable, "order_id").
		AddTable(idempTable, "idempotency_key")
	store := NewStore(fake, ordersTable)

	// deterministic, strictly increasing clock
	base := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	store.nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store, fake
}

func sampleOrder(id string) Order {
	return Order{
		OrderID:           id,
		CustomerName:      "Ada",
		CustomerEmail:     "ada@example.com",
		Items:             []Item{{Name: "Cookies", Price: 5, Quantity: 10}},
		DeliveryType:      DeliveryPickup,
		TotalAmount:       50,
		OrderDate:         "2025-12-01",
		PaymentStatus:     PaymentPending,
		FulfillmentStatus: FulfillmentPending,
	}
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if err := store.Create(ctx, sampleOrder("order-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerEmail != "ada@example.com" || len(got.Items) != 1 || got.Items[0].Quantity != 10 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set")
	}

	// duplicate id
	err = store.Create(ctx, sampleOrder("order-1"))
	if !errors.Is(err, errorx.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, errorx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateWithIdempotencyTransaction_Success(t *testing.T) {
	store, fake := newTestStore()

	idemp := map[string]interface{}{
		"idempotency_key": "key-1",
		"status":          "DONE",
		"order_id":        "order-1",
	}

	err := store.CreateWithIdempotencyTransaction(context.Background(), idempTable, idemp, sampleOrder("order-1"), 48*time.Hour)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	idempItem := fake.Item(idempTable, "key-1")
	if idempItem == nil {
		t.Fatalf("idempotency item not stored")
	}
	if _, ok := idempItem["expires_at"]; !ok {
		t.Fatalf("expires_at should be added")
	}

	orderItem := fake.Item(ordersTable, "order-1")
	if orderItem == nil {
		t.Fatalf("order item not stored")
	}
	var got Order
	if err := attributevalue.UnmarshalMap(orderItem, &got); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	if got.OrderID != "order-1" {
		t.Fatalf("order id mismatch")
	}
}

func TestCreateWithIdempotencyTransaction_ExistingKey_Fails(t *testing.T) {
	store, fake := newTestStore()
	ctx := context.Background()

	idemp := map[string]interface{}{"idempotency_key": "key-2", "status": "DONE"}
	if err := store.CreateWithIdempotencyTransaction(ctx, idempTable, idemp, sampleOrder("order-2"), 0); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := store.CreateWithIdempotencyTransaction(ctx, idempTable, idemp, sampleOrder("order-3"), 0)
	if !errors.Is(err, ErrIdempotencyKeyExists) {
		t.Fatalf("expected ErrIdempotencyKeyExists, got %v", err)
	}
	if fake.Item(ordersTable, "order-3") != nil {
		t.Fatalf("second order must not be written")
	}
}

func TestList_FiltersAndOrdering(t *testing.T) {
	store, _ := newTestStore()
	store.pageSize = 2 // force several scan pages
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		o := sampleOrder(fmt.Sprintf("order-%d", i))
		o.IsTestOrder = i%2 == 0
		if err := store.Create(ctx, o); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, FilterAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(all))
	}
	if all[0].OrderID != "order-5" || all[4].OrderID != "order-1" {
		t.Fatalf("expected newest first, got %s ... %s", all[0].OrderID, all[4].OrderID)
	}

	real, err := store.List(ctx, FilterExcludeTest)
	if err != nil {
		t.Fatalf("list real: %v", err)
	}
	for _, o := range real {
		if o.IsTestOrder {
			t.Fatalf("test order %s leaked into real listing", o.OrderID)
		}
	}
	if len(real) != 3 {
		t.Fatalf("expected 3 real orders, got %d", len(real))
	}

	test, err := store.List(ctx, FilterOnlyTest)
	if err != nil {
		t.Fatalf("list test: %v", err)
	}
	if len(test) != 2 || test[0].OrderID != "order-4" || test[1].OrderID != "order-2" {
		t.Fatalf("unexpected test listing: %+v", test)
	}
}

func TestTransitionPaymentStatus_SuccessAndMismatch(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Create(ctx, sampleOrder("order-10")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.TransitionPaymentStatus(ctx, "order-10", PaymentPending, PaymentConfirmed); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	err := store.TransitionPaymentStatus(ctx, "order-10", PaymentPending, PaymentConfirmed)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	var sme *StatusMismatchError
	if !errors.As(err, &sme) || sme.Current != PaymentConfirmed {
		t.Fatalf("expected current status confirmed, got %v", err)
	}

	// backward transitions are rejected before touching the table
	err = store.TransitionPaymentStatus(ctx, "order-10", PaymentConfirmed, PaymentPending)
	if !errors.Is(err, errorx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = store.TransitionPaymentStatus(ctx, "missing", PaymentPending, PaymentConfirmed)
	if !errors.Is(err, errorx.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusSettersAreIndependent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Create(ctx, sampleOrder("order-20")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.SetFulfillmentStatus(ctx, "order-20", FulfillmentFulfilled); err != nil {
		t.Fatalf("set fulfillment: %v", err)
	}
	got, _ := store.Get(ctx, "order-20")
	if got.PaymentStatus != PaymentPending || got.FulfillmentStatus != FulfillmentFulfilled {
		t.Fatalf("fulfillment update changed payment status: %+v", got)
	}

	// administrative override may jump straight to completed
	if err := store.SetPaymentStatus(ctx, "order-20", PaymentCompleted); err != nil {
		t.Fatalf("set payment: %v", err)
	}
	got, _ = store.Get(ctx, "order-20")
	if got.PaymentStatus != PaymentCompleted || got.FulfillmentStatus != FulfillmentFulfilled {
		t.Fatalf("payment update changed fulfillment status: %+v", got)
	}

	// overrides are unchecked, backwards included
	if err := store.SetPaymentStatus(ctx, "order-20", PaymentPending); err != nil {
		t.Fatalf("set payment: %v", err)
	}
}

func TestStatusSetters_Errors(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if err := store.SetPaymentStatus(ctx, "missing", PaymentConfirmed); !errors.Is(err, errorx.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.SetFulfillmentStatus(ctx, "missing", FulfillmentFulfilled); !errors.Is(err, errorx.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.SetPaymentStatus(ctx, "x", "refunded"); !errors.Is(err, errorx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := store.SetFulfillmentStatus(ctx, "x", "shipped"); !errors.Is(err, errorx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentTransitions_SingleWinner(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Create(ctx, sampleOrder("order-30")); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.TransitionPaymentStatus(ctx, "order-30", PaymentPending, PaymentConfirmed)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ErrStatusMismatch) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winning transition, got %d", wins)
	}
}

func TestTransitionPaymentStatus_CorruptCurrentStatus(t *testing.T) {
	store, fake := newTestStore()
	fake.Seed(ordersTable, map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: "order-40"},
		"payment_status": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"status": &types.AttributeValueMemberS{Value: "pending"},
		}},
	})

	err := store.TransitionPaymentStatus(context.Background(), "order-40", PaymentPending, PaymentConfirmed)
	if err == nil {
		t.Fatalf("expected an error for an unreadable status")
	}
	if errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("unreadable status must not look like a mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "unmarshal current payment status") {
		t.Fatalf("expected unmarshal error, got %v", err)
	}
}
