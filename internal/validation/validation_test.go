package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Items: []Item{
			{Name: "The Nibbler", Quantity: 2, Price: 15},
			{Name: "Family Pack", Quantity: 1, Price: 27},
		},
		DeliveryType: "pickup",
		TotalAmount:  57, // 2*15 + 27
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *errorx.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *errorx.ValidationError, got %v", err)
	}
	return ve.Fields
}

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	if err := Check(v, validRequest()); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	req := validRequest()
	req.DeliveryType = "delivery"
	req.DeliveryAddress = "1 Main St"
	req.TotalAmount = 67 // + delivery fee
	if err := Check(v, req); err != nil {
		t.Fatalf("expected valid delivery order, got error: %v", err)
	}
}

func TestCreateOrderRequest_InvalidTotal(t *testing.T) {
	v := New()

	req := validRequest()
	req.TotalAmount = 56.99
	fields := fieldsOf(t, Check(v, req))
	if _, ok := fields["total_amount"]; !ok {
		t.Fatalf("expected total_amount error, got %v", fields)
	}

	// delivery without the fee
	req = validRequest()
	req.DeliveryType = "delivery"
	req.DeliveryAddress = "1 Main St"
	fields = fieldsOf(t, Check(v, req))
	if !strings.Contains(fields["total_amount"], "67.00") {
		t.Fatalf("expected expected-total hint, got %q", fields["total_amount"])
	}
}

func TestCreateOrderRequest_AddressIffDelivery(t *testing.T) {
	v := New()

	req := validRequest()
	req.DeliveryType = "delivery"
	req.TotalAmount = 67
	fields := fieldsOf(t, Check(v, req))
	if fields["delivery_address"] != "is required for delivery orders" {
		t.Fatalf("unexpected fields: %v", fields)
	}

	req = validRequest()
	req.DeliveryAddress = "1 Main St"
	fields = fieldsOf(t, Check(v, req))
	if fields["delivery_address"] != "must be empty for pickup orders" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestCreateOrderRequest_MissingFields(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		CustomerEmail: "not-an-email",
		Items:         []Item{{Name: "", Quantity: 0, Price: -1}},
		DeliveryType:  "drone",
	}

	fields := fieldsOf(t, Check(v, req))
	for _, f := range []string{"customer_name", "customer_email", "items[0].name", "items[0].quantity", "items[0].price", "delivery_type"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}

	empty := validRequest()
	empty.Items = nil
	fields = fieldsOf(t, Check(v, empty))
	if _, ok := fields["items"]; !ok {
		t.Fatalf("expected items error, got %v", fields)
	}
}

func TestBind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"intent_id":"pi_1","order_id":"o1"}`, false},
		{"missing", `{"intent_id":"pi_1"}`, true},
		{"malformed", `{"intent_id":`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req ConfirmPaymentRequest
			err := Bind(c, &req, v)
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, errorx.ErrValidation) {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}
}
