package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws/dynamotest"
)

func TestNewRecord_Get(t *testing.T) {
	fake := dynamotest.New().AddTable("idempotency-table", "idempotency_key")
	s := NewStore(fake, "idempotency-table", 48*time.Hour)
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	ctx := context.Background()

	rec, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for unknown key")
	}

	r := s.NewRecord("test-key-1", "order-123", "abc")
	if r.Status != StatusDone {
		t.Fatalf("expected DONE, got %s", r.Status)
	}
	if r.ExpiresAt != now.Add(48*time.Hour).Unix() {
		t.Fatalf("unexpected expires_at %d", r.ExpiresAt)
	}

	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fake.Seed("idempotency-table", item)

	got, err := s.Get(ctx, "test-key-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.OrderID != "order-123" || got.RequestHash != "abc" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: %v", got.CreatedAt)
	}
}

func TestGet_PropagatesErrors(t *testing.T) {
	fake := dynamotest.New().AddTable("idempotency-table", "idempotency_key")
	fake.FailNext["GetItem"] = errors.New("throttled")
	s := NewStore(fake, "idempotency-table", time.Hour)

	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHashRequest(t *testing.T) {
	type body struct {
		Name  string  `json:"name"`
		Total float64 `json:"total"`
	}
	a, err := HashRequest(body{Name: "Ada", Total: 15})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, _ := HashRequest(body{Name: "Ada", Total: 15})
	c, _ := HashRequest(body{Name: "Ada", Total: 27})

	if a != b {
		t.Fatalf("identical bodies must hash equally")
	}
	if a == c {
		t.Fatalf("different bodies must hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}
