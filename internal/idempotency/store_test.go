package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dinh7112004/order-service/internal/dynamotest"
)

func newTestStore() (*Store, *dynamotest.InMemory) {
	mock := dynamotest.NewInMemory(map[string]string{"idempotency": "idempotency_key"})
	return NewStore(mock, "idempotency", 48*time.Hour), mock
}

func stringAttr(t *testing.T, item map[string]types.AttributeValue, name string) string {
	t.Helper()
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("attribute %s is not a string: %+v", name, item[name])
	}
	return s.Value
}

func TestCreateIfNotExists_Lifecycle(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()
	key := "test-key-1"

	created, err := s.CreateIfNotExists(ctx, key)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// duplicate key reports created=false without error
	created2, err := s.CreateIfNotExists(ctx, key)
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.ExpiresAt <= rec.CreatedAt.Unix() {
		t.Fatalf("expected TTL in the future, got %d", rec.ExpiresAt)
	}

	if err := s.MarkDone(ctx, key, "order-123", `{"ok":true}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := mock.Item("idempotency", key)
	if item == nil {
		t.Fatalf("mock item missing")
	}
	if got := stringAttr(t, item, "status"); got != StatusDone {
		t.Fatalf("status not updated to DONE, got %s", got)
	}
	if got := stringAttr(t, item, "order_id"); got != "order-123" {
		t.Fatalf("order_id not set, got %s", got)
	}
	if got := stringAttr(t, item, "response_body"); got != `{"ok":true}` {
		t.Fatalf("response_body not set correctly, got %s", got)
	}

	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item = mock.Item("idempotency", key)
	if got := stringAttr(t, item, "status"); got != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %s", got)
	}
	if got := stringAttr(t, item, "note"); got != "failed-reason" {
		t.Fatalf("note not set, got %s", got)
	}
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore()

	rec, err := s.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for unknown key, got %+v", rec)
	}
}

func TestMarkDone_ReplayFields(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, err := s.CreateIfNotExists(ctx, "k1"); err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if err := s.MarkDone(ctx, "k1", "o1", `{"order_id":"o1"}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}

	rec, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.ResponseStatus != 201 {
		t.Fatalf("expected stored response status 201, got %d", rec.ResponseStatus)
	}
	if rec.ResponseBody != `{"order_id":"o1"}` {
		t.Fatalf("expected stored response body, got %s", rec.ResponseBody)
	}
	if rec.OrderID != "o1" {
		t.Fatalf("expected stored order id, got %s", rec.OrderID)
	}
}
