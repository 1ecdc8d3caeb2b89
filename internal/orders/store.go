package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// ErrStatusMismatch is matched (errors.Is) by a *StatusMismatchError.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// ErrIdempotencyKeyExists means the idempotency record of a transactional create already exists.
var ErrIdempotencyKeyExists = errors.New("idempotency key already used")

// StatusMismatchError is returned by TransitionPaymentStatus when the stored status
// is not the expected one.
type StatusMismatchError struct {
	OrderID  string
	Expected string
	Current  string
}

func (e *StatusMismatchError) Error() string {
	return fmt.Sprintf("order %s: expected payment status %s, found %s", e.OrderID, e.Expected, e.Current)
}

func (e *StatusMismatchError) Is(target error) bool { return target == ErrStatusMismatch }

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	pageSize  int32
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		pageSize:  100,
		nowFunc:   time.Now,
	}
}

// Create persists a new order. It fails if the order id is already taken.
func (s *Store) Create(ctx context.Context, order Order) error {
	item, err := s.marshalNew(order)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return errorx.Conflict(fmt.Sprintf("order %s already exists", order.OrderID))
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// CreateWithIdempotencyTransaction atomically creates:
//   - idempotency record in idempotencyTable (with ConditionExpression attribute_not_exists(idempotency_key))
//   - order record in orders table
//
// idempotencyItem must marshal to a map containing idempotency_key. When it has no expires_at
// and ttlWindow > 0 one is added. Returns ErrIdempotencyKeyExists when the key is taken.
func (s *Store) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, order Order, ttlWindow time.Duration) error {
	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}
	if _, ok := idempMap["expires_at"]; !ok && ttlWindow > 0 {
		expires := s.nowFunc().Add(ttlWindow).Unix()
		idempMap["expires_at"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)}
	}

	orderMap, err := s.marshalNew(order)
	if err != nil {
		return err
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &idempotencyTable,
					Item:                idempMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(order_id)"),
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if len(tce.CancellationReasons) > 0 && awsToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
				return ErrIdempotencyKeyExists
			}
			return fmt.Errorf("transaction canceled: %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Unknown ids yield an errorx.ErrNotFound.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            orderKey(orderID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, errorx.NotFound("order", orderID)
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// List returns the orders selected by filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{
		TableName: &s.tableName,
		Limit:     &s.pageSize,
	})

	var out []Order
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, o := range batch {
			if filter.match(o) {
				out = append(out, o)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetPaymentStatus is the administrative override: it writes any known payment status
// without checking the current one. It never touches the fulfillment status.
func (s *Store) SetPaymentStatus(ctx context.Context, orderID, status string) error {
	if !ValidPaymentStatus(status) {
		return errorx.Validation("status", fmt.Sprintf("unknown payment status %q", status))
	}
	return s.setField(ctx, orderID, "payment_status", status)
}

// SetFulfillmentStatus marks an order fulfilled or pending. It never touches the payment status.
func (s *Store) SetFulfillmentStatus(ctx context.Context, orderID, status string) error {
	if !ValidFulfillmentStatus(status) {
		return errorx.Validation("fulfillment_status", fmt.Sprintf("unknown fulfillment status %q", status))
	}
	return s.setField(ctx, orderID, "fulfillment_status", status)
}

// TransitionPaymentStatus conditionally moves the payment status from expected to newStatus.
// Only forward transitions are accepted. Returns a *StatusMismatchError if the stored status
// differs from expected, errorx.ErrNotFound if the order does not exist.
func (s *Store) TransitionPaymentStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	if !IsForward(expectedStatus, newStatus) {
		return errorx.Validation("status", fmt.Sprintf("transition %s -> %s is not allowed", expectedStatus, newStatus))
	}

	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      orderKey(orderID),
		UpdateExpression:         awsString("SET #f = :new, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(order_id) AND #f = :expected"),
		ExpressionAttributeNames: map[string]string{"#f": "payment_status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return errorx.NotFound("order", orderID)
			}
			var current struct {
				PaymentStatus string `dynamodbav:"payment_status"`
			}
			if err := attributevalue.UnmarshalMap(ccf.Item, &current); err != nil {
				return fmt.Errorf("unmarshal current payment status: %w", err)
			}
			return &StatusMismatchError{OrderID: orderID, Expected: expectedStatus, Current: current.PaymentStatus}
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// setField writes a single string attribute of an existing order.
func (s *Store) setField(ctx context.Context, orderID, field, value string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      orderKey(orderID),
		UpdateExpression:         awsString("SET #f = :new, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(order_id)"),
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": &types.AttributeValueMemberS{Value: value},
			":ua":  &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return errorx.NotFound("order", orderID)
		}
		return fmt.Errorf("update %s: %w", field, err)
	}
	return nil
}

// marshalNew fills CreatedAt/UpdatedAt and marshals the order item.
func (s *Store) marshalNew(order Order) (map[string]types.AttributeValue, error) {
	if order.OrderID == "" {
		return nil, errors.New("order id is required")
	}
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order item: %w", err)
	}
	return item, nil
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }

func awsToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
