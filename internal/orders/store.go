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

	"github.com/dinh7112004/order-service/internal/aws"
)

// ErrStatusMismatch indicates the conditional status update lost a race:
// the order's stored status no longer matched the expected one.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new order. The put is guarded so an id collision can
// never overwrite an existing order.
func (s *Store) Create(ctx context.Context, order Order) (*Order, error) {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put order: %w", err)
	}
	return &order, nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, optionally filtered by status,
// newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, status Status) ([]Order, error) {
	filter := "user_id = :uid"
	values := map[string]types.AttributeValue{
		":uid": &types.AttributeValueMemberS{Value: userID},
	}
	var names map[string]string
	if status != "" {
		filter += " AND #s = :status"
		names = map[string]string{"#s": "status"}
		values[":status"] = &types.AttributeValueMemberS{Value: string(status)}
	}

	orders, err := s.scan(ctx, &filter, names, values)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(orders, false)
	return orders, nil
}

// ListAll returns every order, optionally filtered by status, sorted by
// creation time. ascending=false yields newest first.
func (s *Store) ListAll(ctx context.Context, status Status, ascending bool) ([]Order, error) {
	var filter *string
	var names map[string]string
	var values map[string]types.AttributeValue
	if status != "" {
		f := "#s = :status"
		filter = &f
		names = map[string]string{"#s": "status"}
		values = map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		}
	}

	orders, err := s.scan(ctx, filter, names, values)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(orders, ascending)
	return orders, nil
}

func (s *Store) scan(ctx context.Context, filter *string, names map[string]string, values map[string]types.AttributeValue) ([]Order, error) {
	var orders []Order
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:                 &s.tableName,
			FilterExpression:          filter,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		for _, item := range out.Items {
			var o Order
			if err := attributevalue.UnmarshalMap(item, &o); err != nil {
				return nil, fmt.Errorf("unmarshal order: %w", err)
			}
			orders = append(orders, o)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return orders, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns ErrStatusMismatch when the condition failed, so a racing
// transition loses cleanly instead of double-applying.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, expected, newStatus Status) (time.Time, error) {
	now := s.nowFunc()
	updateExpr := "SET #s = :new, updated_at = :ua"
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         &updateExpr,
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: string(newStatus)},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return time.Time{}, ErrStatusMismatch
		}
		return time.Time{}, fmt.Errorf("update item: %w", err)
	}
	return now, nil
}

func sortByCreatedAt(orders []Order, ascending bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		if ascending {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func awsString(s string) *string { return &s }
