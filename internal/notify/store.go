package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/dinh7112004/order-service/internal/aws"
)

// Store persists notification records.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a notifications Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create writes a new unread notification and returns it with its
// generated id.
func (s *Store) Create(ctx context.Context, n Notification) (*Notification, error) {
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	n.Read = false
	n.CreatedAt = s.nowFunc()

	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(notification_id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put notification: %w", err)
	}
	return &n, nil
}

func awsString(s string) *string { return &s }
