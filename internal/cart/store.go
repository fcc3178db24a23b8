package cart

import (
	"context"
	"fmt"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dinh7112004/order-service/internal/aws"
)

// Store wraps the carts table. The order service only ever empties a cart;
// cart contents are managed by the cart API elsewhere.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a carts Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// Clear empties the user's cart after a successful order. Missing carts
// are fine, the update just writes an empty item list.
func (s *Store) Clear(ctx context.Context, userID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: awsString("SET #i = :empty"),
		ExpressionAttributeNames: map[string]string{
			"#i": "items",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
