package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dinh7112004/order-service/internal/aws"
)

// ErrNotFound indicates the product or the requested variation is missing.
var ErrNotFound = errors.New("product or variation not found")

// ErrVersionConflict indicates a concurrent stock write won the race and
// the adjustment was not applied, even after retries.
var ErrVersionConflict = errors.New("product version conflict")

// InsufficientStockError rejects a delta that would drive a quantity
// negative. Remaining carries the stock left at validation time so the
// API can surface it to the client.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Color     string
	Size      string
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s (%s - %s) out of stock, remaining: %d", e.Name, e.Color, e.Size, e.Remaining)
}

// Delta is a signed quantity adjustment for one product variation.
// Negative quantities decrement stock, positive credit it back.
type Delta struct {
	ProductID string
	Color     string
	Size      string
	Quantity  int
}

// Store encapsulates stock reads and adjustments against the products table.
// Every write is a conditional put on the product's version attribute, so
// availability check and adjustment act as one atomic step per product.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	maxRetries int
}

// NewStore creates a products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		maxRetries: 3,
	}
}

// Get fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// Put writes a product unconditionally. Used by catalog management and
// test fixtures; stock adjustments go through ApplyDelta/ApplyDeltas.
func (s *Store) Put(ctx context.Context, p Product) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// CheckAvailability reports whether the (color, size) variation of the
// product has at least qty units in stock. The second return value is the
// remaining quantity (0 when product or variation is missing).
func (s *Store) CheckAvailability(ctx context.Context, productID, color, size string, qty int) (bool, int, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	if p == nil {
		return false, 0, nil
	}
	v := p.Variation(color, size)
	if v == nil {
		return false, 0, nil
	}
	return v.Quantity >= qty, v.Quantity, nil
}

// ApplyDelta adjusts one variation's quantity and the product total by the
// signed delta. The write is conditioned on the product version read first,
// and retried a bounded number of times when a concurrent writer wins.
func (s *Store) ApplyDelta(ctx context.Context, d Delta) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		p, err := s.Get(ctx, d.ProductID)
		if err != nil {
			return err
		}
		updated, err := applyToProduct(p, d)
		if err != nil {
			return err
		}

		ok, err := s.putVersioned(ctx, *updated, p.Version)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// lost the race; re-read and try again
	}
	return ErrVersionConflict
}

// ApplyDeltas applies all deltas for one order, or none of them. Every
// delta is validated against a fresh snapshot first, then all affected
// products are written in a single TransactWriteItems call conditioned on
// the snapshot versions.
func (s *Store) ApplyDeltas(ctx context.Context, deltas []Delta) error {
	if len(deltas) == 0 {
		return nil
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		// snapshot every product once, applying deltas in memory
		snapshot := map[string]*Product{}
		versions := map[string]int64{}
		for _, d := range deltas {
			p, ok := snapshot[d.ProductID]
			if !ok {
				var err error
				p, err = s.Get(ctx, d.ProductID)
				if err != nil {
					return err
				}
				if p != nil {
					snapshot[d.ProductID] = p
					versions[d.ProductID] = p.Version
				}
			}
			updated, err := applyToProduct(p, d)
			if err != nil {
				return err
			}
			snapshot[d.ProductID] = updated
		}

		transactItems := make([]types.TransactWriteItem, 0, len(snapshot))
		for id, p := range snapshot {
			item, err := attributevalue.MarshalMap(*p)
			if err != nil {
				return fmt.Errorf("marshal product: %w", err)
			}
			transactItems = append(transactItems, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                item,
					ConditionExpression: awsString("version = :ver"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":ver": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", versions[id])},
					},
				},
			})
		}

		_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
			TransactItems: transactItems,
		})
		if err != nil {
			var tce *types.TransactionCanceledException
			if errors.As(err, &tce) {
				continue // concurrent writer; retry from a fresh snapshot
			}
			return fmt.Errorf("transact write: %w", err)
		}
		return nil
	}
	return ErrVersionConflict
}

// applyToProduct returns a copy of p with the delta applied, bumping the
// version. Rejects missing products/variations and negative outcomes.
func applyToProduct(p *Product, d Delta) (*Product, error) {
	if p == nil {
		return nil, ErrNotFound
	}
	updated := *p
	updated.Variations = make([]Variation, len(p.Variations))
	copy(updated.Variations, p.Variations)

	v := updated.Variation(d.Color, d.Size)
	if v == nil {
		return nil, ErrNotFound
	}
	if v.Quantity+d.Quantity < 0 {
		return nil, &InsufficientStockError{
			ProductID: p.ProductID,
			Name:      p.Name,
			Color:     d.Color,
			Size:      d.Size,
			Remaining: v.Quantity,
		}
	}
	v.Quantity += d.Quantity
	updated.Quantity += d.Quantity
	updated.Version++
	return &updated, nil
}

// putVersioned writes the product conditioned on the expected version.
// Returns (false, nil) when the condition failed.
func (s *Store) putVersioned(ctx context.Context, p Product, expectedVersion int64) (bool, error) {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return false, fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("version = :ver"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ver": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return false, nil
		}
		return false, fmt.Errorf("put product: %w", err)
	}
	return true, nil
}

func awsString(s string) *string { return &s }
