// Package dynamotest provides an in-memory DynamoDB double for unit tests.
// It implements the happy-path semantics the stores rely on: keyed puts and
// gets, the conditional expressions used for create-once and version CAS,
// simple SET updates, scans with equality filters, and all-or-nothing
// transact writes.
package dynamotest

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// InMemory is a minimal in-memory stand-in for the DynamoDB client.
// Not production-grade; just enough for the stores' access patterns.
type InMemory struct {
	mu     sync.Mutex
	keys   map[string]string // table name -> partition key attribute
	tables map[string]map[string]map[string]types.AttributeValue

	PutCalls      int
	UpdateCalls   int
	ScanCalls     int
	TransactCalls int
}

// NewInMemory creates a mock for the given table -> key-attribute mapping.
func NewInMemory(tableKeys map[string]string) *InMemory {
	return &InMemory{
		keys:   tableKeys,
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

// Items returns the raw items of one table, for assertions.
func (m *InMemory) Items(table string) []map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]types.AttributeValue
	for _, item := range m.tables[table] {
		out = append(out, item)
	}
	return out
}

// Item returns one raw item by partition key value, or nil.
func (m *InMemory) Item(table, key string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table][key]
}

func (m *InMemory) ensureTable(tbl string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[tbl]
}

func (m *InMemory) pkOf(table string, attrs map[string]types.AttributeValue) (string, error) {
	keyAttr, ok := m.keys[table]
	if !ok {
		return "", errors.New("unknown table: " + table)
	}
	v, ok := attrs[keyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key attribute " + keyAttr)
	}
	return v.Value, nil
}

func (m *InMemory) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++

	table := *params.TableName
	items := m.ensureTable(table)
	pk, err := m.pkOf(table, params.Item)
	if err != nil {
		return nil, err
	}

	if params.ConditionExpression != nil {
		existing := items[pk]
		if !evalCondition(*params.ConditionExpression, existing, nil, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	items[pk] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *InMemory) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := *params.TableName
	items := m.ensureTable(table)
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := items[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *InMemory) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++

	table := *params.TableName
	items := m.ensureTable(table)
	pk, err := m.pkOf(table, params.Key)
	if err != nil {
		return nil, err
	}

	item, exists := items[pk]
	if params.ConditionExpression != nil {
		var existing map[string]types.AttributeValue
		if exists {
			existing = item
		}
		if !evalCondition(*params.ConditionExpression, existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if !exists {
		// DynamoDB upserts on update
		item = copyItem(params.Key)
		items[pk] = item
	}

	if params.UpdateExpression != nil {
		applySet(*params.UpdateExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	}
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (m *InMemory) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScanCalls++

	table := *params.TableName
	items := m.ensureTable(table)

	out := &dyn.ScanOutput{}
	for _, item := range items {
		if params.FilterExpression != nil &&
			!evalFilter(*params.FilterExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			continue
		}
		out.Items = append(out.Items, copyItem(item))
	}
	return out, nil
}

func (m *InMemory) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransactCalls++

	// validate every condition before applying anything
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			return nil, errors.New("mock supports Put transact items only")
		}
		table := *p.TableName
		items := m.ensureTable(table)
		pk, err := m.pkOf(table, p.Item)
		if err != nil {
			return nil, err
		}
		if p.ConditionExpression != nil {
			if !evalCondition(*p.ConditionExpression, items[pk], nil, p.ExpressionAttributeValues) {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	for _, it := range params.TransactItems {
		p := it.Put
		table := *p.TableName
		pk, _ := m.pkOf(table, p.Item)
		m.tables[table][pk] = copyItem(p.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// evalCondition handles the two condition shapes the stores use:
// attribute_not_exists(attr) and <attr> = :value.
func evalCondition(cond string, existing map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	cond = strings.TrimSpace(cond)
	if strings.HasPrefix(cond, "attribute_not_exists(") {
		return existing == nil
	}
	if existing == nil {
		return false
	}
	lhs, rhs, ok := strings.Cut(cond, " = ")
	if !ok {
		return false
	}
	return attrEqual(existing[resolveName(lhs, names)], values[strings.TrimSpace(rhs)])
}

// evalFilter evaluates a conjunction of equality comparisons.
func evalFilter(filter string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, clause := range strings.Split(filter, " AND ") {
		lhs, rhs, ok := strings.Cut(strings.TrimSpace(clause), " = ")
		if !ok {
			return false
		}
		if !attrEqual(item[resolveName(lhs, names)], values[strings.TrimSpace(rhs)]) {
			return false
		}
	}
	return true
}

// applySet applies a "SET a = :x, b = :y" expression in place.
func applySet(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) {
	expr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), "SET "))
	for _, assign := range strings.Split(expr, ",") {
		lhs, rhs, ok := strings.Cut(strings.TrimSpace(assign), " = ")
		if !ok {
			continue
		}
		if v, ok := values[strings.TrimSpace(rhs)]; ok {
			item[resolveName(lhs, names)] = v
		}
	}
}

func resolveName(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if resolved, ok := names[name]; ok {
		return resolved
	}
	return name
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	}
	return false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
