// Package dynamotest provides an in-memory DynamoDB fake for tests.
//
// It understands the subset of expressions used by the repositories:
// conjunctions of attribute_exists, attribute_not_exists and equality,
// "SET a = :x, b = :y" updates and comma separated projections.
package dynamotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

type item = map[string]types.AttributeValue

// Fake is a DynamoDB fake keyed by the "id" string attribute.
type Fake struct {
	mu     sync.Mutex
	tables map[string]map[string]item

	// Fail, when set, is called before every operation; a non-nil result is returned as is.
	Fail func(op string, table string) error

	// ScanPageSize limits items per Scan page. Zero means one page.
	ScanPageSize int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{tables: map[string]map[string]item{}}
}

func (f *Fake) table(name string) map[string]item {
	t, ok := f.tables[name]
	if !ok {
		t = map[string]item{}
		f.tables[name] = t
	}

	return t
}

func (f *Fake) fail(op, table string) error {
	if f.Fail == nil {
		return nil
	}

	return f.Fail(op, table)
}

// Items returns a copy of all items stored in table.
func (f *Fake) Items(table string) []map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]map[string]types.AttributeValue, 0, len(f.tables[table]))
	for _, it := range f.tables[table] {
		items = append(items, copyItem(it))
	}

	return items
}

func keyOf(key item) (string, error) {
	id, ok := key["id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamotest: key must have string id")
	}

	return id.Value, nil
}

func copyItem(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}

	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

// GetItem implements dynamopkg.API.
func (f *Fake) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("GetItem", aws.ToString(in.TableName)); err != nil {
		return nil, err
	}

	id, err := keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	it, ok := f.table(aws.ToString(in.TableName))[id]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}

	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

// PutItem implements dynamopkg.API.
func (f *Fake) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("PutItem", aws.ToString(in.TableName)); err != nil {
		return nil, err
	}

	id, err := keyOf(in.Item)
	if err != nil {
		return nil, err
	}

	t := f.table(aws.ToString(in.TableName))
	current, exists := t[id]

	ok, err := eval(aws.ToString(in.ConditionExpression), current, exists, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, conditionFailed()
	}

	t[id] = copyItem(in.Item)

	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem implements dynamopkg.API.
func (f *Fake) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("UpdateItem", aws.ToString(in.TableName)); err != nil {
		return nil, err
	}

	id, err := keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	t := f.table(aws.ToString(in.TableName))
	current, exists := t[id]

	ok, err := eval(aws.ToString(in.ConditionExpression), current, exists, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, conditionFailed()
	}

	updated := copyItem(current)
	if !exists {
		updated = copyItem(in.Key)
	}

	expr := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}

	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("dynamotest: unsupported assignment %q", assignment)
		}

		name := resolveName(strings.TrimSpace(parts[0]), in.ExpressionAttributeNames)

		value, ok := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("dynamotest: missing value %q", parts[1])
		}

		updated[name] = value
	}

	t[id] = updated

	return &dynamodb.UpdateItemOutput{}, nil
}

// Scan implements dynamopkg.API.
func (f *Fake) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("Scan", aws.ToString(in.TableName)); err != nil {
		return nil, err
	}

	t := f.table(aws.ToString(in.TableName))

	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	start := 0
	if in.ExclusiveStartKey != nil {
		last, err := keyOf(in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}

		start = sort.SearchStrings(ids, last) + 1
	}

	end := len(ids)
	if f.ScanPageSize > 0 && start+f.ScanPageSize < end {
		end = start + f.ScanPageSize
	}

	out := &dynamodb.ScanOutput{}

	for _, id := range ids[start:end] {
		it := t[id]

		ok, err := eval(aws.ToString(in.FilterExpression), it, true, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}

		if ok {
			out.Items = append(out.Items, project(it, aws.ToString(in.ProjectionExpression), in.ExpressionAttributeNames))
		}
	}

	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(end - start)

	if end < len(ids) {
		out.LastEvaluatedKey = item{"id": &types.AttributeValueMemberS{Value: ids[end-1]}}
	}

	return out, nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}

	return name
}

func project(it item, projection string, names map[string]string) item {
	if projection == "" {
		return copyItem(it)
	}

	out := item{}

	for _, name := range strings.Split(projection, ",") {
		name = resolveName(strings.TrimSpace(name), names)
		if v, ok := it[name]; ok {
			out[name] = v
		}
	}

	return out
}

func eval(expr string, it item, exists bool, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}

	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)

		switch {
		case strings.HasPrefix(term, "attribute_exists(") && strings.HasSuffix(term, ")"):
			name := resolveName(term[len("attribute_exists("):len(term)-1], names)
			if !exists {
				return false, nil
			}

			if _, ok := it[name]; !ok {
				return false, nil
			}
		case strings.HasPrefix(term, "attribute_not_exists(") && strings.HasSuffix(term, ")"):
			name := resolveName(term[len("attribute_not_exists("):len(term)-1], names)
			if exists {
				if _, ok := it[name]; ok {
					return false, nil
				}
			}
		case strings.Contains(term, "="):
			parts := strings.SplitN(term, "=", 2)
			name := resolveName(strings.TrimSpace(parts[0]), names)

			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: missing value %q", parts[1])
			}

			if !exists || !equal(it[name], want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("dynamotest: unsupported expression %q", term)
		}
	}

	return true, nil
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}

		ad, err1 := decimal.NewFromString(av.Value)
		bd, err2 := decimal.NewFromString(bv.Value)

		return err1 == nil && err2 == nil && ad.Equal(bd)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}

	return false
}
