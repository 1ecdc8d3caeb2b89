// Package dynamotest provides an in-memory DynamoDB stand-in for unit tests.
//
// It understands the small expression dialect used by the stores in this module:
// conditions built from attribute_exists(x), attribute_not_exists(x) and "#a = :v"
// joined with AND and OR, and update expressions of the form "SET #a = :v, b = :w".
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fake implements the module's DynamoDBAPI against in-memory tables.
type Fake struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue

	// FailNext, when set, is returned (once) by the next call of the named operation,
	// e.g. "UpdateItem" or "Scan".
	FailNext map[string]error

	Calls map[string]int
}

// New returns an empty fake. Register tables with AddTable before use.
func New() *Fake {
	return &Fake{
		keys:     map[string]string{},
		tables:   map[string]map[string]map[string]types.AttributeValue{},
		FailNext: map[string]error{},
		Calls:    map[string]int{},
	}
}

// AddTable registers a table whose partition key is the string attribute keyAttr.
func (f *Fake) AddTable(name, keyAttr string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[name] = keyAttr
	if _, ok := f.tables[name]; !ok {
		f.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return f
}

// Seed stores item directly, bypassing conditions.
func (f *Fake) Seed(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk, err := f.keyOf(table, item)
	if err != nil {
		panic(err)
	}
	f.tables[table][pk] = copyItem(item)
}

// Item returns a copy of the stored item, or nil.
func (f *Fake) Item(table, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.tables[table][key]
	if !ok {
		return nil
	}
	return copyItem(item)
}

// Len returns the number of items in table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	if err, ok := f.FailNext[op]; ok {
		delete(f.FailNext, op)
		return err
	}
	return nil
}

func (f *Fake) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	pk, err := f.keyOf(table, params.Item)
	if err != nil {
		return nil, err
	}
	existing := f.tables[table][pk]
	ok, err := evalCondition(deref(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed(existing, params.ReturnValuesOnConditionCheckFailure)
	}
	f.tables[table][pk] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	pk, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	updated, err := f.applyUpdate(table, params.Key, deref(params.UpdateExpression), deref(params.ConditionExpression),
		params.ExpressionAttributeNames, params.ExpressionAttributeValues, params.ReturnValuesOnConditionCheckFailure)
	if err != nil {
		return nil, err
	}
	out := &dyn.UpdateItemOutput{}
	if params.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(updated)
	}
	return out, nil
}

func (f *Fake) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("TransactWriteItems"); err != nil {
		return nil, err
	}

	// first pass: every condition must hold
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	canceled := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: str("None")}
		var (
			table, cond string
			names       map[string]string
			values      map[string]types.AttributeValue
			key         map[string]types.AttributeValue
		)
		switch {
		case it.Put != nil:
			table, cond = deref(it.Put.TableName), deref(it.Put.ConditionExpression)
			names, values, key = it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues, it.Put.Item
		case it.Update != nil:
			table, cond = deref(it.Update.TableName), deref(it.Update.ConditionExpression)
			names, values, key = it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues, it.Update.Key
		case it.ConditionCheck != nil:
			table, cond = deref(it.ConditionCheck.TableName), deref(it.ConditionCheck.ConditionExpression)
			names, values, key = it.ConditionCheck.ExpressionAttributeNames, it.ConditionCheck.ExpressionAttributeValues, it.ConditionCheck.Key
		default:
			return nil, errors.New("dynamotest: unsupported transact item")
		}
		pk, err := f.keyOf(table, key)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(cond, names, values, f.tables[table][pk])
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: str("ConditionalCheckFailed")}
			canceled = true
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             str("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	// second pass: apply
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			table := deref(it.Put.TableName)
			pk, _ := f.keyOf(table, it.Put.Item)
			f.tables[table][pk] = copyItem(it.Put.Item)
		case it.Update != nil:
			if _, err := f.applyUpdate(deref(it.Update.TableName), it.Update.Key, deref(it.Update.UpdateExpression), "",
				it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues, ""); err != nil {
				return nil, err
			}
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// Scan returns items ordered by partition key. Limit and ExclusiveStartKey are honoured so
// callers exercise pagination.
func (f *Fake) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	keyAttr, ok := f.keys[table]
	if !ok {
		return nil, fmt.Errorf("dynamotest: unknown table %q", table)
	}

	keys := make([]string, 0, len(f.tables[table]))
	for k := range f.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		after := stringValue(params.ExclusiveStartKey[keyAttr])
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	end := len(keys)
	limited := false
	if params.Limit != nil && int(*params.Limit) > 0 && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
		limited = true
	}

	out := &dyn.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, copyItem(f.tables[table][k]))
	}
	out.Count = int32(len(out.Items))
	if limited {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			keyAttr: &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (f *Fake) applyUpdate(table string, key map[string]types.AttributeValue, update, cond string,
	names map[string]string, values map[string]types.AttributeValue, onFailure types.ReturnValuesOnConditionCheckFailure) (map[string]types.AttributeValue, error) {
	pk, err := f.keyOf(table, key)
	if err != nil {
		return nil, err
	}
	existing := f.tables[table][pk]
	ok, err := evalCondition(cond, names, values, existing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed(existing, onFailure)
	}

	item := copyItem(existing)
	if item == nil {
		item = copyItem(key)
	}
	if err := applySet(update, names, values, item); err != nil {
		return nil, err
	}
	f.tables[table][pk] = item
	return item, nil
}

func (f *Fake) keyOf(table string, item map[string]types.AttributeValue) (string, error) {
	keyAttr, ok := f.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	av, ok := item[keyAttr]
	if !ok {
		return "", fmt.Errorf("dynamotest: item for %q has no %s", table, keyAttr)
	}
	v := stringValue(av)
	if v == "" {
		return "", fmt.Errorf("dynamotest: empty key %s", keyAttr)
	}
	return v, nil
}

func conditionFailed(existing map[string]types.AttributeValue, onFailure types.ReturnValuesOnConditionCheckFailure) error {
	ex := &types.ConditionalCheckFailedException{Message: str("The conditional request failed")}
	if onFailure == types.ReturnValuesOnConditionCheckFailureAllOld && existing != nil {
		ex.Item = copyItem(existing)
	}
	return ex
}

// evalCondition treats AND as binding tighter than OR; parentheses around a disjunct are ignored.
func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	for _, disjunct := range strings.Split(expr, " OR ") {
		disjunct = strings.TrimSpace(disjunct)
		disjunct = strings.TrimSuffix(strings.TrimPrefix(disjunct, "("), ")")
		ok, err := evalConjunction(disjunct, names, values, item)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func evalConjunction(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
			if item != nil && item[attr] != nil {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
			if item == nil || item[attr] == nil {
				return false, nil
			}
		default:
			parts := strings.SplitN(clause, " = ", 2)
			if len(parts) != 2 {
				return false, fmt.Errorf("dynamotest: unsupported condition %q", clause)
			}
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: missing value %s", parts[1])
			}
			if item == nil || !equalAV(item[attr], want) {
				return false, nil
			}
		}
	}
	return true, nil
}

func applySet(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("dynamotest: unsupported update %q", expr)
	}
	for _, assign := range strings.Split(expr[len("SET "):], ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("dynamotest: bad assignment %q", assign)
		}
		attr := resolveName(strings.TrimSpace(parts[0]), names)
		placeholder := strings.TrimSpace(parts[1])
		v, ok := values[placeholder]
		if !ok {
			return fmt.Errorf("dynamotest: missing value %s", placeholder)
		}
		item[attr] = v
	}
	return nil
}

func resolveName(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		if real, ok := names[name]; ok {
			return real
		}
	}
	return name
}

func equalAV(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case nil:
		return b == nil
	default:
		return reflect.DeepEqual(a, b)
	}
}

func stringValue(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func str(s string) *string { return &s }
