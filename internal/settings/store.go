package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

const defaultMaxAttempts = 5

// errVersionConflict is internal: another writer bumped the version first.
var errVersionConflict = errors.New("setting version changed")

// Store is a key/value store over the settings table. Every write is a versioned
// conditional put, so concurrent writers never lose updates silently.
type Store struct {
	client      aws.DynamoDBAPI
	tableName   string
	maxAttempts int
	nowFunc     func() time.Time
}

// NewStore creates a new settings Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:      client,
		tableName:   tableName,
		maxAttempts: defaultMaxAttempts,
		nowFunc:     time.Now,
	}
}

// Get returns the setting stored under key, or errorx.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*Setting, error) {
	st, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errorx.NotFound("setting", key)
	}
	return st, nil
}

// Bool reads key as a flag. A missing setting is false.
func (s *Store) Bool(ctx context.Context, key string) (bool, error) {
	st, err := s.load(ctx, key)
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, nil
	}
	return Truthy(st.Value), nil
}

// Set creates or replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value interface{}) (*Setting, error) {
	return s.mutate(ctx, key, func(*Setting) interface{} { return value })
}

// Toggle flips the truthiness of key and returns the new boolean value.
// A missing setting toggles to true.
func (s *Store) Toggle(ctx context.Context, key string) (bool, error) {
	st, err := s.mutate(ctx, key, func(cur *Setting) interface{} {
		if cur == nil {
			return true
		}
		return !Truthy(cur.Value)
	})
	if err != nil {
		return false, err
	}
	return st.Value.(bool), nil
}

// mutate runs a read-modify-write cycle, retrying when the version moved underneath it.
func (s *Store) mutate(ctx context.Context, key string, next func(cur *Setting) interface{}) (*Setting, error) {
	if key == "" {
		return nil, errorx.Validation("key", "setting key is required")
	}
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		cur, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		updated, err := s.put(ctx, key, cur, next(cur))
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, errorx.Conflict(fmt.Sprintf("setting %q changed concurrently %d times", key, s.maxAttempts))
}

func (s *Store) put(ctx context.Context, key string, cur *Setting, value interface{}) (*Setting, error) {
	st := &Setting{
		Key:       key,
		Value:     value,
		Version:   1,
		UpdatedAt: s.nowFunc().UTC(),
	}
	input := &dyn.PutItemInput{TableName: &s.tableName}
	if cur == nil {
		input.ConditionExpression = awsString("attribute_not_exists(setting_key)")
	} else {
		st.Version = cur.Version + 1
		input.ConditionExpression = awsString("#v = :expected")
		if cur.Version == 0 {
			// rows written outside the store carry no version yet
			input.ConditionExpression = awsString("attribute_not_exists(#v) OR #v = :expected")
		}
		input.ExpressionAttributeNames = map[string]string{"#v": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(cur.Version, 10)},
		}
	}

	item, err := attributevalue.MarshalMap(st)
	if err != nil {
		return nil, fmt.Errorf("marshal setting: %w", err)
	}
	input.Item = item

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, errVersionConflict
		}
		return nil, fmt.Errorf("put setting: %w", err)
	}
	return st, nil
}

func (s *Store) load(ctx context.Context, key string) (*Setting, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"setting_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var st Setting
	if err := attributevalue.UnmarshalMap(out.Item, &st); err != nil {
		return nil, fmt.Errorf("unmarshal setting: %w", err)
	}
	return &st, nil
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
