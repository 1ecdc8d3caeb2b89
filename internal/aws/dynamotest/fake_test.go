package dynamotest

import (
	"context"
	"errors"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
)

var _ aws.DynamoDBAPI = (*Fake)(nil)

func s(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

func TestFake_ConditionalUpdate(t *testing.T) {
	f := New().AddTable("t", "id")
	f.Seed("t", map[string]types.AttributeValue{"id": s("a"), "state": s("one")})
	ctx := context.Background()

	update := func(expected string) error {
		_, err := f.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:                           str("t"),
			Key:                                 map[string]types.AttributeValue{"id": s("a")},
			UpdateExpression:                    str("SET #f = :v"),
			ConditionExpression:                 str("attribute_exists(id) AND #f = :expected"),
			ExpressionAttributeNames:            map[string]string{"#f": "state"},
			ExpressionAttributeValues:           map[string]types.AttributeValue{":v": s("two"), ":expected": s(expected)},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return err
	}

	if err := update("one"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	err := update("one")
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		t.Fatalf("expected conditional failure, got %v", err)
	}
	if got := ccf.Item["state"].(*types.AttributeValueMemberS).Value; got != "two" {
		t.Fatalf("expected old item in failure, got %s", got)
	}
}

func TestFake_ScanPagination(t *testing.T) {
	f := New().AddTable("t", "id")
	for _, id := range []string{"c", "a", "b"} {
		f.Seed("t", map[string]types.AttributeValue{"id": s(id)})
	}
	limit := int32(2)
	p := dyn.NewScanPaginator(f, &dyn.ScanInput{TableName: str("t"), Limit: &limit})

	var got []string
	for p.HasMorePages() {
		page, err := p.NextPage(context.Background())
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		for _, it := range page.Items {
			got = append(got, it["id"].(*types.AttributeValueMemberS).Value)
		}
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected scan result %v", got)
	}
}

func TestFake_TransactCanceled(t *testing.T) {
	f := New().AddTable("k", "key").AddTable("o", "id")
	f.Seed("k", map[string]types.AttributeValue{"key": s("dup")})

	_, err := f.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: str("k"), Item: map[string]types.AttributeValue{"key": s("dup")}, ConditionExpression: str("attribute_not_exists(key)")}},
			{Put: &types.Put{TableName: str("o"), Item: map[string]types.AttributeValue{"id": s("o1")}}},
		},
	})
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		t.Fatalf("expected transaction canceled, got %v", err)
	}
	if f.Len("o") != 0 {
		t.Fatalf("no item should be written when the transaction is canceled")
	}
}

func TestFake_OrCondition(t *testing.T) {
	f := New().AddTable("t", "id")
	f.Seed("t", map[string]types.AttributeValue{"id": s("a")})
	ctx := context.Background()

	put := func(expected string) error {
		_, err := f.PutItem(ctx, &dyn.PutItemInput{
			TableName:                 str("t"),
			Item:                      map[string]types.AttributeValue{"id": s("a"), "v": s("next")},
			ConditionExpression:       str("attribute_not_exists(#v) OR #v = :expected"),
			ExpressionAttributeNames:  map[string]string{"#v": "v"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":expected": s(expected)},
		})
		return err
	}

	if err := put("ignored"); err != nil {
		t.Fatalf("missing attribute should satisfy the first disjunct: %v", err)
	}
	if err := put("next"); err != nil {
		t.Fatalf("matching value should satisfy the second disjunct: %v", err)
	}
	var ccf *types.ConditionalCheckFailedException
	if err := put("other"); !errors.As(err, &ccf) {
		t.Fatalf("expected conditional failure, got %v", err)
	}
}
