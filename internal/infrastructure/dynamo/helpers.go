package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medmarket-api/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func strVal(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }

func numVal(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Keys are sorted so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// stampUpdated returns a copy of updates with updated_at set to now.
func stampUpdated(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out[fieldUpdatedAt] = time.Now().UTC()
	return out
}

// entityLabel names the entity behind a key attribute ("medicine_id" -> "medicine").
// Errors use it instead of the table name, which clients must not see.
func entityLabel(keyAttr string) string {
	return strings.TrimSuffix(keyAttr, "_id")
}

// updateExisting applies updates to the item at key, failing with ErrNotFound
// when keyAttr does not exist. The updated item is unmarshalled into out when non-nil.
func updateExisting(ctx context.Context, client API, table, keyAttr, keyValue string, updates map[string]interface{}, out interface{}) error {
	ue, err := buildUpdateExpr(stampUpdated(updates))
	if err != nil {
		return err
	}
	ue.Names["#pk"] = keyAttr
	res, err := client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(keyAttr, keyValue),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s %s: %w", entityLabel(keyAttr), keyValue, domain.ErrNotFound)
		}
		return err
	}
	if out != nil {
		return attributevalue.UnmarshalMap(res.Attributes, out)
	}
	return nil
}

// getItem loads the item at key into out, returning ErrNotFound when absent.
func getItem(ctx context.Context, client API, table, keyAttr, keyValue string, out interface{}) error {
	res, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       strKey(keyAttr, keyValue),
	})
	if err != nil {
		return err
	}
	if res.Item == nil {
		return fmt.Errorf("%s %s: %w", entityLabel(keyAttr), keyValue, domain.ErrNotFound)
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

// putNew writes item only when no item with the same keyAttr exists.
func putNew(ctx context.Context, client API, table, keyAttr string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", entityLabel(keyAttr), err)
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": keyAttr},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s: %w", entityLabel(keyAttr), domain.ErrAlreadyExists)
	}
	return err
}

// queryIndex returns every item whose attr equals value on the given GSI.
func queryIndex[T any](ctx context.Context, client API, table, index, attr, value string) ([]T, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": strVal(value)},
	}
	var items []T
	p := dynamodb.NewQueryPaginator(client, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []T
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
	}
	return items, nil
}

// scanPage returns one page of table items.
// cursor is a base64-encoded partition key used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func scanPage[T any](ctx context.Context, client API, in *dynamodb.ScanInput, keyAttr string, limit int32, cursor string) ([]T, string, error) {
	in.Limit = aws.Int32(limit)
	if cursor != "" {
		key, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		in.ExclusiveStartKey = strKey(keyAttr, key)
	}
	out, err := client.Scan(ctx, in)
	if err != nil {
		return nil, "", err
	}
	items := []T{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey[keyAttr].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return items, nextCursor, nil
}

func encodeCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// conditionFailedItem returns the item DynamoDB attached to a failed
// condition check (ReturnValuesOnConditionCheckFailure=ALL_OLD), or nil.
func conditionFailedItem(err error) (map[string]types.AttributeValue, bool) {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return nil, false
	}
	return ccf.Item, true
}

// transactionConflict reports whether a TransactWriteItems call was cancelled
// because one of its condition checks failed.
func transactionConflict(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, r := range tce.CancellationReasons {
		if aws.ToString(r.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
