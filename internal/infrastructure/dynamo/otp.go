package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medmarket-api/internal/domain"
)

// OTPRepo stores the single outstanding code per phone number.
// Every state transition is one conditional write, so concurrent requests
// for the same phone serialize on DynamoDB rather than in process.
type OTPRepo struct {
	client    API
	tableName string
}

func NewOTPRepo(client API, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

// PutIfResendable writes rec unless a record for the same phone exists whose
// resend_at is still in the future. In that case it returns *ThrottledError.
func (r *OTPRepo) PutIfResendable(ctx context.Context, rec *domain.OTPRecord, now time.Time) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                           aws.String(r.tableName),
		Item:                                item,
		ConditionExpression:                 aws.String("attribute_not_exists(#p) OR #r <= :now"),
		ExpressionAttributeNames:            map[string]string{"#p": fieldPhone, "#r": fieldResendAt},
		ExpressionAttributeValues:           map[string]types.AttributeValue{":now": numVal(now.Unix())},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return nil
	}
	old, failed := conditionFailedItem(err)
	if !failed {
		return err
	}
	retry := time.Duration(0)
	var prev domain.OTPRecord
	if old != nil && attributevalue.UnmarshalMap(old, &prev) == nil {
		retry = time.Unix(prev.ResendAt, 0).Sub(now)
	}
	return &domain.ThrottledError{RetryAfter: retry}
}

// Consume deletes the record for phone if code and intent match and it has
// not expired, returning the deleted record. On failure it classifies the
// stored record: ErrNotFound, ErrOTPExpired or ErrOTPMismatch.
func (r *OTPRepo) Consume(ctx context.Context, phone, code string, intent domain.OTPIntent, now time.Time) (*domain.OTPRecord, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldPhone, phone),
		ConditionExpression: aws.String("#c = :c AND #i = :i AND #x > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCode, "#i": fieldIntent, "#x": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":   strVal(code),
			":i":   strVal(string(intent)),
			":now": numVal(now.Unix()),
		},
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		var rec domain.OTPRecord
		if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal otp record: %w", err)
		}
		return &rec, nil
	}

	old, failed := conditionFailedItem(err)
	if !failed {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("no pending code: %w", domain.ErrNotFound)
	}
	var prev domain.OTPRecord
	if err := attributevalue.UnmarshalMap(old, &prev); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	switch {
	case prev.Intent != intent:
		return nil, fmt.Errorf("no pending %s code: %w", intent, domain.ErrNotFound)
	case prev.Expired(now):
		return &prev, fmt.Errorf("code expired: %w", domain.ErrOTPExpired)
	default:
		return &prev, fmt.Errorf("code does not match: %w", domain.ErrOTPMismatch)
	}
}

// RecordFailedAttempt increments the attempt counter on the record holding
// code, and deletes it once maxAttempts is reached. A record that was replaced
// in the meantime is left alone.
func (r *OTPRepo) RecordFailedAttempt(ctx context.Context, phone, code string, maxAttempts int) error {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldPhone, phone),
		UpdateExpression:          aws.String("ADD #a :one"),
		ConditionExpression:       aws.String("#c = :c"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldAttempts, "#c": fieldCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": numVal(1), ":c": strVal(code)},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return err
	}
	var counted struct {
		Attempts int `dynamodbav:"attempts"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counted); err != nil {
		return fmt.Errorf("unmarshal attempts: %w", err)
	}
	if counted.Attempts >= maxAttempts {
		return r.DeleteIfCode(ctx, phone, code)
	}
	return nil
}

// DeleteIfCode removes the record for phone only while it still holds code.
func (r *OTPRepo) DeleteIfCode(ctx context.Context, phone, code string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldPhone, phone),
		ConditionExpression:       aws.String("#c = :c"),
		ExpressionAttributeNames:  map[string]string{"#c": fieldCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": strVal(code)},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}
