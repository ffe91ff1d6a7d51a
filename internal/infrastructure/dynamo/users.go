package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medmarket-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// Phone and email uniqueness is held by guard items in a second table,
// written in the same transaction as the user item.
type UserRepo struct {
	client       API
	tableName    string
	uniquesTable string
}

func NewUserRepo(client API, tableName, uniquesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniquesTable: uniquesTable}
}

func phoneKey(phone string) string { return "phone#" + phone }
func emailKey(email string) string { return "email#" + email }

// Create stores u together with its phone and email guards. It fails with
// ErrAlreadyExists when either is owned by another user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:                aws.String(r.tableName),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
		}},
		r.guardPut(phoneKey(u.Phone), u.UserID),
	}
	if u.Email != "" {
		items = append(items, r.guardPut(emailKey(u.Email), u.UserID))
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if transactionConflict(err) {
		return fmt.Errorf("phone or email already registered: %w", domain.ErrAlreadyExists)
	}
	return err
}

func (r *UserRepo) guardPut(key, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.uniquesTable),
		Item: map[string]types.AttributeValue{
			fieldUniqueKey: strVal(key),
			fieldUserID:    strVal(userID),
		},
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUniqueKey},
	}}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	if err := getItem(ctx, r.client, r.tableName, fieldUserID, userID, &u); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getByGuard(ctx, phoneKey(phone))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getByGuard(ctx, emailKey(email))
}

func (r *UserRepo) getByGuard(ctx context.Context, key string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.uniquesTable),
		Key:            strKey(fieldUniqueKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	owner, ok := out.Item[fieldUserID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, owner.Value)
}

// Update applies a partial update to a user and returns the stored result.
// Email changes must go through UpdateEmail.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	var u domain.User
	if err := updateExisting(ctx, r.client, r.tableName, fieldUserID, userID, updates, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateEmail moves the email guard from oldEmail to newEmail and sets the
// user's email in one transaction.
func (r *UserRepo) UpdateEmail(ctx context.Context, userID, oldEmail, newEmail string) error {
	items := []types.TransactWriteItem{
		r.guardPut(emailKey(newEmail), userID),
		{Update: &types.Update{
			TableName:           aws.String(r.tableName),
			Key:                 strKey(fieldUserID, userID),
			UpdateExpression:    aws.String("SET #e = :e, #u = :u"),
			ConditionExpression: aws.String("attribute_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{
				"#e": fieldEmail, "#u": fieldUpdatedAt, "#pk": fieldUserID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":e": strVal(newEmail),
				":u": strVal(time.Now().UTC().Format(time.RFC3339Nano)),
			},
		}},
	}
	if oldEmail != "" {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.uniquesTable),
			Key:       strKey(fieldUniqueKey, emailKey(oldEmail)),
		}})
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if transactionConflict(err) {
		return fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
	}
	return err
}

// Disable marks the account as disabled. Users are never physically deleted.
func (r *UserRepo) Disable(ctx context.Context, userID string) error {
	return updateExisting(ctx, r.client, r.tableName, fieldUserID, userID,
		map[string]interface{}{fieldEnable: false}, nil)
}

// ScanPage returns a page of enabled users.
func (r *UserRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	in := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#en = :t"),
		ExpressionAttributeNames:  map[string]string{"#en": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
	}
	return scanPage[domain.User](ctx, r.client, in, fieldUserID, limit, cursor)
}
