package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/medmarket-api/internal/domain"
)

type StoreRepo struct {
	client    API
	tableName string
}

func NewStoreRepo(client API, tableName string) *StoreRepo {
	return &StoreRepo{client: client, tableName: tableName}
}

func (r *StoreRepo) Put(ctx context.Context, s *domain.Store) error {
	return putNew(ctx, r.client, r.tableName, fieldStoreID, s)
}

func (r *StoreRepo) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	var s domain.Store
	if err := getItem(ctx, r.client, r.tableName, fieldStoreID, storeID, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Store, error) {
	return queryIndex[domain.Store](ctx, r.client, r.tableName, indexVendorID, fieldVendorID, vendorID)
}

func (r *StoreRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Store, string, error) {
	return scanPage[domain.Store](ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)}, fieldStoreID, limit, cursor)
}

func (r *StoreRepo) Update(ctx context.Context, storeID string, updates map[string]interface{}) (*domain.Store, error) {
	var s domain.Store
	if err := updateExisting(ctx, r.client, r.tableName, fieldStoreID, storeID, updates, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepo) Delete(ctx context.Context, storeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldStoreID, storeID),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldStoreID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("store %s: %w", storeID, domain.ErrNotFound)
	}
	return err
}
