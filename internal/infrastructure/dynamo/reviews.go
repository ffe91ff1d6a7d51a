package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/medmarket-api/internal/domain"
)

type ReviewRepo struct {
	client    API
	tableName string
}

func NewReviewRepo(client API, tableName string) *ReviewRepo {
	return &ReviewRepo{client: client, tableName: tableName}
}

func (r *ReviewRepo) Put(ctx context.Context, rv *domain.Review) error {
	return putNew(ctx, r.client, r.tableName, fieldReviewID, rv)
}

func (r *ReviewRepo) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	var rv domain.Review
	if err := getItem(ctx, r.client, r.tableName, fieldReviewID, reviewID, &rv); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepo) ListByMedicine(ctx context.Context, medicineID string) ([]domain.Review, error) {
	return queryIndex[domain.Review](ctx, r.client, r.tableName, indexMedicineID, fieldMedicineID, medicineID)
}

func (r *ReviewRepo) Delete(ctx context.Context, reviewID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldReviewID, reviewID),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldReviewID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("review %s: %w", reviewID, domain.ErrNotFound)
	}
	return err
}
