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

type MedicineRepo struct {
	client    API
	tableName string
}

func NewMedicineRepo(client API, tableName string) *MedicineRepo {
	return &MedicineRepo{client: client, tableName: tableName}
}

func (r *MedicineRepo) Put(ctx context.Context, m *domain.Medicine) error {
	return putNew(ctx, r.client, r.tableName, fieldMedicineID, m)
}

func (r *MedicineRepo) Get(ctx context.Context, medicineID string) (*domain.Medicine, error) {
	var m domain.Medicine
	if err := getItem(ctx, r.client, r.tableName, fieldMedicineID, medicineID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MedicineRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Medicine, error) {
	return queryIndex[domain.Medicine](ctx, r.client, r.tableName, indexVendorID, fieldVendorID, vendorID)
}

func (r *MedicineRepo) ListByStore(ctx context.Context, storeID string) ([]domain.Medicine, error) {
	return queryIndex[domain.Medicine](ctx, r.client, r.tableName, indexStoreID, fieldStoreID, storeID)
}

func (r *MedicineRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Medicine, string, error) {
	return scanPage[domain.Medicine](ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)}, fieldMedicineID, limit, cursor)
}

func (r *MedicineRepo) Update(ctx context.Context, medicineID string, updates map[string]interface{}) (*domain.Medicine, error) {
	var m domain.Medicine
	if err := updateExisting(ctx, r.client, r.tableName, fieldMedicineID, medicineID, updates, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// AddStock atomically adds qty to the medicine's stock and sets its price.
func (r *MedicineRepo) AddStock(ctx context.Context, medicineID string, qty int, price float64) (*domain.Medicine, error) {
	priceAV, err := attributevalue.Marshal(price)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldMedicineID, medicineID),
		UpdateExpression:    aws.String("SET #p = :p, #u = :u ADD #s :q"),
		ConditionExpression: aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#p": fieldPrice, "#u": fieldUpdatedAt, "#s": fieldStock, "#pk": fieldMedicineID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": priceAV,
			":u": strVal(time.Now().UTC().Format(time.RFC3339Nano)),
			":q": numVal(int64(qty)),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("medicine %s: %w", medicineID, domain.ErrNotFound)
		}
		return nil, err
	}
	var m domain.Medicine
	if err := attributevalue.UnmarshalMap(out.Attributes, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MedicineRepo) Delete(ctx context.Context, medicineID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldMedicineID, medicineID),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldMedicineID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("medicine %s: %w", medicineID, domain.ErrNotFound)
	}
	return err
}
