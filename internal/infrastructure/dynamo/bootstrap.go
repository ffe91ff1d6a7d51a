package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medmarket-api/internal/config"
)

// TableAdmin is the control-plane subset of the DynamoDB client used at startup.
type TableAdmin interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Tables that already exist are skipped.
func Bootstrap(ctx context.Context, client TableAdmin, tables config.DynamoTables) {
	createTable(ctx, client, hashTable(tables.Users, fieldUserID))
	createTable(ctx, client, hashTable(tables.UserUniques, fieldUniqueKey))

	createTable(ctx, client, hashTable(tables.OTPRecords, fieldPhone))
	enableTTL(ctx, client, tables.OTPRecords, fieldExpiresAt)

	stores := hashTable(tables.Stores, fieldStoreID, fieldVendorID)
	stores.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexVendorID, fieldVendorID, ""),
	}
	createTable(ctx, client, stores)

	medicines := hashTable(tables.Medicines, fieldMedicineID, fieldVendorID, fieldStoreID)
	medicines.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexVendorID, fieldVendorID, ""),
		gsi(indexStoreID, fieldStoreID, ""),
	}
	createTable(ctx, client, medicines)

	reviews := hashTable(tables.Reviews, fieldReviewID, fieldMedicineID)
	reviews.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexMedicineID, fieldMedicineID, ""),
	}
	createTable(ctx, client, reviews)
}

// hashTable describes an on-demand table keyed by pk. Extra string attributes
// are declared so they can back GSIs.
func hashTable(name, pk string, indexed ...string) *dynamodb.CreateTableInput {
	defs := []types.AttributeDefinition{
		{AttributeName: aws.String(pk), AttributeType: types.ScalarAttributeTypeS},
	}
	for _, a := range indexed {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(a), AttributeType: types.ScalarAttributeTypeS,
		})
	}
	return &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: defs,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
		},
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client TableAdmin, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", aws.ToString(input.TableName), "err", err)
		}
		return
	}
	slog.Info("created table", "table", aws.ToString(input.TableName))
}

func enableTTL(ctx context.Context, client TableAdmin, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
