package storage

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/types"
)

// DynamoStore is the AccountStore backed by a DynamoDB table keyed by
// account_id, for deployments that want mappings shared org-wide without
// running JetStream.
type DynamoStore struct {
	db        *dynamodb.Client
	tableName string
	logger    *slog.Logger
}

// NewDynamoStore creates a store against the given table. Region resolution
// follows the default AWS config chain; DYNAMO_ENDPOINT overrides the
// endpoint for local testing.
func NewDynamoStore(ctx context.Context, tableName string, logger *slog.Logger) (*DynamoStore, error) {
	if tableName == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "DynamoStore", "New", "table name")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "DynamoStore", "New", "aws config load")
	}

	endpoint := os.Getenv("DYNAMO_ENDPOINT")
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &DynamoStore{db: client, tableName: tableName, logger: logger}, nil
}

// Store implements AccountStore with full-replace semantics: put every batch
// entry, delete every stored ID the batch omits.
func (s *DynamoStore) Store(ctx context.Context, mappings []types.AccountMapping) error {
	keep := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		n := m.Normalize()
		item, err := attributevalue.MarshalMap(n)
		if err != nil {
			return errors.Wrap(err, "DynamoStore", "Store", "marshal mapping")
		}
		if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      item,
		}); err != nil {
			return errors.WrapTransient(err, "DynamoStore", "Store", "put item")
		}
		keep[n.AccountID] = true
	}

	existing, err := s.scan(ctx)
	if err != nil {
		return err
	}
	for _, m := range existing {
		if keep[m.AccountID] {
			continue
		}
		if err := s.deleteID(ctx, m.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// GetByAccountID implements AccountStore.
func (s *DynamoStore) GetByAccountID(ctx context.Context, accountID string) (string, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"account_id": &ddbtypes.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return "", errors.WrapTransient(err, "DynamoStore", "GetByAccountID", "get item")
	}
	if out.Item == nil {
		return "", nil
	}

	var m types.AccountMapping
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return "", errors.WrapInvalid(err, "DynamoStore", "GetByAccountID", "unmarshal item")
	}
	return m.AccountName, nil
}

// GetByAccountName implements AccountStore.
func (s *DynamoStore) GetByAccountName(ctx context.Context, accountName string) (string, error) {
	return s.scanByName(ctx, accountName, matchExact)
}

// FuzzyLookup implements AccountStore.
func (s *DynamoStore) FuzzyLookup(ctx context.Context, accountName string) (string, error) {
	if accountName == "" {
		return "", nil
	}
	return s.scanByName(ctx, accountName, matchFuzzy)
}

func (s *DynamoStore) scanByName(ctx context.Context, query string, match func(stored, query string) bool) (string, error) {
	mappings, err := s.scan(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range mappings {
		if match(m.AccountName, query) {
			return m.AccountID, nil
		}
	}
	return "", nil
}

// Clear implements AccountStore.
func (s *DynamoStore) Clear(ctx context.Context) error {
	mappings, err := s.scan(ctx)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if err := s.deleteID(ctx, m.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// scan reads the full table. Account sets are small (hundreds, not
// millions), so a table scan per lookup is acceptable.
func (s *DynamoStore) scan(ctx context.Context) ([]types.AccountMapping, error) {
	var mappings []types.AccountMapping
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, errors.WrapTransient(err, "DynamoStore", "scan", "table scan")
		}

		var page []types.AccountMapping
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.WrapInvalid(err, "DynamoStore", "scan", "unmarshal items")
		}
		mappings = append(mappings, page...)

		if out.LastEvaluatedKey == nil {
			return mappings, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) deleteID(ctx context.Context, accountID string) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"account_id": &ddbtypes.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return errors.WrapTransient(err, "DynamoStore", "deleteID", "delete item")
	}
	return nil
}
