package runstate

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"GazetteScanner/internal/config"
	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const (
	nameAttribute  = "name"
	stateAttribute = "state"
)

// DynamoDBAPI is the part of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps the RunConfig as YAML text in one item keyed by name.
type DynamoStore struct {
	client DynamoDBAPI
	table  string
	name   string
}

var _ ports.RunStateStore = (*DynamoStore)(nil)

func NewDynamoStore(client DynamoDBAPI, table, name string) *DynamoStore {
	return &DynamoStore{client: client, table: table, name: name}
}

func (s *DynamoStore) Load(ctx context.Context) (domain.RunConfig, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.RunConfig{}, fmt.Errorf("failed to get run state %s from %s: %w", s.name, s.table, err)
	}

	state, ok := out.Item[stateAttribute].(*types.AttributeValueMemberS)
	if !ok {
		return domain.RunConfig{}, &domain.ConfigError{Field: s.table + "/" + s.name, Reason: "run state item not found"}
	}
	return config.DecodeRunConfig([]byte(state.Value))
}

func (s *DynamoStore) Save(ctx context.Context, cfg domain.RunConfig) error {
	raw, err := config.EncodeRunConfig(cfg)
	if err != nil {
		return err
	}

	item := s.key()
	item[stateAttribute] = &types.AttributeValueMemberS{Value: string(raw)}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put run state %s into %s: %w", s.name, s.table, err)
	}
	return nil
}

func (s *DynamoStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		nameAttribute: &types.AttributeValueMemberS{Value: s.name},
	}
}
