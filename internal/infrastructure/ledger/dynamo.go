package ledger

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"GazetteScanner/internal/ports"
)

const (
	urlAttribute       = "url"
	dynamoBatchLimit   = 25
	dynamoBatchRetries = 5
)

// DynamoDBAPI is the part of the DynamoDB client the ledger uses.
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoLedger uses one table per ledger ref, keyed by the "url" attribute.
type DynamoLedger struct {
	client DynamoDBAPI
}

var _ ports.Ledger = (*DynamoLedger)(nil)

// NewDynamoLedger wraps a DynamoDB client.
func NewDynamoLedger(client DynamoDBAPI) *DynamoLedger {
	return &DynamoLedger{client: client}
}

// Load scans the whole table, following pagination.
func (d *DynamoLedger) Load(ctx context.Context, ref string) (map[string]struct{}, error) {
	items, err := d.scanAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		if v, ok := item[urlAttribute].(*types.AttributeValueMemberS); ok {
			ids[v.Value] = struct{}{}
		}
	}
	return ids, nil
}

// Append puts the item; PutItem on an existing key is a no-op overwrite.
func (d *DynamoLedger) Append(ctx context.Context, ref, id string) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ref),
		Item: map[string]types.AttributeValue{
			urlAttribute: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put %s into DynamoDB table %s: %w", id, ref, err)
	}
	return nil
}

// Clear deletes every item in batches of 25.
func (d *DynamoLedger) Clear(ctx context.Context, ref string) error {
	items, err := d.scanAll(ctx, ref)
	if err != nil {
		return err
	}

	for start := 0; start < len(items); start += dynamoBatchLimit {
		end := start + dynamoBatchLimit
		if end > len(items) {
			end = len(items)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			key, ok := item[urlAttribute]
			if !ok {
				continue
			}
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{urlAttribute: key},
				},
			})
		}
		if err := d.batchWrite(ctx, ref, requests); err != nil {
			return err
		}
	}
	return nil
}

func (d *DynamoLedger) batchWrite(ctx context.Context, table string, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: requests}
	for attempt := 0; attempt < dynamoBatchRetries && len(pending[table]) > 0; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to delete items from DynamoDB table %s: %w", table, err)
		}
		pending = out.UnprocessedItems
	}
	if len(pending[table]) > 0 {
		return fmt.Errorf("DynamoDB table %s left %d unprocessed deletes", table, len(pending[table]))
	}
	return nil
}

func (d *DynamoLedger) scanAll(ctx context.Context, table string) ([]map[string]types.AttributeValue, error) {
	var (
		items    []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB table %s: %w", table, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
