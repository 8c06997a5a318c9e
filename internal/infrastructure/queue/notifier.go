// Package queue publishes delivery batches to an SQS queue for downstream consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// SQSAPI is the part of the SQS client the notifier needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is the JSON body of one delivery batch.
type Message struct {
	RuleSet     string                   `json:"rule_set"`
	Description string                   `json:"description"`
	Channel     string                   `json:"channel"`
	Entries     []domain.StructuredEntry `json:"entries"`
}

// Notifier sends each delivery batch as one SQS message.
type Notifier struct {
	client   SQSAPI
	queueURL string
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(client SQSAPI, queueURL string) *Notifier {
	return &Notifier{client: client, queueURL: queueURL}
}

func (n *Notifier) Deliver(ctx context.Context, meta domain.RuleSetMeta, entries []domain.StructuredEntry) error {
	if len(entries) == 0 {
		return nil
	}

	body, err := json.Marshal(Message{
		RuleSet:     meta.Name,
		Description: meta.Description,
		Channel:     meta.Channel,
		Entries:     entries,
	})
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}

	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"rule_set": {DataType: aws.String("String"), StringValue: aws.String(meta.Name)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", n.queueURL, err)
	}
	return nil
}
