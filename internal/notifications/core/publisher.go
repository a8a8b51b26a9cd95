package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"safirnotify/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlarmEventPublisher hands alarm events received by the webhook to the
// alarm worker through SQS.
type AlarmEventPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

// NewAlarmEventPublisher creates a publisher targeting the given queue.
func NewAlarmEventPublisher(client SQSSender, queueURL string, logger types.Logger) *AlarmEventPublisher {
	return &AlarmEventPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes msg and sends it to the alarm queue. The alarm ID is
// attached as a message attribute so the queue can be inspected without
// decoding bodies.
func (p *AlarmEventPublisher) Publish(ctx context.Context, msg types.AlarmMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("alarm publisher: failed to marshal message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"AlarmID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Event.AlarmID),
			},
		},
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("alarm publisher: failed to send message to %s: %w", p.queueURL, err)
	}

	p.logger.Info("alarm event published",
		"alarm_id", msg.Event.AlarmID,
		"trace_id", msg.TraceID,
		"sqs_message_id", aws.ToString(out.MessageId),
	)

	return nil
}
