package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// Publisher delivers booking events.
type Publisher interface {
	Publish(ctx context.Context, evt BookingEvent) error
}

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends events to an SQS queue as JSON.
type SQSPublisher struct {
	client   sqsSender
	queueURL string
	logger   *logging.Logger
}

// NewSQSPublisher creates a publisher around the provided SQS client.
func NewSQSPublisher(client *sqs.Client, queueURL string, logger *logging.Logger) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	return newSQSPublisher(client, queueURL, logger)
}

func newSQSPublisher(client sqsSender, queueURL string, logger *logging.Logger) *SQSPublisher {
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger.Component("events")}
}

// Publish sends evt with its kind as a message attribute.
func (p *SQSPublisher) Publish(ctx context.Context, evt BookingEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", evt.Kind, err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(evt.Kind))},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	p.logger.Debug("booking event published", "event_id", evt.EventID, "kind", evt.Kind, "message_id", aws.ToString(out.MessageId))
	return nil
}

// LogPublisher writes events to the log. It is the default when no queue
// is configured.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher returns a log-only publisher.
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger.Component("events")}
}

// Publish logs evt.
func (p *LogPublisher) Publish(ctx context.Context, evt BookingEvent) error {
	p.logger.Info("booking event",
		"event_id", evt.EventID,
		"kind", evt.Kind,
		"session_id", evt.SessionID,
		"reference_id", evt.ReferenceID,
	)
	return nil
}
