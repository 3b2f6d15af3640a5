package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// record is the item layout; expiresAt drives the table's TTL.
type record struct {
	SessionID string       `dynamodbav:"sessionId"`
	Entries   []chat.Entry `dynamodbav:"entries"`
	UpdatedAt string       `dynamodbav:"updatedAt"`
	ExpiresAt int64        `dynamodbav:"expiresAt"`
}

// DynamoStore keeps each session as one DynamoDB item.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	tracer    trace.Tracer
	logger    *logging.Logger
	now       func() time.Time
}

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, ttl time.Duration, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("session: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("session: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		tracer:    otel.Tracer("triage.internal.session"),
		logger:    logger.Component("session"),
		now:       time.Now,
	}
}

func (s *DynamoStore) Save(ctx context.Context, sessionID string, entries []chat.Entry) error {
	ctx, span := s.tracer.Start(ctx, "session.dynamo.save")
	defer span.End()

	if entries == nil {
		entries = []chat.Entry{}
	}
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(record{
		SessionID: sessionID,
		Entries:   entries,
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Load(ctx context.Context, sessionID string) ([]chat.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "session.dynamo.load")
	defer span.End()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to fetch item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode item: %w", err)
	}
	// TTL deletion is lazy, so expired items can still be returned.
	if rec.ExpiresAt > 0 && rec.ExpiresAt <= s.now().Unix() {
		s.logger.Debug("ignoring expired session item", "session_id", sessionID)
		return nil, ErrNotFound
	}
	return rec.Entries, nil
}

func (s *DynamoStore) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "session.dynamo.delete")
	defer span.End()

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(sessionID),
	}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete item: %w", err)
	}
	return nil
}

func key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	}
}
