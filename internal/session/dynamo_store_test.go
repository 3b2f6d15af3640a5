package session

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/triage-concierge/pkg/logging"
)

type fakeDynamo struct {
	items    map[string]map[string]types.AttributeValue
	putInput *dynamodb.PutItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(key map[string]types.AttributeValue) string {
	return key["sessionId"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "triage_sessions", time.Hour, logging.New("error"))
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), "session-3", sampleEntries()))
	require.NotNil(t, fake.putInput)
	assert.Equal(t, "triage_sessions", *fake.putInput.TableName)
	expires, ok := fake.putInput.Item["expiresAt"].(*types.AttributeValueMemberN)
	require.True(t, ok, "expected numeric expiresAt attribute")
	assert.NotEmpty(t, expires.Value)
	_, ok = fake.putInput.Item["entries"].(*types.AttributeValueMemberL)
	assert.True(t, ok, "expected entries stored as a list")
}

func TestDynamoStoreIgnoresExpiredItems(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "triage_sessions", time.Hour, logging.New("error"))
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(context.Background(), "session-4", sampleEntries()))

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err := store.Load(context.Background(), "session-4")
	assert.ErrorIs(t, err, ErrNotFound)
}
