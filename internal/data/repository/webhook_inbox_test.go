package repository

import (
	"context"
	"errors"
	"testing"

	"marketplace-booking/internal/data/entity"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryWebhookInboxLifecycle(t *testing.T) {
	ctx := context.Background()
	inbox := NewMemoryWebhookInbox()
	evt := &entity.WebhookEvent{ID: "evt_1", Provider: "razorpay", Type: "payment.captured", RawBody: "{}"}

	stored, err := inbox.Claim(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, entity.WebhookEventReceived, stored.Status)

	require.NoError(t, inbox.MarkFailed(ctx, "evt_1", "db down"))
	stored, err = inbox.Claim(ctx, evt)
	require.NoError(t, err, "failed events are redelivered")
	assert.Equal(t, 2, stored.Attempts)

	require.NoError(t, inbox.MarkProcessed(ctx, "evt_1"))
	_, err = inbox.Claim(ctx, evt)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := inbox.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookEventProcessed, got.Status)
	assert.Empty(t, got.LastError)

	assert.ErrorIs(t, inbox.MarkProcessed(ctx, "missing"), ErrNotFound)
}

type fakeDynamo struct {
	updates []*dynamodb.UpdateItemInput
	updErr  error
	item    map[string]types.AttributeValue
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updErr != nil {
		return nil, f.updErr
	}
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"event_id":   &types.AttributeValueMemberS{Value: "evt_1"},
		"provider":   &types.AttributeValueMemberS{Value: "razorpay"},
		"event_type": &types.AttributeValueMemberS{Value: "payment.captured"},
		"status":     &types.AttributeValueMemberS{Value: "received"},
		"attempts":   &types.AttributeValueMemberN{Value: "1"},
		"raw_body":   &types.AttributeValueMemberS{Value: "{}"},
	}}, nil
}

func TestDynamoWebhookInboxClaimIsConditional(t *testing.T) {
	ddb := &fakeDynamo{}
	inbox := NewDynamoWebhookInbox(ddb, "", zap.NewNop())

	stored, err := inbox.Claim(context.Background(), &entity.WebhookEvent{ID: "evt_1", Provider: "razorpay", Type: "payment.captured", RawBody: "{}"})
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "razorpay", stored.Provider)

	require.Len(t, ddb.updates, 1)
	in := ddb.updates[0]
	assert.Equal(t, DefaultWebhookInboxTable, aws.ToString(in.TableName))
	assert.Contains(t, aws.ToString(in.ConditionExpression), "attribute_not_exists(#id)")
	assert.Equal(t, "event_id", in.ExpressionAttributeNames["#id"])
	key, ok := in.Key["event_id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "evt_1", key.Value)
}

func TestDynamoWebhookInboxDuplicate(t *testing.T) {
	ddb := &fakeDynamo{updErr: &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}}
	inbox := NewDynamoWebhookInbox(ddb, "events", zap.NewNop())

	_, err := inbox.Claim(context.Background(), &entity.WebhookEvent{ID: "evt_1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.ErrorIs(t, inbox.MarkProcessed(context.Background(), "evt_1"), ErrNotFound)
}

func TestDynamoWebhookInboxPropagatesErrors(t *testing.T) {
	boom := errors.New("throttled")
	inbox := NewDynamoWebhookInbox(&fakeDynamo{updErr: boom}, "events", zap.NewNop())

	_, err := inbox.Claim(context.Background(), &entity.WebhookEvent{ID: "evt_1"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestDynamoWebhookInboxGetMissing(t *testing.T) {
	inbox := NewDynamoWebhookInbox(&fakeDynamo{}, "events", zap.NewNop())
	_, err := inbox.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
