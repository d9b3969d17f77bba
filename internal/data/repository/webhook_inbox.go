package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace-booking/internal/data/entity"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const DefaultWebhookInboxTable = "webhook_events"

// WebhookInbox is the durable log of gateway deliveries. Claim records an
// attempt and fails with ErrDuplicate once the event has been processed, so
// redeliveries of failed events are retried and successful ones are not.
type WebhookInbox interface {
	Claim(ctx context.Context, evt *entity.WebhookEvent) (*entity.WebhookEvent, error)
	Get(ctx context.Context, id string) (*entity.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// DynamoAPI is the subset of the DynamoDB client the inbox uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// dynamoWebhookInbox stores events in a table keyed by event_id (string).
type dynamoWebhookInbox struct {
	ddb       DynamoAPI
	tableName string
	log       *zap.Logger
}

func NewDynamoWebhookInbox(ddb DynamoAPI, tableName string, log *zap.Logger) WebhookInbox {
	if tableName == "" {
		tableName = DefaultWebhookInboxTable
	}
	return &dynamoWebhookInbox{
		ddb:       ddb,
		tableName: tableName,
		log:       log.With(zap.String("repository", "webhook-inbox")),
	}
}

func (r *dynamoWebhookInbox) Claim(ctx context.Context, evt *entity.WebhookEvent) (*entity.WebhookEvent, error) {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       eventKey(evt.ID),
		UpdateExpression: aws.String("SET #provider = :provider, #type = :type, #status = :received, " +
			"raw_body = :body, received_at = if_not_exists(received_at, :now), updated_at = :now " +
			"ADD attempts :one"),
		ConditionExpression: aws.String("attribute_not_exists(#id) OR #status <> :processed"),
		ExpressionAttributeNames: map[string]string{
			"#id":       "event_id",
			"#provider": "provider",
			"#type":     "event_type",
			"#status":   "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":provider":  &types.AttributeValueMemberS{Value: evt.Provider},
			":type":      &types.AttributeValueMemberS{Value: evt.Type},
			":received":  &types.AttributeValueMemberS{Value: string(entity.WebhookEventReceived)},
			":processed": &types.AttributeValueMemberS{Value: string(entity.WebhookEventProcessed)},
			":body":      &types.AttributeValueMemberS{Value: evt.RawBody},
			":now":       now,
			":one":       &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("webhook event %s: %w", evt.ID, ErrDuplicate)
		}
		r.log.Error("Failed to claim webhook event", zap.Error(err), zap.String("event_id", evt.ID))
		return nil, fmt.Errorf("claim webhook event %s: %w", evt.ID, err)
	}

	var stored entity.WebhookEvent
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return nil, fmt.Errorf("decode webhook event %s: %w", evt.ID, err)
	}
	return &stored, nil
}

func (r *dynamoWebhookInbox) Get(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            eventKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get webhook event %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var evt entity.WebhookEvent
	if err := attributevalue.UnmarshalMap(out.Item, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook event %s: %w", id, err)
	}
	return &evt, nil
}

func (r *dynamoWebhookInbox) MarkProcessed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, entity.WebhookEventProcessed, "")
}

func (r *dynamoWebhookInbox) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.setStatus(ctx, id, entity.WebhookEventFailed, reason)
}

func (r *dynamoWebhookInbox) setStatus(ctx context.Context, id string, status entity.WebhookEventStatus, reason string) error {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 eventKey(id),
		UpdateExpression:    aws.String("SET #status = :status, last_error = :reason, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id":     "event_id",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":reason": &types.AttributeValueMemberS{Value: reason},
			":now":    now,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		r.log.Error("Failed to update webhook event status",
			zap.Error(err),
			zap.String("event_id", id),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update webhook event %s: %w", id, err)
	}
	return nil
}

func eventKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"event_id": &types.AttributeValueMemberS{Value: id},
	}
}

type memoryWebhookInbox struct {
	mu     sync.Mutex
	events map[string]*entity.WebhookEvent
}

func NewMemoryWebhookInbox() WebhookInbox {
	return &memoryWebhookInbox{events: map[string]*entity.WebhookEvent{}}
}

func (r *memoryWebhookInbox) Claim(ctx context.Context, evt *entity.WebhookEvent) (*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored, ok := r.events[evt.ID]
	if ok && stored.Status == entity.WebhookEventProcessed {
		return nil, fmt.Errorf("webhook event %s: %w", evt.ID, ErrDuplicate)
	}
	if !ok {
		stored = &entity.WebhookEvent{ID: evt.ID, ReceivedAt: now}
		r.events[evt.ID] = stored
	}
	stored.Provider = evt.Provider
	stored.Type = evt.Type
	stored.RawBody = evt.RawBody
	stored.Status = entity.WebhookEventReceived
	stored.Attempts++
	stored.UpdatedAt = now

	out := *stored
	return &out, nil
}

func (r *memoryWebhookInbox) Get(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *stored
	return &out, nil
}

func (r *memoryWebhookInbox) MarkProcessed(ctx context.Context, id string) error {
	return r.setStatus(id, entity.WebhookEventProcessed, "")
}

func (r *memoryWebhookInbox) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.setStatus(id, entity.WebhookEventFailed, reason)
}

func (r *memoryWebhookInbox) setStatus(id string, status entity.WebhookEventStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return ErrNotFound
	}
	stored.Status = status
	stored.LastError = reason
	stored.UpdatedAt = time.Now().UTC()
	return nil
}
