package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/otp-auth-api/internal/domain"
)

// RateLimitStore implements ratelimit.Store on DynamoDB rows. This is the
// durable backend: records survive restarts and are shared across instances.
// PK: key. Rows carry a TTL as a backstop; lazy expiry in the limiter is the
// source of truth.
type RateLimitStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewRateLimitStore(client *dynamodb.Client, tableName string) *RateLimitStore {
	return &RateLimitStore{client: client, tableName: tableName}
}

func (s *RateLimitStore) Get(ctx context.Context, key string) (*domain.RateLimitRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey("key", key),
	})
	if err != nil {
		return nil, fmt.Errorf("get rate-limit record %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec domain.RateLimitRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal rate-limit record %s: %w", key, err)
	}
	return &rec, nil
}

func (s *RateLimitStore) Upsert(ctx context.Context, rec *domain.RateLimitRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal rate-limit record %s: %w", rec.Key, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put rate-limit record %s: %w", rec.Key, err)
	}
	return nil
}

func (s *RateLimitStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey("key", key),
	})
	if err != nil {
		return fmt.Errorf("delete rate-limit record %s: %w", key, err)
	}
	return nil
}
