package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/otp-auth-api/internal/domain"
)

// EmailTokenRepo manages pending one-time codes. PK: user_id. Rows carry a
// TTL so DynamoDB reclaims expired codes without a sweeper.
type EmailTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEmailTokenRepo(client *dynamodb.Client, tableName string) *EmailTokenRepo {
	return &EmailTokenRepo{client: client, tableName: tableName}
}

func (r *EmailTokenRepo) Put(ctx context.Context, t *domain.EmailToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal email token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *EmailTokenRepo) Get(ctx context.Context, userID string) (*domain.EmailToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("email token not found: %w", domain.ErrNotFound)
	}
	var t domain.EmailToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *EmailTokenRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}
