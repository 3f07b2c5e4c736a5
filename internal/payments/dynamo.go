package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/pos-orderflow/internal/aws"
)

const (
	putCondition    = "attribute_not_exists(payment_token)"
	attachCondition = "attribute_exists(payment_token) AND expires_at > :now AND attribute_not_exists(gateway_reference)"
	claimCondition  = "attribute_exists(payment_token) AND expires_at > :now AND (attribute_not_exists(claimed_at) OR claimed_at < :stale)"
)

// DynamoStore keeps pending payments in a DynamoDB table keyed by
// payment_token with native TTL on expires_at.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewDynamoStore returns a configured DynamoStore.
// ttlWindow: how long a record stays readable (e.g. 48*time.Hour).
func NewDynamoStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *DynamoStore {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTL
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *DynamoStore) key(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"payment_token": &types.AttributeValueMemberS{Value: token},
	}
}

// Put creates the record only if the token does not exist yet.
func (s *DynamoStore) Put(ctx context.Context, p PendingPayment) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = p.CreatedAt.Add(s.ttlWindow)
	}
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString(putCondition),
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get reads the record with a consistent read. Items past expires_at that
// the TTL sweeper has not removed yet are reported as ErrNotFound.
func (s *DynamoStore) Get(ctx context.Context, token string) (*PendingPayment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(token),
		ConsistentRead: sdkBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	p, err := rec.toPending()
	if err != nil {
		return nil, err
	}
	if p.Expired(s.nowFunc()) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *DynamoStore) Delete(ctx context.Context, token string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.key(token),
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *DynamoStore) AttachGatewayReference(ctx context.Context, token, ref string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(token),
		UpdateExpression: awsString("SET gateway_reference = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ref": &types.AttributeValueMemberS{Value: ref},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
		ConditionExpression: awsString(attachCondition),
	})
	if err == nil {
		return nil
	}
	if !isConditionFailed(err) {
		return fmt.Errorf("update item (attach reference): %w", err)
	}
	if _, gerr := s.Get(ctx, token); gerr != nil {
		return gerr
	}
	return ErrReferenceAttached
}

func (s *DynamoStore) Claim(ctx context.Context, token string, lease time.Duration) (*PendingPayment, error) {
	now := s.nowFunc()
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(token),
		UpdateExpression: awsString("SET claimed_at = :claimed"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":claimed": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
			":now":     &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":stale":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(-lease).UnixMilli(), 10)},
		},
		ConditionExpression: awsString(claimCondition),
		ReturnValues:        types.ReturnValueAllNew,
	})
	if err != nil {
		if !isConditionFailed(err) {
			return nil, fmt.Errorf("update item (claim): %w", err)
		}
		// Either gone or held by someone else.
		if _, gerr := s.Get(ctx, token); gerr != nil {
			return nil, gerr
		}
		return nil, ErrClaimed
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return rec.toPending()
}

func (s *DynamoStore) Release(ctx context.Context, token string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 s.key(token),
		UpdateExpression:    awsString("REMOVE claimed_at"),
		ConditionExpression: awsString("attribute_exists(payment_token)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return fmt.Errorf("update item (release): %w", err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var cc *types.ConditionalCheckFailedException
	if errors.As(err, &cc) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }

func sdkBool(b bool) *bool { return &b }
