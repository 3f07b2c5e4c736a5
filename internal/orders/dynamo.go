package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/aws"
)

// orderItem is the shape persisted in the orders DynamoDB table.
type orderItem struct {
	POSOrderID string    `dynamodbav:"pos_order_id"` // PK
	OrderID    string    `dynamodbav:"order_id"`
	OwnerID    int64     `dynamodbav:"owner_id"`
	ItemsJSON  string    `dynamodbav:"items_json"`
	TotalPrice string    `dynamodbav:"total_price"`
	Status     string    `dynamodbav:"status"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

// DynamoLedger is a Ledger backed by a DynamoDB table keyed by pos_order_id.
type DynamoLedger struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoLedger creates a new orders ledger.
func NewDynamoLedger(client aws.DynamoDBAPI, tableName string) *DynamoLedger {
	return &DynamoLedger{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create writes the order guarded by attribute_not_exists(pos_order_id).
func (s *DynamoLedger) Create(ctx context.Context, o Order) error {
	now := s.nowFunc()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	item, err := attributevalue.MarshalMap(orderItem{
		POSOrderID: o.POSOrderID,
		OrderID:    o.OrderID,
		OwnerID:    o.OwnerID,
		ItemsJSON:  string(itemsJSON),
		TotalPrice: o.TotalPrice.String(),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(pos_order_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order by pos_order_id. Returns (nil, nil) if not found.
func (s *DynamoLedger) Get(ctx context.Context, posOrderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pos_order_id": &types.AttributeValueMemberS{Value: posOrderID},
		},
		ConsistentRead: sdkBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec orderItem
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return rec.toOrder()
}

// UpdateStatus conditionally updates the order status from expected -> next.
// Returns nil on success, ErrStatusMismatch if condition failed.
func (s *DynamoLedger) UpdateStatus(ctx context.Context, posOrderID string, expected, next Status) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pos_order_id": &types.AttributeValueMemberS{Value: posOrderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: string(next)},
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (r orderItem) toOrder() (*Order, error) {
	o := &Order{
		OrderID:    r.OrderID,
		OwnerID:    r.OwnerID,
		Status:     Status(r.Status),
		POSOrderID: r.POSOrderID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(r.ItemsJSON), &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	total, err := decimal.NewFromString(r.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("parse total_price: %w", err)
	}
	o.TotalPrice = total
	return o, nil
}

func awsString(s string) *string { return &s }

func sdkBool(b bool) *bool { return &b }
