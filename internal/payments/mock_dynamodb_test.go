package payments

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory table keyed by payment_token. It only
// evaluates the condition expressions DynamoStore issues.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	updateCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{table: map[string]map[string]types.AttributeValue{}}
}

func tokenOf(m map[string]types.AttributeValue) (string, error) {
	v, ok := m["payment_token"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key")
	}
	return v.Value, nil
}

func numberAttr(m map[string]types.AttributeValue, name string) (int64, bool) {
	v, ok := m[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	return n, err == nil
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := tokenOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == putCondition {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := tokenOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	k, err := tokenOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.table[k]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := params.ExpressionAttributeValues
	unexpired := func() bool {
		exp, _ := numberAttr(item, "expires_at")
		now, _ := numberAttr(vals, ":now")
		return exp > now
	}

	switch *params.ConditionExpression {
	case attachCondition:
		if _, has := item["gateway_reference"].(*types.AttributeValueMemberS); has || !unexpired() {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["gateway_reference"] = vals[":ref"]
	case claimCondition:
		if !unexpired() {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if claimed, has := numberAttr(item, "claimed_at"); has {
			stale, _ := numberAttr(vals, ":stale")
			if claimed >= stale {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
		item["claimed_at"] = vals[":claimed"]
	case "attribute_exists(payment_token)":
		delete(item, "claimed_at")
	default:
		return nil, errors.New("unexpected condition: " + *params.ConditionExpression)
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := tokenOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.table, k)
	return &dyn.DeleteItemOutput{}, nil
}
