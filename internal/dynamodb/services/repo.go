package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/dynamodb/token"
	"philcali.me/listsync/internal/exceptions"
)

// DynamoDBAPI is the slice of the DynamoDB client the repositories use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type RepositoryDynamoDBService[T interface{}, I interface{}] struct {
	DynamoDB       DynamoDBAPI
	TableName      string
	TokenMarshaler token.TokenMarshaler
	Name           string
	Shim           func(pk string, sk string) T
	GetSK          func(T) string
	OnCreate       func(I, time.Time, string, string) T
	OnUpdate       func(I, expression.UpdateBuilder) expression.UpdateBuilder
}

func PrimaryKey(accountId string, name string) string {
	return fmt.Sprintf("%s:%s", accountId, name)
}

func _getKey(pks string, sks string) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(pks)
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(sks)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"PK": pk, "SK": sk}, nil
}

func _filterExpression(equals map[string]string) (expression.ConditionBuilder, bool) {
	if len(equals) == 0 {
		return expression.ConditionBuilder{}, false
	}
	names := make([]string, 0, len(equals))
	for name := range equals {
		names = append(names, name)
	}
	sort.Strings(names)
	condition := expression.Name(names[0]).Equal(expression.Value(equals[names[0]]))
	for _, name := range names[1:] {
		condition = condition.And(expression.Name(name).Equal(expression.Value(equals[name])))
	}
	return condition, true
}

func (rs *RepositoryDynamoDBService[T, I]) resource() string {
	return strings.ToLower(rs.Name)
}

func (rs *RepositoryDynamoDBService[T, I]) List(ctx context.Context, accountId string, params data.QueryParams) (data.QueryResults[T], error) {
	keyEx := expression.Key("PK").Equal(expression.Value(PrimaryKey(accountId, rs.Name)))
	builder := expression.NewBuilder().WithKeyCondition(keyEx)
	if filter, ok := _filterExpression(params.Equals); ok {
		builder = builder.WithFilter(filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	var items []T
	var startKey map[string]types.AttributeValue
	startKey, err = rs.TokenMarshaler.Unmarshal(accountId, params.NextToken)
	if err != nil {
		return data.QueryResults[T]{}, exceptions.InvalidInput(fmt.Sprintf("invalid next token: %v", err))
	}
	output, err := rs.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(rs.TableName),
		Limit:                     params.GetLimit(),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return data.QueryResults[T]{}, TranslateError(err)
	}
	err = attributevalue.UnmarshalListOfMaps(output.Items, &items)
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	nextToken, err := rs.TokenMarshaler.Marshal(accountId, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[T]{}, err
	}
	return data.QueryResults[T]{
		Items:     items,
		NextToken: nextToken,
	}, nil
}

func (rs *RepositoryDynamoDBService[T, I]) Create(ctx context.Context, accountId string, input I) (T, error) {
	gid, err := uuid.NewRandom()
	if err != nil {
		var zero T
		return zero, err
	}
	now := time.Now().UTC()
	shim := rs.OnCreate(input, now, PrimaryKey(accountId, rs.Name), gid.String())
	item, err := attributevalue.MarshalMap(shim)
	if err != nil {
		return shim, err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists().And(expression.Name("SK").AttributeNotExists())).Build()
	if err != nil {
		return shim, err
	}
	_, err = rs.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                     item,
		TableName:                aws.String(rs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return shim, exceptions.Conflict(rs.resource(), rs.GetSK(shim))
		}
		return shim, TranslateError(err)
	}
	return shim, nil
}

// Update patches an existing document and always refreshes updateTime. A
// missing document is reported as NotFound rather than created.
func (rs *RepositoryDynamoDBService[T, I]) Update(ctx context.Context, accountId string, itemId string, input I) (T, error) {
	pk := PrimaryKey(accountId, rs.Name)
	shim := rs.Shim(pk, itemId)
	key, err := _getKey(pk, itemId)
	if err != nil {
		return shim, err
	}
	update := expression.Set(expression.Name("updateTime"), expression.Value(time.Now().UTC()))
	condition := expression.Name("PK").AttributeExists().And(expression.Name("SK").AttributeExists())
	update = rs.OnUpdate(input, update)
	expr, err := expression.NewBuilder().WithCondition(condition).WithUpdate(update).Build()
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(rs.TableName),
		Key:                       key,
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return shim, exceptions.NotFound(rs.resource(), itemId)
		}
		return shim, TranslateError(err)
	}
	err = attributevalue.UnmarshalMap(response.Attributes, &shim)
	return shim, err
}

func (rs *RepositoryDynamoDBService[T, I]) Get(ctx context.Context, accountId string, itemId string) (T, error) {
	pk := PrimaryKey(accountId, rs.Name)
	shim := rs.Shim(pk, itemId)
	key, err := _getKey(pk, itemId)
	if err != nil {
		return shim, err
	}
	response, err := rs.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(rs.TableName),
		Key:       key,
	})
	if err != nil {
		return shim, TranslateError(err)
	}
	if response.Item == nil {
		return shim, exceptions.NotFound(rs.resource(), itemId)
	}
	err = attributevalue.UnmarshalMap(response.Item, &shim)
	return shim, err
}
