// Package memdb is an in-process stand-in for the remote document store. It
// honours the same partitioning, conditional create/update and equality
// filtering as the DynamoDB repositories.
package memdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
)

// Fault lets tests inject remote failures. op is one of List, Get, Create or
// Update. A nil error lets the call through.
type Fault func(op string, accountId string) error

type Collection[T interface{}, I interface{}] struct {
	Name     string
	OnCreate func(I, time.Time, string, string) T
	OnUpdate func(I, *T, time.Time)
	GetSK    func(T) string
	Clock    func() time.Time

	mu      sync.Mutex
	fault   Fault
	records map[string][]T
}

func NewCollection[T interface{}, I interface{}](name string) *Collection[T, I] {
	return &Collection[T, I]{
		Name:    name,
		Clock:   time.Now,
		records: make(map[string][]T),
	}
}

func (c *Collection[T, I]) SetFault(fault Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = fault
}

func (c *Collection[T, I]) primaryKey(accountId string) string {
	return fmt.Sprintf("%s:%s", accountId, c.Name)
}

func (c *Collection[T, I]) resource() string {
	return strings.ToLower(c.Name)
}

func (c *Collection[T, I]) check(op string, accountId string) error {
	if c.fault == nil {
		return nil
	}
	return c.fault(op, accountId)
}

func (c *Collection[T, I]) now() time.Time {
	return c.Clock().UTC()
}

// Records returns every stored document for the account, tombstones included.
func (c *Collection[T, I]) Records(accountId string) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := c.records[c.primaryKey(accountId)]
	out := make([]T, len(stored))
	copy(out, stored)
	return out
}

func _matches(record interface{}, equals map[string]string) (bool, error) {
	if len(equals) == 0 {
		return true, nil
	}
	attributes, err := attributevalue.MarshalMap(record)
	if err != nil {
		return false, err
	}
	for name, expected := range equals {
		var actual string
		switch v := attributes[name].(type) {
		case *types.AttributeValueMemberS:
			actual = v.Value
		case *types.AttributeValueMemberN:
			actual = v.Value
		case *types.AttributeValueMemberBOOL:
			actual = strconv.FormatBool(v.Value)
		default:
			return false, nil
		}
		if actual != expected {
			return false, nil
		}
	}
	return true, nil
}

func (c *Collection[T, I]) List(ctx context.Context, accountId string, params data.QueryParams) (data.QueryResults[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("List", accountId); err != nil {
		return data.QueryResults[T]{}, err
	}
	start := 0
	if len(params.NextToken) > 0 {
		var err error
		start, err = strconv.Atoi(string(params.NextToken))
		if err != nil || start < 0 {
			return data.QueryResults[T]{}, exceptions.InvalidInput(fmt.Sprintf("invalid next token: %s", params.NextToken))
		}
	}
	stored := c.records[c.primaryKey(accountId)]
	limit := int(*params.GetLimit())
	results := data.QueryResults[T]{Items: []T{}}
	index := start
	for ; index < len(stored) && len(results.Items) < limit; index++ {
		ok, err := _matches(stored[index], params.Equals)
		if err != nil {
			return data.QueryResults[T]{}, err
		}
		if ok {
			results.Items = append(results.Items, stored[index])
		}
	}
	if index < len(stored) {
		results.NextToken = []byte(strconv.Itoa(index))
	}
	return results, nil
}

func (c *Collection[T, I]) find(accountId string, itemId string) int {
	for i, record := range c.records[c.primaryKey(accountId)] {
		if c.GetSK(record) == itemId {
			return i
		}
	}
	return -1
}

func (c *Collection[T, I]) Get(ctx context.Context, accountId string, itemId string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.check("Get", accountId); err != nil {
		return zero, err
	}
	index := c.find(accountId, itemId)
	if index < 0 {
		return zero, exceptions.NotFound(c.resource(), itemId)
	}
	return c.records[c.primaryKey(accountId)][index], nil
}

func (c *Collection[T, I]) Create(ctx context.Context, accountId string, input I) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.check("Create", accountId); err != nil {
		return zero, err
	}
	gid, err := uuid.NewRandom()
	if err != nil {
		return zero, err
	}
	pk := c.primaryKey(accountId)
	record := c.OnCreate(input, c.now(), pk, gid.String())
	if c.find(accountId, c.GetSK(record)) >= 0 {
		return zero, exceptions.Conflict(c.resource(), c.GetSK(record))
	}
	c.records[pk] = append(c.records[pk], record)
	return record, nil
}

func (c *Collection[T, I]) Update(ctx context.Context, accountId string, itemId string, input I) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.check("Update", accountId); err != nil {
		return zero, err
	}
	index := c.find(accountId, itemId)
	if index < 0 {
		return zero, exceptions.NotFound(c.resource(), itemId)
	}
	pk := c.primaryKey(accountId)
	record := c.records[pk][index]
	c.OnUpdate(input, &record, c.now())
	c.records[pk][index] = record
	return record, nil
}
