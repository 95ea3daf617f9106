package data

import "context"

type QueryParams struct {
	Limit     int               `json:"limit"`
	NextToken []byte            `json:"nextToken"`
	Equals    map[string]string `json:"equals,omitempty"`
}

func (q *QueryParams) GetLimit() *int32 {
	limit := int32(q.Limit)
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return &limit
}

type QueryResults[T interface{}] struct {
	Items     []T    `json:"items"`
	NextToken []byte `json:"nextToken"`
}

type NextToken map[string]map[string]string

// Repository is an account partitioned document collection. Records are never
// physically removed through it; deletion is a patch that sets the tombstone.
type Repository[T interface{}, I interface{}] interface {
	List(ctx context.Context, accountId string, params QueryParams) (QueryResults[T], error)
	Get(ctx context.Context, accountId string, itemId string) (T, error)
	Create(ctx context.Context, accountId string, input I) (T, error)
	Update(ctx context.Context, accountId string, itemId string, input I) (T, error)
}

// ListAll drains every page of a query.
func ListAll[T interface{}, I interface{}](ctx context.Context, repo Repository[T, I], accountId string, equals map[string]string) ([]T, error) {
	var all []T
	params := QueryParams{Limit: 100, Equals: equals}
	for {
		page, err := repo.List(ctx, accountId, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.NextToken) == 0 {
			return all, nil
		}
		params.NextToken = page.NextToken
	}
}
