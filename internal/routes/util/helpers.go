package util

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/routes"
)

type contextKey string

const accountKey contextKey = "AccountId"

// AuthorizedRoute resolves the caller's account from the JWT claims. Every
// read and write is partitioned by it.
func AuthorizedRoute(route routes.Route) routes.Route {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
		if authorizer := event.RequestContext.Authorizer; authorizer != nil && authorizer.JWT != nil {
			for _, claim := range []string{"sub", "username"} {
				if accountId := authorizer.JWT.Claims[claim]; accountId != "" {
					return route(event, context.WithValue(ctx, accountKey, accountId))
				}
			}
		}
		return events.APIGatewayV2HTTPResponse{}, exceptions.Forbidden(exceptions.InvalidInput("missing account claim"))
	}
}

func AccountId(ctx context.Context) string {
	accountId, _ := ctx.Value(accountKey).(string)
	return accountId
}

func ParseBody[T interface{}](event events.APIGatewayV2HTTPRequest) (T, error) {
	var input T
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return input, exceptions.InvalidInput(err.Error())
		}
		body = decoded
	}
	if err := json.Unmarshal(body, &input); err != nil {
		return input, exceptions.InvalidInput(err.Error())
	}
	return input, nil
}

// ParseQueryParams reads limit and nextToken from the query string. The token
// is the base64 form the list response carried.
func ParseQueryParams(event events.APIGatewayV2HTTPRequest) (data.QueryParams, error) {
	params := data.QueryParams{}
	if limit, ok := event.QueryStringParameters["limit"]; ok {
		value, err := strconv.Atoi(limit)
		if err != nil {
			return params, exceptions.InvalidInput("limit must be a number")
		}
		params.Limit = value
	}
	if token, ok := event.QueryStringParameters["nextToken"]; ok && token != "" {
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return params, exceptions.InvalidInput("invalid next token")
		}
		params.NextToken = decoded
	}
	return params, nil
}

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func SerializeResponseNoContent(err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 204,
	}, nil
}

func ConvertQueryResults[D interface{}, R interface{}](items data.QueryResults[D], thunk func(D) R) data.QueryResults[R] {
	newItems := make([]R, 0, len(items.Items))
	for _, rd := range items.Items {
		newItems = append(newItems, thunk(rd))
	}
	return data.QueryResults[R]{
		Items:     newItems,
		NextToken: items.NextToken,
	}
}

func ConvertQueryResultsPartial[D interface{}, R interface{}](thunk func(D) R) func(data.QueryResults[D]) data.QueryResults[R] {
	return func(d data.QueryResults[D]) data.QueryResults[R] {
		return ConvertQueryResults(d, thunk)
	}
}

// LivePage drops tombstones from a page. The page may come back shorter than
// the limit; the token still points past everything that was read.
func LivePage[T data.Tombstoned](page data.QueryResults[T]) data.QueryResults[T] {
	page.Items = data.FilterLive(page.Items)
	return page
}
