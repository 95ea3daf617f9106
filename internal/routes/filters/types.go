package filters

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

type FilterContext struct {
	Request  *events.APIGatewayV2HTTPRequest
	Response *events.APIGatewayV2HTTPResponse
	Context  *context.Context
}

type RequestFilter interface {
	Filter(ctx *FilterContext) (*FilterContext, bool)
}

type CorsFilter struct {
	Methods []string
	Origins []string
	Headers []string
}

func (cf *CorsFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	if ctx.Request.RequestContext.HTTP.Method == "OPTIONS" {
		headers := ctx.Response.Headers
		if headers == nil {
			headers = make(map[string]string, 4)
		}
		headers["content-length"] = "0"
		headers["access-control-allow-headers"] = strings.Join(cf.Headers, ", ")
		headers["access-control-allow-methods"] = strings.Join(cf.Methods, ", ")
		headers["access-control-allow-origin"] = strings.Join(cf.Origins, ", ")
		return &FilterContext{
			Request: ctx.Request,
			Context: ctx.Context,
			Response: &events.APIGatewayV2HTTPResponse{
				Headers:    headers,
				StatusCode: ctx.Response.StatusCode,
			},
		}, true
	}
	return ctx, false
}

// AuthorizationFilter rejects requests that arrive without one of the
// account claims. The account id partitions every record, so a request
// without it has nothing it may read.
type AuthorizationFilter struct {
	Claims []string
}

func (af *AuthorizationFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	authorizer := ctx.Request.RequestContext.Authorizer
	if authorizer != nil && authorizer.JWT != nil {
		for _, claim := range af.Claims {
			if authorizer.JWT.Claims[claim] != "" {
				return ctx, false
			}
		}
	}
	body := "{\"message\": \"Unauthorized\"}"
	return &FilterContext{
		Request: ctx.Request,
		Context: ctx.Context,
		Response: &events.APIGatewayV2HTTPResponse{
			Headers: map[string]string{
				"Content-Type":   "application/json",
				"Content-Length": strconv.Itoa(len(body)),
			},
			StatusCode: 401,
			Body:       body,
		},
	}, true
}

func DefaultFilterContext(event events.APIGatewayV2HTTPRequest, ctx context.Context) *FilterContext {
	return &FilterContext{
		Request: &event,
		Response: &events.APIGatewayV2HTTPResponse{
			StatusCode: 200,
		},
		Context: &ctx,
	}
}

func DefaultCorsFilter() *CorsFilter {
	return &CorsFilter{
		Methods: []string{"GET", "PUT", "POST", "DELETE"},
		Headers: []string{"Content-Type", "Content-Length", "Authorization"},
		Origins: []string{"*"},
	}
}

func DefaultAuthorizationFilter() *AuthorizationFilter {
	return &AuthorizationFilter{
		Claims: []string{"sub", "username"},
	}
}
