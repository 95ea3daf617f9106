package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"philcali.me/listsync/internal/exceptions"
)

var _unavailableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransactionInProgressException":         true,
}

var _forbiddenCodes = map[string]bool{
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"ExpiredTokenException":       true,
	"InvalidSignatureException":   true,
	"MissingAuthenticationToken":  true,
	"ValidationException":         true,
}

// TranslateError maps SDK failures onto the error taxonomy. A response that
// cannot be deserialized is what an intercepting proxy or a request blocker
// hands back, so it counts as unavailable rather than as a server verdict.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch {
		case _unavailableCodes[apiErr.ErrorCode()]:
			return exceptions.Unavailable(err)
		case _forbiddenCodes[apiErr.ErrorCode()]:
			return exceptions.Forbidden(err)
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusForbidden || status == http.StatusUnauthorized || status == http.StatusBadRequest:
			if apiErr != nil {
				return exceptions.Forbidden(err)
			}
			// A status without a DynamoDB error body came from something in between.
			return exceptions.Unavailable(err)
		case status == http.StatusTooManyRequests || status >= 500 || status == 0:
			return exceptions.Unavailable(err)
		}
	}

	var deserErr *smithy.DeserializationError
	var netErr net.Error
	var canceled *aws.RequestCanceledError
	switch {
	case errors.As(err, &deserErr),
		errors.As(err, &netErr),
		errors.As(err, &canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return exceptions.Unavailable(err)
	}
	return err
}
