package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/chatrelay/pkg/api"
)

// mapError converts go-openai errors into API errors. Context errors are
// returned unchanged so callers can tell cancellation apart.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return mapStatus(oaiErr.HTTPStatusCode, oaiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return mapStatus(reqErr.HTTPStatusCode, msg)
	}

	return api.NewUpstreamError(fmt.Sprintf("upstream connection error: %s", err.Error()))
}

// mapStatus maps an upstream HTTP status to an API error.
func mapStatus(status int, message string) *api.APIError {
	switch {
	case status == http.StatusTooManyRequests:
		if message == "" {
			message = "upstream rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "upstream authentication failed"
		}
		return api.NewUpstreamError(message)

	case status == http.StatusNotFound:
		if message == "" {
			message = "model not found upstream"
		}
		return api.NewNotFoundError(message)

	case status >= 400 && status < 500:
		if message == "" {
			message = fmt.Sprintf("upstream rejected the request (HTTP %d)", status)
		}
		return api.NewInvalidRequestError("", message)

	default:
		if message == "" {
			message = fmt.Sprintf("upstream server error (HTTP %d)", status)
		}
		return api.NewUpstreamError(message)
	}
}
