package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/stream"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// Tool error codes reported in api.APIError.Code.
const (
	CodeToolNotFound     = "tool_not_found"
	CodeInvalidArguments = "invalid_arguments"
	CodeToolFailed       = "tool_failed"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeUpstreamError:
		return http.StatusBadGateway
	case api.ErrorTypeServerError, api.ErrorTypeToolError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError classifies err. An *api.APIError anywhere in the chain is
// returned as is; tool and stream sentinels get their own types.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		return api.NewToolError(CodeToolNotFound, err.Error())
	case errors.Is(err, tools.ErrInvalidArguments):
		return api.NewToolError(CodeInvalidArguments, err.Error())
	case errors.Is(err, tools.ErrToolFailed):
		return api.NewToolError(CodeToolFailed, err.Error())
	case errors.Is(err, stream.ErrOrphanToolCallDelta):
		return api.NewUpstreamError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return api.NewUpstreamError("upstream timed out")
	default:
		return api.NewServerError(err.Error())
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api. It sets the Content-Type header and writes
// the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
