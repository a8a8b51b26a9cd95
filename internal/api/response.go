package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"safirnotify/internal/types"
)

// maxRequestBodySize caps webhook bodies at 64 KiB.
const maxRequestBodySize = 64 << 10

// APIErrorResponse is the error envelope.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_unexpected_error","message":"failed to marshal response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an APIErrorResponse. AppErrors keep their code and
// status; anything else becomes an opaque 500. Wrapped causes are never
// exposed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	traceID := types.GetTraceID(r.Context())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		JSON(w, appErr.HTTPStatus(), APIErrorResponse{Error: ErrorDetail{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
			TraceID: traceID,
		}})
		return
	}

	JSON(w, http.StatusInternalServerError, APIErrorResponse{Error: ErrorDetail{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: "an unexpected error occurred",
		TraceID: traceID,
	}})
}

// DecodeJSON reads one JSON value from the body into dst. Unknown fields
// are accepted: alarm actions send more than the notifier reads.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body too large", err)
		case errors.Is(err, io.EOF):
			return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must not be empty", err)
		default:
			return types.NewAppError(types.ErrCodeValidationInvalidPayload, "malformed JSON in request body", err)
		}
	}
	if dec.More() {
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must contain a single JSON object", nil)
	}
	return nil
}
