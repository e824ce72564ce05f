package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
	"github.com/utafrali/LibraryGo/pkg/logger"
	"github.com/utafrali/LibraryGo/pkg/validator"
)

// MaxBodyBytes caps every decoded request body.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error *ErrorResponse `json:"error"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Errors    []string          `json:"errors,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorBody writes an error envelope with the request's correlation ID.
func WriteErrorBody(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	if body.RequestID == "" {
		body.RequestID = logger.CorrelationIDFromContext(r.Context())
	}
	WriteJSON(w, status, ErrorBody{Error: &body})
}

// WriteError maps err to a status and writes the error envelope. Internal
// errors are logged with the request-scoped logger when one is mounted and
// are reported to the client with a generic message only.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteValidationError(w, r, err)
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteErrorBody(w, r, appErr.Status, ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Errors:  appErr.Details,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch status {
	case http.StatusNotFound:
		code, message = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		code, message = "CONFLICT", "resource state conflict"
	case http.StatusBadRequest:
		code, message = "INVALID_INPUT", err.Error()
	case http.StatusUnauthorized:
		code, message = "UNAUTHORIZED", "authentication required"
	case http.StatusForbidden:
		code, message = "FORBIDDEN", "insufficient permissions"
	case http.StatusServiceUnavailable:
		code, message = "SERVICE_UNAVAILABLE", "service unavailable"
	default:
		status = http.StatusInternalServerError
		logInternal(l, r, err)
	}

	WriteErrorBody(w, r, status, ErrorResponse{Code: code, Message: message})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a 400 with field-level messages when err comes
// from the validator package, or a plain INVALID_INPUT otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteErrorBody(w, r, http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		})
		return
	}

	WriteErrorBody(w, r, http.StatusBadRequest, ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
}

// DecodeJSON decodes a size-limited JSON request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// ParseID parses a positive integer path parameter. On failure it writes a
// 400 INVALID_PARAMETER response and returns false.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteErrorBody(w, r, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid id: " + param,
		})
		return 0, false
	}
	return id, true
}
