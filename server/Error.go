package server

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// ErrorType is the HTTP status an InternalError maps to.
type ErrorType int

const (
	ErrorInternal     ErrorType = http.StatusInternalServerError
	ErrorBadRequest   ErrorType = http.StatusBadRequest
	ErrorUnauthorized ErrorType = http.StatusUnauthorized
	ErrorNotFound     ErrorType = http.StatusNotFound
	ErrorLargePayload ErrorType = http.StatusRequestEntityTooLarge
	ErrorTimeout      ErrorType = http.StatusGatewayTimeout
)

// defaultMessages are sent when the error carries no public message.
// Internal and Unauthorized always use theirs.
var defaultMessages = map[ErrorType]string{
	ErrorInternal:     "Internal server error",
	ErrorBadRequest:   "Bad request",
	ErrorUnauthorized: "Unauthorized",
	ErrorNotFound:     "Not found",
	ErrorLargePayload: "Payload too large",
	ErrorTimeout:      "Request timed out",
}

// InternalError pairs a public message with the error that caused it and
// the call site that raised it.
type InternalError struct {
	Type       ErrorType
	Message    string
	Original   error
	CallerInfo string
}

func (e *InternalError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("[%d] %s (at %s): %v", e.Type, e.Message, e.CallerInfo, e.Original)
	}
	return fmt.Sprintf("[%d] %s (at %s)", e.Type, e.Message, e.CallerInfo)
}

func (e *InternalError) Unwrap() error {
	return e.Original
}

// ApiError is the client-facing shape of an error.
type ApiError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	TraceID string `json:"trace_id"`
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("[%s] %s", e.TraceID, e.Message)
}

func NewError(errType ErrorType, message string, err error) *InternalError {
	return &InternalError{
		Type:       errType,
		Message:    message,
		Original:   err,
		CallerInfo: captureCallerInfo(2),
	}
}

func (e *InternalError) ToHttpStatusCode() int {
	if _, known := defaultMessages[e.Type]; !known {
		return http.StatusInternalServerError
	}
	return int(e.Type)
}

func (e *InternalError) ToHttpMessage() string {
	fallback, known := defaultMessages[e.Type]
	switch {
	case !known:
		return defaultMessages[ErrorInternal]
	case e.Type == ErrorInternal, e.Type == ErrorUnauthorized, e.Message == "":
		return fallback
	default:
		return e.Message
	}
}

// ToApiError finds the first ApiError or InternalError in err's chain.
// Anything else becomes an opaque 500.
func ToApiError(c *gin.Context, err error) *ApiError {
	traceID := getTraceIDFromContext(c)

	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		if apiErr.TraceID == "" {
			apiErr.TraceID = traceID
		}
		return apiErr
	}

	var internal *InternalError
	if errors.As(err, &internal) {
		return &ApiError{
			Code:    internal.ToHttpStatusCode(),
			Message: internal.ToHttpMessage(),
			TraceID: traceID,
		}
	}

	return &ApiError{
		Code:    http.StatusInternalServerError,
		Message: defaultMessages[ErrorInternal],
		TraceID: traceID,
	}
}

func captureCallerInfo(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
