package server

import (
	"net/http"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/gin-gonic/gin"
)

type ResponseWriter struct {
	logger api.Logger
}

func NewResponseWriter(logger api.Logger) *ResponseWriter {
	return &ResponseWriter{logger: logger}
}

func (rw *ResponseWriter) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func (rw *ResponseWriter) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func (rw *ResponseWriter) NoContent(c *gin.Context) {
	c.AbortWithStatus(http.StatusNoContent)
}

func (rw *ResponseWriter) Error(c *gin.Context, err error) {
	apiErr := ToApiError(c, err)

	logger := getLoggerFromContext(c)
	if logger == nil {
		logger = rw.logger
	}

	fields := []api.Field{
		api.Int("code", apiErr.Code),
		api.String("message", apiErr.Message),
	}
	if apiErr.Code >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "API error response", err, fields...)
	} else {
		logger.Warn(c.Request.Context(), "API error response", append(fields, api.ErrorField(err))...)
	}

	c.JSON(apiErr.Code, ErrorResponse{Error: apiErr.Message, TraceID: apiErr.TraceID})
}

// Shorthand helpers
func (rw *ResponseWriter) BadRequest(c *gin.Context, msg string) {
	rw.Error(c, NewError(ErrorBadRequest, msg, nil))
}

func (rw *ResponseWriter) Unauthorized(c *gin.Context) {
	rw.Error(c, NewError(ErrorUnauthorized, "Unauthorized", nil))
}

func (rw *ResponseWriter) NotFound(c *gin.Context, msg string) {
	rw.Error(c, NewError(ErrorNotFound, msg, nil))
}

func (rw *ResponseWriter) InternalServerError(c *gin.Context, err error) {
	rw.Error(c, NewError(ErrorInternal, "Internal server error", err))
}

// Response JSON structures
type Response struct {
	Data interface{} `json:"data"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
