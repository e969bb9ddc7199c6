package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerTraceID = "X-Trace-ID"
	headerVersion = "X-Version"

	ctxKeyLogger  = "logger"
	ctxKeyTraceID = "trace_id"
)

type Middleware struct {
	logger api.Logger
	config *Config
}

func NewMiddleware(logger api.Logger, config *Config) *Middleware {
	return &Middleware{logger: logger, config: config}
}

// sensitiveQueryFragments match query keys by substring, case-insensitively.
var sensitiveQueryFragments = []string{
	"token", "key", "pass", "pwd", "secret", "auth", "session", "signature", "credential",
}

func isSensitiveQueryKey(key string) bool {
	key = strings.ToLower(key)
	for _, frag := range sensitiveQueryFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

// redactSensitiveQueryParams keeps keys and replaces secret values. Queries
// that fail to parse are logged as-is.
func redactSensitiveQueryParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for key := range values {
		if isSensitiveQueryKey(key) {
			values.Set(key, "[REDACTED]")
		}
	}
	return values.Encode()
}

// Logger tags the request with a trace id and writes one line when it
// completes. Handler errors are left to ErrorHandler.
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(headerTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := api.ContextWithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)

		reqLogger := m.logger.WithTraceID(traceID).WithComponent("http").WithFields(
			api.String("method", c.Request.Method),
			api.String("path", c.Request.URL.Path),
			api.String("query", redactSensitiveQueryParams(c.Request.URL.RawQuery)),
			api.String("client_ip", c.ClientIP()),
		)
		c.Set(ctxKeyLogger, reqLogger)
		c.Set(ctxKeyTraceID, traceID)

		c.Header(headerTraceID, traceID)
		c.Header(headerVersion, m.config.Version)

		c.Next()

		status := c.Writer.Status()
		fields := []api.Field{
			api.Int("status", status),
			api.Duration("latency", time.Since(start)),
			api.Int("response_size", c.Writer.Size()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error(ctx, "request failed", nil, fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn(ctx, "request rejected", fields...)
		default:
			reqLogger.Info(ctx, "request completed", fields...)
		}
	}
}

// CORS allows the read and recompute routes from any origin.
func (m *Middleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+headerTraceID)
		h.Set("Access-Control-Expose-Headers", headerTraceID+", "+headerVersion)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (m *Middleware) MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// Profiling turns on block and mutex sampling for requests with ?profile=true.
func (m *Middleware) Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("profile") == "true" {
			runtime.SetBlockProfileRate(100)
			runtime.SetMutexProfileFraction(5)
		}
		c.Next()
	}
}

func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				m.requestLogger(c).Error(c.Request.Context(), "recovered panic", fmt.Errorf("%v", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "Internal server error",
					TraceID: getTraceIDFromContext(c),
				})
			}
		}()
		c.Next()
	}
}

func (m *Middleware) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		log := m.requestLogger(c)
		for _, e := range c.Errors {
			log.Error(c.Request.Context(), "handler error", e.Err)
		}
	}
}

func (m *Middleware) Apply(router *gin.Engine) {
	chain := []gin.HandlerFunc{
		m.Logger(),
		m.CORS(),
		m.MaxBodySize(m.config.MaxRequestSize),
		m.Recovery(),
		m.ErrorHandler(),
	}
	if m.config.Environment == "dev" || m.config.EnableProfiling {
		chain = append(chain, m.Profiling())
	}
	router.Use(chain...)

	m.logger.Debug(context.Background(), "registered middlewares", api.Int("count", len(chain)))
}

func (m *Middleware) requestLogger(c *gin.Context) api.Logger {
	if l := getLoggerFromContext(c); l != nil {
		return l
	}
	return m.logger
}

func getLoggerFromContext(c *gin.Context) api.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if l, ok := v.(api.Logger); ok {
			return l
		}
	}
	return nil
}

func getTraceIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyTraceID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return c.GetHeader(headerTraceID)
}
