package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/bignyap/studio-storage/server"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct {
	shutdown bool
}

func (h *pingHandler) Setup(s server.Server) error {
	s.Router().GET("/ping", func(c *gin.Context) {
		s.GetResponseWriter().Success(c, gin.H{"pong": true})
	})
	return nil
}

func (h *pingHandler) Shutdown() error {
	h.shutdown = true
	return nil
}

func TestHTTPServer_SetupRegistersHandlers(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Environment = "test"

	h := &pingHandler{}
	var marked bool
	s := server.NewHTTPServer(cfg,
		server.WithLogger(mock.NewMockLogger()),
		server.WithHandler(h),
		server.WithRouterMiddleware(func(c *gin.Context) {
			marked = true
			c.Next()
		}),
	)
	require.NoError(t, s.Setup())

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, marked)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Equal(t, "dev", w.Header().Get("X-Version"))
}

func TestHTTPServer_KeepsIncomingTraceID(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Environment = "test"
	s := server.NewHTTPServer(cfg, server.WithHandler(&pingHandler{}))
	require.NoError(t, s.Setup())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "abc")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get("X-Trace-ID"))
}

func TestHTTPServer_RecoversFromPanic(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Environment = "test"
	log := mock.NewMockLogger()
	s := server.NewHTTPServer(cfg, server.WithLogger(log))
	s.Router().GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, log.Entries(mock.LevelError))
}
