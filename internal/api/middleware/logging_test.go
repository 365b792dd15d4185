package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proxnode/internal/logger"
)

func newLoggedEcho(buf *bytes.Buffer) *echo.Echo {
	e := echo.New()
	e.Use(NewRequestID())
	e.Use(NewRequestLogger(logger.NewWriterLogger(buf, logger.LogLevelDebug).Module("api"), SkipPaths("/metrics")))
	e.GET("/api/v1/status", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", func(c echo.Context) error { return c.String(http.StatusOK, "") })
	return e
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newLoggedEcho(&buf)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	id := rec.Header().Get(echo.HeaderXRequestID)
	require.Len(t, id, 36, "generated ids are UUIDs")
	assert.Contains(t, buf.String(), "trace_id="+id)
	assert.Contains(t, buf.String(), "uri=/api/v1/status")
}

func TestRequestLoggerKeepsClientRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newLoggedEcho(&buf)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "dashboard-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "dashboard-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), "trace_id=dashboard-42")
}

func TestRequestLoggerSkipsPaths(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newLoggedEcho(&buf)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String())
}
