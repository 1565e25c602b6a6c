package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"FollowFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(logger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPatch},
		MaxAge:       600,
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://app.example" {
		t.Fatalf("allow origin %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowMethods); got != "GET, PATCH" {
		t.Fatalf("allow methods %q", got)
	}
	if rec.Header().Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("missing max age")
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"https://app.example"}}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("unexpected CORS header for unknown origin")
	}
}

func TestMetricsPassesErrorsToEcho(t *testing.T) {
	e := echo.New()
	e.Use(Metrics(logger.Nop(), 0))
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if statusClass(404) != "4xx" || statusClass(503) != "5xx" {
		t.Fatalf("status class mismatch")
	}
}
