package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type alertBody struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Target    float64 `json:"target_price" validate:"gt=0"`
	Direction string  `json:"direction" default:"above" validate:"oneof=above below"`
}

func newCtx(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	c, _ := newCtx(http.MethodPost, `{"symbol":"BTC","target_price":65000}`)
	var req alertBody
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if req.Direction != "above" {
		t.Fatalf("expected default direction, got %q", req.Direction)
	}
}

func TestReadAndValidateRequestReportsJSONFieldNames(t *testing.T) {
	c, _ := newCtx(http.MethodPost, `{"target_price":0,"direction":"sideways"}`)
	var req alertBody
	errs := ReadAndValidateRequest(c, &req)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %+v", errs)
	}
	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	if byField["symbol"].Code != "ERR_REQUIRED" {
		t.Fatalf("symbol: %+v", byField["symbol"])
	}
	if byField["target_price"].Code != "ERR_GT" {
		t.Fatalf("target_price: %+v", byField["target_price"])
	}
	if byField["direction"].Message != "direction must be one of: above, below" {
		t.Fatalf("direction: %+v", byField["direction"])
	}
}

func TestReadAndValidateRequestBadJSON(t *testing.T) {
	c, _ := newCtx(http.MethodPost, `{"symbol":`)
	var req alertBody
	errs := ReadAndValidateRequest(c, &req)
	if len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("expected bind error, got %+v", errs)
	}
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "")
	if err := AppErrorResponse(c, NotFoundErrorf("signal %s not found", "x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusNotFound || len(body.Data) != 1 || body.Data[0].Code != "ERR_NOT_FOUND" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAppErrorResponsePlainError(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "")
	_ = AppErrorResponse(c, http.ErrBodyNotAllowed)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 7},
		{"12", 12},
		{" 3 ", 3},
		{"abc", 7},
	}
	for _, tc := range cases {
		if got := ParseIntDefault(tc.in, 7); got != tc.want {
			t.Fatalf("ParseIntDefault(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if ClampInt(80, 1, 50) != 50 || ClampInt(-1, 1, 50) != 1 {
		t.Fatalf("clamp out of range")
	}
}
