package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestID_GeneratesNew(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	h := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	c.Request().Header.Set(RequestIDHeader, "my-custom-id")
	h := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", got)
	}
}

func TestLogger_ContextLoggerAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	c, _ := newContext(http.MethodGet, "/api_fhir_r4/Patient/x", nil)
	c.Set("request_id", "req-1")

	h := Logger(logger)(func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inner")
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})
	if err := h(c); err == nil {
		t.Fatal("expected the handler error to pass through")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var inner, access map[string]interface{}
	_ = json.Unmarshal([]byte(lines[0]), &inner)
	_ = json.Unmarshal([]byte(lines[1]), &access)
	if inner["request_id"] != "req-1" {
		t.Errorf("context logger lacks request_id: %v", inner)
	}
	if access["status"] != float64(http.StatusNotFound) || access["level"] != "error" {
		t.Errorf("unexpected access event %v", access)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/panic", nil)
	h := Recovery(zerolog.Nop())(func(c echo.Context) error { panic("test panic") })
	if err := h(c); err != nil {
		t.Fatalf("expected the outcome to be written, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"OperationOutcome"`) {
		t.Errorf("expected OperationOutcome body, got %s", rec.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	read := func(c echo.Context) error {
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}

	c, rec := newContext(http.MethodPost, "/api_fhir_r4/Claim", strings.NewReader(strings.Repeat("a", 2048)))
	if err := BodyLimit("1K")(read)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 from Content-Length, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodPost, "/api_fhir_r4/Claim", strings.NewReader(strings.Repeat("a", 2048)))
	c.Request().ContentLength = -1
	err := BodyLimit("1K")(read)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 while reading, got %v", err)
	}

	c, rec = newContext(http.MethodPost, "/api_fhir_r4/Claim", strings.NewReader("{}"))
	if err := BodyLimit("1K")(read)(c); err != nil || rec.Code != http.StatusOK {
		t.Errorf("small body rejected: %v %d", err, rec.Code)
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int64{
		"":     1 << 20,
		"512":  512,
		"4K":   4 << 10,
		"10MB": 10 << 20,
		"1g":   1 << 30,
		"junk": 1 << 20,
	}
	for in, want := range tests {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api_fhir_r4/Claim", nil)
	h := RequestTimeout(10 * time.Millisecond)(func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/api_fhir_r4/Claim", nil)
	h = RequestTimeout(0)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil || rec.Code != http.StatusOK {
		t.Errorf("disabled timeout interfered: %v %d", err, rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", nil)
	if err := SecurityHeaders()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
		t.Fatal(err)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Cache-Control"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}
