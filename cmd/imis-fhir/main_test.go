package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/config"
	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/auth"
	"github.com/openimis/imis-fhir/internal/platform/db"
	"github.com/openimis/imis-fhir/internal/store"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		SystemBaseURL:  mapping.DefaultSystemBaseURL,
		ReferenceType:  "uuid",
		Currency:       "USD",
		AttachmentMIME: converter.DefaultAttachmentMIMEPattern,
		AuditUserID:    1,
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
		FHIRBaseURL:    "http://localhost:8000/api_fhir_r4",
		AuthSigningKey: "test-secret",
		AuthIssuer:     "https://auth.example.org",
	}
}

func serve(t *testing.T, cfg *config.Config, pinger db.Pinger, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	e, err := newServer(cfg, store.NewMemory(), pinger, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := serve(t, testConfig("development"), fakePinger{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	rec = serve(t, testConfig("development"), fakePinger{err: errors.New("down")}, http.MethodGet, "/health/db", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestServer_DevelopmentServesFHIR(t *testing.T) {
	rec := serve(t, testConfig("development"), fakePinger{}, http.MethodGet, "/api_fhir_r4/Patient", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var bundle map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bundle["resourceType"] != "Bundle" || bundle["total"] != float64(0) {
		t.Errorf("expected an empty bundle, got %v", bundle)
	}
}

func TestServer_ProductionRequiresToken(t *testing.T) {
	cfg := testConfig("production")

	rec := serve(t, cfg, fakePinger{}, http.MethodGet, "/api_fhir_r4/Patient", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "OperationOutcome") {
		t.Errorf("expected an OperationOutcome, got %s", rec.Body.String())
	}

	rec = serve(t, cfg, fakePinger{}, http.MethodGet, "/api_fhir_r4/metadata", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected public metadata, got %d", rec.Code)
	}

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    cfg.AuthIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{auth.RoleEditor},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AuthSigningKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec = serve(t, cfg, fakePinger{}, http.MethodGet, "/api_fhir_r4/Patient", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCodesystemList(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"codesystem", "list"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"id": "patient-contact-relationship"`) {
		t.Errorf("expected the relationship code system in output")
	}
}

func TestPrintStatuses(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var out bytes.Buffer
	printStatuses(&out, []db.MigrationStatus{
		{Version: 1, Name: "imis_record", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "indexes"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and two rows, got %q", out.String())
	}
	if !strings.Contains(lines[2], "applied") || !strings.Contains(lines[2], "2024-01-02 03:04:05") {
		t.Errorf("unexpected applied row %q", lines[2])
	}
	if !strings.Contains(lines[3], "pending") {
		t.Errorf("unexpected pending row %q", lines[3])
	}
}
