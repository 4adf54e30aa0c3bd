package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func runMiddleware(mw echo.MiddlewareFunc, path, header string) (echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	var seen echo.Context
	err := mw(func(c echo.Context) error {
		seen = c
		return c.String(http.StatusOK, "ok")
	})(c)
	return seen, err
}

func expectStatus(t *testing.T, err error, status int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != status {
		t.Errorf("expected %d, got %d", status, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "/api_fhir_r4/Patient", "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "/api_fhir_r4/Patient", tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ClaimsExtraction(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin@openimis",
			Issuer:    "imis",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles:       []string{RoleEditor},
		AuditUserID: 42,
	}, testSigningKey)

	c, err := runMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "imis"}), "/api_fhir_r4/Patient", "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "admin@openimis" {
		t.Errorf("expected subject admin@openimis, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RoleEditor {
		t.Errorf("unexpected roles %v", roles)
	}
	if id, ok := AuditUserIDFromContext(ctx); !ok || id != 42 {
		t.Errorf("expected audit user 42, got %d %v", id, ok)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	token := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u", Issuer: "other", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, testSigningKey)
	_, err := runMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "imis"}), "/api_fhir_r4/Patient", "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, testSigningKey)
	_, err := runMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "/api_fhir_r4/Patient", "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})
	for _, path := range []string{"/health", "/api_fhir_r4/metadata", "/api_fhir_r4/CodeSystem/:name"} {
		if _, err := runMiddleware(mw, path, ""); err != nil {
			t.Errorf("%s: expected public access, got %v", path, err)
		}
	}
	_, err := runMiddleware(mw, "/api_fhir_r4/Claim", "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_NoToken(t *testing.T) {
	c, err := runMiddleware(DevAuthMiddleware(), "/api_fhir_r4/Patient", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) != "dev-user" {
		t.Errorf("expected dev-user, got %q", UserIDFromContext(ctx))
	}
	if _, ok := AuditUserIDFromContext(ctx); ok {
		t.Error("dev user should carry no audit user id")
	}
}

func TestAuditUserIDFromContext_NumericSubject(t *testing.T) {
	ctx := WithIdentity(context.Background(), "17", nil, 0)
	if id, ok := AuditUserIDFromContext(ctx); !ok || id != 17 {
		t.Errorf("expected 17, got %d %v", id, ok)
	}
	ctx = WithIdentity(context.Background(), "-3", nil, 0)
	if _, ok := AuditUserIDFromContext(ctx); ok {
		t.Error("negative subject must not be used")
	}
}
