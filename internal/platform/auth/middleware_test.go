package auth

import (
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

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "clinician-42",
			Issuer:    "https://idp.example.com",
			Audience:  jwt.ClaimStrings{"refdata"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scope: "icd10.read drugs.read",
	}
}

func testConfig() JWTConfig {
	return JWTConfig{Issuer: "https://idp.example.com", Audience: "refdata", SigningKey: testSigningKey}
}

func run(t *testing.T, cfg JWTConfig, path, authHeader string, handler echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)
	if handler == nil {
		handler = func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	}
	return JWTMiddleware(cfg)(handler)(c)
}

func expectUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	expectUnauthorized(t, run(t, testConfig(), "/api/v1/drugs", "", nil))
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
			expectUnauthorized(t, run(t, testConfig(), "/api/v1/drugs", tt.header, nil))
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, validClaims(), testSigningKey)

	var subject string
	var scopes []string
	err := run(t, testConfig(), "/api/v1/drugs", "Bearer "+token, func(c echo.Context) error {
		subject = SubjectFromContext(c.Request().Context())
		scopes = ScopesFromContext(c.Request().Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "clinician-42" {
		t.Errorf("expected subject clinician-42, got %q", subject)
	}
	if len(scopes) != 2 || scopes[0] != "icd10.read" {
		t.Errorf("expected two scopes, got %v", scopes)
	}
}

func TestJWTMiddleware_RejectsBadTokens(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other-service"}

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"wrong key", createTestToken(t, validClaims(), []byte("another-key"))},
		{"expired", createTestToken(t, expired, testSigningKey)},
		{"wrong issuer", createTestToken(t, wrongIssuer, testSigningKey)},
		{"wrong audience", createTestToken(t, wrongAudience, testSigningKey)},
		{"no expiry", createTestToken(t, noExpiry, testSigningKey)},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectUnauthorized(t, run(t, testConfig(), "/api/v1/drugs", "Bearer "+tt.token, nil))
		})
	}
}

func TestJWTMiddleware_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expectUnauthorized(t, run(t, testConfig(), "/api/v1/drugs", "Bearer "+tokenStr, nil))
}

func TestJWTMiddleware_SkipsHealth(t *testing.T) {
	if err := run(t, testConfig(), "/health", "", nil); err != nil {
		t.Errorf("expected /health to skip auth, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	var subject string
	DevAuthMiddleware()(func(c echo.Context) error {
		subject = SubjectFromContext(c.Request().Context())
		return nil
	})(c)
	if subject != "dev-user" {
		t.Errorf("expected dev-user, got %q", subject)
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") || !IsPublicPath("/health/db") {
		t.Error("expected health endpoints to be public")
	}
	if IsPublicPath("/api/v1/icd10/search") {
		t.Error("expected API endpoints to require auth")
	}
}
