package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cdss/refdata/internal/config"
	"github.com/cdss/refdata/internal/domain/icd10"
	"github.com/cdss/refdata/internal/domain/interaction"
	"github.com/cdss/refdata/internal/platform/catalog"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:             "development",
		LogLevel:        "info",
		LoadMaxAttempts: 1,
		LoadTimeout:     time.Second,
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		statuses []catalog.Status
		want     string
	}{
		{"all primary", []catalog.Status{{Name: "icd10", Loaded: true}, {Name: "drugs", Loaded: true}}, "ok"},
		{"one loading", []catalog.Status{{Name: "icd10", Loaded: false}, {Name: "drugs", Loaded: true}}, "loading"},
		{"one fallback", []catalog.Status{{Name: "icd10", Loaded: true, UsingFallback: true}, {Name: "drugs", Loaded: true}}, "degraded"},
		{"fallback wins over loading", []catalog.Status{{Name: "icd10", Loaded: false}, {Name: "drugs", Loaded: true, UsingFallback: true}}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fns []func() catalog.Status
			for _, st := range tt.statuses {
				st := st
				fns = append(fns, func() catalog.Status { return st })
			}

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := healthHandler(fns...)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, resp.Status)
			}
			if len(resp.Catalogs) != len(tt.statuses) {
				t.Errorf("expected %d catalogs, got %d", len(tt.statuses), len(resp.Catalogs))
			}
			if resp.Version != version {
				t.Errorf("expected version %q, got %q", version, resp.Version)
			}
		})
	}
}

func TestByteSource(t *testing.T) {
	cfg := testConfig()
	b := &backends{}

	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"https://example.org/icd10.json", "https://example.org/icd10.json", false},
		{"/data/icd10.json", "file:/data/icd10.json", false},
		{"redis", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			src, err := byteSource(cfg, b, tt.uri, "refdata:icd10")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if src != nil {
					t.Errorf("expected nil source, got %s", src)
				}
				return
			}
			if src == nil || !strings.Contains(src.String(), tt.want) {
				t.Errorf("expected source %q, got %v", tt.want, src)
			}
		})
	}
}

func TestNewDrugLoader_Embedded(t *testing.T) {
	cfg := testConfig()
	loader, err := newDrugLoader(cfg, &backends{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := loader.Load(context.Background())
	if snap.Mode != catalog.ModePrimary {
		t.Errorf("expected primary mode, got %s", snap.Mode)
	}
	if snap.RecordCount != interaction.CuratedCatalog().Len() {
		t.Errorf("expected %d drugs, got %d", interaction.CuratedCatalog().Len(), snap.RecordCount)
	}
}

func TestNewDrugLoader_PostgresWithoutPool(t *testing.T) {
	cfg := testConfig()
	cfg.DrugSource = "postgres"
	if _, err := newDrugLoader(cfg, &backends{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error when postgres source has no pool")
	}
}

func TestNewICD10Loader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icd10.json")
	data := `{"metadata":{"version":"2025"},"codes":[{"code":"E11.9","description":"Type 2 diabetes mellitus without complications","category":"Endocrine","categoryCode":"E00-E89"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ICD10Source = path
	loader, err := newICD10Loader(cfg, &backends{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := loader.Load(context.Background())
	if snap.Err != nil {
		t.Fatalf("unexpected load error: %v", snap.Err)
	}
	if snap.Source != "file:"+path {
		t.Errorf("expected source file:%s, got %s", path, snap.Source)
	}
	if snap.RecordCount != 1 {
		t.Errorf("expected 1 code, got %d", snap.RecordCount)
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"

	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn, got %s", got)
	}
	cfg.LogLevel = "bogus"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info for unknown level, got %s", got)
	}
}

func TestNewServer_DevAuthAndHeaders(t *testing.T) {
	cfg := testConfig()
	e := newServer(cfg, zerolog.Nop())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestNewServer_JWTRejectsAnonymous(t *testing.T) {
	cfg := testConfig()
	cfg.AuthSigningKey = "test-secret"
	e := newServer(cfg, zerolog.Nop())
	e.GET("/api/v1/drugs", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drugs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected /health to skip auth, got %d", rec.Code)
	}
}

func TestReportDrugs(t *testing.T) {
	c := interaction.CuratedCatalog()

	var buf bytes.Buffer
	ok := reportDrugs(&buf, &catalog.Snapshot[*interaction.Catalog]{
		Data: c, Mode: catalog.ModePrimary, Source: "embedded", RecordCount: c.Len(),
	})
	if !ok {
		t.Errorf("expected curated catalog to be valid, output:\n%s", buf.String())
	}

	buf.Reset()
	err := catalog.Permanent(&interaction.ValidationError{Errors: []string{"Interaction x: drug1Id 'nope' not found"}})
	ok = reportDrugs(&buf, &catalog.Snapshot[*interaction.Catalog]{
		Data: c, Mode: catalog.ModeFallback, Source: "embedded", RecordCount: c.Len(), Err: err,
	})
	if ok {
		t.Error("expected invalid primary source to fail validation")
	}
	if !strings.Contains(buf.String(), "drug1Id 'nope' not found") {
		t.Errorf("expected violation in output, got:\n%s", buf.String())
	}
}

func TestReportICD10(t *testing.T) {
	c := icd10.FallbackCatalog()

	var buf bytes.Buffer
	ok := reportICD10(&buf, &catalog.Snapshot[*icd10.Catalog]{
		Data: c, Mode: catalog.ModeFallback, Source: "embedded", RecordCount: c.Len(),
	})
	if !ok {
		t.Errorf("expected embedded-only catalog to pass, output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "limited fallback dataset") {
		t.Errorf("expected fallback notice, got:\n%s", buf.String())
	}

	buf.Reset()
	err := catalog.Permanent(&icd10.ValidationError{Errors: []string{`duplicate code "E11.9"`}})
	ok = reportICD10(&buf, &catalog.Snapshot[*icd10.Catalog]{
		Data: c, Mode: catalog.ModeFallback, Source: "file:/data/icd10.json", RecordCount: c.Len(), Err: err,
	})
	if ok {
		t.Error("expected invalid ICD-10 source to fail validation")
	}
	if !strings.Contains(buf.String(), `duplicate code "E11.9"`) {
		t.Errorf("expected violation in output, got:\n%s", buf.String())
	}

	buf.Reset()
	ok = reportICD10(&buf, &catalog.Snapshot[*icd10.Catalog]{
		Data: c, Mode: catalog.ModeFallback, Source: "https://example.org/icd10.json", RecordCount: c.Len(),
		Err: errors.New("giving up after 3 attempts: connection refused"),
	})
	if !ok {
		t.Error("expected an unreachable source to report fallback without failing validation")
	}
}

func TestPublishPayload(t *testing.T) {
	cfg := testConfig()
	cfg.DrugRedisKey = "refdata:drugs"

	data, key, err := publishPayload("drugs", "", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "refdata:drugs" {
		t.Errorf("expected default key, got %q", key)
	}
	if _, err := interaction.Decode(data); err != nil {
		t.Errorf("published payload does not decode: %v", err)
	}

	if _, _, err := publishPayload("icd10", "", cfg); err == nil {
		t.Error("expected error for icd10 without a file")
	}
	if _, _, err := publishPayload("loinc", "", cfg); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestReadDrugDatabase_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drugs.json")
	data := `{"drugs":[{"id":"a","name":"A"}],"interactions":[{"id":"i1","drug1Id":"a","drug2Id":"b"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := readDrugDatabase(path)
	var verr *interaction.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
