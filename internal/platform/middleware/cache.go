package middleware

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CacheConfig holds HTTP cache and ETag configuration for reference data
// responses.
type CacheConfig struct {
	MaxAge       int      // Cache max-age in seconds
	VaryHeaders  []string // Headers to include in Vary
	ExcludePaths []string // Path prefixes to skip, e.g. status endpoints
}

// DefaultCacheConfig caches for five minutes. Catalogs never change while
// the process runs, so the only staleness is across restarts.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:      300,
		VaryHeaders: []string{"Accept", "Accept-Encoding"},
	}
}

// bufferedResponseWriter captures the response so its ETag can be computed
// before anything is sent.
type bufferedResponseWriter struct {
	writer     http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func (w *bufferedResponseWriter) Header() http.Header         { return w.writer.Header() }
func (w *bufferedResponseWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }
func (w *bufferedResponseWriter) WriteHeader(code int)        { w.statusCode = code }

func (w *bufferedResponseWriter) flush() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() > 0 {
		_, err := w.writer.Write(w.buf.Bytes())
		return err
	}
	return nil
}

// ETag sets a weak ETag and Cache-Control on successful GET responses and
// answers a matching If-None-Match with 304.
func ETag(cfg CacheConfig) echo.MiddlewareFunc {
	cacheControl := fmt.Sprintf("public, max-age=%d", cfg.MaxAge)
	vary := strings.Join(cfg.VaryHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || excluded(req.URL.Path, cfg.ExcludePaths) {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			buf := &bufferedResponseWriter{writer: orig, statusCode: http.StatusOK}
			res.Writer = buf

			err := next(c)
			res.Writer = orig
			if err != nil {
				res.Committed = false
				return err
			}

			if buf.statusCode >= 300 {
				return buf.flush()
			}

			etag := computeETag(buf.buf.Bytes())
			h := res.Header()
			h.Set("ETag", etag)
			h.Set("Cache-Control", cacheControl)
			if vary != "" {
				h.Set("Vary", vary)
			}

			if inm := req.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
				h.Del("Content-Type")
				h.Del("Content-Length")
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}
			return buf.flush()
		}
	}
}

func computeETag(body []byte) string {
	return fmt.Sprintf(`W/"%x"`, md5.Sum(body))
}

func excluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// etagMatch compares an If-None-Match value against etag using weak
// comparison. Supports lists and "*".
func etagMatch(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
