// Package telemetry records HTTP server and catalog metrics and serves them
// in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cdss/refdata/internal/platform/catalog"
)

var defaultDurationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

// histogram is a thread-safe histogram. Bucket counts are stored
// non-cumulative; cumulative counts are computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 { return atomic.LoadInt64(&h.count) }

func (h *histogram) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&h.sum)) }

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		cum[i] = running
	}
	return cum
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// LabelsKey builds the key of a per-route duration histogram.
func LabelsKey(method, route, statusCode string) string {
	return method + "|" + route + "|" + statusCode
}

// Registry holds the server's metrics. Catalog gauges are read from the
// registered status functions at scrape time.
type Registry struct {
	active int64

	mu        sync.RWMutex
	durations map[string]*histogram

	catalogs []func() catalog.Status
}

// NewRegistry creates a registry that reports the given catalogs.
func NewRegistry(catalogs ...func() catalog.Status) *Registry {
	return &Registry{
		durations: make(map[string]*histogram),
		catalogs:  catalogs,
	}
}

func (r *Registry) duration(key string) *histogram {
	r.mu.RLock()
	h, ok := r.durations[key]
	r.mu.RUnlock()
	if ok {
		return h
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.durations[key]; !ok {
		h = newHistogram(defaultDurationBuckets)
		r.durations[key] = h
	}
	return h
}

// Observation returns the number of requests recorded for a label set.
func (r *Registry) Observation(method, route, statusCode string) int64 {
	r.mu.RLock()
	h, ok := r.durations[LabelsKey(method, route, statusCode)]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return h.Count()
}

// Middleware records request durations by method, route pattern and status.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&r.active, 1)
			defer atomic.AddInt64(&r.active, -1)

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start).Seconds()

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.duration(LabelsKey(c.Request().Method, route, strconv.Itoa(status))).Observe(elapsed)
			return err
		}
	}
}

// Handler serves the metrics in Prometheus text format.
func (r *Registry) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder
		r.writeDurations(&b)

		b.WriteString("# HELP http_server_active_requests Number of active HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&r.active))

		r.writeCatalogs(&b)
		return c.String(http.StatusOK, b.String())
	}
}

func (r *Registry) writeDurations(b *strings.Builder) {
	const name = "http_server_request_duration_seconds"
	fmt.Fprintf(b, "# HELP %s Duration of HTTP requests in seconds.\n", name)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)

	r.mu.RLock()
	keys := make([]string, 0, len(r.durations))
	for k := range r.durations {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		writeHistogram(b, name, labels, r.duration(key))
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func (r *Registry) writeCatalogs(b *strings.Builder) {
	statuses := make([]catalog.Status, 0, len(r.catalogs))
	for _, fn := range r.catalogs {
		statuses = append(statuses, fn())
	}

	gauges := []struct {
		name, help string
		value      func(catalog.Status) int
	}{
		{"refdata_catalog_loaded", "Whether the catalog has completed a load.", func(s catalog.Status) int { return boolInt(s.Loaded) }},
		{"refdata_catalog_fallback", "Whether the catalog is serving its fallback dataset.", func(s catalog.Status) int { return boolInt(s.UsingFallback) }},
		{"refdata_catalog_records", "Number of records in the loaded catalog.", func(s catalog.Status) int { return s.RecordCount }},
		{"refdata_catalog_load_attempts", "Fetch attempts made by the last load.", func(s catalog.Status) int { return s.Attempts }},
	}
	for _, g := range gauges {
		fmt.Fprintf(b, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(b, "# TYPE %s gauge\n", g.name)
		for _, s := range statuses {
			fmt.Fprintf(b, "%s{catalog=%q} %d\n", g.name, s.Name, g.value(s))
		}
		b.WriteByte('\n')
	}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
