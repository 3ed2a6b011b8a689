package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Mode reports which dataset a snapshot was built from.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
)

// Options tunes retry and timeout behaviour of a Loader.
type Options struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultOptions returns the loader defaults: 3 attempts, 250ms initial
// backoff capped at 2s, and a 10s bound on the whole load.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Timeout:        10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = d.InitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Snapshot is the immutable result of a load. Every caller of Load on the
// same Loader receives the same *Snapshot.
type Snapshot[T any] struct {
	Data        T
	Mode        Mode
	Source      string
	RecordCount int
	LoadedAt    time.Time
	Attempts    int
	Err         error
}

// UsingFallback reports whether the snapshot holds the embedded dataset.
func (s *Snapshot[T]) UsingFallback() bool {
	return s.Mode == ModeFallback
}

// Status is the observable state of a Loader.
type Status struct {
	Name          string    `json:"name"`
	Loaded        bool      `json:"loaded"`
	UsingFallback bool      `json:"usingFallback"`
	RecordCount   int       `json:"recordCount"`
	Mode          Mode      `json:"mode,omitempty"`
	Source        string    `json:"source,omitempty"`
	LoadedAt      time.Time `json:"loadedAt,omitempty"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"lastError,omitempty"`
}

// Config describes how a Loader obtains its primary and fallback data.
type Config[T any] struct {
	Name string
	// Source names the primary source in logs and status.
	Source string
	// Fetch retrieves, decodes and validates the primary dataset.
	// A nil Fetch means the embedded dataset is the only dataset.
	Fetch func(ctx context.Context) (T, error)
	// Fallback builds the embedded dataset. It must not fail.
	Fallback func() T
	// EmbeddedIsPrimary marks the embedded dataset as complete. With a nil
	// Fetch it is then served in ModePrimary; otherwise it stays ModeFallback.
	EmbeddedIsPrimary bool
	// Count returns the number of primary records in a dataset.
	Count   func(T) int
	Options Options
	Logger  zerolog.Logger
}

// Loader loads a catalog exactly once per process. Concurrent calls to Load
// made before the first load completes share a single fetch.
type Loader[T any] struct {
	cfg     Config[T]
	group   singleflight.Group
	snap    atomic.Pointer[Snapshot[T]]
	fetches atomic.Int64
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// NewLoader creates a loader. Nothing is fetched until Load is called.
func NewLoader[T any](cfg Config[T]) *Loader[T] {
	cfg.Options = cfg.Options.withDefaults()
	if cfg.Count == nil {
		cfg.Count = func(T) int { return 0 }
	}
	if cfg.Source == "" {
		cfg.Source = "embedded"
	}
	return &Loader[T]{
		cfg:   cfg,
		sleep: sleepContext,
		now:   time.Now,
	}
}

// NewStatic returns a loader already holding a primary snapshot of value.
func NewStatic[T any](name string, value T, count int) *Loader[T] {
	l := NewLoader(Config[T]{
		Name:     name,
		Fallback: func() T { return value },
		Count:    func(T) int { return count },
		Logger:   zerolog.Nop(),
	})
	l.snap.Store(&Snapshot[T]{
		Data:        value,
		Mode:        ModePrimary,
		Source:      "static",
		RecordCount: count,
		LoadedAt:    l.now(),
	})
	return l
}

// Load returns the loaded snapshot, loading it on first use. It never fails:
// if the primary source cannot be fetched or validated the fallback dataset
// is returned and marked as such.
func (l *Loader[T]) Load(ctx context.Context) *Snapshot[T] {
	if s := l.snap.Load(); s != nil {
		return s
	}
	v, _, _ := l.group.Do(l.cfg.Name, func() (interface{}, error) {
		if s := l.snap.Load(); s != nil {
			return s, nil
		}
		s := l.load(context.WithoutCancel(ctx))
		l.snap.Store(s)
		return s, nil
	})
	return v.(*Snapshot[T])
}

// Status reports whether the catalog is loaded and which dataset is active.
func (l *Loader[T]) Status() Status {
	st := Status{Name: l.cfg.Name}
	s := l.snap.Load()
	if s == nil {
		return st
	}
	st.Loaded = true
	st.UsingFallback = s.UsingFallback()
	st.RecordCount = s.RecordCount
	st.Mode = s.Mode
	st.Source = s.Source
	st.LoadedAt = s.LoadedAt
	st.Attempts = s.Attempts
	if s.Err != nil {
		st.LastError = s.Err.Error()
	}
	return st
}

// Fetches returns how many primary fetch attempts have been made.
func (l *Loader[T]) Fetches() int64 {
	return l.fetches.Load()
}

func (l *Loader[T]) load(ctx context.Context) *Snapshot[T] {
	log := l.cfg.Logger.With().Str("catalog", l.cfg.Name).Str("source", l.cfg.Source).Logger()

	if l.cfg.Fetch == nil {
		s := l.fallback(nil, 0)
		if l.cfg.EmbeddedIsPrimary {
			s.Mode = ModePrimary
			log.Info().Int("records", s.RecordCount).Msg("catalog loaded from embedded dataset")
		} else {
			log.Warn().Int("records", s.RecordCount).Msg("no primary source configured, serving fallback dataset")
		}
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Options.Timeout)
	defer cancel()

	data, attempts, err := l.fetchWithRetry(ctx, log)
	if err != nil {
		var v violations
		if errors.As(err, &v) {
			for _, msg := range v.Violations() {
				log.Warn().Str("violation", msg).Msg("catalog validation failed")
			}
		}
		log.Warn().Err(err).Int("attempts", attempts).Msg("primary catalog unavailable, using fallback dataset")
		return l.fallback(err, attempts)
	}

	s := &Snapshot[T]{
		Data:        data,
		Mode:        ModePrimary,
		Source:      l.cfg.Source,
		RecordCount: l.cfg.Count(data),
		LoadedAt:    l.now(),
		Attempts:    attempts,
	}
	log.Info().Int("records", s.RecordCount).Int("attempts", attempts).Msg("catalog loaded")
	return s
}

func (l *Loader[T]) fetchWithRetry(ctx context.Context, log zerolog.Logger) (T, int, error) {
	var zero T
	backoff := l.cfg.Options.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= l.cfg.Options.MaxAttempts; attempt++ {
		l.fetches.Add(1)
		data, err := l.cfg.Fetch(ctx)
		if err == nil {
			return data, attempt, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return zero, attempt, err
		}
		if ctx.Err() != nil {
			return zero, attempt, fmt.Errorf("load timed out: %w", err)
		}
		if attempt == l.cfg.Options.MaxAttempts {
			break
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("catalog fetch failed, retrying")

		if err := l.sleep(ctx, backoff); err != nil {
			return zero, attempt, fmt.Errorf("load timed out: %w", lastErr)
		}
		backoff *= 2
		if backoff > l.cfg.Options.MaxBackoff {
			backoff = l.cfg.Options.MaxBackoff
		}
	}
	return zero, l.cfg.Options.MaxAttempts, fmt.Errorf("giving up after %d attempts: %w", l.cfg.Options.MaxAttempts, lastErr)
}

func (l *Loader[T]) fallback(err error, attempts int) *Snapshot[T] {
	data := l.cfg.Fallback()
	return &Snapshot[T]{
		Data:        data,
		Mode:        ModeFallback,
		Source:      "embedded",
		RecordCount: l.cfg.Count(data),
		LoadedAt:    l.now(),
		Attempts:    attempts,
		Err:         err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// violations is implemented by validation errors that carry every integrity
// problem found in a dataset.
type violations interface {
	Violations() []string
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the loader does not retry it. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
