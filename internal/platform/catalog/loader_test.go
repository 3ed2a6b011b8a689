package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type testData struct {
	items []string
}

func newTestLoader(fetch func(ctx context.Context) (*testData, error), opts Options) *Loader[*testData] {
	return NewLoader(Config[*testData]{
		Name:     "test",
		Source:   "memory",
		Fetch:    fetch,
		Fallback: func() *testData { return &testData{items: []string{"fallback"}} },
		Count:    func(d *testData) int { return len(d.items) },
		Options:  opts,
		Logger:   zerolog.Nop(),
	})
}

func noSleep(l *Loader[*testData]) *[]time.Duration {
	var waits []time.Duration
	l.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return &waits
}

func TestLoader_StatusBeforeLoad(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return &testData{items: []string{"a"}}, nil
	}, Options{})

	st := l.Status()
	if st.Loaded {
		t.Error("expected Loaded=false before first load")
	}
	if st.RecordCount != 0 {
		t.Errorf("expected 0 records, got %d", st.RecordCount)
	}
}

func TestLoader_LoadPrimary(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return &testData{items: []string{"a", "b"}}, nil
	}, Options{})

	s := l.Load(context.Background())
	if s.Mode != ModePrimary {
		t.Errorf("expected primary mode, got %s", s.Mode)
	}
	if s.RecordCount != 2 {
		t.Errorf("expected 2 records, got %d", s.RecordCount)
	}

	st := l.Status()
	if !st.Loaded || st.UsingFallback {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.Source != "memory" {
		t.Errorf("expected source memory, got %s", st.Source)
	}
}

func TestLoader_SecondLoadDoesNotFetch(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return &testData{items: []string{"a"}}, nil
	}, Options{})

	first := l.Load(context.Background())
	second := l.Load(context.Background())
	if first != second {
		t.Error("expected the same snapshot on repeated loads")
	}
	if l.Fetches() != 1 {
		t.Errorf("expected 1 fetch, got %d", l.Fetches())
	}
}

func TestLoader_ConcurrentLoadsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	l := newTestLoader(func(context.Context) (*testData, error) {
		once.Do(func() { close(started) })
		<-release
		return &testData{items: []string{"a"}}, nil
	}, Options{})

	const callers = 16
	results := make([]*Snapshot[*testData], callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Load(context.Background())
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d received a different snapshot", i)
		}
	}
	if l.Fetches() != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", l.Fetches())
	}
}

func TestLoader_RetriesTransientErrors(t *testing.T) {
	calls := 0
	l := newTestLoader(func(context.Context) (*testData, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return &testData{items: []string{"a"}}, nil
	}, Options{MaxAttempts: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second})
	waits := noSleep(l)

	s := l.Load(context.Background())
	if s.Mode != ModePrimary {
		t.Fatalf("expected primary after retries, got %s (err=%v)", s.Mode, s.Err)
	}
	if s.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", s.Attempts)
	}
	if len(*waits) != 2 {
		t.Fatalf("expected 2 backoff waits, got %d", len(*waits))
	}
	if (*waits)[0] != 10*time.Millisecond || (*waits)[1] != 20*time.Millisecond {
		t.Errorf("expected exponential backoff 10ms,20ms got %v", *waits)
	}
}

func TestLoader_BackoffIsCapped(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return nil, errors.New("unavailable")
	}, Options{MaxAttempts: 5, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 25 * time.Millisecond})
	waits := noSleep(l)

	l.Load(context.Background())

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}
	if len(*waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), *waits)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], (*waits)[i])
		}
	}
}

func TestLoader_FallbackAfterMaxAttempts(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return nil, errors.New("unavailable")
	}, Options{MaxAttempts: 3})
	noSleep(l)

	s := l.Load(context.Background())
	if !s.UsingFallback() {
		t.Fatal("expected fallback snapshot")
	}
	if s.Err == nil {
		t.Error("expected fallback reason to be recorded")
	}
	if l.Fetches() != 3 {
		t.Errorf("expected 3 fetches, got %d", l.Fetches())
	}

	st := l.Status()
	if !st.Loaded || !st.UsingFallback {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.RecordCount != 1 {
		t.Errorf("expected fallback record count 1, got %d", st.RecordCount)
	}
	if st.LastError == "" {
		t.Error("expected LastError in status")
	}
}

func TestLoader_PermanentErrorIsNotRetried(t *testing.T) {
	l := newTestLoader(func(context.Context) (*testData, error) {
		return nil, Permanent(errors.New("invalid structure"))
	}, Options{MaxAttempts: 3})
	waits := noSleep(l)

	s := l.Load(context.Background())
	if !s.UsingFallback() {
		t.Fatal("expected fallback snapshot")
	}
	if l.Fetches() != 1 {
		t.Errorf("expected 1 fetch, got %d", l.Fetches())
	}
	if len(*waits) != 0 {
		t.Errorf("expected no backoff waits, got %v", *waits)
	}
}

func TestLoader_TimeoutFallsBack(t *testing.T) {
	l := newTestLoader(func(ctx context.Context) (*testData, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{MaxAttempts: 3, Timeout: 20 * time.Millisecond})

	start := time.Now()
	s := l.Load(context.Background())
	if !s.UsingFallback() {
		t.Fatal("expected fallback after timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("load did not respect its timeout")
	}
	if l.Fetches() != 1 {
		t.Errorf("expected 1 fetch before the deadline, got %d", l.Fetches())
	}
}

func TestLoader_CancelledCallerDoesNotFailLoad(t *testing.T) {
	l := newTestLoader(func(ctx context.Context) (*testData, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &testData{items: []string{"a"}}, nil
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := l.Load(ctx)
	if s.Mode != ModePrimary {
		t.Errorf("expected primary, got %s (err=%v)", s.Mode, s.Err)
	}
}

func TestLoader_NilFetchServesFallback(t *testing.T) {
	l := newTestLoader(nil, Options{})

	s := l.Load(context.Background())
	if s.Mode != ModeFallback {
		t.Errorf("expected fallback mode for embedded-only catalog, got %s", s.Mode)
	}
	if s.Source != "embedded" {
		t.Errorf("expected embedded source, got %s", s.Source)
	}
	if s.Err != nil {
		t.Errorf("expected no error, got %v", s.Err)
	}
	if !l.Status().UsingFallback {
		t.Error("expected status to report fallback")
	}
	if l.Fetches() != 0 {
		t.Errorf("expected no fetches, got %d", l.Fetches())
	}
}

func TestLoader_NilFetchEmbeddedIsPrimary(t *testing.T) {
	l := NewLoader(Config[*testData]{
		Name:              "test",
		Fallback:          func() *testData { return &testData{items: []string{"a", "b"}} },
		Count:             func(d *testData) int { return len(d.items) },
		Logger:            zerolog.Nop(),
		EmbeddedIsPrimary: true,
	})

	s := l.Load(context.Background())
	if s.Mode != ModePrimary {
		t.Errorf("expected primary mode, got %s", s.Mode)
	}
	if s.RecordCount != 2 {
		t.Errorf("expected 2 records, got %d", s.RecordCount)
	}
	if l.Status().UsingFallback {
		t.Error("expected status not to report fallback")
	}
}

func TestNewStatic(t *testing.T) {
	l := NewStatic("static", &testData{items: []string{"x", "y"}}, 2)

	st := l.Status()
	if !st.Loaded || st.UsingFallback || st.RecordCount != 2 {
		t.Errorf("unexpected status: %+v", st)
	}
	if got := l.Load(context.Background()).Data.items[0]; got != "x" {
		t.Errorf("expected x, got %s", got)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("expected Permanent(nil) to be nil")
	}
	base := errors.New("boom")
	err := Permanent(base)
	if !IsPermanent(err) {
		t.Error("expected IsPermanent")
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to be preserved")
	}
	if IsPermanent(base) {
		t.Error("plain error must not be permanent")
	}
}
