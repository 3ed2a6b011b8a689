package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
)

// Source yields the serialized bytes of a catalog.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// FromSource adapts a byte source and a decoder into a Config.Fetch function.
// Decode failures are permanent: refetching the same bytes cannot fix them.
func FromSource[T any](src Source, decode func([]byte) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		data, err := src.Fetch(ctx)
		if err != nil {
			return zero, err
		}
		v, err := decode(data)
		if err != nil {
			return zero, Permanent(fmt.Errorf("decode %s: %w", src, err))
		}
		return v, nil
	}
}

// =========== File ===========

// FileSource reads a catalog from the local filesystem.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

func (s *FileSource) String() string { return "file:" + s.Path }

func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Permanent(fmt.Errorf("read catalog file: %w", err))
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return data, nil
}

// =========== HTTP ===========

// HTTPSource fetches a catalog over HTTP(S). Retries are left to the Loader
// so that each attempt is logged and bounded by the load timeout.
type HTTPSource struct {
	URL    string
	client *resty.Client
}

// NewHTTPSource creates an HTTP source with a per-request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPSource{URL: url, client: client}
}

func (s *HTTPSource) String() string { return s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	if resp.IsError() {
		err := fmt.Errorf("fetch %s: unexpected status %d", s.URL, resp.StatusCode())
		if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() < http.StatusInternalServerError &&
			resp.StatusCode() != http.StatusTooManyRequests && resp.StatusCode() != http.StatusRequestTimeout {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return resp.Body(), nil
}

// =========== Redis ===========

// RedisSource reads a catalog stored under a single Redis key.
type RedisSource struct {
	client *redis.Client
	key    string
}

func NewRedisSource(client *redis.Client, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) String() string { return "redis:" + s.key }

func (s *RedisSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, Permanent(fmt.Errorf("redis key %q not found", s.key))
		}
		return nil, fmt.Errorf("redis get %q: %w", s.key, err)
	}
	return data, nil
}

// Publish stores a serialized catalog under key so a RedisSource can load it.
func Publish(ctx context.Context, client *redis.Client, key string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to publish empty catalog to %q", key)
	}
	if err := client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
