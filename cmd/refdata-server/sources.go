package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cdss/refdata/internal/config"
	"github.com/cdss/refdata/internal/domain/icd10"
	"github.com/cdss/refdata/internal/domain/interaction"
	"github.com/cdss/refdata/internal/platform/catalog"
)

func loaderOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		MaxAttempts:    cfg.LoadMaxAttempts,
		InitialBackoff: cfg.LoadInitialBackoff,
		MaxBackoff:     cfg.LoadMaxBackoff,
		Timeout:        cfg.LoadTimeout,
	}
}

// byteSource picks the byte source for a non-postgres source URI. It
// returns nil for the embedded dataset.
func byteSource(cfg *config.Config, b *backends, uri, redisKey string) (catalog.Source, error) {
	switch config.SourceKind(uri) {
	case config.SourceEmbedded:
		return nil, nil
	case config.SourceHTTP:
		return catalog.NewHTTPSource(uri, cfg.LoadTimeout), nil
	case config.SourceRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("source %q requires REDIS_URL", uri)
		}
		return catalog.NewRedisSource(b.redis, redisKey), nil
	case config.SourceFile:
		return catalog.NewFileSource(uri), nil
	default:
		return nil, fmt.Errorf("unsupported source %q", uri)
	}
}

// resolveFetch turns a source URI into a loader fetch function and a source
// name. A nil fetch selects the embedded dataset.
func resolveFetch[T any](cfg *config.Config, b *backends, uri, redisKey string,
	decode func([]byte) (T, error), pg func(*backends) func(context.Context) (T, error),
) (func(context.Context) (T, error), string, error) {
	if config.SourceKind(uri) == config.SourcePostgres {
		if b.pool == nil {
			return nil, "", fmt.Errorf("source %q requires DATABASE_URL", uri)
		}
		return pg(b), "postgres", nil
	}
	src, err := byteSource(cfg, b, uri, redisKey)
	if err != nil || src == nil {
		return nil, "", err
	}
	return catalog.FromSource(src, decode), src.String(), nil
}

func newICD10Loader(cfg *config.Config, b *backends, logger zerolog.Logger) (*catalog.Loader[*icd10.Catalog], error) {
	fetch, name, err := resolveFetch(cfg, b, cfg.ICD10Source, cfg.ICD10RedisKey, icd10.Decode,
		func(b *backends) func(context.Context) (*icd10.Catalog, error) {
			return icd10.NewPGRepository(b.pool).Fetch
		})
	if err != nil {
		return nil, err
	}
	return icd10.NewLoader(fetch, name, loaderOptions(cfg), logger), nil
}

func newDrugLoader(cfg *config.Config, b *backends, logger zerolog.Logger) (*catalog.Loader[*interaction.Catalog], error) {
	fetch, name, err := resolveFetch(cfg, b, cfg.DrugSource, cfg.DrugRedisKey, interaction.Decode,
		func(b *backends) func(context.Context) (*interaction.Catalog, error) {
			return interaction.NewPGRepository(b.pool).Fetch
		})
	if err != nil {
		return nil, err
	}
	return interaction.NewLoader(fetch, name, loaderOptions(cfg), logger), nil
}
