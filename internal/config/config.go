package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	ICD10Source        string        `mapstructure:"ICD10_SOURCE"`
	DrugSource         string        `mapstructure:"DRUG_SOURCE"`
	ICD10RedisKey      string        `mapstructure:"ICD10_REDIS_KEY"`
	DrugRedisKey       string        `mapstructure:"DRUG_REDIS_KEY"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	LoadTimeout        time.Duration `mapstructure:"LOAD_TIMEOUT"`
	LoadMaxAttempts    int           `mapstructure:"LOAD_MAX_ATTEMPTS"`
	LoadInitialBackoff time.Duration `mapstructure:"LOAD_INITIAL_BACKOFF"`
	LoadMaxBackoff     time.Duration `mapstructure:"LOAD_MAX_BACKOFF"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	AuthIssuer         string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience       string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey     string        `mapstructure:"AUTH_SIGNING_KEY"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"ICD10_SOURCE", "DRUG_SOURCE", "ICD10_REDIS_KEY", "DRUG_REDIS_KEY",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"LOAD_TIMEOUT", "LOAD_MAX_ATTEMPTS", "LOAD_INITIAL_BACKOFF", "LOAD_MAX_BACKOFF",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ICD10_REDIS_KEY", "refdata:icd10")
	v.SetDefault("DRUG_REDIS_KEY", "refdata:drugs")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("LOAD_TIMEOUT", "10s")
	v.SetDefault("LOAD_MAX_ATTEMPTS", 3)
	v.SetDefault("LOAD_INITIAL_BACKOFF", "250ms")
	v.SetDefault("LOAD_MAX_BACKOFF", "2s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Source kinds selected by a catalog source URI.
const (
	SourceEmbedded = "embedded"
	SourceHTTP     = "http"
	SourceRedis    = "redis"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// SourceKind classifies a catalog source URI:
//   - ""                     → embedded dataset only
//   - http:// or https://    → HTTP fetch
//   - redis                  → Redis key at REDIS_URL
//   - postgres               → reference tables at DATABASE_URL
//   - anything else          → local file path
func SourceKind(uri string) string {
	u := strings.TrimSpace(uri)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return SourceEmbedded
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceHTTP
	case lower == "redis":
		return SourceRedis
	case lower == "postgres":
		return SourcePostgres
	default:
		return SourceFile
	}
}

// Validate checks that every configured source has what it needs and that
// token verification is configured outside development.
func (c *Config) Validate() error {
	for name, src := range map[string]string{"ICD10_SOURCE": c.ICD10Source, "DRUG_SOURCE": c.DrugSource} {
		switch SourceKind(src) {
		case SourcePostgres:
			if c.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required when %s is \"postgres\"", name)
			}
		case SourceRedis:
			if c.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required when %s is \"redis\"", name)
			}
		}
	}

	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set outside development (current ENV=%q)", c.Env)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LoadMaxAttempts < 1 {
		return fmt.Errorf("LOAD_MAX_ATTEMPTS must be at least 1, got %d", c.LoadMaxAttempts)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}
