// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN for the session and user tables.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address (host:port) for the Redis-backed session
	// store. When empty, Postgres is used.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// TokenSecret is the master secret for HMAC token signing. Used when no
	// key pair is configured.
	TokenSecret string `mapstructure:"TOKEN_SECRET"`
	// TokenPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with TOKEN_PUBLIC_KEY for RS256/ES256.
	TokenPrivateKey string `mapstructure:"TOKEN_PRIVATE_KEY"`
	// TokenPublicKey is the PEM-encoded public key or path to file; used with TOKEN_PRIVATE_KEY.
	TokenPublicKey string `mapstructure:"TOKEN_PUBLIC_KEY"`
	// TokenIssuer is the iss claim (e.g. "sessioncore").
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`
	// TokenAudience is the aud claim (e.g. "sessioncore-clients").
	TokenAudience string `mapstructure:"TOKEN_AUDIENCE"`
	// AccessTTLRaw is the access token lifetime (e.g. "15m").
	AccessTTLRaw string `mapstructure:"ACCESS_TTL"`
	// RefreshTTLRaw is the refresh token lifetime (e.g. "168h"). Must exceed ACCESS_TTL.
	RefreshTTLRaw string `mapstructure:"REFRESH_TTL"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces, metrics, and session
	// lifecycle events (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the OTLP endpoint even for https URLs.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "sessioncore")
	v.SetDefault("TOKEN_AUDIENCE", "sessioncore-clients")
	v.SetDefault("ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "168h") // 7d
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.TokenSecret == "" && (cfg.TokenPrivateKey == "" || cfg.TokenPublicKey == "") {
		return nil, errors.New("config: TOKEN_SECRET or a TOKEN_PRIVATE_KEY/TOKEN_PUBLIC_KEY pair must be set")
	}
	if cfg.RefreshTTL() <= cfg.AccessTTL() {
		return nil, errors.New("config: REFRESH_TTL must exceed ACCESS_TTL")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTTLRaw as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTTLRaw)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTTLRaw as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTLRaw)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}
