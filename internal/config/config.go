package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	UpstreamBaseURL     string        `mapstructure:"UPSTREAM_BASE_URL"`
	UpstreamTimeout     time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	UpstreamBatchStatus bool          `mapstructure:"UPSTREAM_BATCH_STATUS"`
	CacheTTL            time.Duration `mapstructure:"CACHE_TTL"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	PDFConverterURL     string        `mapstructure:"PDF_CONVERTER_URL"`
	ReportTempDir       string        `mapstructure:"REPORT_TEMP_DIR"`
	ReportDownloadDir   string        `mapstructure:"REPORT_DOWNLOAD_DIR"`
	ReportBrand         string        `mapstructure:"REPORT_BRAND"`
	ReportWebsite       string        `mapstructure:"REPORT_WEBSITE"`
	ReportEnrichStatus  bool          `mapstructure:"REPORT_ENRICH_STATUS"`
	TLSEnabled          bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile         string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile          string        `mapstructure:"TLS_KEY_FILE"`
}

var envKeys = []string{
	"PORT", "ENV", "UPSTREAM_BASE_URL", "UPSTREAM_TIMEOUT", "UPSTREAM_BATCH_STATUS",
	"CACHE_TTL", "REDIS_URL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"PDF_CONVERTER_URL", "REPORT_TEMP_DIR", "REPORT_DOWNLOAD_DIR", "REPORT_BRAND",
	"REPORT_WEBSITE", "REPORT_ENRICH_STATUS",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_BATCH_STATUS", false)
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("PDF_CONVERTER_URL", "http://localhost:3000")
	v.SetDefault("REPORT_TEMP_DIR", "./tmp")
	v.SetDefault("REPORT_DOWNLOAD_DIR", "./downloads")
	v.SetDefault("REPORT_BRAND", "AroCord")
	v.SetDefault("REPORT_WEBSITE", "www.arocord.com")
	v.SetDefault("REPORT_ENRICH_STATUS", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.UpstreamBaseURL == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development); bearer tokens are not verified.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArchiveEnabled reports whether generated reports are recorded in Postgres.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_SIGNING_KEY or an issuer/JWKS pair must be configured so that
// bearer tokens are verified before they are forwarded upstream.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.UpstreamBaseURL); err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL is not a valid URL: %w", err)
	}
	if c.PDFConverterURL != "" {
		if _, err := url.ParseRequestURI(c.PDFConverterURL); err != nil {
			return fmt.Errorf("PDF_CONVERTER_URL is not a valid URL: %w", err)
		}
	}
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"one of AUTH_SIGNING_KEY, AUTH_ISSUER or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
