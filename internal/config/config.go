package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/mapping"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema         string        `mapstructure:"DB_SCHEMA"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL      string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	FHIRBaseURL      string        `mapstructure:"FHIR_BASE_URL"`
	SystemBaseURL    string        `mapstructure:"FHIR_SYSTEM_BASE_URL"`
	ReferenceType    string        `mapstructure:"FHIR_DEFAULT_REFERENCE_TYPE"`
	Currency         string        `mapstructure:"CURRENCY"`
	AttachmentMIME   string        `mapstructure:"CLAIM_ATTACHMENT_MIME_REGEX"`
	AuditUserID      int           `mapstructure:"DEFAULT_AUDIT_USER_ID"`
	ContainedQualify bool          `mapstructure:"CONTAINED_ID_QUALIFIED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"BODY_LIMIT", "REQUEST_TIMEOUT", "FHIR_BASE_URL", "FHIR_SYSTEM_BASE_URL",
	"FHIR_DEFAULT_REFERENCE_TYPE", "CURRENCY", "CLAIM_ATTACHMENT_MIME_REGEX",
	"DEFAULT_AUDIT_USER_ID", "CONTAINED_ID_QUALIFIED",
}

// Load reads .env and the environment and requires a database URL.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.IsDev() {
		log.Warn().Msg("server is running in development mode: every request without a token is served as admin")
	}
	return cfg, nil
}

// LoadOffline is Load without the database requirement, for commands that
// never connect.
func LoadOffline() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("FHIR_SYSTEM_BASE_URL", mapping.DefaultSystemBaseURL)
	v.SetDefault("FHIR_DEFAULT_REFERENCE_TYPE", string(converter.ReferenceUUID))
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("CLAIM_ATTACHMENT_MIME_REGEX", converter.DefaultAttachmentMIMEPattern)
	v.SetDefault("DEFAULT_AUDIT_USER_ID", 1)
	v.SetDefault("CONTAINED_ID_QUALIFIED", false)

	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.FHIRBaseURL == "" {
		cfg.FHIRBaseURL = fmt.Sprintf("http://localhost:%s/api_fhir_r4", cfg.Port)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the zerolog level named by LOG_LEVEL, info when unknown.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is safe to run. Outside
// development a token verifier must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q; "+
			"refusing to start without authentication configuration", c.Env)
	}
	if _, err := converter.ParseReferenceType(c.ReferenceType); err != nil {
		return fmt.Errorf("FHIR_DEFAULT_REFERENCE_TYPE: %w", err)
	}
	if _, err := regexp.Compile(c.AttachmentMIME); err != nil {
		return fmt.Errorf("CLAIM_ATTACHMENT_MIME_REGEX: %w", err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// DefaultReferenceType is the reference type used when a request names
// none.
func (c *Config) DefaultReferenceType() converter.ReferenceType {
	rt, err := converter.ParseReferenceType(c.ReferenceType)
	if err != nil {
		return converter.ReferenceUUID
	}
	return rt
}

// Converter derives the converter settings.
func (c *Config) Converter() (*converter.Settings, error) {
	s, err := converter.NewSettings(c.SystemBaseURL, c.Currency, c.AttachmentMIME)
	if err != nil {
		return nil, fmt.Errorf("converter settings: %w", err)
	}
	return s, nil
}
