// Package config loads chiwarp settings from defaults, an optional YAML file
// and CHIWARP_* environment variables, in that order of precedence.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/iaconlabs/chiwarp"
	"github.com/iaconlabs/chiwarp/static"
)

// EnvPrefix is the prefix of every environment override, e.g. CHIWARP_SERVER_ADDR.
const EnvPrefix = "CHIWARP"

var validate = validator.New()

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	TLS     TLSConfig     `yaml:"tls"`
	Logging LoggingConfig `yaml:"logging"`
	Static  StaticConfig  `yaml:"static"`
	CORS    CORSConfig    `yaml:"cors"`
	Parser  ParserConfig  `yaml:"parser"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true" validate:"gte=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" split_words:"true" validate:"gte=0"`
	// ShutdownTimeout bounds Close in the example binary.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" split_words:"true" validate:"required_with=KeyFile"`
	KeyFile  string `yaml:"key_file" split_words:"true" validate:"required_with=CertFile"`
}

// Enabled reports whether a certificate pair is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// StaticConfig describes an optional static asset tree.
type StaticConfig struct {
	Root       string   `yaml:"root"`
	Prefix     string   `yaml:"prefix" validate:"omitempty,startswith=/"`
	MaxAge     int      `yaml:"max_age" split_words:"true" validate:"gte=0"`
	Immutable  bool     `yaml:"immutable"`
	ETag       bool     `yaml:"etag"`
	Dev        bool     `yaml:"dev"`
	Single     string   `yaml:"single"`
	Dotfiles   bool     `yaml:"dotfiles"`
	Extensions []string `yaml:"extensions"`
	Gzip       bool     `yaml:"gzip"`
	Brotli     bool     `yaml:"brotli"`
}

// CORSConfig describes an optional CORS policy.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Prefix         string   `yaml:"prefix" validate:"omitempty,startswith=/"`
	Origins        []string `yaml:"origins"`
	Methods        []string `yaml:"methods"`
	AllowedHeaders []string `yaml:"allowed_headers" split_words:"true"`
	ExposedHeaders []string `yaml:"exposed_headers" split_words:"true"`
	Credentials    bool     `yaml:"credentials"`
	MaxAge         int      `yaml:"max_age" split_words:"true" validate:"gte=0"`
}

// ParserConfig controls body parser registration.
type ParserConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix" validate:"omitempty,startswith=/"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Parser:  ParserConfig{Enabled: true},
	}
}

// Load starts from Default, overlays the YAML file at path when it exists,
// then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ApplicationOptions converts the server and TLS sections. Certificates are
// loaded from disk when TLS is enabled.
func (c *Config) ApplicationOptions() (chiwarp.ApplicationOptions, error) {
	opts := chiwarp.ApplicationOptions{
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		IdleTimeout:  c.Server.IdleTimeout,
	}
	if !c.TLS.Enabled() {
		return opts, nil
	}

	cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
	if err != nil {
		return opts, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	opts.HTTPSOptions = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return opts, nil
}

// StaticOptions converts the static section.
func (c *Config) StaticOptions() static.Options {
	s := c.Static
	return static.Options{
		Prefix:     s.Prefix,
		Dev:        s.Dev,
		ETag:       s.ETag,
		Dotfiles:   s.Dotfiles,
		Extensions: s.Extensions,
		Single:     s.Single,
		MaxAge:     s.MaxAge,
		Immutable:  s.Immutable,
		Gzip:       s.Gzip,
		Brotli:     s.Brotli,
	}
}

// CorsOptions converts the CORS section.
func (c *Config) CorsOptions() chiwarp.CorsOptions {
	return chiwarp.CorsOptions{
		Origins:        c.CORS.Origins,
		Methods:        c.CORS.Methods,
		AllowedHeaders: c.CORS.AllowedHeaders,
		ExposedHeaders: c.CORS.ExposedHeaders,
		Credentials:    c.CORS.Credentials,
		MaxAge:         c.CORS.MaxAge,
	}
}

// NewLogger builds a zap logger: production preset for json, development
// preset otherwise. Unknown levels fall back to info.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
