// Package config loads the waitgate service configuration from a YAML file, a .env file and
// WAITGATE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate"
)

var ErrInvalid = errors.New("invalid service configuration")

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig                     `mapstructure:"server"`
	Redis      RedisConfig                      `mapstructure:"redis"`
	Database   DatabaseConfig                   `mapstructure:"database"`
	Discord    DiscordConfig                    `mapstructure:"discord"`
	Turnstile  TurnstileConfig                  `mapstructure:"turnstile"`
	Admin      AdminConfig                      `mapstructure:"admin"`
	Logging    LoggingConfig                    `mapstructure:"logging"`
	Metrics    MetricsConfig                    `mapstructure:"metrics"`
	Audit      AuditConfig                      `mapstructure:"audit"`
	Policies   map[string]waitgate.PolicyConfig `mapstructure:"policies"`
	Spam       waitgate.SpamConfig              `mapstructure:"spam"`
	Validation waitgate.ValidationConfig        `mapstructure:"validation"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig locates the Redis server. KeyPrefix namespaces every key the service writes:
// gate counters, the stats cache, the analytics list and the audit list.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Key returns name under the configured prefix.
func (c RedisConfig) Key(name string) string {
	return c.KeyPrefix + name
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type DiscordConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Username   string        `mapstructure:"username"`
	AvatarURL  string        `mapstructure:"avatar_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TurnstileConfig enables bot verification on signups when SecretKey is set.
type TurnstileConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	VerifyURL string        `mapstructure:"verify_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (t TurnstileConfig) Enabled() bool {
	return strings.TrimSpace(t.SecretKey) != ""
}

// AdminConfig protects the /admin routes. An empty SigningKey disables them.
type AdminConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

func (a AdminConfig) Enabled() bool {
	return a.SigningKey != ""
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuditConfig selects where gate decisions are recorded: "logger", "redis" or "none".
type AuditConfig struct {
	Sink       string `mapstructure:"sink"`
	BufferSize int    `mapstructure:"buffer_size"`
	ListKey    string `mapstructure:"list_key"`
	ListCap    int    `mapstructure:"list_cap"`
	MaxBatch   int    `mapstructure:"max_batch"`
}

const (
	AuditSinkLogger = "logger"
	AuditSinkRedis  = "redis"
	AuditSinkNone   = "none"
)

// Validate checks the service-level settings and the derived gate configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		return fmt.Errorf("%w: redis.url is required", ErrInvalid)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("%w: database.driver must be postgres or sqlite3", ErrInvalid)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalid)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format must be json or console", ErrInvalid)
	}
	switch c.Audit.Sink {
	case AuditSinkLogger, AuditSinkRedis, AuditSinkNone:
	default:
		return fmt.Errorf("%w: audit.sink must be logger, redis or none", ErrInvalid)
	}
	if c.Audit.Sink == AuditSinkRedis && strings.TrimSpace(c.Audit.ListKey) == "" {
		return fmt.Errorf("%w: audit.list_key is required for the redis sink", ErrInvalid)
	}
	if c.Admin.Enabled() && len(c.Admin.SigningKey) < 32 {
		return fmt.Errorf("%w: admin.signing_key must be at least 32 bytes", ErrInvalid)
	}

	gc := c.GateConfig()
	if err := gc.Validate(); err != nil {
		return err
	}
	return nil
}

// GateConfig derives the gate configuration. Policies absent from the file keep their
// defaults.
func (c *Config) GateConfig() waitgate.Config {
	gc := waitgate.DefaultConfig()
	gc.KeyPrefix = c.Redis.KeyPrefix
	for name, p := range c.Policies {
		gc.Policies[name] = p
	}
	gc.Spam = c.Spam
	gc.Validation = c.Validation
	gc.Audit.Enabled = c.Audit.Sink != AuditSinkNone
	if c.Audit.BufferSize > 0 {
		gc.Audit.BufferSize = c.Audit.BufferSize
	}
	if c.Audit.MaxBatch > 0 {
		gc.Audit.MaxBatch = c.Audit.MaxBatch
	}
	gc.Metrics.Enabled = c.Metrics.Enabled
	return gc
}
