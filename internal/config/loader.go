package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/MrEthical07/waitgate"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WAITGATE"

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. Empty means search for waitgate.yaml in the working
	// directory and /etc/waitgate.
	File string
	// DotEnv is loaded into the process environment before reading variables. Missing files
	// are ignored. Empty means ".env".
	DotEnv string
	// Overrides are applied last, keyed by dotted path.
	Overrides map[string]any
}

// Load reads defaults, then the config file, then .env and WAITGATE_* variables, then
// Overrides. The result is validated.
func Load(opts Options) (*Config, error) {
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("waitgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/waitgate")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "20s")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key_prefix", "")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "file:waitgate.db?_busy_timeout=5000")

	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("discord.username", "Waitlist Bot")
	v.SetDefault("discord.avatar_url", "")
	v.SetDefault("discord.timeout", "10s")

	v.SetDefault("turnstile.secret_key", "")
	v.SetDefault("turnstile.verify_url", "")
	v.SetDefault("turnstile.timeout", "5s")

	v.SetDefault("admin.signing_key", "")
	v.SetDefault("admin.issuer", "waitgate")
	v.SetDefault("admin.audience", "waitgate-admin")
	v.SetDefault("admin.token_ttl", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("audit.sink", AuditSinkLogger)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.list_key", "audit_events")
	v.SetDefault("audit.list_cap", 1000)
	v.SetDefault("audit.max_batch", 64)

	// Every policy key is registered so AutomaticEnv can override it.
	gc := waitgate.DefaultConfig()
	for name, p := range gc.Policies {
		v.SetDefault("policies."+name+".window", p.Window.String())
		v.SetDefault("policies."+name+".limit", p.Limit)
	}
	v.SetDefault("spam.window", gc.Spam.Window.String())
	v.SetDefault("spam.global_limit", gc.Spam.GlobalLimit)
	v.SetDefault("spam.actor_limit", gc.Spam.ActorLimit)

	v.SetDefault("validation.max_email_length", gc.Validation.MaxEmailLength)
	v.SetDefault("validation.max_content_length", gc.Validation.MaxContentLength)
	v.SetDefault("validation.extra_email_patterns", []string{})
	v.SetDefault("validation.extra_content_patterns", []string{})
}
