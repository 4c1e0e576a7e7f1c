package waitgate

import (
	"fmt"
	"time"

	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/spam"
	"github.com/MrEthical07/waitgate/internal/validate"
)

// Policy names accepted in [Config.Policies].
const (
	PolicySignupByIP      = string(limiters.SignupByIP)
	PolicySignupByEmail   = string(limiters.SignupByEmail)
	PolicyGenericEndpoint = string(limiters.GenericEndpoint)
	PolicyWebhookByIP     = string(limiters.WebhookByIP)
	PolicyWebhookGlobal   = string(limiters.WebhookGlobal)
)

// Config is the static configuration of a Gate. It is copied at Build time and never mutated
// afterwards.
type Config struct {
	// KeyPrefix is prepended to every Redis key the gate touches.
	KeyPrefix string

	// Policies maps every policy name to its window and limit. All five policies must be present.
	Policies map[string]PolicyConfig

	Spam       SpamConfig
	Validation ValidationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// PolicyConfig is one fixed-window limiter.
type PolicyConfig struct {
	Window time.Duration `mapstructure:"window"`
	Limit  int           `mapstructure:"limit"`
}

// SpamConfig tunes the content fingerprint counters.
type SpamConfig struct {
	Window      time.Duration `mapstructure:"window"`
	GlobalLimit int           `mapstructure:"global_limit"`
	ActorLimit  int           `mapstructure:"actor_limit"`
}

// ValidationConfig tunes the syntactic checks. Zero lengths use the defaults.
type ValidationConfig struct {
	MaxEmailLength       int      `mapstructure:"max_email_length"`
	MaxContentLength     int      `mapstructure:"max_content_length"`
	ExtraEmailPatterns   []string `mapstructure:"extra_email_patterns"`
	ExtraContentPatterns []string `mapstructure:"extra_content_patterns"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	SinkTimeout time.Duration
	// MaxBatch caps events per delivery to sinks that accept batches.
	MaxBatch int
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the tuned defaults for a single waitlist deployment.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	policies := make(map[string]PolicyConfig, len(limiters.Names()))
	for name, p := range limiters.DefaultPolicies() {
		policies[string(name)] = PolicyConfig{Window: p.Window, Limit: p.Limit}
	}
	sc := spam.DefaultConfig()

	return Config{
		Policies: policies,
		Spam: SpamConfig{
			Window:      sc.Window,
			GlobalLimit: sc.GlobalLimit,
			ActorLimit:  sc.ActorLimit,
		},
		Validation: ValidationConfig{
			MaxEmailLength:   validate.DefaultMaxEmailLength,
			MaxContentLength: validate.DefaultMaxContentLength,
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 2 * time.Second,
			MaxBatch:    64,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first configuration problem, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	for _, name := range limiters.Names() {
		p, ok := c.Policies[string(name)]
		if !ok {
			return fmt.Errorf("%w: policy %s missing", ErrInvalidConfig, name)
		}
		if p.Window < time.Second {
			return fmt.Errorf("%w: policy %s window must be >= 1s", ErrInvalidConfig, name)
		}
		if p.Limit <= 0 {
			return fmt.Errorf("%w: policy %s limit must be > 0", ErrInvalidConfig, name)
		}
	}
	for name := range c.Policies {
		if !knownPolicy(name) {
			return fmt.Errorf("%w: unknown policy %s", ErrInvalidConfig, name)
		}
	}

	if c.Spam.Window < time.Second {
		return fmt.Errorf("%w: spam window must be >= 1s", ErrInvalidConfig)
	}
	if c.Spam.GlobalLimit <= 0 || c.Spam.ActorLimit <= 0 {
		return fmt.Errorf("%w: spam limits must be > 0", ErrInvalidConfig)
	}

	if c.Validation.MaxEmailLength < 0 || c.Validation.MaxContentLength < 0 {
		return fmt.Errorf("%w: validation lengths must be >= 0", ErrInvalidConfig)
	}
	if _, err := validate.Compile(c.validationOptions()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("%w: audit buffer size must be >= 0", ErrInvalidConfig)
	}
	if c.Audit.SinkTimeout < 0 {
		return fmt.Errorf("%w: audit sink timeout must be >= 0", ErrInvalidConfig)
	}
	if c.Audit.MaxBatch < 0 {
		return fmt.Errorf("%w: audit max batch must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func knownPolicy(name string) bool {
	for _, n := range limiters.Names() {
		if string(n) == name {
			return true
		}
	}
	return false
}

func (c *Config) limiterPolicies() map[limiters.Name]limiters.Policy {
	out := make(map[limiters.Name]limiters.Policy, len(c.Policies))
	for name, p := range c.Policies {
		out[limiters.Name(name)] = limiters.Policy{Window: p.Window, Limit: p.Limit}
	}
	return out
}

func (c *Config) spamConfig() spam.Config {
	return spam.Config{
		Window:      c.Spam.Window,
		GlobalLimit: c.Spam.GlobalLimit,
		ActorLimit:  c.Spam.ActorLimit,
		KeyPrefix:   c.KeyPrefix,
	}
}

func (c *Config) validationOptions() validate.Options {
	return validate.Options{
		MaxEmailLength:       c.Validation.MaxEmailLength,
		MaxContentLength:     c.Validation.MaxContentLength,
		ExtraEmailPatterns:   c.Validation.ExtraEmailPatterns,
		ExtraContentPatterns: c.Validation.ExtraContentPatterns,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Policies = make(map[string]PolicyConfig, len(cfg.Policies))
	for k, v := range cfg.Policies {
		out.Policies[k] = v
	}
	out.Validation.ExtraEmailPatterns = append([]string(nil), cfg.Validation.ExtraEmailPatterns...)
	out.Validation.ExtraContentPatterns = append([]string(nil), cfg.Validation.ExtraContentPatterns...)
	return out
}
