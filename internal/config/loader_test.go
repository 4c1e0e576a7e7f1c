package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/waitgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(Options{DotEnv: noDotEnv(t)})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, AuditSinkLogger, cfg.Audit.Sink)
	assert.False(t, cfg.Turnstile.Enabled())
	assert.False(t, cfg.Admin.Enabled())

	gc := cfg.GateConfig()
	assert.Equal(t, waitgate.DefaultConfig().Policies, gc.Policies)
	assert.Equal(t, time.Hour, gc.Spam.Window)
	assert.Equal(t, 5, gc.Spam.GlobalLimit)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waitgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
redis:
  key_prefix: "prod:"
policies:
  signup-by-ip:
    window: 2m
    limit: 7
spam:
  actor_limit: 4
validation:
  extra_email_patterns:
    - "(?i)@example\\.invalid$"
`), 0o600))

	t.Setenv("WAITGATE_SERVER_PORT", "9100")
	t.Setenv("WAITGATE_POLICIES_WEBHOOK_GLOBAL_LIMIT", "99")

	cfg, err := Load(Options{File: path, DotEnv: noDotEnv(t)})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	gc := cfg.GateConfig()
	assert.Equal(t, "prod:", gc.KeyPrefix)
	assert.Equal(t, waitgate.PolicyConfig{Window: 2 * time.Minute, Limit: 7}, gc.Policies[waitgate.PolicySignupByIP])
	assert.Equal(t, 99, gc.Policies[waitgate.PolicyWebhookGlobal].Limit)
	assert.Equal(t, 4, gc.Spam.ActorLimit)
	assert.Equal(t, 5, gc.Spam.GlobalLimit)
	assert.Equal(t, []string{`(?i)@example\.invalid$`}, gc.Validation.ExtraEmailPatterns)
}

func TestLoadDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WAITGATE_DISCORD_WEBHOOK_URL=https://discord.example/hook\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("WAITGATE_DISCORD_WEBHOOK_URL") })

	cfg, err := Load(Options{DotEnv: envFile})
	require.NoError(t, err)
	assert.Equal(t, "https://discord.example/hook", cfg.Discord.WebhookURL)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(Options{
		DotEnv:    noDotEnv(t),
		Overrides: map[string]any{"audit.sink": AuditSinkNone},
	})
	require.NoError(t, err)
	assert.False(t, cfg.GateConfig().Audit.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdir(t, t.TempDir())

	cases := map[string]map[string]any{
		"port":          {"server.port": 0},
		"driver":        {"database.driver": "mysql"},
		"log format":    {"logging.format": "xml"},
		"audit sink":    {"audit.sink": "kafka"},
		"audit list":    {"audit.sink": AuditSinkRedis, "audit.list_key": ""},
		"short key":     {"admin.signing_key": "too-short"},
		"policy limit":  {"policies.signup-by-email.limit": 0},
		"bad pattern":   {"validation.extra_content_patterns": []string{"("}},
		"spam disabled": {"spam.global_limit": 0},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(Options{DotEnv: noDotEnv(t), Overrides: overrides})
			require.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml"), DotEnv: noDotEnv(t)})
	require.Error(t, err)
}
