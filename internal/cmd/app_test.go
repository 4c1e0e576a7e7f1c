package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/waitgate/internal/config"
	"github.com/MrEthical07/waitgate/waitlist"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppNamespacesEveryRedisKey(t *testing.T) {
	chdir(t, t.TempDir())
	mr := miniredis.RunT(t)

	cfg, err := config.Load(config.Options{
		DotEnv: filepath.Join(t.TempDir(), "missing.env"),
		Overrides: map[string]any{
			"redis.url":        "redis://" + mr.Addr(),
			"redis.key_prefix": "tenant-a:",
			"database.driver":  "sqlite3",
			"database.dsn":     ":memory:",
			"audit.sink":       config.AuditSinkRedis,
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	res, err := a.waitlist.Join(ctx, waitlist.JoinRequest{IP: "203.0.113.7", Email: "ada@example.com"})
	require.NoError(t, err)
	require.True(t, res.Decision.Allowed, res.Decision.Reason)
	a.waitlist.Stats(ctx)
	a.Close()

	keys := mr.Keys()
	assert.Contains(t, keys, "tenant-a:"+waitlist.DefaultStatsKey)
	assert.Contains(t, keys, "tenant-a:"+waitlist.DefaultAnalyticsKey)
	assert.Contains(t, keys, "tenant-a:audit_events")
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "tenant-a:"), "key %q escaped the prefix", k)
	}
}
