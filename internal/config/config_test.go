package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  prefix: test
match:
  duration: 90s
  totalQuestions: 5
  kFactor: 24
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "test", cfg.Redis.Prefix)
	assert.Equal(t, 90*time.Second, Duration(cfg.Match.Duration, DefaultMatchDuration))
	assert.Equal(t, 5, Int(cfg.Match.TotalQuestions, DefaultTotalQuestions))
	assert.Equal(t, 24, cfg.Match.KFactor)
	assert.Equal(t, DefaultBroadcastInterval, Duration(cfg.Match.BroadcastInterval, DefaultBroadcastInterval))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("garbage", time.Minute))
	assert.Equal(t, time.Minute, Duration("-5s", time.Minute))
	assert.Equal(t, 3*time.Second, Duration("3s", time.Minute))
}
