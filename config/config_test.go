package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadNodeConfig(t *testing.T) {
	path := writeFile(t, "node.yml", `
config:
  operator: op
  instance_salt: "0a0b"
  storage:
    type: leveldb
    directory: ./data
  genesis:
    - address: alice
      amount: 2u
    - address: bob
      amount: "1000"
`)
	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "op", cfg.Operator)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)

	salt, err := cfg.Salt()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, salt)

	allocs, err := cfg.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "2000000000000000000", allocs[0].Amount.Dec())
	assert.Equal(t, uint64(1000), allocs[1].Amount.Uint64())
}

func TestLoadNodeConfigRejectsMissingOperator(t *testing.T) {
	path := writeFile(t, "node.yml", "config:\n  listen_addr: :1\n")
	_, err := LoadNodeConfig(path)
	assert.Error(t, err)
}

func TestLoadLedgerConfigDefaults(t *testing.T) {
	cfg, err := LoadLedgerConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerConfig(), cfg)
}

func TestLoadLedgerConfigOverrides(t *testing.T) {
	path := writeFile(t, "ledger.ini", `
[ledger]
start_paused = true
binding_mode = bearer
two_secrets = false
max_expiration = 48h
benefits_drain = idle
`)
	cfg, err := LoadLedgerConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.StartPaused)
	assert.Equal(t, "bearer", cfg.BindingMode)
	assert.False(t, cfg.TwoSecrets)
	assert.Equal(t, 48*time.Hour, cfg.MaxExpiration)
	assert.Equal(t, "idle", cfg.BenefitsDrain)
	// untouched keys keep their defaults
	assert.Equal(t, "0.01u", cfg.Fee)
	assert.Equal(t, "sequential", cfg.KeyScheme)
}
