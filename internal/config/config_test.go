package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/fixedpoint"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_URL", "LEVELDB_PATH", "OWNER_ADDRESS", "LOG_FILE", "LOG_LEVEL", "KEEPER_SPEC"} {
		t.Setenv(k, "")
	}
}

func write(t *testing.T, name, body string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const yamlConfig = `
server:
  port: "9090"
storage:
  backend: leveldb
  leveldb_path: /tmp/ledger
genesis:
  owner: "0x00000000000000000000000000000000000000e0"
  reward_token: "0x0000000000000000000000000000000000004e77"
  reward_per_sec: "1.5"
  dev_percent: 100
  start_timestamp: 1700000000
escrow:
  ve_per_share_per_sec: "3170979198376"
  speed_up_ve_per_share_per_sec: "3170979198376"
  max_cap_pct: 20000
keeper:
  enabled: true
  spec: "@every 30s"
`

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(write(t, "config.yaml", yamlConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendLevelDB, cfg.Storage.Backend)
	assert.Equal(t, "@every 30s", cfg.Keeper.Spec)
	// Defaults fill what the file leaves out.
	assert.Equal(t, cfg.Genesis.Owner, cfg.Genesis.DevAddr)
	assert.Equal(t, cfg.Genesis.RewardToken, cfg.Escrow.BaseAsset)
	assert.Equal(t, uint64(5), cfg.Escrow.SpeedUpThreshold)

	g, err := cfg.GenesisSpec()
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", g.RewardPerSec.Dec())
	assert.Equal(t, uint64(100), g.DevPercent)
	assert.Equal(t, uint64(1000), g.MasterAllocPoint)
	assert.Equal(t, uint64(20000), g.Escrow.MaxCapPct)
	assert.Equal(t, g.RewardToken, g.Escrow.BaseAsset)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := write(t, "config.toml", `
[server]
port = "7070"

[genesis]
owner = "0x00000000000000000000000000000000000000e0"
reward_token = "0x0000000000000000000000000000000000004e77"
reward_per_sec = "100"

[escrow]
ve_per_share_per_sec = "1000000000000000000"
speed_up_ve_per_share_per_sec = "1000000000000000000"
speed_up_duration = 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)

	g, err := cfg.GenesisSpec()
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Ether(1), g.Escrow.VePerSharePerSec)
	assert.Equal(t, uint64(50), g.Escrow.SpeedUpDuration)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "6060")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("OWNER_ADDRESS", "0x00000000000000000000000000000000000000e1")
	t.Setenv("KEEPER_SPEC", "@every 5m")

	cfg, err := Load(write(t, "config.yaml", yamlConfig))
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
	assert.Equal(t, BackendLevelDB, cfg.Storage.Backend, "file backend wins over DATABASE_URL")
	assert.Equal(t, "postgres://localhost/ledger", cfg.Storage.DatabaseURL)
	assert.Equal(t, "0x00000000000000000000000000000000000000e1", cfg.Genesis.Owner)
	assert.Equal(t, "@every 5m", cfg.Keeper.Spec)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Error(t, cfg.Validate(), "no owner configured")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := map[string]func(c *Config){
		"bad port":          func(c *Config) { c.Server.Port = "http" },
		"unknown backend":   func(c *Config) { c.Storage.Backend = "sqlite" },
		"postgres no url":   func(c *Config) { c.Storage.Backend = BackendPostgres },
		"bad ttl":           func(c *Config) { c.Storage.CacheTTL = "soon" },
		"bad owner":         func(c *Config) { c.Genesis.Owner = "owner" },
		"zero reward token": func(c *Config) { c.Genesis.RewardToken = "0x0000000000000000000000000000000000000000" },
		"bad rate":          func(c *Config) { c.Genesis.RewardPerSec = "fast" },
		"missing ve rate":   func(c *Config) { c.Escrow.VePerSharePerSec = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(write(t, "config.yaml", yamlConfig))
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUnsupportedExtension(t *testing.T) {
	clearEnv(t)
	_, err := Load(write(t, "config.json", `{}`))
	assert.Error(t, err)
}
