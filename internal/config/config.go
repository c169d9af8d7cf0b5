// Package config loads the server configuration from a YAML or TOML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/netswap/boost-engine/internal/engine"
	"github.com/netswap/boost-engine/internal/escrow"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
)

// Config holds all server configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port" toml:"port"`
	} `yaml:"server" toml:"server"`
	Storage struct {
		Backend     string `yaml:"backend" toml:"backend"`
		LevelDBPath string `yaml:"leveldb_path" toml:"leveldb_path"`
		DatabaseURL string `yaml:"database_url" toml:"database_url"`
		RedisURL    string `yaml:"redis_url" toml:"redis_url"`
		CacheTTL    string `yaml:"cache_ttl" toml:"cache_ttl"`
	} `yaml:"storage" toml:"storage"`
	Log struct {
		Level      string `yaml:"level" toml:"level"`
		File       string `yaml:"file" toml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	} `yaml:"log" toml:"log"`
	Genesis struct {
		Owner            string `yaml:"owner" toml:"owner"`
		DevAddr          string `yaml:"dev_addr" toml:"dev_addr"`
		DevPercent       uint64 `yaml:"dev_percent" toml:"dev_percent"`
		RewardToken      string `yaml:"reward_token" toml:"reward_token"`
		DummyToken       string `yaml:"dummy_token" toml:"dummy_token"`
		RewardPerSec     string `yaml:"reward_per_sec" toml:"reward_per_sec"`
		StartTimestamp   uint64 `yaml:"start_timestamp" toml:"start_timestamp"`
		MasterAllocPoint uint64 `yaml:"master_alloc_point" toml:"master_alloc_point"`
	} `yaml:"genesis" toml:"genesis"`
	Escrow struct {
		BaseAsset               string `yaml:"base_asset" toml:"base_asset"`
		VePerSharePerSec        string `yaml:"ve_per_share_per_sec" toml:"ve_per_share_per_sec"`
		SpeedUpVePerSharePerSec string `yaml:"speed_up_ve_per_share_per_sec" toml:"speed_up_ve_per_share_per_sec"`
		SpeedUpThreshold        uint64 `yaml:"speed_up_threshold" toml:"speed_up_threshold"`
		SpeedUpDuration         uint64 `yaml:"speed_up_duration" toml:"speed_up_duration"`
		MaxCapPct               uint64 `yaml:"max_cap_pct" toml:"max_cap_pct"`
	} `yaml:"escrow" toml:"escrow"`
	Keeper struct {
		Enabled bool   `yaml:"enabled" toml:"enabled"`
		Spec    string `yaml:"spec" toml:"spec"`
	} `yaml:"keeper" toml:"keeper"`
}

// Load reads config from path, YAML or TOML by extension, then applies
// environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
		if cfg.Storage.Backend == "" {
			cfg.Storage.Backend = BackendPostgres
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := os.Getenv("LEVELDB_PATH"); v != "" {
		cfg.Storage.LevelDBPath = v
		if cfg.Storage.Backend == "" {
			cfg.Storage.Backend = BackendLevelDB
		}
	}
	if v := os.Getenv("OWNER_ADDRESS"); v != "" {
		cfg.Genesis.Owner = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("KEEPER_SPEC"); v != "" {
		cfg.Keeper.Spec = v
		cfg.Keeper.Enabled = true
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	if cfg.Storage.LevelDBPath == "" {
		cfg.Storage.LevelDBPath = "data/ledger"
	}
	if cfg.Storage.CacheTTL == "" {
		cfg.Storage.CacheTTL = "30s"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Genesis.DevAddr == "" {
		cfg.Genesis.DevAddr = cfg.Genesis.Owner
	}
	if cfg.Genesis.MasterAllocPoint == 0 {
		cfg.Genesis.MasterAllocPoint = 1000
	}
	if cfg.Genesis.DummyToken == "" {
		cfg.Genesis.DummyToken = "0x00000000000000000000000000000000000000d0"
	}
	if cfg.Escrow.BaseAsset == "" {
		cfg.Escrow.BaseAsset = cfg.Genesis.RewardToken
	}
	if cfg.Escrow.SpeedUpThreshold == 0 {
		cfg.Escrow.SpeedUpThreshold = 5
	}
	if cfg.Escrow.SpeedUpDuration == 0 {
		cfg.Escrow.SpeedUpDuration = 15 * 24 * 60 * 60
	}
	if cfg.Escrow.MaxCapPct == 0 {
		cfg.Escrow.MaxCapPct = 10000
	}
	if cfg.Keeper.Spec == "" {
		cfg.Keeper.Spec = "@every 1m"
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port %q is not a number", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendLevelDB:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, leveldb, postgres", c.Storage.Backend)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.GenesisSpec(); err != nil {
		return err
	}
	return nil
}

// CacheTTL returns the Redis cache entry lifetime.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Storage.CacheTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("storage.cache_ttl %q is not a positive duration", c.Storage.CacheTTL)
	}
	return d, nil
}

// GenesisSpec converts the genesis and escrow sections into an engine
// deployment.
func (c *Config) GenesisSpec() (engine.Genesis, error) {
	var g engine.Genesis
	var err error
	if g.Owner, err = address("genesis.owner", c.Genesis.Owner); err != nil {
		return g, err
	}
	if g.DevAddr, err = address("genesis.dev_addr", c.Genesis.DevAddr); err != nil {
		return g, err
	}
	if g.RewardToken, err = address("genesis.reward_token", c.Genesis.RewardToken); err != nil {
		return g, err
	}
	if g.DummyToken, err = address("genesis.dummy_token", c.Genesis.DummyToken); err != nil {
		return g, err
	}
	if g.RewardPerSec, err = quantity("genesis.reward_per_sec", c.Genesis.RewardPerSec); err != nil {
		return g, err
	}
	g.DevPercent = c.Genesis.DevPercent
	g.StartTimestamp = c.Genesis.StartTimestamp
	g.MasterAllocPoint = c.Genesis.MasterAllocPoint

	p := escrow.Params{
		SpeedUpThreshold: c.Escrow.SpeedUpThreshold,
		SpeedUpDuration:  c.Escrow.SpeedUpDuration,
		MaxCapPct:        c.Escrow.MaxCapPct,
	}
	if p.BaseAsset, err = address("escrow.base_asset", c.Escrow.BaseAsset); err != nil {
		return g, err
	}
	if p.VePerSharePerSec, err = quantity("escrow.ve_per_share_per_sec", c.Escrow.VePerSharePerSec); err != nil {
		return g, err
	}
	if p.SpeedUpVePerSharePerSec, err = quantity("escrow.speed_up_ve_per_share_per_sec", c.Escrow.SpeedUpVePerSharePerSec); err != nil {
		return g, err
	}
	g.Escrow = p
	return g, nil
}

func address(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s %q is not an address", field, s)
	}
	a := common.HexToAddress(s)
	if a == (common.Address{}) {
		return a, fmt.Errorf("%s is the zero address", field)
	}
	return a, nil
}

// quantity reads a base-unit integer, or whole tokens when s contains a
// decimal point.
func quantity(field, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	if strings.Contains(s, ".") {
		v, err := model.ParseDisplay(s)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", field, s, err)
		}
		return v, nil
	}
	v, err := fixedpoint.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return v, nil
}
