// Package config defines the top-level configuration for the chainsyncd
// process, following the teacher's config/config.go structure: a
// mapstructure-tagged Config assembled from defaults, a TOML file, and
// environment overrides.
package config

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/superhow/catapult-server/address"
)

// Default file/directory names, mirroring the teacher's DefaultTendermintDir
// / defaultConfigFileName layout.
var (
	DefaultHomeDir        = ".chainsyncd"
	defaultConfigDir      = "config"
	defaultDataDir        = "data"
	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultDBPath         = filepath.Join(defaultDataDir, "chain.db")
)

// Config is the top-level configuration for a chainsyncd node.
type Config struct {
	BaseConfig `mapstructure:",squash"`

	State      *StateConfig      `mapstructure:"state"`
	Difficulty *DifficultyConfig `mapstructure:"difficulty"`
	Metrics    *MetricsConfig    `mapstructure:"instrumentation"`
}

// DefaultConfig returns a config populated with the process defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
		State:      DefaultStateConfig(),
		Difficulty: DefaultDifficultyConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// SetRoot sets RootDir, the directory that relative paths such as DBPath
// are resolved against; no other field is rewritten.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic checks param bounds across every section.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.State.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [state] section")
	}
	if err := cfg.Difficulty.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [difficulty] section")
	}
	return errors.Wrap(cfg.Metrics.ValidateBasic(), "error in [Metrics] section")
}

// BaseConfig holds top-level, service-independent settings.
type BaseConfig struct {
	// RootDir is the base directory for config and data; set by SetRoot
	// after flags/env/file are all merged, same as the teacher.
	RootDir string `mapstructure:"home"`

	// DBBackend selects the tm-db driver: memdb | goleveldb | boltdb.
	DBBackend string `mapstructure:"db_backend"`

	// DBPath is the block store's database directory, relative to RootDir.
	DBPath string `mapstructure:"db_dir"`

	// LogLevel is one of debug|info|error.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is one of plain|json.
	LogFormat string `mapstructure:"log_format"`
}

// DefaultBaseConfig returns the base section's defaults.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		DBBackend: "goleveldb",
		DBPath:    defaultDBPath,
		LogLevel:  "info",
		LogFormat: "plain",
	}
}

// ValidateBasic checks param bounds.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case "plain", "json":
	default:
		return errors.Errorf("log_format must be 'plain' or 'json', got %q", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "error":
	default:
		return errors.Errorf("log_level must be one of debug|info|error, got %q", cfg.LogLevel)
	}
	if cfg.DBBackend == "" {
		return errors.New("db_backend cannot be empty")
	}
	return nil
}

// StateConfig configures the account-state cache's fixed parameters
// (spec §3 AccountStateCache row).
type StateConfig struct {
	NetworkID           string `mapstructure:"network_id"`
	ImportanceGrouping  uint64 `mapstructure:"importance_grouping"`
	MinHarvesterBalance uint64 `mapstructure:"min_harvester_balance"`
	MaxHarvesterBalance uint64 `mapstructure:"max_harvester_balance"`
	HarvestingMosaicID  uint64 `mapstructure:"harvesting_mosaic_id"`
	CurrencyMosaicID    uint64 `mapstructure:"currency_mosaic_id"`
}

// DefaultStateConfig returns the state section's defaults.
func DefaultStateConfig() *StateConfig {
	return &StateConfig{
		NetworkID:           "testnet",
		ImportanceGrouping:  180,
		MinHarvesterBalance: 10000,
		MaxHarvesterBalance: 4000000000,
		HarvestingMosaicID:  1,
		CurrencyMosaicID:    1,
	}
}

// Network resolves the configured network name to its address.NetworkID.
func (cfg *StateConfig) Network() (address.NetworkID, error) {
	switch cfg.NetworkID {
	case "mainnet":
		return address.NetworkMainnet, nil
	case "testnet":
		return address.NetworkTestnet, nil
	case "private":
		return address.NetworkPrivate, nil
	default:
		return 0, errors.Errorf("unknown network_id %q", cfg.NetworkID)
	}
}

// ValidateBasic checks param bounds.
func (cfg *StateConfig) ValidateBasic() error {
	switch cfg.NetworkID {
	case "mainnet", "testnet", "private":
	default:
		return errors.Errorf("network_id must be one of mainnet|testnet|private, got %q", cfg.NetworkID)
	}
	if cfg.ImportanceGrouping == 0 {
		return errors.New("importance_grouping must be > 0")
	}
	if cfg.MinHarvesterBalance > cfg.MaxHarvesterBalance {
		return errors.New("min_harvester_balance cannot exceed max_harvester_balance")
	}
	return nil
}

// DifficultyConfig configures difficulty checking (spec §3
// BlockDifficultyCache row). BaseDifficulty seeds chainsyncd's averaging
// checker; WindowSize is validated but not read by that checker, which
// averages over difficulty.WindowSize heights.
type DifficultyConfig struct {
	WindowSize     uint64 `mapstructure:"window_size"`
	BaseDifficulty uint64 `mapstructure:"base_difficulty"`
}

// DefaultDifficultyConfig returns the difficulty section's defaults.
func DefaultDifficultyConfig() *DifficultyConfig {
	return &DifficultyConfig{
		WindowSize:     60,
		BaseDifficulty: 100000,
	}
}

// ValidateBasic checks param bounds.
func (cfg *DifficultyConfig) ValidateBasic() error {
	if cfg.WindowSize == 0 {
		return errors.New("window_size must be > 0")
	}
	if cfg.BaseDifficulty == 0 {
		return errors.New("base_difficulty must be > 0")
	}
	return nil
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"prometheus"`
	Namespace string `mapstructure:"namespace"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultMetricsConfig returns the instrumentation section's defaults.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:    false,
		Namespace:  "chainsyncd",
		ListenAddr: "127.0.0.1:26667",
	}
}

// ValidateBasic checks param bounds.
func (cfg *MetricsConfig) ValidateBasic() error {
	if cfg.Enabled && cfg.Namespace == "" {
		return errors.New("namespace cannot be empty when prometheus metrics are enabled")
	}
	return nil
}
