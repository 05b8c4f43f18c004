package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// defaultDirPerm mirrors the teacher's directory permission for config/data.
const defaultDirPerm = 0700

// EnsureRoot creates the root, config, and data directories if they don't
// already exist.
func EnsureRoot(rootDir string) error {
	if err := os.MkdirAll(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(rootDir, defaultDataDir), defaultDirPerm)
}

// WriteConfigFile renders cfg as TOML and writes it under rootDir's config
// directory, creating the file only if one is not already present.
func WriteConfigFile(rootDir string, cfg *Config) error {
	path := filepath.Join(rootDir, defaultConfigFilePath)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// LoadConfigFile reads and decodes the TOML file at rootDir's default
// config path, falling back to DefaultConfig if the file does not exist.
func LoadConfigFile(rootDir string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(rootDir, defaultConfigFilePath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg.SetRoot(rootDir), nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg.SetRoot(rootDir), nil
}
