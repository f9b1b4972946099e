// Package config holds the persistent settings for the supervisor.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the flat settings struct persisted to ~/.vigil/config.yaml.
// All paths default relative to the storage root the supervisor runs from.
type Config struct {
	// BinariesDir contains bitcoind, bitcoin-cli, electrs, etc.
	BinariesDir string `yaml:"binaries_dir"`
	// NodeDataDir holds bitcoin.conf, chainstate and blocks.
	NodeDataDir string `yaml:"node_data_dir"`
	// IndexerDBDir is the electrs database directory.
	IndexerDBDir string `yaml:"indexer_db_dir"`
	// DownloadsDir is scanned for new versioned builds.
	DownloadsDir string `yaml:"downloads_dir"`
}

// DefaultPath returns the default config file path: ~/.vigil/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vigil", "config.yaml")
}

// Default derives sensible defaults from the storage root directory.
func Default(root string) *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		BinariesDir:  filepath.Join(root, "Binaries"),
		NodeDataDir:  filepath.Join(root, "BitcoinChain"),
		IndexerDBDir: filepath.Join(root, "ElectrsDB"),
		DownloadsDir: filepath.Join(home, "Downloads", "bitcoin_builds"),
	}
}

// Load reads the YAML config at path, filling unset fields from
// Default(root). A missing file returns the defaults with no error.
func Load(path, root string) (*Config, error) {
	cfg := Default(root)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if loaded.BinariesDir != "" {
		cfg.BinariesDir = loaded.BinariesDir
	}
	if loaded.NodeDataDir != "" {
		cfg.NodeDataDir = loaded.NodeDataDir
	}
	if loaded.IndexerDBDir != "" {
		cfg.IndexerDBDir = loaded.IndexerDBDir
	}
	if loaded.DownloadsDir != "" {
		cfg.DownloadsDir = loaded.DownloadsDir
	}
	return cfg, nil
}

// Save writes the config as YAML via a temp file and atomic rename.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}
