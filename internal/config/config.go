// Package config loads the demo CLI's YAML configuration, grounded on
// imReese-NexusKV's pkg/config: read the file, unmarshal with
// gopkg.in/yaml.v3, and fill in defaults for anything left unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultFlushThreshold is the MemTable size, in bytes, at which the demo
// CLI flushes to a new SSTable generation if the config file doesn't say
// otherwise.
const defaultFlushThreshold = 1 << 20 // 1 MiB

const defaultStorageDir = "./lsmkv-data"

// Config is the demo CLI's configuration surface: where to keep SSTable
// generations and when to flush them.
type Config struct {
	StorageDir     string `yaml:"storage_dir"`
	FlushThreshold int64  `yaml:"flush_threshold"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		StorageDir:     defaultStorageDir,
		FlushThreshold: defaultFlushThreshold,
	}
}

// Load reads and parses the YAML file at path, then fills any zero-valued
// field with its default. A missing path is not an error: callers pass an
// empty path to mean "use defaults".
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = defaultStorageDir
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = defaultFlushThreshold
	}
	return cfg, nil
}
