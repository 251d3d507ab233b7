// Package config loads optional YAML defaults for the server: session
// dimensions, the raw-ring byte bound, the live-renderer debounce interval,
// and default environment overrides merged under each recipe's own. A
// missing file is not an error; a malformed one is — the same contract as
// the teacher's own config.Load/LoadFrom split, whose Load/LoadFrom
// separation is kept as-is so tests can point LoadFrom at a temp path.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the server's optional file-based defaults. Cols and Rows
// are overridden by the command-line flags and override cmd/server's
// built-in defaults; Env is applied to the legacy session cmd/server
// starts from its command-line arguments. RingBytes and LiveDebounceMS are
// parsed but not read by any caller: the ring bound is
// ptysession.RingCapacity and the debounce is liverender.DebounceInterval.
type Config struct {
	Cols           int               `yaml:"cols"`
	Rows           int               `yaml:"rows"`
	RingBytes      int               `yaml:"ring_bytes"`
	LiveDebounceMS int               `yaml:"live_debounce_ms"`
	Env            map[string]string `yaml:"env"`
}

// ConfigDir returns the ptyctl configuration directory (~/.ptyctl/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ptyctl")
	}
	return filepath.Join(home, ".ptyctl")
}

// Load reads the config from ~/.ptyctl/config.yaml. If the file does not
// exist, it returns an empty Config with no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path. If the file does not
// exist, it returns an empty Config with no error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
