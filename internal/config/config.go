package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DataDir       string `yaml:"dataDir"`
	MinimumFreeGB int    `yaml:"minimumFreeGB"`
	Ordered       bool   `yaml:"ordered"`
	SortKeys      bool   `yaml:"sortKeys"`
	OnDestroy     string `yaml:"onDestroy"`
}

// Load reads a YAML config file and fills in defaults for missing fields.
func Load(path string) (Config, error) {
	config := Config{
		DataDir:       "arbor-data",
		MinimumFreeGB: 1,
		Ordered:       true,
		OnDestroy:     "NullifyChildren",
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if config.DataDir == "" {
		config.DataDir = "arbor-data"
	}
	if config.MinimumFreeGB == 0 {
		config.MinimumFreeGB = 1
	}

	return config, nil
}
