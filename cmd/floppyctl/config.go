package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the ambient settings that don't belong on every command
// line: default cache budget, default retry policy, and named
// bridge-connection profiles for a physical bridge.
type Config struct {
	CacheBudgetBytes int64                    `yaml:"cache_budget_bytes"`
	RetryPolicy      string                   `yaml:"retry_policy"`
	BridgeProfiles   map[string]BridgeProfile `yaml:"bridge_profiles"`
}

// BridgeProfile names a serial connection to a physical bridge. Nothing
// in this repo dials one — pkg/bridge only defines the Drive interface a
// real driver would implement — but floppyctl still needs somewhere to
// keep the connection details an operator has configured.
type BridgeProfile struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

func defaultConfig() Config {
	return Config{
		CacheBudgetBytes: 1 << 20,
		RetryPolicy:      "abort",
	}
}

// loadConfig reads path if it exists, overlaying its fields onto the
// defaults. A missing file at the default location is not an error.
func loadConfig(path string, isDefault bool) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && isDefault {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
