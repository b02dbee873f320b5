package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

const bridgeConfigFilename = "bridge.yaml"

// LoadBridgeConfig reads, defaults, and validates the bridge configuration
// file under the project source directory.
func LoadBridgeConfig(projectsDir string) (*eventmodels.BridgeConfigYAML, error) {
	configPath := filepath.Join(projectsDir, "tradecraft", "src", bridgeConfigFilename)

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("LoadBridgeConfig: failed to read %s: %w", configPath, err)
	}

	var cfg eventmodels.BridgeConfigYAML
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("LoadBridgeConfig: failed to unmarshal %s: %w", configPath, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("LoadBridgeConfig: %w", err)
	}

	return &cfg, nil
}
