package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GlobalConfig holds per-user defaults shared by every project
// (stored in ~/.casino-deployer/config.yaml)
type GlobalConfig struct {
	RPCURL          string `yaml:"rpc_url,omitempty"`
	EtherscanAPIKey string `yaml:"etherscan_api_key,omitempty"`
	PushgatewayURL  string `yaml:"pushgateway_url,omitempty"`
}

// ReadGlobal reads the global config file
func ReadGlobal(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var g GlobalConfig
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &g, nil
}

// LoadWithGlobal is Load with the global file applied between the
// defaults and the project file. Either path may be empty or missing.
func LoadWithGlobal(globalPath, projectPath string) (*Config, error) {
	cfg := Defaults()

	if globalPath != "" {
		g, err := ReadGlobal(globalPath)
		switch {
		case err == nil:
			setString(&cfg.Network.RPCURL, g.RPCURL)
			setString(&cfg.Verification.APIKey, g.EtherscanAPIKey)
			setString(&cfg.Metrics.PushgatewayURL, g.PushgatewayURL)
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if projectPath != "" {
		if err := applyFile(cfg, projectPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnv(cfg)

	return cfg, nil
}
