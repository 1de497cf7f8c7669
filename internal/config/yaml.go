package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RenderYAML serializes the effective configuration as YAML. Secret fields
// are excluded by their yaml tags so the output is safe to print.
func (c *Config) RenderYAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	return out, nil
}

// ParseConfigFromYAML parses a configuration document from raw YAML bytes.
// Used for config file validation without going through viper.
func ParseConfigFromYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &config, nil
}
