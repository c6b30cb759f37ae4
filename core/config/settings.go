package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// SettingsFileName is the settings file picked up from the working directory
// when no --config flag is given.
const SettingsFileName = "piperbook.yaml"

// Load builds the effective configuration: built-in defaults, overridden by
// the settings file at path (when not empty), overridden by the options
// derived from command line flags.
func Load(path string, opts ...RunOption) (*RunConfig, error) {
	cfg := Default()
	if path != "" {
		file, err := readSettingsFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg, nil
}

// FindSettings returns the conventional settings file next to the current
// working directory, or an empty string when there is none.
func FindSettings() string {
	if _, err := os.Stat(SettingsFileName); err == nil {
		return SettingsFileName
	}
	return ""
}

func readSettingsFile(file string) (*RunConfig, error) {
	c := &RunConfig{}
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read settings file %q: %w", file, err)
	}
	if err := yaml.Unmarshal(f, c); err != nil {
		return nil, fmt.Errorf("cannot unmarshal settings file %q: %w", file, err)
	}
	return c, nil
}
