package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/piperbook/piperbook/core/config"
)

// loadSettings resolves the effective configuration for a command: built-in
// defaults, the explicit settings file (or the conventional one next to the
// current directory), then the flag-derived options on top.
func loadSettings(path string, opts ...config.RunOption) (*config.RunConfig, error) {
	if path == "" {
		path = config.FindSettings()
	}
	return config.Load(path, opts...)
}

// inputText is the text a command operates on, inline or read from the
// input file. Hashing this exact string is what ties the chunks, status and
// clean commands to the runs speak creates.
func inputText(cfg *config.RunConfig) (string, error) {
	if cfg.File != "" {
		b, err := os.ReadFile(cfg.File)
		if err != nil {
			return "", fmt.Errorf("cannot read input file %q: %w", cfg.File, err)
		}
		return string(b), nil
	}
	return cfg.Text, nil
}

// preview flattens a chunk onto one line and shortens it for display.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
