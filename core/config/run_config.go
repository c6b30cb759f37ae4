package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piperbook/piperbook/pkg/engine"
)

// Built-in defaults, overridable by the settings file and the command line.
const (
	DefaultModel     = "en_GB-northern_english_male-medium"
	DefaultChunkSize = 2000
	DefaultWorkDir   = ".piperbook"
)

// RunConfig collects everything one conversion run needs. The yaml-tagged
// fields can come from the settings file, the rest is per-invocation only.
type RunConfig struct {
	Model      string `yaml:"model"`
	ChunkSize  int    `yaml:"chunk_size"`
	Engine     string `yaml:"engine"`
	Image      string `yaml:"image"`
	ModelsPath string `yaml:"models_path"`
	PiperBin   string `yaml:"piper_bin"`
	WorkDir    string `yaml:"work_dir"`
	KeepAlive  bool   `yaml:"keep_alive"`

	Text   string `yaml:"-"`
	File   string `yaml:"-"`
	Output string `yaml:"-"`
	Resume bool   `yaml:"-"`
	Force  bool   `yaml:"-"`
}

// RunOption mutates a RunConfig during Load. Options built from empty flag
// values leave the current setting alone so file values and defaults
// survive.
type RunOption func(*RunConfig)

func WithModel(model string) RunOption {
	return func(c *RunConfig) {
		if model != "" {
			c.Model = model
		}
	}
}

func WithChunkSize(size int) RunOption {
	return func(c *RunConfig) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

func WithEngine(kind string) RunOption {
	return func(c *RunConfig) {
		if kind != "" {
			c.Engine = kind
		}
	}
}

func WithImage(image string) RunOption {
	return func(c *RunConfig) {
		if image != "" {
			c.Image = image
		}
	}
}

func WithModelsPath(path string) RunOption {
	return func(c *RunConfig) {
		if path != "" {
			c.ModelsPath = path
		}
	}
}

func WithPiperBin(bin string) RunOption {
	return func(c *RunConfig) {
		if bin != "" {
			c.PiperBin = bin
		}
	}
}

func WithWorkDir(dir string) RunOption {
	return func(c *RunConfig) {
		if dir != "" {
			c.WorkDir = dir
		}
	}
}

func WithText(text string) RunOption {
	return func(c *RunConfig) {
		c.Text = text
	}
}

func WithFile(file string) RunOption {
	return func(c *RunConfig) {
		c.File = file
	}
}

func WithOutput(output string) RunOption {
	return func(c *RunConfig) {
		c.Output = output
	}
}

var EnableKeepAlive = func(c *RunConfig) {
	c.KeepAlive = true
}

var EnableResume = func(c *RunConfig) {
	c.Resume = true
}

var EnableForce = func(c *RunConfig) {
	c.Force = true
}

// Default returns the built-in settings.
func Default() *RunConfig {
	return &RunConfig{
		Model:     DefaultModel,
		ChunkSize: DefaultChunkSize,
		Engine:    engine.KindDocker,
		Image:     engine.DefaultImage,
		WorkDir:   DefaultWorkDir,
	}
}

// Validate rejects configurations no run could work with.
func (c *RunConfig) Validate() error {
	if c.Model == "" {
		return errors.New("no voice model configured")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	switch c.Engine {
	case engine.KindDocker, engine.KindPiper:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	return nil
}

// OutputPath is the destination of the final audio file. When no output was
// given it is derived from the input file name, or falls back to output.wav
// for inline text.
func (c *RunConfig) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	if c.File != "" {
		base := filepath.Base(c.File)
		return strings.TrimSuffix(base, filepath.Ext(base)) + ".wav"
	}
	return "output.wav"
}

// EngineConfig maps the run settings onto an engine configuration.
func (c *RunConfig) EngineConfig() engine.Config {
	return engine.Config{
		Kind:       c.Engine,
		Model:      c.Model,
		Image:      c.Image,
		ModelsPath: c.ModelsPath,
		PiperBin:   c.PiperBin,
		WorkDir:    c.WorkDir,
		KeepAlive:  c.KeepAlive,
	}
}
