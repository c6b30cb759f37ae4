package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Piper runs a piper binary installed on the host. Useful when the voice
// models live locally and no container runtime is around.
type Piper struct {
	cfg Config
}

// NewPiper validates cfg and returns a local-binary engine.
func NewPiper(cfg Config) (*Piper, error) {
	if cfg.Model == "" {
		return nil, errors.New("no voice model configured")
	}
	if cfg.PiperBin == "" {
		cfg.PiperBin = "piper"
	}
	return &Piper{cfg: cfg}, nil
}

func (p *Piper) Name() string {
	return KindPiper
}

func (p *Piper) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath(p.cfg.PiperBin); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, p.cfg.PiperBin)
	}
	if p.cfg.ModelsPath != "" {
		if _, err := os.Stat(p.modelPath()); err != nil {
			return fmt.Errorf("%w: voice model %s not found", ErrUnavailable, p.modelPath())
		}
	}
	return nil
}

func (p *Piper) Synthesize(ctx context.Context, text, dst string) error {
	return invoke(ctx, text, dst, p.cfg.PiperBin, "--model", p.modelPath(), "--output_file", dst)
}

func (p *Piper) Close() error {
	return nil
}

// modelPath resolves the voice model to an onnx file under ModelsPath when
// one is configured, otherwise the bare name is handed to piper as is.
func (p *Piper) modelPath() string {
	if p.cfg.ModelsPath == "" {
		return p.cfg.Model
	}
	name := p.cfg.Model
	if !strings.HasSuffix(name, ".onnx") {
		name += ".onnx"
	}
	return filepath.Join(p.cfg.ModelsPath, name)
}
