// Package engine invokes the external Piper TTS process, one chunk of text
// per call.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnavailable means the engine cannot run at all, e.g. docker or the
	// piper binary is missing. Fatal for the whole run, nothing is retried.
	ErrUnavailable = errors.New("tts engine unavailable")
	// ErrSynthesis means the engine rejected a single chunk. The run records
	// the failure and continues with the remaining chunks.
	ErrSynthesis = errors.New("synthesis failed")
)

// Engine kinds selectable on the command line.
const (
	KindDocker = "docker"
	KindPiper  = "piper"
)

// DefaultImage is the container image expected to carry the piper binary.
const DefaultImage = "piper-tts-runner"

// Engine renders text chunks to WAV files through one invocation mechanism.
type Engine interface {
	// Preflight verifies the engine can run before any chunk is attempted.
	Preflight(ctx context.Context) error
	// Synthesize renders text into a WAV file at dst.
	Synthesize(ctx context.Context, text string, dst string) error
	// Close releases anything the engine keeps running between chunks.
	Close() error
	// Name identifies the engine in logs and summaries.
	Name() string
}

// Config carries everything needed to construct an engine.
type Config struct {
	Kind       string
	Model      string
	Image      string
	ModelsPath string
	PiperBin   string
	WorkDir    string
	KeepAlive  bool
}

// New builds the engine selected by cfg.Kind, defaulting to docker.
func New(cfg Config) (Engine, error) {
	switch cfg.Kind {
	case "", KindDocker:
		return NewDocker(cfg)
	case KindPiper:
		return NewPiper(cfg)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Kind)
	}
}

// invoke runs a synthesis command with the chunk text on stdin and verifies
// that an artifact actually appeared at dst.
func invoke(ctx context.Context, text, dst, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Str("bin", name).Strs("args", args).Int("text_length", len(text)).Msg("invoking piper")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v: %s", ErrSynthesis, err, strings.TrimSpace(stderr.String()))
	}
	if fi, err := os.Stat(dst); err != nil || fi.Size() == 0 {
		return fmt.Errorf("%w: no audio produced at %s", ErrSynthesis, dst)
	}
	return nil
}
