// Package pipeline sequences a conversion run: chunk the input, synthesize
// every chunk that still needs it, record progress as it goes, and join the
// artifacts into the final audio file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/piperbook/piperbook/core/config"
	"github.com/piperbook/piperbook/core/schema"
	"github.com/piperbook/piperbook/pkg/audio"
	"github.com/piperbook/piperbook/pkg/chunker"
	"github.com/piperbook/piperbook/pkg/engine"
	"github.com/piperbook/piperbook/pkg/progress"
	"github.com/piperbook/piperbook/pkg/utils"
)

var (
	// ErrInput means the input was missing, unreadable or empty. Nothing was
	// attempted.
	ErrInput = errors.New("invalid input")
	// ErrIncomplete means assembly was refused because chunks are missing or
	// failed. Artifacts and progress stay on disk for a later resume.
	ErrIncomplete = errors.New("incomplete chunk set")
)

// Runner executes one conversion run.
type Runner struct {
	cfg *config.RunConfig
	eng engine.Engine
}

// New wires a runner from its settings and a constructed engine.
func New(cfg *config.RunConfig, eng engine.Engine) *Runner {
	return &Runner{cfg: cfg, eng: eng}
}

// Run drives the whole pipeline and reports what happened. The summary is
// meaningful even when err is non-nil, callers print it either way.
func (r *Runner) Run(ctx context.Context) (schema.RunSummary, error) {
	summary := schema.RunSummary{Output: r.cfg.OutputPath()}

	if err := r.cfg.Validate(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrInput, err)
	}
	text, err := r.readInput()
	if err != nil {
		return summary, err
	}

	chunks, err := chunker.Split(text, r.cfg.ChunkSize)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrInput, err)
	}
	if len(chunks) == 0 {
		return summary, fmt.Errorf("%w: input text is empty", ErrInput)
	}

	manifest := schema.RunManifest{
		ContentSHA: utils.SHA256Bytes([]byte(text)),
		Model:      r.cfg.Model,
		ChunkSize:  r.cfg.ChunkSize,
		Total:      len(chunks),
	}
	summary.RunKey = manifest.Key()
	summary.Total = len(chunks)

	runDir := filepath.Join(r.cfg.WorkDir, summary.RunKey)
	if err := os.MkdirAll(runDir, 0750); err != nil {
		return summary, err
	}

	store, err := progress.Open(filepath.Join(runDir, progress.FileName), manifest)
	if err != nil {
		return summary, err
	}
	if !r.cfg.Resume {
		if err := store.Reset(); err != nil {
			return summary, err
		}
	}

	defer r.eng.Close()
	if err := r.eng.Preflight(ctx); err != nil {
		return summary, err
	}

	log.Info().
		Str("model", r.cfg.Model).
		Str("engine", r.eng.Name()).
		Int("chunks", len(chunks)).
		Int("text_length", len(text)).
		Msg("starting synthesis")

	if err := r.synthesize(ctx, chunks, runDir, store, &summary); err != nil {
		return summary, err
	}

	return r.assemble(ctx, chunks, runDir, store, summary)
}

// synthesize walks the chunks in index order, skipping the ones already done
// when resuming. A failing chunk is recorded and the run moves on, only
// cancellation stops the loop early.
func (r *Runner) synthesize(ctx context.Context, chunks []schema.Chunk, runDir string, store *progress.Store, summary *schema.RunSummary) error {
	bar := progressbar.NewOptions(
		len(chunks),
		progressbar.OptionSetDescription("synthesizing"),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
	)

	for _, c := range chunks {
		artifact := filepath.Join(runDir, artifactName(c.Index))

		if r.cfg.Resume && store.IsDone(c.Index) && fileExists(artifact) {
			summary.Skipped++
			if err := bar.Add(1); err != nil {
				log.Debug().Err(err).Msg("error while updating progress bar")
			}
			continue
		}

		err := r.eng.Synthesize(ctx, c.Text, artifact)
		if ctx.Err() != nil {
			// the in-flight chunk is lost, everything recorded so far
			// survives for --resume
			return ctx.Err()
		}
		if err != nil {
			log.Error().Err(err).Int("chunk", c.Index).Msg("chunk failed")
			summary.Failed = append(summary.Failed, c.Index)
			if rerr := store.Failed(c.Index, err); rerr != nil {
				return rerr
			}
			if err := bar.Add(1); err != nil {
				log.Debug().Err(err).Msg("error while updating progress bar")
			}
			continue
		}

		summary.Synthesized++
		if err := store.Done(c.Index, artifactName(c.Index)); err != nil {
			return err
		}
		if err := bar.Add(1); err != nil {
			log.Debug().Err(err).Msg("error while updating progress bar")
		}
	}
	return nil
}

// assemble joins the done artifacts into the output file. Without --force
// it refuses while any chunk is missing, naming the gaps.
func (r *Runner) assemble(ctx context.Context, chunks []schema.Chunk, runDir string, store *progress.Store, summary schema.RunSummary) (schema.RunSummary, error) {
	var artifacts []string
	var missing []int
	results := store.Results()
	for _, c := range chunks {
		artifact := filepath.Join(runDir, artifactName(c.Index))
		res, ok := results[c.Index]
		if !ok || res.Status != schema.StatusDone || !fileExists(artifact) {
			missing = append(missing, c.Index)
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	if len(missing) > 0 && !r.cfg.Force {
		return summary, fmt.Errorf("%w: chunks %v are not done, re-run with --resume to retry or --force to assemble without them", ErrIncomplete, missing)
	}
	if len(artifacts) == 0 {
		return summary, fmt.Errorf("%w: no chunks to assemble", ErrIncomplete)
	}
	if len(missing) > 0 {
		log.Warn().Ints("chunks", missing).Msg("assembling without failed chunks, the output will have gaps")
	}

	if err := audio.Concat(ctx, artifacts, summary.Output); err != nil {
		return summary, fmt.Errorf("assembling %s: %w", summary.Output, err)
	}
	summary.Assembled = true
	return summary, nil
}

// readInput resolves the text to synthesize from the configured source.
func (r *Runner) readInput() (string, error) {
	switch {
	case r.cfg.Text != "" && r.cfg.File != "":
		return "", fmt.Errorf("%w: --text and --file are mutually exclusive", ErrInput)
	case r.cfg.File != "":
		b, err := os.ReadFile(r.cfg.File)
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrInput, r.cfg.File, err)
		}
		return string(b), nil
	case strings.TrimSpace(r.cfg.Text) != "":
		return r.cfg.Text, nil
	default:
		return "", fmt.Errorf("%w: no input text, pass --text or --file", ErrInput)
	}
}

func artifactName(index int) string {
	return fmt.Sprintf("chunk_%d.wav", index)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}
