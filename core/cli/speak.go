package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	cliContext "github.com/piperbook/piperbook/core/cli/context"
	"github.com/piperbook/piperbook/core/config"
	"github.com/piperbook/piperbook/core/pipeline"
	"github.com/piperbook/piperbook/pkg/engine"
	"github.com/piperbook/piperbook/pkg/signals"
)

type SpeakCMD struct {
	Text string `short:"t" xor:"input" required:"" help:"Text to synthesize" group:"input"`
	File string `short:"f" xor:"input" required:"" type:"path" help:"UTF-8 text file to synthesize" group:"input"`

	Output    string `short:"o" type:"path" help:"Destination of the final audio file (default: the input file name with a .wav extension)"`
	Model     string `short:"m" env:"PIPERBOOK_MODEL" help:"Piper voice model (default: ${defaultModel})"`
	ChunkSize int    `env:"PIPERBOOK_CHUNK_SIZE" help:"Upper bound in bytes for the text handed to the engine in one call (default: ${defaultChunkSize})"`
	Resume    bool   `short:"r" help:"Skip chunks already synthesized by an earlier run of the same input"`
	Force     bool   `help:"Assemble the output even when some chunks are missing or failed"`

	Engine     string `env:"PIPERBOOK_ENGINE" help:"Synthesis engine, one of docker or piper (default: docker)" group:"engine"`
	Image      string `env:"PIPERBOOK_IMAGE" help:"Container image providing the piper binary (default: ${defaultImage})" group:"engine"`
	ModelsPath string `env:"PIPERBOOK_MODELS_PATH" type:"path" help:"Directory with downloaded voice models, mounted read-only into the container" group:"engine"`
	PiperBin   string `env:"PIPERBOOK_PIPER_BIN" help:"Piper executable used by the piper engine (default: piper)" group:"engine"`
	KeepAlive  bool   `env:"PIPERBOOK_KEEP_ALIVE" help:"Start one container for the whole run instead of one per chunk" group:"engine"`

	WorkDir string `env:"PIPERBOOK_WORK_DIR" type:"path" help:"Directory keeping per-run progress and chunk artifacts (default: ${defaultWorkDir})" group:"storage"`
	Config  string `short:"c" env:"PIPERBOOK_CONFIG" type:"path" help:"Settings file (default: ${settingsFile} in the current directory when present)" group:"storage"`
}

func (s *SpeakCMD) Run(ctx *cliContext.Context) error {
	opts := []config.RunOption{
		config.WithModel(s.Model),
		config.WithChunkSize(s.ChunkSize),
		config.WithEngine(s.Engine),
		config.WithImage(s.Image),
		config.WithModelsPath(s.ModelsPath),
		config.WithPiperBin(s.PiperBin),
		config.WithWorkDir(s.WorkDir),
		config.WithText(s.Text),
		config.WithFile(s.File),
		config.WithOutput(s.Output),
	}
	if s.KeepAlive {
		opts = append(opts, config.EnableKeepAlive)
	}
	if s.Resume {
		opts = append(opts, config.EnableResume)
	}
	if s.Force {
		opts = append(opts, config.EnableForce)
	}

	cfg, err := loadSettings(s.Config, opts...)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals.RegisterGracefulTerminationHandler(cancel)

	summary, err := pipeline.New(cfg, eng).Run(runCtx)
	if summary.Total > 0 {
		fmt.Println(summary.Report())
	}
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Run interrupted, re-run with --resume to pick up where it stopped")
	}
	return err
}
