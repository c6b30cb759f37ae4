package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	cliContext "github.com/piperbook/piperbook/core/cli/context"
	"github.com/piperbook/piperbook/core/config"
	"github.com/piperbook/piperbook/core/schema"
	"github.com/piperbook/piperbook/pkg/progress"
	"github.com/piperbook/piperbook/pkg/utils"
)

type StatusCMD struct {
	Text string `short:"t" xor:"input" required:"" help:"Text of the run to look up" group:"input"`
	File string `short:"f" xor:"input" required:"" type:"path" help:"Input file of the run to look up" group:"input"`

	Model     string `short:"m" env:"PIPERBOOK_MODEL" help:"Voice model of the run (default: ${defaultModel})"`
	ChunkSize int    `env:"PIPERBOOK_CHUNK_SIZE" help:"Chunk bound of the run (default: ${defaultChunkSize})"`
	WorkDir   string `env:"PIPERBOOK_WORK_DIR" type:"path" help:"Directory keeping per-run progress and chunk artifacts (default: ${defaultWorkDir})" group:"storage"`
	Config    string `short:"c" env:"PIPERBOOK_CONFIG" type:"path" help:"Settings file (default: ${settingsFile} in the current directory when present)" group:"storage"`
}

func (s *StatusCMD) Run(ctx *cliContext.Context) error {
	cfg, err := loadSettings(s.Config,
		config.WithModel(s.Model),
		config.WithChunkSize(s.ChunkSize),
		config.WithWorkDir(s.WorkDir),
		config.WithText(s.Text),
		config.WithFile(s.File),
	)
	if err != nil {
		return err
	}

	text, err := inputText(cfg)
	if err != nil {
		return err
	}

	manifest := schema.RunManifest{
		ContentSHA: utils.SHA256Bytes([]byte(text)),
		Model:      cfg.Model,
		ChunkSize:  cfg.ChunkSize,
	}
	path := filepath.Join(cfg.WorkDir, manifest.Key(), progress.FileName)

	rec, err := progress.Inspect(path)
	if os.IsNotExist(err) {
		fmt.Printf("run %s: no saved progress\n", manifest.Key())
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.Manifest.Matches(manifest) {
		return fmt.Errorf("%w: %s belongs to a different run", progress.ErrCorrupt, path)
	}

	var done, failed []int
	for idx, res := range rec.Results {
		switch res.Status {
		case schema.StatusDone:
			done = append(done, idx)
		case schema.StatusFailed:
			failed = append(failed, idx)
		}
	}
	sort.Ints(done)
	sort.Ints(failed)

	fmt.Printf("run %s: %d/%d chunks done", manifest.Key(), len(done), rec.Manifest.Total)
	if len(failed) > 0 {
		fmt.Printf(", %d failed: %v", len(failed), failed)
	}
	fmt.Println()
	fmt.Printf("progress file: %s\n", path)
	fmt.Printf("last update: %s\n", rec.UpdatedAt.Format(time.RFC3339))
	return nil
}
