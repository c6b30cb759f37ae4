package cli

import (
	"fmt"
	"os"
	"path/filepath"

	cliContext "github.com/piperbook/piperbook/core/cli/context"
	"github.com/piperbook/piperbook/core/config"
	"github.com/piperbook/piperbook/core/schema"
	"github.com/piperbook/piperbook/pkg/utils"
)

type CleanCMD struct {
	Text string `short:"t" xor:"input" required:"" help:"Text of the run to clean" group:"input"`
	File string `short:"f" xor:"input" required:"" type:"path" help:"Input file of the run to clean" group:"input"`
	All  bool   `xor:"input" required:"" help:"Remove every saved run instead of a single one" group:"input"`

	Model     string `short:"m" env:"PIPERBOOK_MODEL" help:"Voice model of the run (default: ${defaultModel})"`
	ChunkSize int    `env:"PIPERBOOK_CHUNK_SIZE" help:"Chunk bound of the run (default: ${defaultChunkSize})"`
	WorkDir   string `env:"PIPERBOOK_WORK_DIR" type:"path" help:"Directory keeping per-run progress and chunk artifacts (default: ${defaultWorkDir})" group:"storage"`
	Config    string `short:"c" env:"PIPERBOOK_CONFIG" type:"path" help:"Settings file (default: ${settingsFile} in the current directory when present)" group:"storage"`
}

func (c *CleanCMD) Run(ctx *cliContext.Context) error {
	cfg, err := loadSettings(c.Config,
		config.WithModel(c.Model),
		config.WithChunkSize(c.ChunkSize),
		config.WithWorkDir(c.WorkDir),
		config.WithText(c.Text),
		config.WithFile(c.File),
	)
	if err != nil {
		return err
	}

	if c.All {
		return cleanAll(cfg.WorkDir)
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
	return cleanRun(cfg.WorkDir, manifest.Key())
}

func cleanRun(workDir, key string) error {
	if err := utils.VerifyPath(key, workDir); err != nil {
		return err
	}
	runDir := filepath.Join(workDir, key)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		fmt.Printf("run %s: nothing to clean\n", key)
		return nil
	}
	if err := os.RemoveAll(runDir); err != nil {
		return err
	}
	fmt.Printf("removed run %s from %s\n", key, workDir)
	return nil
}

func cleanAll(workDir string) error {
	entries, err := os.ReadDir(workDir)
	if os.IsNotExist(err) {
		fmt.Printf("nothing to clean, %s does not exist\n", workDir)
		return nil
	}
	if err != nil {
		return err
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := utils.VerifyPath(e.Name(), workDir); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(workDir, e.Name())); err != nil {
			return err
		}
		removed++
	}
	fmt.Printf("removed %d runs from %s\n", removed, workDir)
	return nil
}
