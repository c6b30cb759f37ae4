package cli

import (
	"fmt"

	cliContext "github.com/piperbook/piperbook/core/cli/context"
	"github.com/piperbook/piperbook/core/config"
	"github.com/piperbook/piperbook/pkg/chunker"
)

type ChunksCMD struct {
	Text string `short:"t" xor:"input" required:"" help:"Text to split" group:"input"`
	File string `short:"f" xor:"input" required:"" type:"path" help:"UTF-8 text file to split" group:"input"`

	ChunkSize int    `env:"PIPERBOOK_CHUNK_SIZE" help:"Upper bound in bytes for a single chunk (default: ${defaultChunkSize})"`
	Config    string `short:"c" env:"PIPERBOOK_CONFIG" type:"path" help:"Settings file (default: ${settingsFile} in the current directory when present)" group:"storage"`
}

func (c *ChunksCMD) Run(ctx *cliContext.Context) error {
	cfg, err := loadSettings(c.Config,
		config.WithChunkSize(c.ChunkSize),
		config.WithText(c.Text),
		config.WithFile(c.File),
	)
	if err != nil {
		return err
	}

	text, err := inputText(cfg)
	if err != nil {
		return err
	}

	chunks, err := chunker.Split(text, cfg.ChunkSize)
	if err != nil {
		return err
	}

	for _, ch := range chunks {
		fmt.Printf("%4d  %6dB  %s\n", ch.Index, len(ch.Text), preview(ch.Text, 60))
	}
	fmt.Printf("%d chunks from %d bytes of input, bound %d\n", len(chunks), len(text), cfg.ChunkSize)
	return nil
}
