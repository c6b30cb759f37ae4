package cli

import (
	cliContext "github.com/piperbook/piperbook/core/cli/context"
)

var CLI struct {
	cliContext.Context `embed:""`

	Speak  SpeakCMD  `cmd:"" help:"Turn a text or a text file into a single audio file, this is the default command if no other command is specified. Run 'piperbook speak --help' for more information" default:"withargs"`
	Chunks ChunksCMD `cmd:"" help:"Show how an input would be split into chunks, without synthesizing anything"`
	Status StatusCMD `cmd:"" help:"Report the saved progress of an earlier run"`
	Clean  CleanCMD  `cmd:"" help:"Remove saved progress and chunk artifacts from the work directory"`
}
