// Package audio joins the per-chunk WAV files produced by synthesis into a
// single output file.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/piperbook/piperbook/pkg/xio"
)

// Concat joins the given WAV files into dst, in order. It goes through
// ffmpeg when one is on the PATH and falls back to plain PCM concatenation
// otherwise, so the tool works on machines without ffmpeg installed.
func Concat(ctx context.Context, inputs []string, dst string) error {
	if len(inputs) == 0 {
		return errors.New("no input files to concatenate")
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		err := concatFFmpeg(ctx, inputs, dst)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Msg("ffmpeg concat failed, falling back to plain pcm concat")
	}
	return ConcatPCM(ctx, inputs, dst)
}

// ConcatPCM joins WAV files by writing a fresh header and streaming each
// file's PCM payload after it. All inputs must share the same format. The
// output appears at dst only once it is complete.
func ConcatPCM(ctx context.Context, inputs []string, dst string) error {
	if len(inputs) == 0 {
		return errors.New("no input files to concatenate")
	}

	var format Format
	var total int64
	for i, in := range inputs {
		f, n, err := Probe(in)
		if err != nil {
			return err
		}
		if i == 0 {
			format = f
		} else if f != format {
			return fmt.Errorf("wav format mismatch: %s is %s, %s is %s", in, f, inputs[0], format)
		}
		total += n
	}
	if total+36 > math.MaxUint32 {
		return fmt.Errorf("combined audio (%d bytes of pcm) exceeds the wav size limit", total)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".concat-*.wav")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	header := NewWAVHeader(uint32(total), format)
	if err := header.Write(tmp); err != nil {
		return err
	}
	for _, in := range inputs {
		if err := appendPCM(ctx, tmp, in); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func appendPCM(ctx context.Context, w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("read pcm from %s: %w", path, err)
	}
	if _, err := xio.CopyN(ctx, w, dec.PCMChunk, dec.PCMLen()); err != nil {
		return fmt.Errorf("copy pcm from %s: %w", path, err)
	}
	return nil
}

// concatFFmpeg drives the ffmpeg concat demuxer with a generated list file.
func concatFFmpeg(ctx context.Context, inputs []string, dst string) error {
	list, err := os.CreateTemp(filepath.Dir(dst), ".concat-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())

	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			list.Close()
			return err
		}
		// single quotes inside the path are escaped the way the demuxer expects
		if _, err := fmt.Fprintf(list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)); err != nil {
			list.Close()
			return err
		}
	}
	if err := list.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-f", "concat", "-safe", "0", "-i", list.Name(), "-c", "copy", dst)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w out: %s", err, out)
	}
	return nil
}
