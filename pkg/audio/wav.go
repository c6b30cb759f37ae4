package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Format describes the PCM encoding of a WAV file.
type Format struct {
	SampleRate uint32
	BitDepth   uint16
	Channels   uint16
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitDepth, f.Channels)
}

// WAVHeader represents the WAV file header (44 bytes for PCM)
type WAVHeader struct {
	// RIFF Chunk (12 bytes)
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte

	// fmt Subchunk (16 bytes)
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	// data Subchunk (8 bytes)
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// NewWAVHeader builds a PCM header announcing pcmLen bytes of audio data in
// the given format.
func NewWAVHeader(pcmLen uint32, f Format) WAVHeader {
	blockAlign := f.Channels * f.BitDepth / 8
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16, // PCM = 16 bytes
		AudioFormat:   1,  // PCM
		NumChannels:   f.Channels,
		SampleRate:    f.SampleRate,
		ByteRate:      f.SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: f.BitDepth,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: pcmLen,
	}

	header.ChunkSize = 36 + header.Subchunk2Size

	return header
}

func (h *WAVHeader) Write(writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, h)
}

// Probe validates the WAV file at path and returns its format and the size
// of its PCM payload in bytes.
func Probe(path string) (Format, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, 0, fmt.Errorf("%s is not a valid wav file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Format{}, 0, fmt.Errorf("no pcm data in %s: %w", path, err)
	}
	format := Format{
		SampleRate: dec.SampleRate,
		BitDepth:   dec.BitDepth,
		Channels:   dec.NumChans,
	}
	return format, dec.PCMLen(), nil
}
