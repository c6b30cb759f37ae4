package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/piperbook/piperbook/pkg/utils"
)

// ChunkStatus tracks one chunk through a run.
type ChunkStatus string

const (
	StatusPending ChunkStatus = "pending"
	StatusDone    ChunkStatus = "done"
	StatusFailed  ChunkStatus = "failed"
)

// Chunk is a bounded contiguous span of the input text, synthesized on its
// own. Start and End are byte offsets into the original input; Text is the
// span with surrounding whitespace trimmed, which is what the engine reads.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// ChunkResult is the recorded outcome of synthesizing one chunk.
type ChunkResult struct {
	Index     int         `json:"index"`
	Status    ChunkStatus `json:"status"`
	Artifact  string      `json:"artifact,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunManifest identifies a logical run. Two invocations with the same
// manifest refer to the same work and may share progress.
type RunManifest struct {
	ContentSHA string `json:"content_sha"`
	Model      string `json:"model"`
	ChunkSize  int    `json:"chunk_size"`
	Total      int    `json:"total_chunks"`
}

// Key derives the run identifier from the manifest. It is deterministic:
// identical input content, model and chunk size always map to the same key,
// so a resumed invocation finds the earlier progress.
func (m RunManifest) Key() string {
	return utils.MD5(fmt.Sprintf("%s|%d|%s", m.Model, m.ChunkSize, m.ContentSHA))
}

// Matches reports whether another manifest describes the same logical run.
// Total is derived from the other fields and is not part of the identity.
func (m RunManifest) Matches(other RunManifest) bool {
	return m.ContentSHA == other.ContentSHA &&
		m.Model == other.Model &&
		m.ChunkSize == other.ChunkSize
}

// RunSummary is the end-of-run report.
type RunSummary struct {
	RunKey      string
	Total       int
	Synthesized int
	Skipped     int
	Failed      []int
	Output      string
	Assembled   bool
}

// DoneCount is the number of chunks currently done, whether synthesized in
// this run or carried over from a resumed one.
func (s *RunSummary) DoneCount() int {
	return s.Synthesized + s.Skipped
}

// Complete reports whether every chunk reached done.
func (s *RunSummary) Complete() bool {
	return s.Total > 0 && s.DoneCount() == s.Total
}

// Report renders the end-of-run summary the user sees. Failed chunks are
// always listed by index so no missing audio goes unnoticed.
func (s *RunSummary) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d chunks done (%d synthesized, %d skipped)", s.DoneCount(), s.Total, s.Synthesized, s.Skipped)
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, ", %d failed: %v", len(s.Failed), s.Failed)
	}
	if s.Assembled {
		fmt.Fprintf(&b, ", output written to %s", s.Output)
	}
	return b.String()
}
