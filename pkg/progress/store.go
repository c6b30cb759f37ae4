// Package progress persists per-chunk synthesis results so an interrupted
// run can resume without redoing finished work.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/piperbook/piperbook/core/schema"
)

// FileName is the progress file kept inside each run directory.
const FileName = "progress.json"

// ErrCorrupt marks a progress file that exists but cannot be trusted, either
// because it is not valid JSON or because it was written for a different run.
var ErrCorrupt = errors.New("progress file corrupt")

// Record is the on-disk shape of a run's progress file.
type Record struct {
	Manifest  schema.RunManifest         `json:"manifest"`
	Results   map[int]schema.ChunkResult `json:"results"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Store is a JSON file holding the results of one run, keyed by chunk index.
// Only done and failed chunks are recorded, absence means pending.
type Store struct {
	path     string
	manifest schema.RunManifest
	results  map[int]schema.ChunkResult
	flock    *flock.Flock
	sync.Mutex
}

// Open loads the progress file at path, creating an empty store when the
// file does not exist yet. A file that is corrupt or belongs to a different
// run is logged and discarded, the run starts over rather than failing.
func Open(path string, manifest schema.RunManifest) (*Store, error) {
	s := &Store{
		path:     path,
		manifest: manifest,
		results:  map[int]schema.ChunkResult{},
		flock:    flock.New(path + ".lock"),
	}
	if err := s.load(); err != nil {
		if errors.Is(err, ErrCorrupt) {
			log.Warn().Str("file", path).Err(err).Msg("ignoring unusable progress file, starting from scratch")
			s.results = map[int]schema.ChunkResult{}
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// Inspect reads the progress file at path without adopting it. Unlike Open
// it reports corruption to the caller instead of discarding the file.
func Inspect(path string) (Record, error) {
	var rec Record
	f, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(f, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// Done records a finished chunk and its artifact. Done is final, later
// failures never demote it.
func (s *Store) Done(index int, artifact string) error {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.reload()
	s.results[index] = schema.ChunkResult{
		Index:     index,
		Status:    schema.StatusDone,
		Artifact:  artifact,
		UpdatedAt: time.Now().UTC(),
	}
	return s.save()
}

// Failed records a chunk that could not be synthesized. A chunk already
// marked done keeps its result.
func (s *Store) Failed(index int, cause error) error {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.reload()
	if r, ok := s.results[index]; ok && r.Status == schema.StatusDone {
		return nil
	}
	s.results[index] = schema.ChunkResult{
		Index:     index,
		Status:    schema.StatusFailed,
		Error:     cause.Error(),
		UpdatedAt: time.Now().UTC(),
	}
	return s.save()
}

// IsDone reports whether the chunk at index finished in an earlier pass.
func (s *Store) IsDone(index int) bool {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.reload()
	r, ok := s.results[index]
	return ok && r.Status == schema.StatusDone
}

// Results returns a copy of every recorded chunk result.
func (s *Store) Results() map[int]schema.ChunkResult {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.reload()
	out := make(map[int]schema.ChunkResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// DoneCount returns how many chunks are recorded as done.
func (s *Store) DoneCount() int {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.reload()
	n := 0
	for _, r := range s.results {
		if r.Status == schema.StatusDone {
			n++
		}
	}
	return n
}

// Reset drops every recorded result and rewrites the file.
func (s *Store) Reset() error {
	s.flock.Lock()
	defer s.flock.Unlock()
	s.Lock()
	defer s.Unlock()
	s.results = map[int]schema.ChunkResult{}
	return s.save()
}

// Path returns the location of the progress file.
func (s *Store) Path() string {
	return s.path
}

// reload merges results written by another process holding the same file.
// Errors are ignored, the in-memory state stays authoritative and the next
// save rewrites a good file.
func (s *Store) reload() {
	if err := s.load(); err != nil {
		log.Debug().Str("file", s.path).Err(err).Msg("could not reload progress file")
	}
}

// load reads the progress file from disk.
func (s *Store) load() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	f, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var rec Record
	if err := json.Unmarshal(f, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !rec.Manifest.Matches(s.manifest) {
		return fmt.Errorf("%w: recorded run does not match this input", ErrCorrupt)
	}
	for i := range rec.Results {
		if i < 0 || (s.manifest.Total > 0 && i >= s.manifest.Total) {
			return fmt.Errorf("%w: chunk index %d out of range", ErrCorrupt, i)
		}
	}
	if rec.Results != nil {
		s.results = rec.Results
	}
	return nil
}

// save writes the progress file to disk.
func (s *Store) save() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(Record{
		Manifest:  s.manifest,
		Results:   s.results,
		UpdatedAt: time.Now().UTC(),
	})
}
