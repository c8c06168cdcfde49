// Package results holds the outcome of sync analysis: the live result
// set of the most recent batch and a capped history of completed runs.
package results

import (
	"context"
	"sync"

	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/pkg/log"
)

// HistoryLimit caps the number of retained batch runs. The oldest run is
// evicted when a new one pushes the history past the cap.
const HistoryLimit = 20

// Backend persists run history across restarts.
type Backend interface {
	LoadRuns(ctx context.Context) ([]avsync.BatchRun, error)
	SaveRun(ctx context.Context, run avsync.BatchRun) error
	DeleteRun(ctx context.Context, runID string) error
	ClearRuns(ctx context.Context) error
}

// Store owns the live result set and the run history. All reads return
// snapshots; callers never share slices with the store. A nil backend
// keeps everything in memory only.
type Store struct {
	backend Backend

	mu      sync.RWMutex
	current []avsync.Result
	history []avsync.BatchRun // newest first
}

func NewStore(backend Backend) *Store {
	s := &Store{backend: backend}
	s.hydrateFromBackend(context.Background())
	return s
}

// Append adds a single result to the live set, in arrival order.
func (s *Store) Append(result avsync.Result) {
	s.mu.Lock()
	s.current = append(s.current, result)
	s.mu.Unlock()
}

// ReplaceCurrent swaps the whole live set, typically when a batch
// finishes and its final ordered results are known.
func (s *Store) ReplaceCurrent(results []avsync.Result) {
	snapshot := avsync.CloneResults(results)
	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()
}

// ClearCurrent empties the live set, typically when a new batch starts.
func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a snapshot of the live result set.
func (s *Store) Current() []avsync.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return avsync.CloneResults(s.current)
}

// AppendRun records a completed batch at the head of the history,
// evicting the oldest entry beyond HistoryLimit.
func (s *Store) AppendRun(run avsync.BatchRun) {
	run.Results = avsync.CloneResults(run.Results)

	s.mu.Lock()
	s.history = append([]avsync.BatchRun{run}, s.history...)
	var evicted []string
	for len(s.history) > HistoryLimit {
		last := s.history[len(s.history)-1]
		evicted = append(evicted, last.ID)
		s.history = s.history[:len(s.history)-1]
	}
	s.mu.Unlock()

	s.persistRun(run)
	s.deleteRunsFromBackend(evicted)
}

// Runs returns a snapshot of the history, newest first.
func (s *Store) Runs() []avsync.BatchRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make([]avsync.BatchRun, 0, len(s.history))
	for _, run := range s.history {
		ret = append(ret, cloneRun(run))
	}
	return ret
}

// Run returns one history entry by ID.
func (s *Store) Run(id string) (avsync.BatchRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.history {
		if run.ID == id {
			return cloneRun(run), true
		}
	}
	return avsync.BatchRun{}, false
}

// DeleteRun removes one history entry. Unknown IDs are a no-op.
func (s *Store) DeleteRun(id string) {
	s.mu.Lock()
	kept := s.history[:0]
	found := false
	for _, run := range s.history {
		if run.ID == id {
			found = true
			continue
		}
		kept = append(kept, run)
	}
	s.history = kept
	s.mu.Unlock()

	if found {
		s.deleteRunsFromBackend([]string{id})
	}
}

// ClearRuns drops the whole history.
func (s *Store) ClearRuns() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	if s.backend == nil {
		return
	}
	if err := s.backend.ClearRuns(context.Background()); err != nil {
		log.Error("Failed to clear run history: %v", err)
	}
}

// MergedResults flattens every history run into one slice, newest run
// first, preserving each run's internal order.
func (s *Store) MergedResults() []avsync.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make([]avsync.Result, 0)
	for _, run := range s.history {
		ret = append(ret, avsync.CloneResults(run.Results)...)
	}
	return ret
}

func (s *Store) hydrateFromBackend(ctx context.Context) {
	if s.backend == nil {
		return
	}
	loaded, err := s.backend.LoadRuns(ctx)
	if err != nil {
		log.Error("Failed to load run history: %v", err)
		return
	}
	if len(loaded) > HistoryLimit {
		loaded = loaded[:HistoryLimit]
	}

	s.mu.Lock()
	s.history = loaded
	s.mu.Unlock()
}

func (s *Store) persistRun(run avsync.BatchRun) {
	if s.backend == nil {
		return
	}
	if err := s.backend.SaveRun(context.Background(), run); err != nil {
		log.Error("Failed to persist run %s: %v", run.ID, err)
	}
}

func (s *Store) deleteRunsFromBackend(ids []string) {
	if s.backend == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := s.backend.DeleteRun(context.Background(), id); err != nil {
			log.Error("Failed to delete run %s from history store: %v", id, err)
		}
	}
}

func cloneRun(run avsync.BatchRun) avsync.BatchRun {
	run.Results = avsync.CloneResults(run.Results)
	return run
}
