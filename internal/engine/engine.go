// Package engine drives synchronization batches: it resolves the work
// list, runs the analyzer over every pair in input order and streams
// typed events to the caller while collecting the final result set.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/audiosync/internal/analyzer"
	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/internal/library"
	"github.com/driftwatch/audiosync/internal/results"
	"github.com/driftwatch/audiosync/pkg/log"
)

// State is the lifecycle of one run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCanceled  State = "canceled"
	StateFailed    State = "failed"
)

// Terminal reports whether the run has reached a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCanceled || s == StateFailed
}

// Engine owns at most one active run at a time.
type Engine struct {
	estimator      analyzer.Estimator
	store          *results.Store
	segmentDefault float64

	mu     sync.Mutex
	active *Run
}

type Option func(*Engine)

// WithDefaultSegment overrides the excerpt length used when a request
// does not specify one.
func WithDefaultSegment(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.segmentDefault = seconds
		}
	}
}

func New(estimator analyzer.Estimator, store *results.Store, opts ...Option) *Engine {
	e := &Engine{
		estimator:      estimator,
		store:          store,
		segmentDefault: analyzer.DefaultSegmentSeconds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates the request, resolves the work list and launches the
// run. It fails before any run state exists: on an invalid request, on
// unreadable folders, or while another run is active.
func (e *Engine) Start(ctx context.Context, req avsync.Request) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pairs, ignored, err := e.resolveWorkList(req)
	if err != nil {
		return nil, err
	}

	segment := req.SegmentDuration
	if segment <= 0 {
		segment = e.segmentDefault
	}

	run := &Run{
		id:      uuid.NewString(),
		mode:    req.Mode,
		engine:  e,
		segment: segment,
		pairs:   pairs,
		ignored: ignored,
		state:   StateRunning,
		// Each item emits at most file_start, log, result, file_end and
		// progress. Sizing the channel past that keeps emission
		// non-blocking even when no consumer drains the stream.
		events: make(chan Event, 6*len(pairs)+16),
	}

	e.mu.Lock()
	if e.active != nil && !e.active.State().Terminal() {
		e.mu.Unlock()
		return nil, avsync.NewError(avsync.ErrRunActive, "a sync run is already active")
	}
	e.active = run
	e.mu.Unlock()

	if e.store != nil {
		e.store.ClearCurrent()
	}
	go run.loop(ctx)
	return run, nil
}

// Active returns the engine's current run, which may already be
// terminal, and false when no run was ever started.
func (e *Engine) Active() (*Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.active != nil
}

// Cancel requests cooperative stop of the active run. Idempotent; a
// no-op when idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	run := e.active
	e.mu.Unlock()
	if run != nil {
		run.Cancel()
	}
}

func (e *Engine) resolveWorkList(req avsync.Request) ([]avsync.Pair, []avsync.MediaFile, error) {
	var videos []avsync.MediaFile
	if len(req.VideoFiles) > 0 {
		videos = library.FromPaths(req.VideoFiles, avsync.KindVideo)
	} else {
		listed, err := library.ListVideos(req.VideoFolder)
		if err != nil {
			return nil, nil, avsync.WrapError(err, avsync.ErrValidation, "failed to list video folder")
		}
		videos = listed
	}

	var audios []avsync.MediaFile
	switch req.Mode {
	case avsync.ModeMovie:
		audios = library.FromPaths([]string{req.AudioFile}, avsync.KindAudio)
	case avsync.ModeSeries:
		listed, err := library.ListAudios(req.AudioFolder)
		if err != nil {
			return nil, nil, avsync.WrapError(err, avsync.ErrValidation, "failed to list audio folder")
		}
		audios = listed
	}

	pairs, ignored := avsync.Resolve(videos, audios, req.Mode, req.MatchPattern)
	return pairs, ignored, nil
}

// Run is one batch in flight (or finished). Reads are safe from any
// goroutine; the processing loop is the only writer.
type Run struct {
	id      string
	mode    avsync.Mode
	engine  *Engine
	segment float64
	pairs   []avsync.Pair
	ignored []avsync.MediaFile

	events   chan Event
	canceled atomic.Bool

	mu      sync.Mutex
	state   State
	results []avsync.Result
}

func (r *Run) ID() string { return r.id }

// Total is the number of work items in the run.
func (r *Run) Total() int { return len(r.pairs) }

// Events returns the run's ordered event stream. The channel is closed
// after the terminal event.
func (r *Run) Events() <-chan Event { return r.events }

// Cancel requests a cooperative stop. The in-flight item finishes;
// the run halts at the next item boundary. Idempotent.
func (r *Run) Cancel() {
	r.canceled.Store(true)
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Results returns a snapshot of the results accumulated so far, in
// input order.
func (r *Run) Results() []avsync.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return avsync.CloneResults(r.results)
}

func (r *Run) loop(ctx context.Context) {
	defer close(r.events)
	defer func() {
		if v := recover(); v != nil {
			log.Error("Sync run %s panicked: %v", r.id, v)
			r.setState(StateFailed)
			r.emit(Event{Type: EventFailed, Error: fmt.Sprintf("internal error: %v", v)})
		}
	}()

	total := len(r.pairs)
	r.emit(Event{Type: EventLog, Message: fmt.Sprintf("starting %s sync for %d file(s)", r.mode, total)})
	for _, extra := range r.ignored {
		r.emit(Event{Type: EventLog, Message: fmt.Sprintf("ignoring extra audio file %s", extra.Name)})
	}

	var elapsedTotal time.Duration
	for i, pair := range r.pairs {
		if r.canceled.Load() || ctx.Err() != nil {
			r.finishCanceled()
			return
		}

		r.emit(Event{Type: EventFileStart, File: pair.Video.Name})
		itemStart := time.Now()
		result := r.processPair(ctx, pair)
		elapsed := time.Since(itemStart)
		result.ElapsedMs = elapsed.Milliseconds()
		elapsedTotal += elapsed

		r.appendResult(result)
		r.emit(Event{Type: EventResult, Result: &result})
		r.emit(Event{Type: EventFileEnd, File: pair.Video.Name, ElapsedMs: result.ElapsedMs})

		processed := i + 1
		progress := &Progress{Processed: processed, Total: total}
		if processed < total {
			progress.Current = r.pairs[processed].Video.Name
			eta := (elapsedTotal / time.Duration(processed) * time.Duration(total-processed)).Milliseconds()
			progress.EtaMs = &eta
		}
		r.emit(Event{Type: EventProgress, Progress: progress})
	}

	r.finishCompleted()
}

func (r *Run) processPair(ctx context.Context, pair avsync.Pair) avsync.Result {
	result := avsync.Result{VideoFile: pair.Video.Name}
	if !pair.Matched || pair.Audio == nil {
		r.emit(Event{Type: EventLog, Message: fmt.Sprintf("no audio match for %s", pair.Video.Name)})
		result.Error = "no audio match"
		return result
	}

	result.AudioFile = pair.Audio.Name
	measurement, err := r.engine.estimator.Estimate(ctx, pair.Video.Path, pair.Audio.Path, r.segment)
	if err != nil {
		log.Warn("Analysis failed for %s: %v", pair.Video.Name, err)
		result.Error = err.Error()
		return result
	}
	if measurement.Detail != "" {
		r.emit(Event{Type: EventLog, Message: fmt.Sprintf("%s: %s", pair.Video.Name, measurement.Detail)})
	}
	result.StartDelayMs = measurement.StartDelayMs
	result.EndDelayMs = measurement.EndDelayMs
	return result
}

func (r *Run) finishCompleted() {
	snapshot := r.Results()
	r.setState(StateCompleted)

	if store := r.engine.store; store != nil {
		store.ReplaceCurrent(snapshot)
		store.AppendRun(avsync.BatchRun{
			ID:        r.id,
			Timestamp: time.Now(),
			Mode:      r.mode,
			FileCount: len(snapshot),
			Results:   snapshot,
		})
	}
	r.emit(Event{Type: EventDone, Results: snapshot})
}

func (r *Run) finishCanceled() {
	snapshot := r.Results()
	r.setState(StateCanceled)
	if store := r.engine.store; store != nil {
		store.ReplaceCurrent(snapshot)
	}
	log.Info("Sync run %s canceled after %d of %d item(s)", r.id, len(snapshot), len(r.pairs))
	r.emit(Event{Type: EventCanceled, Results: snapshot})
}

func (r *Run) appendResult(result avsync.Result) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
	if store := r.engine.store; store != nil {
		store.Append(result)
	}
}

func (r *Run) setState(state State) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *Run) emit(event Event) {
	select {
	case r.events <- event:
	default:
		// The channel is sized for the full stream; hitting this means
		// an accounting bug, not a slow consumer.
		log.Error("Dropping %s event for run %s: stream buffer full", event.Type, r.id)
	}
}
