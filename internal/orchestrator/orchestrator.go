// Package orchestrator tracks one media item from upload until its analysis
// settles, fetching the record on an interval and optionally listening to the
// backend's status stream.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/observability"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxFailures = 3
	DefaultMaxDuration = 10 * time.Minute
)

var (
	ErrNotWatching = errors.New("no media is being watched")
	ErrStopped     = errors.New("watch stopped before analysis settled")
	ErrTimedOut    = errors.New("analysis did not complete in time")
)

type State int

const (
	Idle State = iota
	AwaitingAnalysis
	Settled
	Stalled
)

func (s State) String() string {
	switch s {
	case AwaitingAnalysis:
		return "awaiting_analysis"
	case Settled:
		return "settled"
	case Stalled:
		return "stalled"
	default:
		return "idle"
	}
}

func (s State) Terminal() bool {
	return s == Settled || s == Stalled
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fetcher loads the current media record
type Fetcher interface {
	GetMedia(ctx context.Context, mediaID string) (*models.MediaRecord, error)
}

// StreamFunc opens a push channel of status events for a media id
type StreamFunc func(ctx context.Context, mediaID string) (<-chan models.StatusEvent, error)

type Options struct {
	Interval    time.Duration
	MaxFailures int
	// MaxDuration bounds a watch; zero disables the bound.
	MaxDuration time.Duration
	Stream      StreamFunc
	Bus         *events.Bus
}

// Snapshot is a copy of the orchestrator's view of the watched media.
type Snapshot struct {
	State     State               `json:"state"`
	MediaID   string              `json:"media_id,omitempty"`
	Record    *models.MediaRecord `json:"record,omitempty"`
	Err       error               `json:"-"`
	Failures  int                 `json:"failures"`
	Polls     int                 `json:"polls"`
	Stage     string              `json:"stage,omitempty"`
	Progress  int                 `json:"progress"`
	StartedAt time.Time           `json:"started_at,omitempty"`
}

func (s Snapshot) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type Orchestrator struct {
	fetcher Fetcher
	opts    Options

	// serializes Watch and Stop
	watchMu sync.Mutex

	mu       sync.Mutex
	gen      uint64
	seq      uint64
	applied  uint64
	snap     Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
	terminal chan struct{}
}

func New(fetcher Fetcher, opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.MaxDuration < 0 {
		opts.MaxDuration = 0
	}
	return &Orchestrator{
		fetcher: fetcher,
		opts:    opts,
	}
}

// Watch starts tracking mediaID, replacing any previous watch. The first
// fetch is issued immediately, then one every interval until the record
// reports a terminal status or the watch stalls.
func (o *Orchestrator) Watch(ctx context.Context, mediaID string) {
	o.watchMu.Lock()
	defer o.watchMu.Unlock()

	o.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.applied = o.seq
	o.cancel = cancel
	o.done = done
	o.terminal = make(chan struct{})
	o.snap = Snapshot{
		State:     AwaitingAnalysis,
		MediaID:   mediaID,
		StartedAt: time.Now(),
	}
	snap := o.snap
	o.mu.Unlock()

	slog.Info("Watching media", "media_id", mediaID, "interval", o.opts.Interval)
	o.publish(snap)

	go o.run(loopCtx, gen, mediaID, done)
}

// Stop cancels the running watch and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.watchMu.Lock()
	defer o.watchMu.Unlock()
	o.stopLocked()
}

func (o *Orchestrator) stopLocked() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	// responses still in flight belong to a dead generation
	o.gen++
	changed := false
	if o.snap.State == AwaitingAnalysis {
		o.snap.State = Idle
		changed = true
	}
	snap := o.snap
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if changed {
		o.publish(snap)
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Wait blocks until the current watch reaches Settled or Stalled, the watch is
// stopped, or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	terminal, done, id := o.terminal, o.done, o.snap.MediaID
	o.mu.Unlock()

	if id == "" || terminal == nil {
		return o.Snapshot(), ErrNotWatching
	}

	select {
	case <-terminal:
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	case <-doneOrNil(done):
		// the loop may exit right after closing terminal
		select {
		case <-terminal:
			return o.Snapshot(), nil
		default:
			return o.Snapshot(), ErrStopped
		}
	}
}

func doneOrNil(done chan struct{}) <-chan struct{} {
	if done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return done
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, mediaID string, done chan struct{}) {
	defer close(done)

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancelFetches := context.WithCancel(ctx)
	defer cancelFetches()

	o.mu.Lock()
	terminal := o.terminal
	o.mu.Unlock()

	var deadline <-chan time.Time
	if o.opts.MaxDuration > 0 {
		timer := time.NewTimer(o.opts.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	o.launch(ctx, &wg, gen, mediaID)

	// the stream is dialed in the background so the first fetch never waits on it
	var push <-chan models.StatusEvent
	var dialed chan (<-chan models.StatusEvent)
	if o.opts.Stream != nil {
		dialed = make(chan (<-chan models.StatusEvent), 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := o.opts.Stream(ctx, mediaID)
			if err != nil {
				slog.Warn("Status stream unavailable, polling only", "media_id", mediaID, "err", err)
				ch = nil
			}
			dialed <- ch
		}()
	}

	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-terminal:
			return
		case <-deadline:
			o.stall(gen, fmt.Errorf("%w after %s", ErrTimedOut, o.opts.MaxDuration))
			return
		case <-ticker.C:
			o.launch(ctx, &wg, gen, mediaID)
		case ch := <-dialed:
			dialed = nil
			push = ch
		case event, ok := <-push:
			if !ok {
				push = nil
				continue
			}
			o.handlePush(ctx, &wg, gen, mediaID, event)
		}
	}
}

func (o *Orchestrator) handlePush(ctx context.Context, wg *sync.WaitGroup, gen uint64, mediaID string, event models.StatusEvent) {
	switch event.Type {
	case models.EventProgress:
		o.mu.Lock()
		if gen == o.gen {
			o.snap.Stage = event.Stage
			o.snap.Progress = event.Progress
		}
		o.mu.Unlock()
		if bus := o.opts.Bus; bus != nil {
			bus.Publish(events.AnalysisProgress{
				MediaID:  mediaID,
				Stage:    event.Stage,
				Progress: event.Progress,
				Message:  event.Message,
			})
		}
	case models.EventAnalysisComplete:
		o.launch(ctx, wg, gen, mediaID)
	case models.EventError:
		slog.Warn("Backend reported analysis error", "media_id", mediaID, "stage", event.Stage, "err", event.Error)
	}
}

// launch issues one fetch without blocking the loop. Responses may arrive out
// of order; apply keeps only the newest.
func (o *Orchestrator) launch(ctx context.Context, wg *sync.WaitGroup, gen uint64, mediaID string) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		record, err := o.fetcher.GetMedia(ctx, mediaID)
		if ctx.Err() != nil {
			return
		}
		o.apply(gen, seq, record, err)
	}()
}

func (o *Orchestrator) apply(gen, seq uint64, record *models.MediaRecord, err error) {
	o.mu.Lock()
	if gen != o.gen || seq <= o.applied || o.snap.State != AwaitingAnalysis {
		o.mu.Unlock()
		observability.PollTicks.WithLabelValues("stale").Inc()
		return
	}
	o.applied = seq
	o.snap.Polls++

	if err != nil {
		o.snap.Failures++
		o.snap.Err = err
		observability.PollTicks.WithLabelValues("error").Inc()
		slog.Warn("Failed to fetch media", "media_id", o.snap.MediaID, "failures", o.snap.Failures, "err", err)
		if o.snap.Failures >= o.opts.MaxFailures {
			o.snap.State = Stalled
			o.snap.Err = fmt.Errorf("giving up after %d consecutive failures: %w", o.snap.Failures, err)
			close(o.terminal)
		}
	} else {
		o.snap.Failures = 0
		o.snap.Err = nil
		o.snap.Record = record
		observability.PollTicks.WithLabelValues("ok").Inc()
		if record.Status.Terminal() {
			o.snap.State = Settled
			o.snap.Progress = 100
			close(o.terminal)
		}
	}
	snap := o.snap
	o.mu.Unlock()

	if snap.State.Terminal() {
		observability.PollsSettled.WithLabelValues(snap.State.String()).Inc()
		slog.Info("Watch finished", "media_id", snap.MediaID, "state", snap.State, "polls", snap.Polls)
	}
	o.publish(snap)
}

func (o *Orchestrator) stall(gen uint64, err error) {
	o.mu.Lock()
	if gen != o.gen || o.snap.State != AwaitingAnalysis {
		o.mu.Unlock()
		return
	}
	o.snap.State = Stalled
	o.snap.Err = err
	close(o.terminal)
	snap := o.snap
	o.mu.Unlock()

	observability.PollsSettled.WithLabelValues(snap.State.String()).Inc()
	slog.Warn("Watch stalled", "media_id", snap.MediaID, "err", err)
	o.publish(snap)
}

func (o *Orchestrator) publish(snap Snapshot) {
	if o.opts.Bus == nil {
		return
	}
	update := events.MediaUpdated{
		MediaID: snap.MediaID,
		State:   snap.State.String(),
		Error:   snap.ErrorMessage(),
	}
	if snap.Record != nil {
		update.Status = snap.Record.Status
	}
	o.opts.Bus.Publish(update)
}
