package compare

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// RunResult is the published outcome of one reconciliation run.
type RunResult struct {
	RunID       uint64           `json:"run_id"`
	Date        string           `json:"date"`
	CalendarIDs []string         `json:"calendars"`
	Feasts      []CanonicalFeast `json:"feasts"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Runner serializes reconciliation runs for a caller whose inputs
// change over time (the user moves the date or calendar selection).
// Starting a run cancels the previous one; each run carries a monotonic
// id and only the latest un-cancelled run may publish its result, so a
// stale run can never overwrite a newer one.
type Runner struct {
	engine *Engine
	logger *slog.Logger

	mu     sync.Mutex
	lastID uint64
	cancel context.CancelFunc
	latest *RunResult
}

// NewRunner creates a run manager around engine.
func NewRunner(engine *Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, logger: logger}
}

// Start begins a new run, superseding any run still in flight. It
// returns the run's id and a channel closed when the run has finished,
// whether its result was published or discarded.
func (r *Runner) Start(ctx context.Context, date time.Time, calendarIDs []string) (uint64, <-chan struct{}) {
	ids := make([]string, len(calendarIDs))
	copy(ids, calendarIDs)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.lastID++
	id := r.lastID
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(runCtx, id, date, ids)
	}()
	return id, done
}

// Latest returns the most recently published result, if any.
func (r *Runner) Latest() (*RunResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return nil, false
	}
	return r.latest, true
}

func (r *Runner) run(ctx context.Context, id uint64, date time.Time, calendarIDs []string) {
	feasts, err := r.engine.Reconcile(ctx, date, calendarIDs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id != r.lastID {
		// Superseded while running; discard silently even if the
		// result arrived intact.
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("reconciliation run failed",
				slog.Uint64("run_id", id),
				slog.Any("error", err),
			)
		}
		return
	}

	r.latest = &RunResult{
		RunID:       id,
		Date:        liturgy.FormatDate(date),
		CalendarIDs: calendarIDs,
		Feasts:      feasts,
		CompletedAt: time.Now(),
	}
}
