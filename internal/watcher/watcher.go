// Package watcher runs the poll loop: fetch fills, decide which are new,
// notify, and persist the cursor.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/cursor"
	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// Phase is the current step of the poll loop.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseClassifying Phase = "classifying"
	PhaseDispatching Phase = "dispatching"
	PhasePersisting  Phase = "persisting"
)

// FillSource fetches the fills of an account newer than since.
type FillSource interface {
	FetchFills(ctx context.Context, user string, since int64) []domain.FillEvent
}

// Notifier delivers new fills.
type Notifier interface {
	DispatchFills(ctx context.Context, events []domain.FillEvent) error
}

// Config tunes the poll loop.
type Config struct {
	Account    string
	Interval   time.Duration
	MaxSeenIDs int
	// LockTTL bounds how long a crashed instance can hold the cycle lock.
	LockTTL time.Duration
}

// Status is a point-in-time view of the loop for health reporting.
type Status struct {
	Phase        Phase     `json:"phase"`
	Cycles       int64     `json:"cycles"`
	LastCycleAt  time.Time `json:"last_cycle_at"`
	LastError    string    `json:"last_error,omitempty"`
	LastTS       int64     `json:"last_ts"`
	LastNewFills int       `json:"last_new_fills"`
}

// Watcher owns the cursor state and drives cycles.
type Watcher struct {
	cfg      Config
	source   FillSource
	notifier Notifier
	store    domain.CursorStore
	clock    clock.Clock
	logger   *slog.Logger

	lock      domain.LockManager
	publisher domain.EventPublisher
	archive   domain.BlobWriter
	fills     domain.FillStore
	audit     domain.AuditStore

	state domain.CursorState

	mu     sync.Mutex
	status Status
}

// Option configures optional collaborators.
type Option func(*Watcher)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option { return func(w *Watcher) { w.clock = c } }

// WithLock guards each cycle with a distributed lock.
func WithLock(l domain.LockManager) Option { return func(w *Watcher) { w.lock = l } }

// WithPublisher broadcasts new fills and cycle status.
func WithPublisher(p domain.EventPublisher) Option { return func(w *Watcher) { w.publisher = p } }

// WithArchive uploads the raw records of new fills.
func WithArchive(b domain.BlobWriter) Option { return func(w *Watcher) { w.archive = b } }

// WithFillStore records new fills as history.
func WithFillStore(s domain.FillStore) Option { return func(w *Watcher) { w.fills = s } }

// WithAuditStore logs one audit entry per cycle with new fills.
func WithAuditStore(s domain.AuditStore) Option { return func(w *Watcher) { w.audit = s } }

// New creates a Watcher.
func New(cfg Config, source FillSource, notifier Notifier, store domain.CursorStore, logger *slog.Logger, opts ...Option) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxSeenIDs <= 0 {
		cfg.MaxSeenIDs = cursor.DefaultMaxSeenIDs
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval + time.Minute
	}
	w := &Watcher{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		store:    store,
		clock:    clock.System{},
		logger:   logger.With(slog.String("component", "watcher")),
		status:   Status{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Load reads the persisted cursor. A read failure starts from the zero
// state.
func (w *Watcher) Load(ctx context.Context) {
	state, err := w.store.Load(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "cursor load failed, starting fresh", slog.String("error", err.Error()))
		state = domain.CursorState{}
	}
	w.state = state
	w.mu.Lock()
	w.status.LastTS = state.LastTS
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "cursor loaded",
		slog.Int64("last_ts", state.LastTS),
		slog.Int("seen_ids", len(state.SeenIDs)),
		slog.Bool("sent_raw_once", state.SentRawOnce),
	)
}

// Run loads the cursor and runs cycles until ctx is cancelled, sleeping the
// configured interval between the end of one cycle and the start of the next.
func (w *Watcher) Run(ctx context.Context) error {
	w.Load(ctx)
	w.logger.InfoContext(ctx, "watcher started",
		slog.String("account", w.cfg.Account),
		slog.Duration("interval", w.cfg.Interval),
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.RunCycle(ctx)
		if err := w.clock.Sleep(ctx, w.cfg.Interval); err != nil {
			return err
		}
	}
}

// RunCycle performs one fetch-classify-dispatch-persist pass and returns the
// number of new fills. Errors and panics are logged; they never stop the
// loop.
func (w *Watcher) RunCycle(ctx context.Context) (fresh int) {
	var cycleErr error
	defer func() {
		if r := recover(); r != nil {
			cycleErr = fmt.Errorf("panic: %v", r)
			w.logger.ErrorContext(ctx, "cycle panicked", slog.Any("panic", r))
		}
		w.finish(fresh, cycleErr)
	}()

	if w.lock != nil {
		unlock, err := w.lock.Acquire(ctx, w.lockKey(), w.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			w.logger.InfoContext(ctx, "cycle skipped, lock held elsewhere", slog.String("key", w.lockKey()))
			return 0
		case err != nil:
			w.logger.WarnContext(ctx, "cycle lock unavailable, running unguarded", slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	w.setPhase(PhaseFetching)
	events := w.source.FetchFills(ctx, w.cfg.Account, w.state.LastTS)

	w.setPhase(PhaseClassifying)
	newEvents, next := cursor.Classify(w.state, events, w.cfg.MaxSeenIDs)

	if len(newEvents) > 0 {
		w.setPhase(PhaseDispatching)
		w.logger.InfoContext(ctx, "new fills", slog.Int("count", len(newEvents)), slog.Int("fetched", len(events)))
		if err := w.notifier.DispatchFills(ctx, newEvents); err != nil {
			cycleErr = fmt.Errorf("watcher: dispatch: %w", err)
			return 0
		}
		w.fanOut(ctx, newEvents, next)
	}

	w.setPhase(PhasePersisting)
	w.state = next
	if err := w.store.Save(ctx, next); err != nil {
		cycleErr = fmt.Errorf("watcher: persist cursor: %w", err)
		w.logger.WarnContext(ctx, "cursor persist failed", slog.String("error", err.Error()))
	}
	return len(newEvents)
}

// Status returns a snapshot of the loop state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Watcher) lockKey() string {
	return "watcher:" + w.cfg.Account
}

func (w *Watcher) setPhase(p Phase) {
	w.mu.Lock()
	w.status.Phase = p
	w.mu.Unlock()
}

func (w *Watcher) finish(fresh int, err error) {
	w.mu.Lock()
	w.status.Phase = PhaseIdle
	w.status.Cycles++
	w.status.LastCycleAt = w.clock.Now()
	w.status.LastTS = w.state.LastTS
	w.status.LastNewFills = fresh
	w.status.LastError = ""
	if err != nil {
		w.status.LastError = err.Error()
	}
	st := w.status
	w.mu.Unlock()

	if w.publisher != nil {
		w.publish(context.Background(), Notice{Type: NoticeStatus, Account: w.cfg.Account, Status: &st})
	}
}

func defaultCycleID() string { return uuid.NewString() }

// newCycleID is swapped in tests.
var newCycleID = defaultCycleID
