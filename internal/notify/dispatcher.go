package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/retry"
)

// Notification kinds, usable in the event filter.
const (
	KindFill     = "fill"
	KindSummary  = "summary"
	KindSnapshot = "snapshot"
	KindStartup  = "startup"
	KindCommand  = "command"
)

// DispatchConfig tunes batching, pacing and retry.
type DispatchConfig struct {
	// BatchThreshold is the largest fill count sent as individual messages.
	BatchThreshold   int
	MinInterval      time.Duration
	MaxRetries       int
	ThrottleMargin   time.Duration
	TransportBackoff time.Duration
	// Events limits which kinds are delivered. Empty allows all.
	Events []string
}

// DefaultDispatchConfig returns the stock tuning.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		BatchThreshold:   5,
		MinInterval:      1200 * time.Millisecond,
		MaxRetries:       3,
		ThrottleMargin:   time.Second,
		TransportBackoff: 2 * time.Second,
	}
}

// Dispatcher delivers notifications to a primary sender and optional
// mirrors. All sends are serialized and paced, so the poll loop and HTTP
// triggers can share one Dispatcher.
type Dispatcher struct {
	mu        sync.Mutex
	primary   Sender
	mirrors   []Sender
	pacer     *Pacer
	clock     clock.Clock
	cfg       DispatchConfig
	events    map[string]bool
	formatter *Formatter
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. Mirrors only receive messages addressed
// to the default destination, never replies to a specific chat.
func NewDispatcher(primary Sender, mirrors []Sender, f *Formatter, cfg DispatchConfig, c clock.Clock, logger *slog.Logger) *Dispatcher {
	if c == nil {
		c = clock.System{}
	}
	allowed := make(map[string]bool, len(cfg.Events))
	for _, e := range cfg.Events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Dispatcher{
		primary:   primary,
		mirrors:   mirrors,
		pacer:     NewPacer(c, cfg.MinInterval),
		clock:     c,
		cfg:       cfg,
		events:    allowed,
		formatter: f,
		logger:    logger.With(slog.String("component", "dispatcher")),
	}
}

// Formatter returns the formatter used for fill messages.
func (d *Dispatcher) Formatter() *Formatter { return d.formatter }

// DispatchFills sends the fills in chronological order: one message each, or
// a single summary when there are more than the batch threshold. It only
// fails when ctx is done.
func (d *Dispatcher) DispatchFills(ctx context.Context, events []domain.FillEvent) error {
	if len(events) == 0 {
		return nil
	}
	if len(events) > d.cfg.BatchThreshold {
		return d.Deliver(ctx, KindSummary, "", d.formatter.Summary(events))
	}
	for _, ev := range chronological(events) {
		if err := d.Deliver(ctx, KindFill, "", d.formatter.Fill(ev)); err != nil {
			return err
		}
	}
	return nil
}

// Deliver sends text to chatID, or to the default destination when chatID is
// empty. Failures are logged and the message abandoned; the only error
// returned is the context's.
func (d *Dispatcher) Deliver(ctx context.Context, kind, chatID, text string) error {
	if len(d.events) > 0 && !d.events[kind] {
		d.logger.DebugContext(ctx, "event filtered out", slog.String("kind", kind))
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	targets := []Sender{d.primary}
	if chatID == "" {
		targets = append(targets, d.mirrors...)
	}
	msg := Message{ChatID: chatID, Text: text}
	for _, s := range targets {
		if s == nil {
			continue
		}
		if err := d.sendOne(ctx, s, kind, msg); err != nil {
			return err
		}
	}
	return nil
}

// sendOne paces, sends with retry and marks the pacer. Must hold d.mu.
func (d *Dispatcher) sendOne(ctx context.Context, s Sender, kind string, msg Message) error {
	if err := d.pacer.Wait(ctx); err != nil {
		return err
	}

	attempts, err := retry.Do(ctx, retry.Policy{
		MaxRetries: d.cfg.MaxRetries,
		Retryable:  retryableSend,
		BackOff:    backoff.NewConstantBackOff(d.cfg.TransportBackoff),
		Clock:      d.clock,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			d.logger.WarnContext(ctx, "send failed, retrying",
				slog.String("sender", s.Name()),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		},
	}, func(ctx context.Context) error {
		err := s.Send(ctx, msg)
		var th *domain.ThrottleError
		if errors.As(err, &th) {
			return &domain.ThrottleError{Wait: th.Wait + d.cfg.ThrottleMargin}
		}
		return err
	})
	d.pacer.Mark()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		d.logger.ErrorContext(ctx, "message abandoned",
			slog.String("sender", s.Name()),
			slog.String("kind", kind),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		return nil
	}
	d.logger.DebugContext(ctx, "notification sent",
		slog.String("sender", s.Name()),
		slog.String("kind", kind),
		slog.Int("attempts", attempts),
	)
	return nil
}

// retryableSend retries throttling and network failures only.
func retryableSend(err error) bool {
	var th *domain.ThrottleError
	var te *domain.TransportError
	return errors.As(err, &th) || errors.As(err, &te)
}
