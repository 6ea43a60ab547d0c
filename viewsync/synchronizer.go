// Package viewsync keeps a read model of one ledger instance built only from
// its event log.
//
// A session subscribes to live events first, then reads the head and backfills
// history up to it, and only then drains the live feed. Anything published
// between the subscription and the head read shows up twice and is dropped by
// sequence number; anything the live feed lost shows up as a gap and is
// fetched from history again. A failed session is retried with backoff on top
// of the projection built so far.
package viewsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/exception"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
	"github.com/mezonai/remit/types"
)

// Source is where events come from: the ledger itself or a remote client.
type Source interface {
	Head(ctx context.Context) (uint64, error)
	// Range returns events with from <= seq <= to, clamped to the head
	Range(ctx context.Context, from, to uint64) ([]*events.Event, error)
	Subscribe(ctx context.Context) (events.Subscription, error)
}

const (
	PhaseSubscribe = "subscribe"
	PhaseBootstrap = "bootstrap"
	PhaseLive      = "live"

	DefaultPageSize   = 500
	DefaultRetryMin   = 200 * time.Millisecond
	DefaultRetryMax   = 10 * time.Second
	defaultUpdatesCap = 1
)

var (
	errSubscriptionClosed = stderrors.New("live subscription closed")
	errApplyPanicked      = stderrors.New("applying event panicked")
)

type Options struct {
	// Instance, when set, makes the projection refuse foreign events
	Instance types.Address
	PageSize uint64
	RetryMin time.Duration
	RetryMax time.Duration
}

type Synchronizer struct {
	source Source
	opts   Options

	mu   sync.RWMutex
	proj *Projection

	updates chan struct{}
}

func New(source Source, opts Options) *Synchronizer {
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RetryMin <= 0 {
		opts.RetryMin = DefaultRetryMin
	}
	if opts.RetryMax < opts.RetryMin {
		opts.RetryMax = DefaultRetryMax
		if opts.RetryMax < opts.RetryMin {
			opts.RetryMax = opts.RetryMin
		}
	}
	return &Synchronizer{
		source:  source,
		opts:    opts,
		proj:    NewProjection(opts.Instance),
		updates: make(chan struct{}, defaultUpdatesCap),
	}
}

// Snapshot copies the current projection
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proj.Snapshot()
}

func (s *Synchronizer) LastSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proj.LastSeq()
}

// Updates is signalled, coalesced, whenever the projection advances
func (s *Synchronizer) Updates() <-chan struct{} {
	return s.updates
}

// Run keeps the projection in sync until ctx is cancelled, and returns
// ctx.Err().
func (s *Synchronizer) Run(ctx context.Context) error {
	backoff := s.opts.RetryMin
	for {
		before := s.LastSeq()
		phase, err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.LastSeq() > before {
			backoff = s.opts.RetryMin
		}
		monitoring.IncreaseViewRetries(phase)
		logx.Warn("VIEWSYNC", fmt.Sprintf("Session failed in %s phase: %v | last_seq=%d | retry_in=%s",
			phase, err, s.LastSeq(), backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.opts.RetryMax {
			backoff = s.opts.RetryMax
		}
	}
}

// session runs one subscribe, bootstrap, live cycle and reports the phase it
// failed in.
func (s *Synchronizer) session(ctx context.Context) (string, error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := s.source.Subscribe(sctx)
	if err != nil {
		return PhaseSubscribe, err
	}
	defer sub.Unsubscribe()

	head, err := s.source.Head(sctx)
	if err != nil {
		return PhaseBootstrap, err
	}
	if err := s.catchUp(sctx, head); err != nil {
		return PhaseBootstrap, err
	}
	logx.Info("VIEWSYNC", fmt.Sprintf("Bootstrap complete | head=%d | last_seq=%d", head, s.LastSeq()))

	for {
		select {
		case <-ctx.Done():
			return PhaseLive, ctx.Err()
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return PhaseLive, errSubscriptionClosed
			}
			return PhaseLive, err
		case ev, ok := <-sub.Events():
			if !ok {
				return PhaseLive, errSubscriptionClosed
			}
			if err := s.applyLive(sctx, ev); err != nil {
				return PhaseLive, err
			}
		}
	}
}

func (s *Synchronizer) applyLive(ctx context.Context, ev *events.Event) error {
	err := s.apply(ev)
	if !stderrors.Is(err, ErrSequenceGap) {
		return err
	}
	monitoring.IncreaseViewBackfills()
	logx.Info("VIEWSYNC", fmt.Sprintf("Gap before %s, backfilling from %d", ev, s.LastSeq()+1))
	return s.catchUp(ctx, ev.Seq)
}

// catchUp pages through history until the projection reaches to
func (s *Synchronizer) catchUp(ctx context.Context, to uint64) error {
	for s.LastSeq() < to {
		from := s.LastSeq() + 1
		end := from + s.opts.PageSize - 1
		if end > to || end < from {
			end = to
		}
		page, err := s.source.Range(ctx, from, end)
		if err != nil {
			return fmt.Errorf("fetch events [%d, %d]: %w", from, end, err)
		}
		if len(page) == 0 {
			return fmt.Errorf("source returned no events for [%d, %d]", from, end)
		}
		for _, ev := range page {
			if err := s.apply(ev); err != nil {
				return err
			}
		}
		if s.LastSeq() < from {
			return fmt.Errorf("no progress applying events [%d, %d]", from, end)
		}
	}
	return nil
}

func (s *Synchronizer) apply(ev *events.Event) error {
	var (
		applied bool
		err     error
	)
	s.mu.Lock()
	if !exception.SafeRun("viewsync.apply", func() { applied, err = s.proj.Apply(ev) }) {
		err = fmt.Errorf("%w: %s", errApplyPanicked, ev)
	}
	last := s.proj.LastSeq()
	s.mu.Unlock()

	switch {
	case stderrors.Is(err, ErrForeignInstance):
		logx.Warn("VIEWSYNC", fmt.Sprintf("Skipping %s: %v", ev, err))
		return nil
	case err != nil:
		return err
	case !applied:
		monitoring.IncreaseViewDuplicates()
		return nil
	}

	monitoring.IncreaseViewApplied()
	monitoring.SetViewHead(last)
	select {
	case s.updates <- struct{}{}:
	default:
	}
	return nil
}
