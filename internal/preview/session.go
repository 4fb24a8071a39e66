// Package preview implements the live-preview calling contract around
// the allocation engine: rapid input changes are debounced, and at most
// one in-flight recalculation is authoritative at a time. A superseded
// recalculation is cancelled and its result discarded, never merged.
// All scheduling state is request-scoped; the engine itself stays
// synchronous and cancellation-free.
package preview

import (
	"context"
	"errors"
	"sync"
	"time"

	"equity-share-calculator/internal/allocation"
	"equity-share-calculator/internal/events"

	"github.com/rs/zerolog"
)

// CalcFunc runs one recalculation. The context is cancelled when the
// request is superseded; implementations should check it before
// returning a result they spent time on.
type CalcFunc func(ctx context.Context, input allocation.Input) (*allocation.CalculationResult, error)

// EngineCalc adapts the allocation engine to CalcFunc.
func EngineCalc(ctx context.Context, input allocation.Input) (*allocation.CalculationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := allocation.Calculate(input)
	if err != nil {
		return nil, err
	}
	// The engine is O(n) and never blocks; a cancellation observed here
	// means the result is already stale.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update is one delivered recalculation outcome.
type Update struct {
	Seq    uint64
	Result *allocation.CalculationResult
	Err    error
}

// Session serializes recalculations for one live-preview client.
type Session struct {
	id       string
	debounce time.Duration
	calc     CalcFunc
	bus      *events.EventBus
	log      zerolog.Logger

	mu          sync.Mutex
	seq         uint64 // last accepted trigger
	applied     uint64 // last delivered result
	pending     allocation.Input
	hasPending  bool
	timer       *time.Timer
	cancel      context.CancelFunc // cancels the in-flight recalculation
	inflightSeq uint64             // trigger the in-flight cancel belongs to
	lastActive  time.Time
	closed      bool

	updates chan Update
}

func newSession(id string, debounce time.Duration, calc CalcFunc, bus *events.EventBus, log zerolog.Logger) *Session {
	return &Session{
		id:         id,
		debounce:   debounce,
		calc:       calc,
		bus:        bus,
		log:        log.With().Str("session_id", id).Logger(),
		lastActive: time.Now(),
		updates:    make(chan Update, 8),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Updates delivers recalculation outcomes in sequence order. Only the
// newest outcome for a burst of submissions is ever delivered.
func (s *Session) Updates() <-chan Update { return s.updates }

// Submit registers an input change. The recalculation fires after the
// quiescence window; a newer submission within the window replaces the
// pending one, and a newer submission during an in-flight recalculation
// cancels it.
func (s *Session) Submit(input allocation.Input) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.seq
	}

	s.seq++
	seq := s.seq
	s.pending = input
	s.hasPending = true
	s.lastActive = time.Now()

	// Supersede: a running recalculation is now stale.
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)

	s.log.Debug().Uint64("seq", seq).Msg("preview input accepted")
	return seq
}

// fire runs the pending recalculation, if it is still the newest.
func (s *Session) fire() {
	s.mu.Lock()
	if s.closed || !s.hasPending {
		s.mu.Unlock()
		return
	}
	input := s.pending
	seq := s.seq
	s.hasPending = false

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.inflightSeq = seq
	s.mu.Unlock()

	result, err := s.calc(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only release the cancel handle if it is still ours; a newer
	// trigger may have an in-flight recalculation of its own by now.
	if s.inflightSeq == seq && s.cancel != nil {
		s.cancel = nil
	}
	cancel()

	if s.closed {
		return
	}

	// A late result for a superseded trigger is dropped by sequence
	// comparison, not by timing.
	if seq != s.seq {
		s.log.Debug().Uint64("superseded_seq", seq).Uint64("current_seq", s.seq).Msg("stale preview result dropped")
		if s.bus != nil {
			s.bus.PublishPreviewSuperseded(s.id, seq, s.seq)
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	s.applied = seq
	s.deliver(Update{Seq: seq, Result: result, Err: err})

	if s.bus != nil {
		if err != nil {
			s.bus.PublishError("preview", "recalculation failed", err)
		} else {
			s.bus.PublishCalculationCompleted(s.id, seq, result.Valid(),
				len(result.Banners.Errors), len(result.Banners.Warnings))
		}
	}
}

// deliver pushes an update without blocking; under pressure the oldest
// queued update is discarded, since only the newest matters.
func (s *Session) deliver(u Update) {
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// LastApplied returns the sequence of the last delivered result.
func (s *Session) LastApplied() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// IdleSince reports the last submission time.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close cancels any in-flight recalculation and stops the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(s.updates)
}
