package preview

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"equity-share-calculator/internal/allocation"

	"github.com/rs/zerolog"
)

func testInput(payment float64) allocation.Input {
	return allocation.Input{
		Participants: []allocation.Participant{
			{Name: "Inv", Role: allocation.RoleInvestor, Payment: payment},
		},
		Economics: allocation.ProjectEconomics{ProjectCost: 10000, SalePrice: 15000},
	}
}

func waitUpdate(t *testing.T, s *Session, timeout time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-s.Updates():
		if !ok {
			t.Fatal("updates channel closed")
		}
		return u
	case <-time.After(timeout):
		t.Fatal("timed out waiting for update")
	}
	return Update{}
}

// ============================================================================
// TEST: Debounce coalesces a burst into one recalculation
// ============================================================================

func TestSession_DebounceCoalesces(t *testing.T) {
	var calls int32
	calc := func(ctx context.Context, input allocation.Input) (*allocation.CalculationResult, error) {
		atomic.AddInt32(&calls, 1)
		return EngineCalc(ctx, input)
	}
	s := newSession("test", 30*time.Millisecond, calc, nil, zerolog.Nop())
	defer s.Close()

	for i := 1; i <= 5; i++ {
		s.Submit(testInput(float64(i * 1000)))
		time.Sleep(5 * time.Millisecond)
	}

	u := waitUpdate(t, s, time.Second)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calc ran %d times, want 1 (burst coalesced)", got)
	}
	if u.Seq != 5 {
		t.Errorf("delivered seq = %d, want 5 (newest submission)", u.Seq)
	}
	if u.Err != nil {
		t.Fatalf("unexpected error: %v", u.Err)
	}
	// The delivered result reflects the last input of the burst.
	if u.Result.Totals.CashTotal != 5000 {
		t.Errorf("CashTotal = %v, want 5000 from the final submission", u.Result.Totals.CashTotal)
	}
}

// ============================================================================
// TEST: A newer submission supersedes an in-flight recalculation
// ============================================================================

func TestSession_SupersedeInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan uint64, 2)
	var calls int32

	calc := func(ctx context.Context, input allocation.Input) (*allocation.CalculationResult, error) {
		n := atomic.AddInt32(&calls, 1)
		started <- uint64(n)
		if n == 1 {
			// Simulate a slow first recalculation; it must be cancelled
			// when the second submission arrives.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
			}
		}
		return EngineCalc(context.Background(), input)
	}

	s := newSession("test", 10*time.Millisecond, calc, nil, zerolog.Nop())
	defer s.Close()

	s.Submit(testInput(1000))
	<-started

	// Second submission while the first is in flight.
	s.Submit(testInput(2000))
	<-started
	close(release)

	u := waitUpdate(t, s, time.Second)
	if u.Seq != 2 {
		t.Fatalf("delivered seq = %d, want 2 (first superseded)", u.Seq)
	}
	if u.Result.Totals.CashTotal != 2000 {
		t.Errorf("CashTotal = %v, want 2000 from the superseding input", u.Result.Totals.CashTotal)
	}
	if s.LastApplied() != 2 {
		t.Errorf("LastApplied = %d, want 2", s.LastApplied())
	}

	// The superseded result must never surface afterwards.
	select {
	case u, ok := <-s.Updates():
		if ok {
			t.Fatalf("unexpected extra update: %+v", u)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

// ============================================================================
// TEST: Structural faults are delivered as update errors
// ============================================================================

func TestSession_DeliversEngineFault(t *testing.T) {
	s := newSession("test", 10*time.Millisecond, nil, nil, zerolog.Nop())
	s.calc = EngineCalc
	defer s.Close()

	s.Submit(allocation.Input{}) // no participants, no property

	u := waitUpdate(t, s, time.Second)
	if u.Err == nil {
		t.Fatal("expected structural fault to be delivered")
	}
}

// ============================================================================
// TEST: Close cancels pending work
// ============================================================================

func TestSession_Close(t *testing.T) {
	s := newSession("test", 20*time.Millisecond, EngineCalc, nil, zerolog.Nop())

	s.Submit(testInput(1000))
	s.Close()

	// Closed channel, no update.
	select {
	case _, ok := <-s.Updates():
		if ok {
			t.Fatal("expected no update after Close")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("updates channel not closed")
	}

	// Submitting after close is a no-op.
	if seq := s.Submit(testInput(2000)); seq != 1 {
		t.Errorf("Submit after Close advanced seq to %d", seq)
	}
}

// ============================================================================
// TEST: Manager lifecycle and idle expiry
// ============================================================================

func TestManager_SessionLifecycle(t *testing.T) {
	m := NewManager(10*time.Millisecond, time.Hour, nil, nil, zerolog.Nop())
	defer m.Stop()

	s := m.NewSession()
	if s.ID() == "" {
		t.Fatal("expected a session ID")
	}
	if _, ok := m.Get(s.ID()); !ok {
		t.Fatal("session not registered")
	}
	if m.Count() != 1 {
		t.Fatalf("Count = %d, want 1", m.Count())
	}

	m.Remove(s.ID())
	if _, ok := m.Get(s.ID()); ok {
		t.Fatal("session still registered after Remove")
	}
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, 20*time.Millisecond, nil, nil, zerolog.Nop())
	defer m.Stop()

	s := m.NewSession()
	time.Sleep(40 * time.Millisecond)
	m.sweep()

	if _, ok := m.Get(s.ID()); ok {
		t.Fatal("idle session survived the sweep")
	}
}
