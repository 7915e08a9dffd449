package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler fires a tick on every interval. A fire that lands while the
// previous tick is still running is skipped, never queued.
type Scheduler struct {
	tick     func()
	interval time.Duration
	onSkip   func()

	running atomic.Bool
	skipped atomic.Int64
	fired   atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	loop   sync.WaitGroup
	ticks  sync.WaitGroup
}

// NewScheduler drives state every interval.
func NewScheduler(state *State, interval time.Duration) *Scheduler {
	return newScheduler(func() { state.Tick() }, interval, state.metrics.ObserveSkip)
}

func newScheduler(tick func(), interval time.Duration, onSkip func()) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		tick:     tick,
		interval: interval,
		onSkip:   onSkip,
	}
}

// Start begins ticking in the background. It is a no-op if already started.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.loop.Add(1)
	go func() {
		defer s.loop.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.fire()
			}
		}
	}()

	slog.Info("scheduler: started", "interval", s.interval)
}

func (s *Scheduler) fire() {
	s.fired.Add(1)
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		if s.onSkip != nil {
			s.onSkip()
		}
		slog.Debug("scheduler: tick skipped, previous tick still running")
		return
	}

	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		defer s.running.Store(false)
		s.tick()
	}()
}

// Stop halts the timer and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.loop.Wait()
	s.ticks.Wait()
	slog.Info("scheduler: stopped", "fired", s.fired.Load(), "skipped", s.skipped.Load())
}

// Skipped returns how many fires were skipped.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Fired returns how many times the timer fired.
func (s *Scheduler) Fired() int64 {
	return s.fired.Load()
}
