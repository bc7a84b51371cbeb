package arena

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Scheduler drives the two fixed cadences of the engine: the per-session tick
// pass and the slower global inactivity sweep. Exactly one tick loop exists
// per process regardless of connection count; connection events never spawn
// recurring work.
type Scheduler struct {
	engine     *Engine
	logger     *zap.Logger
	tickEvery  time.Duration
	sweepEvery time.Duration

	stop    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
	ticks   atomic.Int64
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(engine *Engine, logger *zap.Logger, tickEvery, sweepEvery time.Duration) *Scheduler {
	return &Scheduler{
		engine:     engine,
		logger:     logger,
		tickEvery:  tickEvery,
		sweepEvery: sweepEvery,
	}
}

// Start launches the tick and sweep loops. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.stop = make(chan struct{})
	s.wg.Add(2)
	go s.runTicks()
	go s.runSweeps()
	s.logger.Info("scheduler started",
		zap.Duration("tick_interval", s.tickEvery),
		zap.Duration("sweep_interval", s.sweepEvery),
	)
}

// Stop halts both loops and waits for them to drain.
func (s *Scheduler) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("scheduler stopped", zap.Int64("ticks", s.ticks.Load()))
}

// Ticks returns the number of tick passes completed since Start.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Scheduler) runTicks() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	ctx := context.Background()
	last := s.engine.Clock()
	maxDt := 4 * s.tickEvery
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := s.engine.Clock()
			dt := now.Sub(last)
			if dt <= 0 {
				dt = s.tickEvery
			} else if dt > maxDt {
				dt = maxDt
			}
			last = now
			s.engine.TickAll(ctx, now, dt)
			s.ticks.Inc()
		}
	}
}

func (s *Scheduler) runSweeps() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.engine.SweepInactive(ctx, s.engine.Clock())
		}
	}
}
