// Package scheduler runs frames at the refresh rate of the media.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mdfront/mdfront/pkg/logger"
)

// Clock is a monotonic time source.
type Clock interface {
	// Now is the time passed since some fixed origin.
	Now() time.Duration
	Sleep(d time.Duration)
}

type monotonic struct{ origin time.Time }

// NewClock is the host clock, it never goes back with wall time changes.
func NewClock() Clock { return monotonic{origin: time.Now()} }

func (m monotonic) Now() time.Duration    { return time.Since(m.origin) }
func (m monotonic) Sleep(d time.Duration) { time.Sleep(d) }

// Task is the work of one frame.
type Task interface {
	// Tick polls input, runs the engine for one frame and presents it.
	// It returns false when the session wants to stop.
	Tick() bool
	// FrameDuration is the current time budget of one frame.
	FrameDuration() time.Duration
}

// Stat describes one finished tick.
type Stat struct {
	Work    time.Duration
	Sleep   time.Duration
	Target  time.Duration
	Skipped bool
}

// Observer receives a Stat after every tick.
type Observer interface{ Observe(Stat) }

type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

type Scheduler struct {
	task  Task
	clock Clock
	obs   Observer
	log   *logger.Logger

	state atomic.Int32
	ticks atomic.Uint64
}

func New(task Task, clock Clock, log *logger.Logger) *Scheduler {
	if clock == nil {
		clock = NewClock()
	}
	return &Scheduler{task: task, clock: clock, log: log}
}

func (s *Scheduler) SetObserver(o Observer) { s.obs = o }
func (s *Scheduler) State() State           { return State(s.state.Load()) }
func (s *Scheduler) Ticks() uint64          { return s.ticks.Load() }

// Pace decides the sleep after a frame that started at before and ended at after.
// Pacing is skipped when a second boundary lies between them,
// and nothing carries over to the next frame.
func Pace(before, after, target time.Duration) (sleep time.Duration, skipped bool) {
	if before/time.Second != after/time.Second {
		return 0, true
	}
	if elapsed := after - before; elapsed < target {
		return target - elapsed, false
	}
	return 0, false
}

// Run ticks until the task stops or ctx is done.
// The context is checked between frames only.
func (s *Scheduler) Run(ctx context.Context) {
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Stopped))
	s.log.Debug().Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Uint64("ticks", s.Ticks()).Msg("scheduler cancelled")
			return
		default:
		}

		before := s.clock.Now()
		ok := s.task.Tick()
		s.ticks.Add(1)
		after := s.clock.Now()

		target := s.task.FrameDuration()
		sleep, skipped := Pace(before, after, target)
		if sleep > 0 {
			s.clock.Sleep(sleep)
		}
		if s.obs != nil {
			s.obs.Observe(Stat{Work: after - before, Sleep: sleep, Target: target, Skipped: skipped})
		}
		if !ok {
			s.log.Debug().Uint64("ticks", s.Ticks()).Msg("scheduler stopped")
			return
		}
	}
}
