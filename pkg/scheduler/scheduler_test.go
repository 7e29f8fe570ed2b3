package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/mdfront/mdfront/pkg/logger"
)

func TestPace(t *testing.T) {
	const ntsc = 16_683_333 * time.Nanosecond

	tests := []struct {
		name    string
		before  time.Duration
		after   time.Duration
		target  time.Duration
		sleep   time.Duration
		skipped bool
	}{
		{name: "short frame", before: 100 * time.Millisecond, after: 105 * time.Millisecond,
			target: ntsc, sleep: 11_683_333 * time.Nanosecond},
		{name: "exact frame", before: 0, after: ntsc, target: ntsc},
		{name: "long frame", before: 0, after: 30 * time.Millisecond, target: ntsc},
		{name: "second boundary", before: 990 * time.Millisecond, after: 1001 * time.Millisecond,
			target: ntsc, skipped: true},
		{name: "pal", before: 2 * time.Second, after: 2*time.Second + time.Millisecond,
			target: 20 * time.Millisecond, sleep: 19 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleep, skipped := Pace(tt.before, tt.after, tt.target)
			if sleep != tt.sleep || skipped != tt.skipped {
				t.Errorf("Pace() = %v, %v, want %v, %v", sleep, skipped, tt.sleep, tt.skipped)
			}
		})
	}
}

type fakeClock struct {
	now   time.Duration
	slept []time.Duration
}

func (c *fakeClock) Now() time.Duration    { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.slept = append(c.slept, d); c.now += d }

type task struct {
	clock  *fakeClock
	work   time.Duration
	frames int
	cancel func()
	n      int
}

func (t *task) FrameDuration() time.Duration { return 20 * time.Millisecond }
func (t *task) Tick() bool {
	t.n++
	t.clock.now += t.work
	if t.cancel != nil && t.n == t.frames {
		t.cancel()
		return true
	}
	return t.n < t.frames
}

type stats []Stat

func (s *stats) Observe(st Stat) { *s = append(*s, st) }

func TestRunStopsOnTask(t *testing.T) {
	clock := &fakeClock{now: 3 * time.Second}
	tk := &task{clock: clock, work: 5 * time.Millisecond, frames: 10}
	s := New(tk, clock, logger.Nop())
	var st stats
	s.SetObserver(&st)

	s.Run(context.Background())

	if s.Ticks() != 10 || len(st) != 10 {
		t.Fatalf("expected 10 ticks, got %d (%d stats)", s.Ticks(), len(st))
	}
	if s.State() != Stopped {
		t.Errorf("scheduler is %v after Run", s.State())
	}
	// 50 frames fit in a second, none of these cross it
	for i, d := range clock.slept {
		if d != 15*time.Millisecond {
			t.Errorf("tick %d slept %v", i, d)
		}
	}
	if clock.now != 3*time.Second+200*time.Millisecond {
		t.Errorf("unexpected end time %v", clock.now)
	}
}

func TestRunSkipsOnSecondBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Second - 2*time.Millisecond}
	tk := &task{clock: clock, work: 5 * time.Millisecond, frames: 1}
	s := New(tk, clock, logger.Nop())
	var st stats
	s.SetObserver(&st)
	s.Run(context.Background())

	if len(clock.slept) != 0 {
		t.Errorf("no sleep expected, got %v", clock.slept)
	}
	if len(st) != 1 || !st[0].Skipped {
		t.Errorf("tick must be marked as skipped: %+v", st)
	}
}

func TestRunCancel(t *testing.T) {
	clock := &fakeClock{}
	ctx, cancel := context.WithCancel(context.Background())
	tk := &task{clock: clock, work: time.Millisecond, frames: 3, cancel: cancel}
	s := New(tk, clock, logger.Nop())
	s.Run(ctx)
	// cancellation is seen at the top of the next tick
	if s.Ticks() != 3 {
		t.Errorf("expected 3 ticks, got %d", s.Ticks())
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock := &fakeClock{}
	s := New(&task{clock: clock, frames: 100}, clock, logger.Nop())
	s.Run(ctx)
	if s.Ticks() != 0 {
		t.Errorf("expected no ticks, got %d", s.Ticks())
	}
}
