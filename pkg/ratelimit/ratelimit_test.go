package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestBudget_MinuteLimit(t *testing.T) {
	clock := newClock()
	b := NewBudget(3, 100, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if !b.CanCall() {
			t.Fatalf("call %d: expected budget to permit call", i)
		}
		b.RecordCall()
		clock.Advance(300 * time.Millisecond)
	}

	if b.CanCall() {
		t.Fatalf("expected budget to be exhausted after 3 calls")
	}

	// 59s after the oldest call the window is still full
	clock.Advance(59*time.Second - 900*time.Millisecond)
	if b.CanCall() {
		t.Errorf("expected no slot before the oldest call leaves the window")
	}

	clock.Advance(time.Second)
	if !b.CanCall() {
		t.Errorf("expected a slot once 60s elapsed since the oldest call")
	}
}

func TestBudget_TimeUntilNextSlot(t *testing.T) {
	clock := newClock()
	b := NewBudget(5, 100, WithClock(clock.Now))

	if _, ok := b.TimeUntilNextSlot(); ok {
		t.Fatalf("expected no slot information on an empty window")
	}

	b.RecordCall()
	clock.Advance(20 * time.Second)

	wait, ok := b.TimeUntilNextSlot()
	if !ok {
		t.Fatalf("expected slot information after a recorded call")
	}
	if wait != 40*time.Second {
		t.Errorf("expected 40s until next slot, got %v", wait)
	}

	clock.Advance(90 * time.Second)
	wait, ok = b.TimeUntilNextSlot()
	if !ok || wait != 0 {
		t.Errorf("expected wait floored at zero, got %v (ok=%v)", wait, ok)
	}
}

func TestBudget_DayRollover(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)}
	b := NewBudget(10, 2, WithClock(clock.Now))

	b.RecordCall()
	b.RecordCall()

	if b.CanCall() {
		t.Fatalf("expected daily ceiling to block calls")
	}
	if !b.DailyExhausted() {
		t.Fatalf("expected DailyExhausted to be true")
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}

	clock.Advance(2 * time.Minute)

	if !b.CanCall() {
		t.Fatalf("expected calls to be permitted after the date changed")
	}
	if got := b.Remaining(); got != 2 {
		t.Errorf("expected daily counter reset to full budget, got %d remaining", got)
	}
}

func TestBudget_Await(t *testing.T) {
	clock := newClock()
	b := NewBudget(1, 100, WithClock(clock.Now))
	b.RecordCall()

	var sleeps []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		clock.Advance(d)
		return nil
	}

	waited, err := b.Await(context.Background(), sleep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sleeps) != 1 {
		t.Fatalf("expected a single wait, got %v", sleeps)
	}
	if sleeps[0] != Window+Slack {
		t.Errorf("expected wait of %v, got %v", Window+Slack, sleeps[0])
	}
	if waited != Window+Slack {
		t.Errorf("expected reported wait %v, got %v", Window+Slack, waited)
	}
	if !b.CanCall() {
		t.Errorf("expected a free slot after Await")
	}
}

func TestBudget_AwaitNoWaitWhenPermitted(t *testing.T) {
	b := NewBudget(1, 1)

	sleep := func(ctx context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %v", d)
		return nil
	}

	if _, err := b.Await(context.Background(), sleep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBudget_AwaitDailyExhausted(t *testing.T) {
	clock := newClock()
	b := NewBudget(10, 1, WithClock(clock.Now))
	b.RecordCall()

	sleep := func(ctx context.Context, d time.Duration) error {
		t.Fatalf("should not wait on the daily ceiling")
		return nil
	}

	_, err := b.Await(context.Background(), sleep)
	if !errors.Is(err, ErrDailyExhausted) {
		t.Fatalf("expected ErrDailyExhausted, got %v", err)
	}
}

func TestBudget_AwaitContextCanceled(t *testing.T) {
	clock := newClock()
	b := NewBudget(1, 10, WithClock(clock.Now))
	b.RecordCall()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Await(ctx, Sleep)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestBudget_ZeroCapacity(t *testing.T) {
	b := NewBudget(0, 0)
	if b.CanCall() {
		t.Errorf("zero capacity budget should never permit calls")
	}
	if !b.DailyExhausted() {
		t.Errorf("zero capacity budget should report daily exhaustion")
	}
}

func TestBudget_AwaitNoMinuteCapacity(t *testing.T) {
	tests := []struct {
		name      string
		perMinute int
		perDay    int
		want      error
	}{
		{"zero per minute", 0, 90, ErrNoCapacity},
		{"negative per minute", -1, 90, ErrNoCapacity},
		{"zero everything", 0, 0, ErrDailyExhausted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBudget(tc.perMinute, tc.perDay, WithClock(newClock().Now))

			sleeps := 0
			sleep := func(ctx context.Context, d time.Duration) error {
				sleeps++
				if sleeps > 3 {
					return errors.New("still waiting")
				}
				return nil
			}

			waited, err := b.Await(context.Background(), sleep)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !Exhausted(err) {
				t.Errorf("expected Exhausted(%v) to be true", err)
			}
			if sleeps != 0 || waited != 0 {
				t.Errorf("expected no waiting, got %d sleeps totalling %v", sleeps, waited)
			}
		})
	}
}

func TestExhausted(t *testing.T) {
	if Exhausted(nil) || Exhausted(context.Canceled) {
		t.Errorf("only budget errors count as exhausted")
	}
	if !Exhausted(fmt.Errorf("search: %w", ErrDailyExhausted)) {
		t.Errorf("expected wrapped ErrDailyExhausted to count as exhausted")
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Errorf("Sleep returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Errorf("expected error from canceled context")
	}
}
