package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Window is the span of the rolling per-minute budget.
const Window = time.Minute

// Slack is added to every computed wait so a retry lands after the oldest
// call has actually left the window.
const Slack = time.Second

const dayLayout = "2006-01-02"

// ErrDailyExhausted is returned by Await when the calendar-day ceiling has
// been reached. Waiting cannot free a slot before the date changes.
var ErrDailyExhausted = errors.New("ratelimit: daily budget exhausted")

// ErrNoCapacity is returned by Await when the per-minute limit is not
// positive, so no slot can ever open.
var ErrNoCapacity = errors.New("ratelimit: no per-minute capacity")

// Exhausted reports whether err means the budget cannot grant a call
// without a date change or reconfiguration.
func Exhausted(err error) bool {
	return errors.Is(err, ErrDailyExhausted) || errors.Is(err, ErrNoCapacity)
}

// Budget tracks per-minute and per-day consumption for one external
// dependency. The zero value is not usable; construct with NewBudget.
//
// Budget guards its own state, but CanCall followed by RecordCall is not an
// atomic reservation. Callers sharing a Budget across goroutines must
// serialize that sequence themselves.
type Budget struct {
	mu        sync.Mutex
	perMinute int
	perDay    int
	window    []time.Time
	dayCount  int
	dayKey    string
	now       func() time.Time
}

// Option customizes a Budget.
type Option func(*Budget)

// WithClock replaces time.Now. Tests use it to simulate minute windows and
// date changes.
func WithClock(now func() time.Time) Option {
	return func(b *Budget) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBudget creates a budget allowing perMinute calls in any rolling minute
// and perDay calls per calendar day.
func NewBudget(perMinute, perDay int, opts ...Option) *Budget {
	b := &Budget{
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dayKey = b.now().Format(dayLayout)
	return b
}

// CanCall reports whether a call is currently permitted.
func (b *Budget) CanCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollover(now)
	if b.dayCount >= b.perDay {
		return false
	}
	b.prune(now)
	return len(b.window) < b.perMinute
}

// RecordCall registers one attempted external call.
func (b *Budget) RecordCall() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollover(now)
	b.window = append(b.window, now)
	b.dayCount++
}

// TimeUntilNextSlot returns how long until the oldest tracked call leaves the
// rolling window. The boolean is false when no calls are tracked.
func (b *Budget) TimeUntilNextSlot() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.window) == 0 {
		return 0, false
	}
	wait := Window - b.now().Sub(b.window[0])
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// DailyExhausted reports whether today's ceiling has been reached.
func (b *Budget) DailyExhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.now())
	return b.dayCount >= b.perDay
}

// Remaining returns the number of calls left for the current day.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.now())
	if left := b.perDay - b.dayCount; left > 0 {
		return left
	}
	return 0
}

// Await blocks until the budget permits a call. While the rolling window is
// full it sleeps until the next slot frees up plus Slack. It never waits on
// the daily ceiling and returns ErrDailyExhausted instead. A budget with no
// per-minute capacity returns ErrNoCapacity without sleeping.
func (b *Budget) Await(ctx context.Context, sleep SleepFunc) (waited time.Duration, err error) {
	if sleep == nil {
		sleep = Sleep
	}
	if b.perMinute <= 0 {
		if b.DailyExhausted() {
			return 0, ErrDailyExhausted
		}
		return 0, ErrNoCapacity
	}
	for {
		if b.DailyExhausted() {
			return waited, ErrDailyExhausted
		}
		if b.CanCall() {
			return waited, nil
		}
		wait, ok := b.TimeUntilNextSlot()
		if !ok {
			wait = time.Second
		}
		wait += Slack
		if err := sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// rollover resets the daily counter once the calendar date has changed.
// Must be called with mu held.
func (b *Budget) rollover(now time.Time) {
	if key := now.Format(dayLayout); key != b.dayKey {
		b.dayKey = key
		b.dayCount = 0
	}
}

// prune drops window entries that are at least Window old. Must be called
// with mu held.
func (b *Budget) prune(now time.Time) {
	i := 0
	for i < len(b.window) && now.Sub(b.window[i]) >= Window {
		i++
	}
	if i > 0 {
		b.window = append(b.window[:0], b.window[i:]...)
	}
}
