// Package focus is a pomodoro-style countdown that survives restarts by
// keeping a snapshot in session storage.
package focus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reign/internal/logging"
	"reign/internal/storage"
)

const (
	StorageKey   = "reign_focus_timer"
	DefaultFocus = 25 * time.Minute
	DefaultBreak = 5 * time.Minute
	tickEvery    = time.Second
)

type State string

const (
	StateIdle     State = "idle"
	StateFocusing State = "focusing"
	StateBreak    State = "break"
	StatePaused   State = "paused"
)

var ErrInvalidTransition = errors.New("invalid timer transition")

type Status struct {
	State      State
	PausedFrom State
	Label      string
	Duration   time.Duration
	Remaining  time.Duration
}

type snapshot struct {
	State       State  `json:"state"`
	PausedFrom  State  `json:"pausedFrom,omitempty"`
	DurationMs  int64  `json:"durationMs"`
	RemainingMs int64  `json:"remainingMs"`
	SavedAt     int64  `json:"savedAt"`
	Label       string `json:"label,omitempty"`
}

type Timer struct {
	storage storage.Storage
	clock   clockwork.Clock
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	pausedFrom State
	label      string
	duration   time.Duration
	remaining  time.Duration
	deadline   time.Time
	onComplete []func(wasBreak bool)
}

type Option func(*Timer)

func WithClock(c clockwork.Clock) Option { return func(t *Timer) { t.clock = c } }
func WithLogger(l *zap.Logger) Option   { return func(t *Timer) { t.logger = logging.OrNop(l) } }

func New(st storage.Storage, opts ...Option) *Timer {
	t := &Timer{
		storage: st,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("focus")
	return t
}

// OnComplete registers fn to run whenever a countdown reaches zero.
func (t *Timer) OnComplete(fn func(wasBreak bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onComplete = append(t.onComplete, fn)
}

func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:      t.state,
		PausedFrom: t.pausedFrom,
		Label:      t.label,
		Duration:   t.duration,
		Remaining:  t.remainingLocked(t.clock.Now()),
	}
}

// Start begins a focus session. d <= 0 uses DefaultFocus.
func (t *Timer) Start(d time.Duration, label string) error {
	if d <= 0 {
		d = DefaultFocus
	}
	return t.begin(StateFocusing, d, label, StateIdle)
}

// StartBreak begins a break, either fresh or straight out of a focus
// session. d <= 0 uses DefaultBreak.
func (t *Timer) StartBreak(d time.Duration) error {
	if d <= 0 {
		d = DefaultBreak
	}
	return t.begin(StateBreak, d, "", StateIdle, StateFocusing)
}

func (t *Timer) begin(to State, d time.Duration, label string, from ...State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inLocked(from...) {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, to, t.state)
	}
	now := t.clock.Now()
	t.state = to
	t.pausedFrom = ""
	t.label = label
	t.duration = d
	t.remaining = d
	t.deadline = now.Add(d)
	t.persistLocked(now)
	return nil
}

func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inLocked(StateFocusing, StateBreak) {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, t.state)
	}
	now := t.clock.Now()
	t.remaining = t.remainingLocked(now)
	t.pausedFrom = t.state
	t.state = StatePaused
	t.persistLocked(now)
	return nil
}

func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, t.state)
	}
	now := t.clock.Now()
	t.state = t.pausedFrom
	t.pausedFrom = ""
	t.deadline = now.Add(t.remaining)
	t.persistLocked(now)
	return nil
}

// Reset abandons whatever is running without signalling completion.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.toIdleLocked()
	t.persistLocked(t.clock.Now())
}

// Tick recomputes the remaining time, persists it and completes the
// countdown once it reaches zero. It reports whether a completion fired.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	if !t.inLocked(StateFocusing, StateBreak) {
		t.mu.Unlock()
		return false
	}
	now := t.clock.Now()
	t.remaining = t.remainingLocked(now)
	if t.remaining > 0 {
		t.persistLocked(now)
		t.mu.Unlock()
		return false
	}
	return t.completeAndUnlock(now)
}

// Restore loads the saved snapshot. Time that passed since it was saved
// counts against a running countdown, which completes right away if it
// already expired. Paused timers keep their remaining time.
func (t *Timer) Restore() error {
	raw, ok, err := t.storage.GetItem(StorageKey)
	if err != nil {
		return fmt.Errorf("read timer: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || !validSnapshot(snap) {
		t.logger.Warn("discarding unreadable timer snapshot", zap.Error(err))
		return t.storage.RemoveItem(StorageKey)
	}

	t.mu.Lock()
	now := t.clock.Now()
	t.state = snap.State
	t.pausedFrom = snap.PausedFrom
	t.label = snap.Label
	t.duration = time.Duration(snap.DurationMs) * time.Millisecond
	t.remaining = time.Duration(snap.RemainingMs) * time.Millisecond

	switch t.state {
	case StateIdle:
		t.toIdleLocked()
		t.mu.Unlock()
		return nil
	case StatePaused:
		t.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(time.UnixMilli(snap.SavedAt))
	if elapsed > 0 {
		t.remaining -= elapsed
	}
	t.deadline = now.Add(t.remaining)
	if t.remaining > 0 {
		t.persistLocked(now)
		t.mu.Unlock()
		return nil
	}
	t.completeAndUnlock(now)
	return nil
}

// Run ticks once a second until ctx is done.
func (t *Timer) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.Tick()
		}
	}
}

func (t *Timer) completeAndUnlock(now time.Time) bool {
	wasBreak := t.state == StateBreak
	t.toIdleLocked()
	t.persistLocked(now)
	fns := append([]func(bool){}, t.onComplete...)
	t.mu.Unlock()

	t.logger.Info("countdown complete", zap.Bool("break", wasBreak))
	for _, fn := range fns {
		fn(wasBreak)
	}
	return true
}

func (t *Timer) toIdleLocked() {
	t.state = StateIdle
	t.pausedFrom = ""
	t.label = ""
	t.duration = 0
	t.remaining = 0
	t.deadline = time.Time{}
}

func (t *Timer) inLocked(states ...State) bool {
	for _, s := range states {
		if t.state == s {
			return true
		}
	}
	return false
}

func (t *Timer) remainingLocked(now time.Time) time.Duration {
	switch t.state {
	case StateFocusing, StateBreak:
		if r := t.deadline.Sub(now); r > 0 {
			return r
		}
		return 0
	default:
		return t.remaining
	}
}

func (t *Timer) persistLocked(now time.Time) {
	var err error
	if t.state == StateIdle {
		err = t.storage.RemoveItem(StorageKey)
	} else {
		var b []byte
		b, err = json.Marshal(snapshot{
			State:       t.state,
			PausedFrom:  t.pausedFrom,
			DurationMs:  t.duration.Milliseconds(),
			RemainingMs: t.remaining.Milliseconds(),
			SavedAt:     now.UnixMilli(),
			Label:       t.label,
		})
		if err == nil {
			err = t.storage.SetItem(StorageKey, string(b))
		}
	}
	if err != nil {
		t.logger.Warn("persist timer failed", zap.Error(err))
	}
}

func validSnapshot(s snapshot) bool {
	switch s.State {
	case StateIdle:
		return true
	case StateFocusing, StateBreak:
		return s.RemainingMs >= 0
	case StatePaused:
		return s.PausedFrom == StateFocusing || s.PausedFrom == StateBreak
	}
	return false
}
