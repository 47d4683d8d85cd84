package game

import (
	"sync"
	"time"
)

// TimerSnapshot records remaining time at a wall-clock instant so the true remaining
// time can be recomputed later from elapsed wall-clock time.
type TimerSnapshot struct {
	Phase     Phase     `json:"phase"`
	Duration  int       `json:"duration"`
	Remaining int       `json:"remaining"`
	SavedAt   time.Time `json:"savedAt"`
}

// RemainingAt returns max(0, Remaining - whole seconds elapsed since SavedAt).
func (s TimerSnapshot) RemainingAt(now time.Time) int {
	elapsed := int(now.Sub(s.SavedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(0, s.Remaining-elapsed)
}

// TimerConfig describes a countdown. Serialize, when set, wraps every tick so the
// callbacks run under the owner's serialization (the room lock).
type TimerConfig struct {
	Phase      Phase
	Seconds    int
	Interval   time.Duration
	OnTick     func(remaining int, phase Phase)
	OnComplete func()
	Serialize  func(fn func())
	Now        func() time.Time
}

// Timer is a per-room countdown. It decrements once per interval, calls OnTick on
// every tick and OnComplete exactly once when remaining reaches zero.
type Timer struct {
	mu        sync.Mutex
	cfg       TimerConfig
	remaining int
	startedAt time.Time
	active    bool
	stop      chan struct{}
}

func NewTimer(cfg TimerConfig) *Timer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Serialize == nil {
		cfg.Serialize = func(fn func()) { fn() }
	}
	return &Timer{cfg: cfg, remaining: cfg.Seconds}
}

// Start begins ticking. It is a no-op while the timer is already active.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return
	}
	if t.remaining <= 0 {
		t.remaining = t.cfg.Seconds
	}
	t.active = true
	t.startedAt = t.cfg.Now()
	stop := make(chan struct{})
	t.stop = stop
	go t.run(stop)
}

// Cancel stops ticking without invoking completion. Idempotent.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	close(t.stop)
	t.stop = nil
}

// Finish stops ticking and runs completion right away. The caller must already hold
// the serialization the timer was configured with.
func (t *Timer) Finish() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.remaining = 0
	close(t.stop)
	t.stop = nil
	t.mu.Unlock()

	if t.cfg.OnComplete != nil {
		t.cfg.OnComplete()
	}
}

func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Phase() Phase {
	return t.cfg.Phase
}

// State snapshots the in-memory counter at the current wall-clock time.
func (t *Timer) State() TimerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimerSnapshot{
		Phase:     t.cfg.Phase,
		Duration:  t.cfg.Seconds,
		Remaining: t.remaining,
		SavedAt:   t.cfg.Now(),
	}
}

// Restore sets the remaining time from a snapshot, discounting elapsed wall-clock
// time. It does not start the timer.
func (t *Timer) Restore(s TimerSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remaining = s.RemainingAt(t.cfg.Now())
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			finished := false
			t.cfg.Serialize(func() { finished = t.tick(stop) })
			if finished {
				return
			}
		}
	}
}

// tick drops fires that belong to a cancelled or restarted run.
func (t *Timer) tick(stop chan struct{}) bool {
	t.mu.Lock()
	if !t.active || t.stop != stop {
		t.mu.Unlock()
		return true
	}
	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}
	remaining := t.remaining
	finished := remaining == 0
	if finished {
		t.active = false
		t.stop = nil
	}
	t.mu.Unlock()

	if t.cfg.OnTick != nil {
		t.cfg.OnTick(remaining, t.cfg.Phase)
	}
	if finished && t.cfg.OnComplete != nil {
		t.cfg.OnComplete()
	}
	return finished
}
