package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTimer(seconds int, onTick func(int, Phase), onComplete func()) (*Timer, *sync.Mutex) {
	mu := &sync.Mutex{}
	return NewTimer(TimerConfig{
		Phase:      PhaseSubmitting,
		Seconds:    seconds,
		Interval:   2 * time.Millisecond,
		OnTick:     onTick,
		OnComplete: onComplete,
		Serialize: func(fn func()) {
			mu.Lock()
			defer mu.Unlock()
			fn()
		},
	}), mu
}

func TestTimer_TicksThenCompletesOnce(t *testing.T) {
	var ticks []int
	var mu sync.Mutex
	var completed atomic.Int32

	tm, _ := fastTimer(3, func(remaining int, phase Phase) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
		assert.Equal(t, PhaseSubmitting, phase)
	}, func() { completed.Add(1) })

	tm.Start()
	tm.Start() // idempotent while active

	require.Eventually(t, func() bool { return completed.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), completed.Load())
	assert.False(t, tm.Active())
	mu.Lock()
	assert.Equal(t, []int{2, 1, 0}, ticks)
	mu.Unlock()
}

func TestTimer_CancelSuppressesCompletionAndTicks(t *testing.T) {
	var ticks atomic.Int32
	var completed atomic.Int32

	tm, room := fastTimer(1000, func(int, Phase) { ticks.Add(1) }, func() { completed.Add(1) })
	tm.Start()
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	room.Lock()
	tm.Cancel()
	tm.Cancel()
	seen := ticks.Load()
	room.Unlock()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, seen, ticks.Load(), "no residual tick after cancel")
	assert.Equal(t, int32(0), completed.Load())
	assert.False(t, tm.Active())
}

func TestTimer_ZeroSecondsCompletesOnFirstTick(t *testing.T) {
	done := make(chan struct{})
	tm, _ := fastTimer(0, nil, func() { close(done) })
	tm.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for completion")
	}
}

func TestTimerSnapshot_RemainingAt(t *testing.T) {
	saved := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "ten seconds later", elapsed: 10 * time.Second, want: 50},
		{name: "fractions round down", elapsed: 10900 * time.Millisecond, want: 50},
		{name: "exactly expired", elapsed: 60 * time.Second, want: 0},
		{name: "long expired", elapsed: 5 * time.Minute, want: 0},
		{name: "clock skew backwards", elapsed: -3 * time.Second, want: 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := TimerSnapshot{Phase: PhaseVoting, Duration: 60, Remaining: 60, SavedAt: saved}
			assert.Equal(t, tc.want, s.RemainingAt(saved.Add(tc.elapsed)))
		})
	}
}

func TestTimer_StateAndRestore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTimer(TimerConfig{Phase: PhaseVoting, Seconds: 60, Now: func() time.Time { return now }})

	snap := tm.State()
	assert.Equal(t, 60, snap.Remaining)
	assert.Equal(t, now, snap.SavedAt)

	now = now.Add(10 * time.Second)
	tm.Restore(snap)
	assert.Equal(t, 50, tm.Remaining())
}

func TestTimer_FinishRunsCompletionOnce(t *testing.T) {
	var completed atomic.Int32
	tm, room := fastTimer(1000, nil, func() { completed.Add(1) })
	tm.Start()

	room.Lock()
	tm.Finish()
	tm.Finish()
	room.Unlock()

	assert.EqualValues(t, 1, completed.Load())
	assert.False(t, tm.Active())
	assert.Equal(t, 0, tm.Remaining())
}
