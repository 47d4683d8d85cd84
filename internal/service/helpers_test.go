package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"exemplarparty/internal/game"
	"exemplarparty/internal/repository/memstore"
)

type recordedEvent struct {
	Target  string
	ToRoom  bool
	Name    string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	events   []recordedEvent
	channels map[string]string
	closed   []string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{channels: make(map[string]string)}
}

func (f *fakeBroadcaster) EmitToConnection(connID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Target: connID, Name: event, Payload: payload})
}

func (f *fakeBroadcaster) EmitToRoom(code, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Target: code, ToRoom: true, Name: event, Payload: payload})
}

func (f *fakeBroadcaster) JoinRoomChannel(connID, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[connID] = code
}

func (f *fakeBroadcaster) CloseRoomChannel(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, code)
}

func (f *fakeBroadcaster) snapshot() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

func (f *fakeBroadcaster) named(name string) []recordedEvent {
	var out []recordedEvent
	for _, e := range f.snapshot() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBroadcaster) lastTo(target, name string) (recordedEvent, bool) {
	events := f.snapshot()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Target == target && events[i].Name == name {
			return events[i], true
		}
	}
	return recordedEvent{}, false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockRoomCache struct {
	mock.Mock
}

func (m *mockRoomCache) Reserve(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockRoomCache) Release(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockRoomCache) Exists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

type harness struct {
	svc   *GameService
	store *memstore.Store
	bc    *fakeBroadcaster
}

// fastSettings keep the results sequence at one tick per step; submission and voting
// windows are long enough that tests finish them through early completion.
var fastSettings = game.TimerSettings{
	SubmitSeconds:            60,
	VotingMinSeconds:         30,
	VotingPerExemplarSeconds: 15,
	RevealSeconds:            1,
	SummarySeconds:           1,
	ScoreboardSeconds:        1,
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.Settings == (game.TimerSettings{}) {
		opts.Settings = fastSettings
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = 5 * time.Millisecond
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	store := memstore.New()
	svc := NewGameService(store, NewAuthService("test-secret", "letmein"), opts, nil)
	bc := newFakeBroadcaster()
	svc.SetBroadcaster(bc)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return &harness{svc: svc, store: store, bc: bc}
}

// lobby creates a room bound to "gm" and joins each nickname on a connection of the
// same name.
func (h *harness) lobby(t *testing.T, nicknames ...string) (string, map[string]string) {
	t.Helper()
	code, err := h.svc.CreateRoom("gm")
	require.NoError(t, err)
	ids := make(map[string]string)
	for _, n := range nicknames {
		res, err := h.svc.JoinRoom(n, code, n)
		require.NoError(t, err)
		ids[n] = res.PlayerID
	}
	return code, ids
}

func (h *harness) state(t *testing.T, code string) GameState {
	t.Helper()
	st, err := h.svc.RoomState(code)
	require.NoError(t, err)
	return st
}

func (h *harness) waitPhase(t *testing.T, code string, phase game.Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := h.svc.RoomState(code)
		return err == nil && st.Phase == phase
	}, 2*time.Second, 2*time.Millisecond, "room never reached %s", phase)
}

// exhaustPool marks every unused category of the room's game used, except keep.
func (h *harness) exhaustPool(t *testing.T, code string, keep int) {
	t.Helper()
	room := h.svc.room(code)
	require.NotNil(t, room)
	ctx := context.Background()
	cats, err := h.store.AvailableCategories(ctx, room.GameID)
	require.NoError(t, err)
	for i, c := range cats {
		if i < keep {
			continue
		}
		_, err := h.store.MarkCategoryUsed(ctx, c.ID)
		require.NoError(t, err)
	}
}

func (h *harness) indexOf(t *testing.T, code, nickname string) int {
	t.Helper()
	room := h.svc.room(code)
	room.Lock()
	defer room.Unlock()
	for _, sub := range room.Submissions {
		if sub.Nickname == nickname {
			return sub.Index
		}
	}
	t.Fatalf("no submission by %s", nickname)
	return -1
}
