package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
)

func TestCreateRoom(t *testing.T) {
	h := newHarness(t, Options{})
	code, err := h.svc.CreateRoom("gm")
	require.NoError(t, err)
	assert.True(t, game.ValidCode(code))

	created, ok := h.bc.lastTo("gm", EventRoomCreated)
	require.True(t, ok)
	assert.Equal(t, code, created.Payload.(map[string]interface{})["code"])

	room := h.svc.room(code)
	g, ok := h.store.Game(room.GameID)
	require.True(t, ok)
	assert.Equal(t, model.GameActive, g.Status)

	cats, err := h.store.AvailableCategories(context.Background(), room.GameID)
	require.NoError(t, err)
	assert.Len(t, cats, len(game.PresetCategories))

	st := h.state(t, code)
	assert.Equal(t, game.PhaseLobby, st.Phase)
	assert.True(t, st.HasGM)
}

func TestCreateRoom_SkipsCodesReservedElsewhere(t *testing.T) {
	h := newHarness(t, Options{})
	rc := new(mockRoomCache)
	rc.On("Reserve", mock.Anything, mock.Anything).Return(false, nil).Once()
	rc.On("Reserve", mock.Anything, mock.Anything).Return(true, nil)
	h.svc.SetCaches(rc, nil, nil)

	code, err := h.svc.CreateRoom("gm")
	require.NoError(t, err)
	assert.True(t, game.ValidCode(code))
	rc.AssertNumberOfCalls(t, "Reserve", 2)
}

func TestJoinRoom_NicknameRules(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Alice")

	_, err := h.svc.JoinRoom("c2", code, "alice")
	assert.ErrorIs(t, err, game.ErrNicknameTaken)
	_, err = h.svc.JoinRoom("c2", code, "  ")
	assert.ErrorIs(t, err, game.ErrInvalidNickname)
	_, err = h.svc.JoinRoom("c2", code, "a-very-long-nickname-indeed")
	assert.ErrorIs(t, err, game.ErrInvalidNickname)
	_, err = h.svc.JoinRoom("c2", "ZZZZ", "bob")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	h.svc.Disconnect("Alice")
	res, err := h.svc.JoinRoom("c2", code, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Nickname)
	assert.NotEmpty(t, res.Token)
}

func TestJoinRoom_CodeIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t)
	res, err := h.svc.JoinRoom("c1", " "+strings.ToLower(code)+" ", "Bob")
	require.NoError(t, err)
	assert.Equal(t, code, res.Code)
}

func TestJoinDisplay_ReplacesPrevious(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Bob")

	require.NoError(t, h.svc.JoinDisplay("tv1", code))
	require.NoError(t, h.svc.JoinDisplay("tv2", code))
	assert.ErrorIs(t, h.svc.JoinDisplay("tv3", "ZZZZ"), game.ErrRoomNotFound)

	_, ok := h.bc.lastTo("tv2", EventDisplayUpdate)
	assert.True(t, ok)
	assert.ErrorIs(t, h.svc.StartGame("tv1"), game.ErrNotAuthorized)

	_, err := h.svc.JoinRoom("Ann", code, "Ann")
	require.NoError(t, err)
	require.NoError(t, h.svc.StartGame("tv2"), "the display may start the game")
}

func TestReconnect_RemainingTimeFromSnapshot(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, Options{Now: clock.Now, TickInterval: time.Hour})
	code, ids := h.lobby(t, "Bob", "Ann")
	require.NoError(t, h.svc.StartGame("gm"))

	h.svc.Disconnect("Bob")
	clock.Advance(10 * time.Second)

	res, err := h.svc.Reconnect("Bob2", ReconnectRequest{Code: code, PlayerID: ids["Bob"]})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseSubmitting, res.State.Phase)
	require.NotNil(t, res.State.Timer)
	assert.Equal(t, 50, res.State.Timer.Remaining)

	reconnected := h.bc.named(EventPlayerReconnected)
	require.Len(t, reconnected, 1)
	assert.Equal(t, NicknameEvent{Nickname: "Bob"}, reconnected[0].Payload)

	p, _ := h.store.Player(ids["Bob"])
	assert.True(t, p.Connected)
}

func TestReconnect_ExpiredDeadlineCompletesPhase(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, Options{Now: clock.Now, TickInterval: time.Hour})
	code, ids := h.lobby(t, "Bob", "Ann")
	require.NoError(t, h.svc.StartGame("gm"))
	require.NoError(t, h.svc.SubmitExemplar("Bob", "answer"))

	h.svc.Disconnect("Bob")
	clock.Advance(61 * time.Second)

	res, err := h.svc.Reconnect("Bob2", ReconnectRequest{Code: code, PlayerID: ids["Bob"]})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseVoting, res.State.Phase)
	assert.Len(t, res.Submissions, 1)
	assert.False(t, res.HasVoted)
}

func TestReconnect_RehydratesEvictedPlayer(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, Options{Now: clock.Now, PlayerGrace: time.Minute})
	code, ids := h.lobby(t, "Bob", "Ann")

	h.svc.Disconnect("Bob")
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, h.svc.EvictStalePlayers(clock.Now()))
	assert.Len(t, h.state(t, code).Players, 1)

	require.NoError(t, h.store.UpdatePlayerScore(context.Background(), ids["Bob"], 4))
	res, err := h.svc.Reconnect("Bob2", ReconnectRequest{Code: code, PlayerID: ids["Bob"]})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Score)
	assert.Equal(t, "Bob", res.Nickname)
	assert.Len(t, h.state(t, code).Players, 2)
}

func TestReconnect_Failures(t *testing.T) {
	h := newHarness(t, Options{})
	code, ids := h.lobby(t, "Bob")

	_, err := h.svc.Reconnect("x", ReconnectRequest{Code: code, PlayerID: "nobody"})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)
	_, err = h.svc.Reconnect("x", ReconnectRequest{Code: "ZZZZ", PlayerID: ids["Bob"]})
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	_, err = h.svc.Reconnect("x", ReconnectRequest{Token: "not-a-token"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, _ := h.lobby(t, "Zed")
	_, err = h.svc.Reconnect("x", ReconnectRequest{Code: other, PlayerID: ids["Bob"]})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound, "a player id from another room is unknown here")
}

func TestReconnect_WithToken(t *testing.T) {
	h := newHarness(t, Options{})
	code, err := h.svc.CreateRoom("gm")
	require.NoError(t, err)
	joined, err := h.svc.JoinRoom("c1", code, "Bob")
	require.NoError(t, err)

	h.svc.Disconnect("c1")
	res, err := h.svc.Reconnect("c2", ReconnectRequest{Token: joined.Token})
	require.NoError(t, err)
	assert.Equal(t, joined.PlayerID, res.PlayerID)
	assert.Equal(t, code, res.Code)
}

func TestDisconnect_StaleConnectionIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	code, ids := h.lobby(t, "Bob")

	_, err := h.svc.Reconnect("Bob2", ReconnectRequest{Code: code, PlayerID: ids["Bob"]})
	require.NoError(t, err)
	h.svc.Disconnect("Bob")

	st := h.state(t, code)
	require.Len(t, st.Players, 1)
	assert.True(t, st.Players[0].Connected)

	h.svc.Disconnect("Bob2")
	assert.False(t, h.state(t, code).Players[0].Connected)
}

func TestDisconnect_CompletesPhaseForOthers(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Bob", "Ann")
	require.NoError(t, h.svc.StartGame("gm"))
	require.NoError(t, h.svc.SubmitExemplar("Bob", "answer"))

	h.svc.Disconnect("Ann")
	assert.Equal(t, game.PhaseVoting, h.state(t, code).Phase)
}

func TestGMGrace_DeletesOrphanedRoom(t *testing.T) {
	h := newHarness(t, Options{GMGrace: 20 * time.Millisecond})
	code, _ := h.lobby(t, "Bob")

	h.svc.Disconnect("gm")
	require.Len(t, h.bc.named(EventGMDisconnected), 1)

	require.Eventually(t, func() bool {
		_, err := h.svc.RoomState(code)
		return errors.Is(err, game.ErrRoomNotFound)
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, h.svc.RoomCount())

	room := h.svc.room(code)
	assert.Nil(t, room)
	assert.ErrorIs(t, h.svc.SubmitCategory("Bob", "late"), game.ErrNotJoined)
}

func TestGMGrace_RebindCancelsDeletion(t *testing.T) {
	h := newHarness(t, Options{GMGrace: 20 * time.Millisecond})
	code, _ := h.lobby(t, "Bob")

	h.svc.Disconnect("gm")
	require.NoError(t, h.svc.BindGM("gm2", code))
	assert.ErrorIs(t, h.svc.BindGM("gm3", code), game.ErrGMAlreadyBound)

	time.Sleep(50 * time.Millisecond)
	st := h.state(t, code)
	assert.True(t, st.HasGM)
}

func TestPersistenceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Bob", "Ann")
	h.store.FailWrites = errors.New("db down")

	_, err := h.svc.JoinRoom("Cy", code, "Cy")
	require.NoError(t, err)
	require.NoError(t, h.svc.SubmitCategory("gm", "rivers"))
	assert.Len(t, h.state(t, code).Players, 3)
}

func TestPruneRooms_RemovesEndedRooms(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, Options{Now: clock.Now, GMGrace: time.Minute})
	keep, err := h.svc.CreateRoom("other-gm")
	require.NoError(t, err)
	code, _ := h.lobby(t, "Bob", "Ann")

	require.NoError(t, h.svc.StartGame("gm"))
	require.NoError(t, h.svc.EndGame("gm"))

	assert.Equal(t, 0, h.svc.PruneRooms(clock.Now()))
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, h.svc.PruneRooms(clock.Now()))

	_, err = h.svc.RoomState(code)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	_, err = h.svc.RoomState(keep)
	assert.NoError(t, err)
}

func TestLeaderboard_FallsBackToScoreboard(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Bob", "Ann")

	entries, err := h.svc.Leaderboard(context.Background(), code, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ann", entries[0].Nickname)
	assert.Equal(t, 1, entries[0].Rank)

	_, err = h.svc.Leaderboard(context.Background(), "ZZZZ", 5)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestShutdown_AbandonsLiveGames(t *testing.T) {
	h := newHarness(t, Options{})
	code, _ := h.lobby(t, "Bob", "Ann")
	require.NoError(t, h.svc.StartGame("gm"))
	gameID := h.svc.room(code).GameID

	h.svc.Shutdown(context.Background())

	g, _ := h.store.Game(gameID)
	assert.Equal(t, model.GameAbandoned, g.Status)
	assert.Equal(t, 0, h.svc.RoomCount())
}

func connectedNamed(st GameState, nickname string) int {
	n := 0
	for _, p := range st.Players {
		if p.Connected && strings.EqualFold(p.Nickname, nickname) {
			n++
		}
	}
	return n
}

func TestReconnect_NicknameReclaimedWhileAway(t *testing.T) {
	h := newHarness(t, Options{})
	code, ids := h.lobby(t, "Alice", "Ann")

	h.svc.Disconnect("Alice")
	_, err := h.svc.JoinRoom("alice2", code, "alice")
	require.NoError(t, err)

	_, err = h.svc.Reconnect("Alice-again", ReconnectRequest{Code: code, PlayerID: ids["Alice"]})
	assert.ErrorIs(t, err, game.ErrNicknameTaken)
	assert.Equal(t, 1, connectedNamed(h.state(t, code), "alice"))

	h.svc.Disconnect("alice2")
	_, err = h.svc.Reconnect("Alice-again", ReconnectRequest{Code: code, PlayerID: ids["Alice"]})
	require.NoError(t, err)
	assert.Equal(t, 1, connectedNamed(h.state(t, code), "alice"))
}

func TestReconnect_RehydratedNicknameReclaimed(t *testing.T) {
	clock := newFakeClock()
	h := newHarness(t, Options{Now: clock.Now, PlayerGrace: time.Minute})
	code, ids := h.lobby(t, "Alice", "Ann")

	h.svc.Disconnect("Alice")
	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, h.svc.EvictStalePlayers(clock.Now()))
	_, err := h.svc.JoinRoom("alice2", code, "ALICE")
	require.NoError(t, err)

	_, err = h.svc.Reconnect("Alice-again", ReconnectRequest{Code: code, PlayerID: ids["Alice"]})
	assert.ErrorIs(t, err, game.ErrNicknameTaken)

	st := h.state(t, code)
	assert.Equal(t, 1, connectedNamed(st, "alice"))
	assert.Len(t, st.Players, 2, "the rejected player is not added back")
}
