package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"exemplarparty/internal/cache"
	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
)

const (
	storeTimeout = 5 * time.Second
	codeAttempts = 20
)

// Options tunes a GameService. Zero values fall back to production defaults.
type Options struct {
	Settings     game.TimerSettings
	TickInterval time.Duration
	GMGrace      time.Duration
	PlayerGrace  time.Duration
	Now          func() time.Time
	Rand         game.Intner
}

// GameService owns every live room and the connection registry, and drives each room
// through its phases. Lock order is service.mu, then room, then the registry.
type GameService struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room

	registry    *game.Registry
	store       Store
	categories  *CategorySelector
	auth        *AuthService
	broadcaster Broadcaster

	roomCache   cache.RoomCache
	leaderboard cache.LeaderboardCache
	timerCache  cache.TimerCache

	opts   Options
	rng    game.Intner
	logger *zap.Logger

	graceMu sync.Mutex
	grace   map[string]*time.Timer
}

type lockedRand struct {
	mu sync.Mutex
	r  game.Intner
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func NewGameService(store Store, auth *AuthService, opts Options, logger *zap.Logger) *GameService {
	if opts.Settings == (game.TimerSettings{}) {
		opts.Settings = game.TimerSettings{
			SubmitSeconds:            60,
			VotingMinSeconds:         30,
			VotingPerExemplarSeconds: 15,
			RevealSeconds:            6,
			SummarySeconds:           12,
			ScoreboardSeconds:        8,
		}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.GMGrace <= 0 {
		opts.GMGrace = 5 * time.Minute
	}
	if opts.PlayerGrace <= 0 {
		opts.PlayerGrace = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := &lockedRand{r: opts.Rand}

	return &GameService{
		rooms:       make(map[string]*game.Room),
		registry:    game.NewRegistry(),
		store:       store,
		categories:  NewCategorySelector(store, rng, opts.Now),
		auth:        auth,
		broadcaster: nopBroadcaster{},
		opts:        opts,
		rng:         rng,
		logger:      logger.Named("game"),
		grace:       make(map[string]*time.Timer),
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetCaches wires the optional Redis mirrors. Any of them may be nil.
func (s *GameService) SetCaches(rooms cache.RoomCache, leaderboard cache.LeaderboardCache, timers cache.TimerCache) {
	s.roomCache = rooms
	s.leaderboard = leaderboard
	s.timerCache = timers
}

func (s *GameService) room(code string) *game.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[game.NormalizeCode(code)]
}

func (s *GameService) snapshotRooms() []*game.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*game.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

func (s *GameService) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// lockRoom finds a live room and locks it. The caller unlocks.
func (s *GameService) lockRoom(code string) (*game.Room, error) {
	room := s.room(code)
	if room == nil {
		return nil, game.ErrRoomNotFound
	}
	room.Lock()
	if room.Closed() {
		room.Unlock()
		return nil, game.ErrRoomNotFound
	}
	return room, nil
}

// resolveRoom locks the room connID is bound to, whatever its role.
func (s *GameService) resolveRoom(connID string) (*game.Room, game.Binding, error) {
	b, ok := s.registry.Lookup(connID)
	if !ok {
		return nil, b, game.ErrNotJoined
	}
	room, err := s.lockRoom(b.RoomCode)
	if err != nil {
		return nil, b, err
	}
	return room, b, nil
}

// resolvePlayer returns the player whose current connection is connID. A binding left
// over from a superseded connection resolves to nil.
func resolvePlayer(room *game.Room, b game.Binding, connID string) *game.Player {
	if b.Role != game.RolePlayer {
		return nil
	}
	p := room.Player(b.PlayerID)
	if p == nil || p.ConnID != connID {
		return nil
	}
	return p
}

func isController(room *game.Room, connID string) bool {
	return connID != "" && (room.GMConn == connID || room.DisplayConn == connID)
}

// CreateRoom opens a lobby with connID as its game master and returns the room code.
func (s *GameService) CreateRoom(connID string) (string, error) {
	now := s.opts.Now()

	s.mu.Lock()
	code, err := s.reserveCode()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	room := game.NewRoom(code, uuid.NewString(), s.opts.Settings, now)
	room.GMConn = connID
	s.rooms[code] = room
	s.mu.Unlock()

	room.Lock()
	defer room.Unlock()

	s.registry.Bind(connID, game.Binding{RoomCode: code, Role: game.RoleGM})
	s.broadcaster.JoinRoomChannel(connID, code)

	s.persist(room, "create game", func(ctx context.Context) error {
		return s.store.CreateGame(ctx, &model.Game{
			ID:        room.GameID,
			Code:      code,
			GMConn:    connID,
			Status:    model.GameActive,
			StartedAt: now,
		})
	})
	s.persist(room, "seed categories", func(ctx context.Context) error {
		return s.categories.Seed(ctx, room.GameID)
	})

	s.broadcaster.EmitToConnection(connID, EventRoomCreated, map[string]interface{}{
		"code":     code,
		"settings": room.Settings,
	})
	s.logger.Info("room created", zap.String("room", code))
	return code, nil
}

// reserveCode samples codes until one is free in memory and in Redis. s.mu must be held.
func (s *GameService) reserveCode() (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := game.GenerateCode(s.rng)
		if _, taken := s.rooms[code]; taken {
			continue
		}
		if s.roomCache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			ok, err := s.roomCache.Reserve(ctx, code)
			cancel()
			if err != nil {
				s.logger.Warn("room code reservation failed", zap.String("room", code), zap.Error(err))
			} else if !ok {
				continue
			}
		}
		return code, nil
	}
	return "", errors.New("failed to generate unique room code")
}

// BindGM attaches a game master socket to a room that has none, cancelling any
// pending deletion.
func (s *GameService) BindGM(connID, code string) error {
	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if room.GMConn != "" && room.GMConn != connID {
		return game.ErrGMAlreadyBound
	}
	room.GMConn = connID
	room.GMLeftAt = time.Time{}
	s.cancelDeletion(room.Code)

	s.registry.Bind(connID, game.Binding{RoomCode: room.Code, Role: game.RoleGM})
	s.broadcaster.JoinRoomChannel(connID, room.Code)
	s.broadcaster.EmitToConnection(connID, EventGMRejoined, s.gameState(room))
	s.broadcastState(room)
	return nil
}

func (s *GameService) JoinRoom(connID, code, nickname string) (*JoinResult, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	if room.Phase == game.PhaseEnded {
		return nil, game.ErrWrongPhase
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > game.MaxNicknameLength {
		return nil, game.ErrInvalidNickname
	}
	if room.NicknameTaken(nickname) {
		return nil, game.ErrNicknameTaken
	}

	now := s.opts.Now()
	p := &game.Player{
		ID:        uuid.NewString(),
		Nickname:  nickname,
		Connected: true,
		ConnID:    connID,
		JoinedAt:  now,
	}
	room.AddPlayer(p)
	s.registry.Bind(connID, game.Binding{RoomCode: room.Code, PlayerID: p.ID, Role: game.RolePlayer})
	s.broadcaster.JoinRoomChannel(connID, room.Code)

	s.persist(room, "create player", func(ctx context.Context) error {
		return s.store.CreatePlayer(ctx, &model.Player{
			ID:        p.ID,
			GameID:    room.GameID,
			Nickname:  p.Nickname,
			Connected: true,
			JoinedAt:  now,
		})
	})
	s.cacheCall(room, "leaderboard add", func(ctx context.Context) error {
		if s.leaderboard == nil {
			return nil
		}
		return s.leaderboard.UpdateScore(ctx, room.Code, p.ID, p.Nickname, p.Score)
	})

	res := &JoinResult{Code: room.Code, PlayerID: p.ID, Nickname: p.Nickname}
	if s.auth != nil {
		token, err := s.auth.GeneratePlayerToken(room.Code, p.ID)
		if err != nil {
			s.logger.Warn("player token", zap.String("room", room.Code), zap.Error(err))
		}
		res.Token = token
	}

	s.broadcaster.EmitToConnection(connID, EventJoinSuccess, res)
	s.broadcaster.EmitToRoom(room.Code, EventPlayerJoined, NicknameEvent{Nickname: p.Nickname})
	s.broadcastState(room)
	s.logger.Info("player joined", zap.String("room", room.Code), zap.String("player", p.ID))
	return res, nil
}

// JoinDisplay binds connID as the room's shared screen, replacing any previous one.
func (s *GameService) JoinDisplay(connID, code string) error {
	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	room.DisplayConn = connID
	s.registry.Bind(connID, game.Binding{RoomCode: room.Code, Role: game.RoleDisplay})
	s.broadcaster.JoinRoomChannel(connID, room.Code)
	s.broadcaster.EmitToConnection(connID, EventDisplayUpdate, s.displayUpdate(room))
	return nil
}

// Reconnect rebinds a returning player, rehydrating them from the store if the room
// no longer holds them in memory.
func (s *GameService) Reconnect(connID string, req ReconnectRequest) (*ReconnectResult, error) {
	code, playerID := req.Code, req.PlayerID
	if req.Token != "" {
		if s.auth == nil {
			return nil, ErrInvalidToken
		}
		claims, err := s.auth.ValidatePlayerToken(req.Token)
		if err != nil {
			return nil, err
		}
		code, playerID = claims.RoomCode, claims.PlayerID
	}
	if playerID == "" {
		return nil, game.ErrPlayerNotFound
	}

	room, err := s.lockRoom(code)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	p := room.Player(playerID)
	if p == nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		rec, err := s.store.FindPlayer(ctx, playerID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("reconnect: %w", &game.PersistenceError{Op: "find player", Err: err})
		}
		if rec == nil || rec.GameID != room.GameID {
			return nil, game.ErrPlayerNotFound
		}
		if room.NicknameHeldByOther(rec.Nickname, rec.ID) {
			return nil, game.ErrNicknameTaken
		}
		p = &game.Player{
			ID:       rec.ID,
			Nickname: rec.Nickname,
			Score:    rec.Score,
			JoinedAt: rec.JoinedAt,
		}
		room.AddPlayer(p)
	} else if room.NicknameHeldByOther(p.Nickname, p.ID) {
		return nil, game.ErrNicknameTaken
	}

	now := s.opts.Now()
	p.Connected = true
	p.ConnID = connID
	p.DisconnectedAt = time.Time{}
	s.registry.Bind(connID, game.Binding{RoomCode: room.Code, PlayerID: p.ID, Role: game.RolePlayer})
	s.broadcaster.JoinRoomChannel(connID, room.Code)
	s.persist(room, "player connected", func(ctx context.Context) error {
		return s.store.SetPlayerConnected(ctx, p.ID, true, now)
	})

	// A phase whose saved deadline already passed completes before the snapshot goes out.
	if room.Timer != nil && room.Timer.Active() && room.SavedTimer != nil && room.SavedTimer.RemainingAt(now) == 0 {
		room.Timer.Finish()
	}

	state := s.gameState(room)
	if state.Timer != nil && room.SavedTimer != nil && room.SavedTimer.Phase == state.Timer.Phase {
		state.Timer.Remaining = room.SavedTimer.RemainingAt(now)
	}
	res := &ReconnectResult{
		Code:         room.Code,
		PlayerID:     p.ID,
		Nickname:     p.Nickname,
		Score:        p.Score,
		HasSubmitted: p.HasSubmitted,
		HasVoted:     p.HasVoted,
		State:        state,
	}
	if room.Phase == game.PhaseVoting {
		res.Submissions = votingList(room)
	}

	s.broadcaster.EmitToConnection(connID, EventReconnectSuccess, res)
	s.broadcaster.EmitToRoom(room.Code, EventPlayerReconnected, NicknameEvent{Nickname: p.Nickname})
	s.broadcastState(room)
	s.logger.Info("player reconnected", zap.String("room", room.Code), zap.String("player", p.ID))
	return res, nil
}

// Disconnect releases connID. Timers keep running regardless of who is connected.
func (s *GameService) Disconnect(connID string) {
	b, ok := s.registry.Unbind(connID)
	if !ok {
		return
	}
	room, err := s.lockRoom(b.RoomCode)
	if err != nil {
		return
	}
	defer room.Unlock()

	now := s.opts.Now()
	switch b.Role {
	case game.RoleGM:
		if room.GMConn != connID {
			return
		}
		room.GMConn = ""
		room.GMLeftAt = now
		s.broadcaster.EmitToRoom(room.Code, EventGMDisconnected, Message{Message: "The game master disconnected"})
		s.scheduleDeletion(room)
		s.broadcastState(room)
		s.logger.Info("gm disconnected", zap.String("room", room.Code))

	case game.RoleDisplay:
		if room.DisplayConn == connID {
			room.DisplayConn = ""
			s.broadcastState(room)
		}

	case game.RolePlayer:
		p := resolvePlayer(room, b, connID)
		if p == nil {
			return
		}
		p.Connected = false
		p.ConnID = ""
		p.DisconnectedAt = now
		s.persist(room, "player disconnected", func(ctx context.Context) error {
			return s.store.SetPlayerConnected(ctx, p.ID, false, now)
		})
		s.broadcaster.EmitToRoom(room.Code, EventPlayerLeft, NicknameEvent{Nickname: p.Nickname})
		s.broadcastState(room)
		s.checkEarlyCompletion(room)
	}
}

// UpdateSettings changes the room's phase durations while still in the lobby.
func (s *GameService) UpdateSettings(connID string, patch SettingsPatch) error {
	room, _, err := s.resolveRoom(connID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if !isController(room, connID) {
		return game.ErrNotAuthorized
	}
	if room.Phase != game.PhaseLobby {
		return game.ErrWrongPhase
	}
	next := room.Settings
	if patch.SubmitSeconds != nil {
		next.SubmitSeconds = *patch.SubmitSeconds
	}
	if patch.VotingMinSeconds != nil {
		next.VotingMinSeconds = *patch.VotingMinSeconds
	}
	if patch.VotingPerExemplarSeconds != nil {
		next.VotingPerExemplarSeconds = *patch.VotingPerExemplarSeconds
	}
	if err := next.Validate(); err != nil {
		return err
	}
	room.Settings = next
	s.broadcastState(room)
	return nil
}

// SubmitCategory adds an entry to the room's pool. Players, the game master and the
// display may all contribute; a room waiting for categories resumes immediately.
func (s *GameService) SubmitCategory(connID, text string) error {
	room, b, err := s.resolveRoom(connID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	var playerID *string
	if p := resolvePlayer(room, b, connID); p != nil {
		id := p.ID
		playerID = &id
	} else if !isController(room, connID) {
		return game.ErrNotJoined
	}
	if room.Phase == game.PhaseEnded {
		return game.ErrWrongPhase
	}
	text, err = game.NormalizeCategory(text)
	if err != nil {
		return err
	}

	s.persist(room, "submit category", func(ctx context.Context) error {
		return s.categories.Submit(ctx, room.GameID, playerID, text, false)
	})
	if room.Phase == game.PhaseLobby {
		room.PendingCategories = append(room.PendingCategories, text)
	}
	s.broadcaster.EmitToConnection(connID, EventCategorySubmitted, map[string]string{"category": text})

	if room.Phase == game.PhaseWaitingForCategory {
		s.resumeRound(room)
		return nil
	}
	s.emitDisplay(room)
	return nil
}

func (s *GameService) EndGame(connID string) error {
	room, _, err := s.resolveRoom(connID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if !isController(room, connID) {
		return game.ErrNotAuthorized
	}
	if room.Phase == game.PhaseEnded {
		return game.ErrWrongPhase
	}
	s.endGame(room, model.GameEnded)
	return nil
}

// RoomState returns the public snapshot of a live room.
func (s *GameService) RoomState(code string) (GameState, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return GameState{}, err
	}
	defer room.Unlock()
	return s.gameState(room), nil
}

// Leaderboard reads the Redis leaderboard, falling back to the in-memory scoreboard.
func (s *GameService) Leaderboard(ctx context.Context, code string, top int) ([]cache.LeaderboardEntry, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return nil, err
	}
	board := room.Scoreboard()
	room.Unlock()

	if top <= 0 {
		top = 10
	}
	if s.leaderboard != nil {
		entries, err := s.leaderboard.GetTop(ctx, room.Code, top)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.Warn("leaderboard read", zap.String("room", room.Code), zap.Error(err))
		}
	}

	out := make([]cache.LeaderboardEntry, 0, min(top, len(board)))
	for _, e := range board {
		if len(out) == top {
			break
		}
		out = append(out, cache.LeaderboardEntry{PlayerID: e.PlayerID, Nickname: e.Nickname, Score: e.Score, Rank: e.Rank})
	}
	return out, nil
}

func (s *GameService) gameState(room *game.Room) GameState {
	state := GameState{
		Code:       room.Code,
		Phase:      room.Phase,
		Category:   room.Category,
		Round:      room.Round,
		Settings:   room.Settings,
		HasGM:      room.GMConn != "",
		HasDisplay: room.DisplayConn != "",
	}
	for _, p := range room.Players() {
		state.Players = append(state.Players, *p)
	}
	if room.Timer != nil && room.Timer.Active() {
		state.Timer = &TimerView{
			Remaining: room.Timer.Remaining(),
			Duration:  room.Timer.State().Duration,
			Phase:     room.Timer.Phase(),
		}
	}
	return state
}

func (s *GameService) displayUpdate(room *game.Room) DisplayUpdate {
	d := DisplayUpdate{
		State:             s.gameState(room),
		PendingCategories: append([]string(nil), room.PendingCategories...),
	}
	for _, p := range room.Players() {
		if p.Connected {
			d.ConnectedCount++
		}
		if p.HasSubmitted {
			d.SubmittedCount++
		}
		if p.HasVoted {
			d.VotedCount++
		}
	}
	switch room.Phase {
	case game.PhaseVoting:
		d.Submissions = votingList(room)
	case game.PhaseScoreboard, game.PhaseEnded:
		d.Scoreboard = room.Scoreboard()
	}
	return d
}

func votingList(room *game.Room) []SubmissionView {
	out := make([]SubmissionView, 0, len(room.Submissions))
	for _, sub := range room.Submissions {
		out = append(out, SubmissionView{Index: sub.Index, Exemplar: sub.Exemplar})
	}
	return out
}

func (s *GameService) broadcastState(room *game.Room) {
	s.broadcaster.EmitToRoom(room.Code, EventGameStateUpdate, s.gameState(room))
	s.emitDisplay(room)
}

func (s *GameService) emitDisplay(room *game.Room) {
	if room.DisplayConn != "" {
		s.broadcaster.EmitToConnection(room.DisplayConn, EventDisplayUpdate, s.displayUpdate(room))
	}
}

// persist runs a store write with a bounded context. Failures are logged and never
// undo in-memory state.
func (s *GameService) persist(room *game.Room, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("store write failed",
			zap.String("room", room.Code),
			zap.Error(&game.PersistenceError{Op: op, Err: err}),
		)
	}
}

func (s *GameService) cacheCall(room *game.Room, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("cache call failed", zap.String("room", room.Code), zap.String("op", op), zap.Error(err))
	}
}
