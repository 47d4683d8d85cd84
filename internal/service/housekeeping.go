package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
)

// scheduleDeletion arms the game master grace timer. The room is dropped when it
// fires unless a game master has rebound by then.
func (s *GameService) scheduleDeletion(room *game.Room) {
	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	if t, ok := s.grace[room.Code]; ok {
		t.Stop()
	}
	s.grace[room.Code] = time.AfterFunc(s.opts.GMGrace, func() {
		s.deleteIfOrphaned(room)
	})
}

func (s *GameService) cancelDeletion(code string) {
	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	if t, ok := s.grace[code]; ok {
		t.Stop()
		delete(s.grace, code)
	}
}

func (s *GameService) deleteIfOrphaned(room *game.Room) {
	room.Lock()
	if room.Closed() || room.GMConn != "" {
		room.Unlock()
		return
	}
	s.closeRoom(room, "gm grace expired")
	room.Unlock()
	s.forget(room)
}

// closeRoom tears a locked room down. Players still connected are dropped silently.
func (s *GameService) closeRoom(room *game.Room, reason string) {
	if room.Phase != game.PhaseEnded {
		now := s.opts.Now()
		s.persist(room, "abandon game", func(ctx context.Context) error {
			return s.store.EndGame(ctx, room.GameID, model.GameAbandoned, room.Round, now)
		})
	}
	room.Close()
	s.registry.UnbindRoom(room.Code)
	s.broadcaster.CloseRoomChannel(room.Code)

	s.cacheCall(room, "release", func(ctx context.Context) error {
		if s.roomCache == nil {
			return nil
		}
		return s.roomCache.Release(ctx, room.Code)
	})
	s.cacheCall(room, "leaderboard clear", func(ctx context.Context) error {
		if s.leaderboard == nil {
			return nil
		}
		return s.leaderboard.Clear(ctx, room.Code)
	})
	s.cacheCall(room, "timer delete", func(ctx context.Context) error {
		if s.timerCache == nil {
			return nil
		}
		return s.timerCache.Delete(ctx, room.Code)
	})
	s.logger.Info("room deleted", zap.String("room", room.Code), zap.String("reason", reason))
}

func (s *GameService) forget(room *game.Room) {
	s.mu.Lock()
	if s.rooms[room.Code] == room {
		delete(s.rooms, room.Code)
	}
	s.mu.Unlock()
	s.cancelDeletion(room.Code)
}

// EvictStalePlayers removes players disconnected for longer than the player grace
// period, freeing their nicknames. Exemplars they already submitted stay in play.
func (s *GameService) EvictStalePlayers(now time.Time) int {
	evicted := 0
	for _, room := range s.snapshotRooms() {
		room.Lock()
		if room.Closed() {
			room.Unlock()
			continue
		}
		changed := false
		for _, p := range room.Players() {
			if p.Connected || p.DisconnectedAt.IsZero() || now.Sub(p.DisconnectedAt) < s.opts.PlayerGrace {
				continue
			}
			room.RemovePlayer(p.ID)
			evicted++
			changed = true
			s.logger.Info("player evicted", zap.String("room", room.Code), zap.String("player", p.ID))
		}
		if changed {
			s.broadcastState(room)
		}
		room.Unlock()
	}
	return evicted
}

// PruneRooms drops rooms whose game master has been gone past the grace period
// without a pending deletion, and ended rooms older than the grace period.
func (s *GameService) PruneRooms(now time.Time) int {
	pruned := 0
	for _, room := range s.snapshotRooms() {
		room.Lock()
		if room.Closed() {
			room.Unlock()
			s.forget(room)
			continue
		}
		orphaned := room.GMConn == "" && !room.GMLeftAt.IsZero() && now.Sub(room.GMLeftAt) >= s.opts.GMGrace
		expired := room.Phase == game.PhaseEnded && !room.EndedAt.IsZero() && now.Sub(room.EndedAt) >= s.opts.GMGrace
		if !orphaned && !expired {
			room.Unlock()
			continue
		}
		reason := "orphaned"
		if expired {
			reason = "ended"
		}
		s.closeRoom(room, reason)
		room.Unlock()
		s.forget(room)
		pruned++
	}
	return pruned
}

// Shutdown stops every timer and marks unfinished games abandoned.
func (s *GameService) Shutdown(ctx context.Context) {
	s.graceMu.Lock()
	for code, t := range s.grace {
		t.Stop()
		delete(s.grace, code)
	}
	s.graceMu.Unlock()

	now := s.opts.Now()
	for _, room := range s.snapshotRooms() {
		room.Lock()
		if !room.Closed() {
			room.CancelTimer()
			if room.Phase != game.PhaseEnded {
				if err := s.store.EndGame(ctx, room.GameID, model.GameAbandoned, room.Round, now); err != nil {
					s.logger.Warn("store write failed",
						zap.String("room", room.Code),
						zap.Error(&game.PersistenceError{Op: "abandon game", Err: err}),
					)
				}
			}
			room.Close()
		}
		room.Unlock()
	}

	s.mu.Lock()
	s.rooms = make(map[string]*game.Room)
	s.mu.Unlock()
	s.logger.Info("game service stopped")
}
