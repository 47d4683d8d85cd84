package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
)

// Everything below that is not exported runs with the room locked, either inside an
// operation or inside a timer callback serialized on the room.

// StartGame leaves the lobby, or retries the round advance while the room waits for
// categories.
func (s *GameService) StartGame(connID string) error {
	room, _, err := s.resolveRoom(connID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if !isController(room, connID) {
		return game.ErrNotAuthorized
	}
	switch room.Phase {
	case game.PhaseLobby:
		if len(room.ConnectedPlayers()) < 2 {
			return game.ErrNotEnoughPlayers
		}
	case game.PhaseWaitingForCategory:
	default:
		return game.ErrWrongPhase
	}
	return s.startRound(room)
}

func (s *GameService) SubmitExemplar(connID, exemplar string) error {
	room, b, err := s.resolveRoom(connID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	p := resolvePlayer(room, b, connID)
	if p == nil {
		return game.ErrNotJoined
	}
	if room.Phase != game.PhaseSubmitting {
		return game.ErrWrongPhase
	}
	if p.HasSubmitted {
		return game.ErrAlreadyActed
	}
	exemplar = strings.TrimSpace(exemplar)
	if exemplar == "" {
		return game.ErrEmptyInput
	}
	if utf8.RuneCountInString(exemplar) > game.MaxExemplarLength {
		return game.ErrInputTooLong
	}

	sub := &game.Submission{
		ID:       uuid.NewString(),
		Index:    len(room.Submissions),
		PlayerID: p.ID,
		Nickname: p.Nickname,
		Exemplar: exemplar,
		Votes:    make(map[string]bool),
	}
	room.Submissions = append(room.Submissions, sub)
	p.HasSubmitted = true

	now := s.opts.Now()
	s.persist(room, "create submission", func(ctx context.Context) error {
		return s.store.CreateSubmission(ctx, &model.Submission{
			ID:          sub.ID,
			RoundID:     room.RoundID,
			PlayerID:    p.ID,
			Text:        exemplar,
			SubmittedAt: now,
		})
	})

	s.broadcaster.EmitToConnection(connID, EventSubmissionConfirm, map[string]string{"exemplar": exemplar})
	s.broadcastState(room)
	s.checkEarlyCompletion(room)
	return nil
}

// SubmitVotes records one ballot per player. Indices that do not exist and votes on
// the player's own exemplar are ignored. It returns the number of votes counted.
func (s *GameService) SubmitVotes(connID string, votes map[int]bool) (int, error) {
	room, b, err := s.resolveRoom(connID)
	if err != nil {
		return 0, err
	}
	defer room.Unlock()

	p := resolvePlayer(room, b, connID)
	if p == nil {
		return 0, game.ErrNotJoined
	}
	if room.Phase != game.PhaseVoting {
		return 0, game.ErrWrongPhase
	}
	if p.HasVoted {
		return 0, game.ErrAlreadyActed
	}

	now := s.opts.Now()
	counted := 0
	for idx, vote := range votes {
		if idx < 0 || idx >= len(room.Submissions) {
			continue
		}
		sub := room.Submissions[idx]
		if sub.PlayerID == p.ID {
			continue
		}
		if _, dup := sub.Votes[p.ID]; dup {
			continue
		}
		sub.Votes[p.ID] = vote
		counted++

		v := &model.Vote{ID: uuid.NewString(), SubmissionID: sub.ID, VoterID: p.ID, Vote: vote, CastAt: now}
		s.persist(room, "create vote", func(ctx context.Context) error {
			return s.store.CreateVote(ctx, v)
		})
	}
	p.HasVoted = true

	s.broadcaster.EmitToConnection(connID, EventVotesConfirmed, map[string]int{"count": counted})
	s.broadcastState(room)
	s.checkEarlyCompletion(room)
	return counted, nil
}

func (s *GameService) checkEarlyCompletion(room *game.Room) {
	switch room.Phase {
	case game.PhaseSubmitting:
		if room.AllConnectedSubmitted() {
			s.closeSubmissions(room)
		}
	case game.PhaseVoting:
		if room.AllConnectedVoted() {
			s.closeVoting(room)
		}
	}
}

func (s *GameService) setPhase(room *game.Room, target game.Phase) {
	if !room.Phase.CanTransitionTo(target) {
		s.logger.Warn("unexpected phase transition",
			zap.String("room", room.Code),
			zap.Stringer("from", room.Phase),
			zap.Stringer("to", target),
		)
	}
	room.Phase = target
}

// startRound draws the next category and opens submissions. Room state is untouched
// when no category is available.
func (s *GameService) startRound(room *game.Room) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	text, ok, err := s.categories.SelectNext(ctx, room.GameID)
	cancel()
	if err != nil {
		return &game.PersistenceError{Op: "select category", Err: err}
	}
	if !ok {
		return game.ErrNoCategories
	}

	room.Round++
	room.Category = text
	room.RoundID = uuid.NewString()
	room.Submissions = nil
	room.Results = nil
	room.ResultCursor = 0
	room.PendingCategories = nil
	room.ResetRoundFlags()
	s.setPhase(room, game.PhaseSubmitting)

	round := &model.Round{
		ID:        room.RoundID,
		GameID:    room.GameID,
		Number:    room.Round,
		Category:  text,
		StartedAt: s.opts.Now(),
	}
	s.persist(room, "create round", func(ctx context.Context) error {
		return s.store.CreateRound(ctx, round)
	})

	duration := room.Settings.SubmitSeconds
	s.broadcaster.EmitToRoom(room.Code, EventSubmittingStarted, SubmittingStarted{
		Category: text,
		Round:    room.Round,
		Duration: duration,
	})
	s.startTimer(room, game.PhaseSubmitting, duration, func() { s.closeSubmissions(room) })
	s.broadcastState(room)
	s.logger.Info("round started",
		zap.String("room", room.Code),
		zap.Int("round", room.Round),
		zap.String("category", text),
	)
	return nil
}

// advanceRound ends the results sequence. With the pool exhausted the room idles
// until a category arrives.
func (s *GameService) advanceRound(room *game.Room) {
	err := s.startRound(room)
	if err == nil {
		return
	}
	if !errors.Is(err, game.ErrNoCategories) {
		s.logger.Warn("round advance failed", zap.String("room", room.Code), zap.Error(err))
	}
	room.CancelTimer()
	room.Category = ""
	s.setPhase(room, game.PhaseWaitingForCategory)
	s.broadcaster.EmitToRoom(room.Code, EventNeedsCategories, Message{Message: "Submit more categories to keep playing"})
	s.broadcastState(room)
}

func (s *GameService) resumeRound(room *game.Room) {
	if err := s.startRound(room); err != nil && !errors.Is(err, game.ErrNoCategories) {
		s.logger.Warn("round resume failed", zap.String("room", room.Code), zap.Error(err))
	}
}

// closeSubmissions moves to voting. A round nobody answered goes straight to results.
func (s *GameService) closeSubmissions(room *game.Room) {
	room.CancelTimer()
	if len(room.Submissions) == 0 {
		s.closeVoting(room)
		return
	}

	for _, p := range room.Players() {
		p.HasVoted = false
	}
	for _, sub := range room.Submissions {
		sub.Votes = make(map[string]bool)
	}
	s.setPhase(room, game.PhaseVoting)

	duration := room.Settings.VotingDuration(len(room.Submissions))
	s.broadcaster.EmitToRoom(room.Code, EventVotingStarted, VotingStarted{
		Submissions: votingList(room),
		Duration:    duration,
	})
	s.startTimer(room, game.PhaseVoting, duration, func() { s.closeVoting(room) })
	s.broadcastState(room)
}

// closeVoting scores the round and starts the reveal sequence.
func (s *GameService) closeVoting(room *game.Room) {
	room.CancelTimer()
	results := game.ScoreRound(room)
	room.Results = results
	room.ResultCursor = 0
	s.setPhase(room, game.PhaseResults)

	scored := make(map[string]bool)
	for _, r := range results {
		r := r
		s.persist(room, "score submission", func(ctx context.Context) error {
			return s.store.ScoreSubmission(ctx, r.SubmissionID, r.Yes, r.No, r.Points)
		})
		if r.Points > 0 {
			scored[r.PlayerID] = true
		}
	}
	for _, p := range room.Players() {
		p := p
		if scored[p.ID] {
			s.persist(room, "update score", func(ctx context.Context) error {
				return s.store.UpdatePlayerScore(ctx, p.ID, p.Score)
			})
		}
		s.cacheCall(room, "leaderboard update", func(ctx context.Context) error {
			if s.leaderboard == nil {
				return nil
			}
			return s.leaderboard.UpdateScore(ctx, room.Code, p.ID, p.Nickname, p.Score)
		})
	}
	if room.RoundID != "" {
		endedAt := s.opts.Now()
		s.persist(room, "end round", func(ctx context.Context) error {
			return s.store.EndRound(ctx, room.RoundID, endedAt)
		})
	}

	s.broadcastState(room)
	s.revealNext(room)
}

// revealNext shows one result per reveal interval, then the summary.
func (s *GameService) revealNext(room *game.Room) {
	if room.ResultCursor >= len(room.Results) {
		s.showSummary(room)
		return
	}
	res := room.Results[room.ResultCursor]
	room.ResultCursor++
	s.broadcaster.EmitToRoom(room.Code, EventShowExemplarResult, ExemplarResult{
		Result:   res,
		Position: room.ResultCursor,
		Total:    len(room.Results),
	})
	s.startTimer(room, game.PhaseResults, room.Settings.RevealSeconds, func() { s.revealNext(room) })
}

func (s *GameService) showSummary(room *game.Room) {
	s.setPhase(room, game.PhaseSummary)
	s.broadcaster.EmitToRoom(room.Code, EventShowSummary, game.Summarize(room.Round, room.Category, room.Results))
	s.startTimer(room, game.PhaseSummary, room.Settings.SummarySeconds, func() { s.showScoreboard(room) })
	s.broadcastState(room)
}

func (s *GameService) showScoreboard(room *game.Room) {
	s.setPhase(room, game.PhaseScoreboard)
	s.broadcaster.EmitToRoom(room.Code, EventShowScoreboard, RoundScoreboard{
		Players:    room.Scoreboard(),
		Round:      room.Round,
		IsGameWide: true,
	})
	s.startTimer(room, game.PhaseScoreboard, room.Settings.ScoreboardSeconds, func() { s.advanceRound(room) })
	s.broadcastState(room)
}

func (s *GameService) endGame(room *game.Room, status model.GameStatus) {
	prev := room.Phase
	room.CancelTimer()
	s.setPhase(room, game.PhaseEnded)
	now := s.opts.Now()
	room.EndedAt = now

	s.persist(room, "end game", func(ctx context.Context) error {
		return s.store.EndGame(ctx, room.GameID, status, room.Round, now)
	})
	if room.RoundID != "" && (prev == game.PhaseSubmitting || prev == game.PhaseVoting) {
		s.persist(room, "end round", func(ctx context.Context) error {
			return s.store.EndRound(ctx, room.RoundID, now)
		})
	}
	s.cacheCall(room, "timer delete", func(ctx context.Context) error {
		if s.timerCache == nil {
			return nil
		}
		return s.timerCache.Delete(ctx, room.Code)
	})
	room.SavedTimer = nil

	final := room.Scoreboard()
	s.broadcaster.EmitToRoom(room.Code, EventShowScoreboard, RoundScoreboard{
		Players:    final,
		Round:      room.Round,
		IsGameWide: true,
		IsFinal:    true,
	})
	s.broadcaster.EmitToRoom(room.Code, EventGameEnded, map[string]interface{}{"finalScores": final})
	s.broadcastState(room)
	s.logger.Info("game ended", zap.String("room", room.Code), zap.String("status", string(status)))
}

// startTimer replaces the room's timer. The previous one is always cancelled first.
func (s *GameService) startTimer(room *game.Room, phase game.Phase, seconds int, onComplete func()) {
	room.CancelTimer()
	room.Timer = game.NewTimer(game.TimerConfig{
		Phase:    phase,
		Seconds:  seconds,
		Interval: s.opts.TickInterval,
		OnTick: func(remaining int, ph game.Phase) {
			s.broadcaster.EmitToRoom(room.Code, EventTimerUpdate, TimerUpdate{
				Remaining: remaining,
				Phase:     ph,
				GameState: s.gameState(room),
			})
		},
		OnComplete: onComplete,
		Serialize:  s.serializer(room),
		Now:        s.opts.Now,
	})
	s.saveTimer(room)
	room.Timer.Start()
}

func (s *GameService) serializer(room *game.Room) func(func()) {
	return func(fn func()) {
		room.Lock()
		defer room.Unlock()
		if room.Closed() {
			return
		}
		fn()
	}
}

// saveTimer snapshots the active timer for reconnect math and mirrors it to Redis.
func (s *GameService) saveTimer(room *game.Room) {
	if room.Timer == nil {
		return
	}
	snap := room.Timer.State()
	room.SavedTimer = &snap
	if s.timerCache == nil {
		return
	}
	s.cacheCall(room, "timer save", func(ctx context.Context) error {
		return s.timerCache.Save(ctx, room.Code, snap)
	})
}

