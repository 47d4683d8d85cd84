// Package memstore keeps the game log in process memory. It backs STORE_DRIVER=memory
// for local runs and the service tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"exemplarparty/internal/model"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	mu          sync.Mutex
	games       map[string]model.Game
	players     map[string]model.Player
	rounds      map[string]model.Round
	submissions map[string]model.Submission
	votes       []model.Vote
	categories  []model.Category

	// FailWrites makes every write return an error when set.
	FailWrites error
}

func New() *Store {
	return &Store{
		games:       make(map[string]model.Game),
		players:     make(map[string]model.Player),
		rounds:      make(map[string]model.Round),
		submissions: make(map[string]model.Submission),
	}
}

func (s *Store) CreateGame(_ context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.games[game.ID] = *game
	return nil
}

func (s *Store) EndGame(_ context.Context, gameID string, status model.GameStatus, totalRounds int, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	g, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	g.TotalRounds = totalRounds
	g.EndedAt = &endedAt
	s.games[gameID] = g
	return nil
}

func (s *Store) CreatePlayer(_ context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.players[player.ID] = *player
	return nil
}

func (s *Store) FindPlayer(_ context.Context, id string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) UpdatePlayerScore(_ context.Context, id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	p, ok := s.players[id]
	if !ok {
		return ErrNotFound
	}
	p.Score = score
	s.players[id] = p
	return nil
}

func (s *Store) SetPlayerConnected(_ context.Context, id string, connected bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	p, ok := s.players[id]
	if !ok {
		return ErrNotFound
	}
	p.Connected = connected
	p.LeftAt = nil
	if !connected {
		p.LeftAt = &at
	}
	s.players[id] = p
	return nil
}

func (s *Store) CreateRound(_ context.Context, round *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.rounds[round.ID] = *round
	return nil
}

func (s *Store) EndRound(_ context.Context, roundID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	r, ok := s.rounds[roundID]
	if !ok {
		return ErrNotFound
	}
	r.EndedAt = &endedAt
	s.rounds[roundID] = r
	return nil
}

func (s *Store) CreateSubmission(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.submissions[sub.ID] = *sub
	return nil
}

func (s *Store) ScoreSubmission(_ context.Context, submissionID string, yes, no, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	sub, ok := s.submissions[submissionID]
	if !ok {
		return ErrNotFound
	}
	sub.YesVotes, sub.NoVotes, sub.Points = yes, no, points
	s.submissions[submissionID] = sub
	return nil
}

func (s *Store) CreateVote(_ context.Context, vote *model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.votes = append(s.votes, *vote)
	return nil
}

func (s *Store) CreateCategory(_ context.Context, category *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.SubmittedAt.IsZero() {
		category.SubmittedAt = time.Now()
	}
	s.categories = append(s.categories, *category)
	return nil
}

func (s *Store) SeedCategories(ctx context.Context, gameID string, texts []string) error {
	now := time.Now()
	for _, text := range texts {
		c := &model.Category{GameID: gameID, Text: text, IsPreset: true, SubmittedAt: now}
		if err := s.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// AvailableCategories lists unused entries, presets last, oldest first.
func (s *Store) AvailableCategories(_ context.Context, gameID string) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Category
	for _, c := range s.categories {
		if c.GameID == gameID && !c.Used {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPreset != out[j].IsPreset {
			return !out[i].IsPreset
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *Store) MarkCategoryUsed(_ context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return false, s.FailWrites
	}
	for i := range s.categories {
		if s.categories[i].ID == categoryID {
			if s.categories[i].Used {
				return false, nil
			}
			s.categories[i].Used = true
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ExportRows(_ context.Context) ([]model.ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]model.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		subs = append(subs, sub)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		ri, rj := s.rounds[subs[i].RoundID], s.rounds[subs[j].RoundID]
		gi, gj := s.games[ri.GameID], s.games[rj.GameID]
		if !gi.StartedAt.Equal(gj.StartedAt) {
			return gi.StartedAt.Before(gj.StartedAt)
		}
		if ri.Number != rj.Number {
			return ri.Number < rj.Number
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})

	var rows []model.ExportRow
	for _, sub := range subs {
		rd, ok := s.rounds[sub.RoundID]
		if !ok {
			continue
		}
		g := s.games[rd.GameID]
		base := model.ExportRow{
			GameCode:       g.Code,
			GameStatus:     string(g.Status),
			RoundNumber:    rd.Number,
			Category:       rd.Category,
			PlayerNickname: s.players[sub.PlayerID].Nickname,
			Exemplar:       sub.Text,
			YesVotes:       sub.YesVotes,
			NoVotes:        sub.NoVotes,
			Points:         sub.Points,
		}
		voted := false
		for _, v := range s.votes {
			if v.SubmissionID != sub.ID {
				continue
			}
			voted = true
			row := base
			row.VoterNickname = s.players[v.VoterID].Nickname
			vote := v.Vote
			row.Vote = &vote
			rows = append(rows, row)
		}
		if !voted {
			rows = append(rows, base)
		}
	}
	return rows, nil
}

// Game returns a copy of a stored game, for inspection.
func (s *Store) Game(id string) (model.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	return g, ok
}

// Player returns a copy of a stored player, for inspection.
func (s *Store) Player(id string) (model.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	return p, ok
}

// Votes returns a copy of all stored votes.
func (s *Store) Votes() []model.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Vote(nil), s.votes...)
}

func (s *Store) Close(context.Context) error {
	return nil
}
