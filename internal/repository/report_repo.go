package repository

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"exemplarparty/internal/model"
)

// ReportRepo builds the flat export report out of the game collections
type ReportRepo interface {
	ExportRows(ctx context.Context) ([]model.ExportRow, error)
}

type reportRepo struct {
	games       *mongo.Collection
	players     *mongo.Collection
	rounds      *mongo.Collection
	submissions *mongo.Collection
	votes       *mongo.Collection
}

func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		games:       db.Collection("games"),
		players:     db.Collection("players"),
		rounds:      db.Collection("rounds"),
		submissions: db.Collection("submissions"),
		votes:       db.Collection("votes"),
	}
}

func findAll[T any](ctx context.Context, c *mongo.Collection) ([]T, error) {
	cursor, err := c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportRows joins in memory; the collections have no server-side relations.
func (r *reportRepo) ExportRows(ctx context.Context) ([]model.ExportRow, error) {
	games, err := findAll[model.Game](ctx, r.games)
	if err != nil {
		return nil, err
	}
	players, err := findAll[model.Player](ctx, r.players)
	if err != nil {
		return nil, err
	}
	rounds, err := findAll[model.Round](ctx, r.rounds)
	if err != nil {
		return nil, err
	}
	subs, err := findAll[model.Submission](ctx, r.submissions)
	if err != nil {
		return nil, err
	}
	votes, err := findAll[model.Vote](ctx, r.votes)
	if err != nil {
		return nil, err
	}

	gameByID := make(map[string]model.Game, len(games))
	for _, g := range games {
		gameByID[g.ID] = g
	}
	nickByID := make(map[string]string, len(players))
	for _, p := range players {
		nickByID[p.ID] = p.Nickname
	}
	roundByID := make(map[string]model.Round, len(rounds))
	for _, rd := range rounds {
		roundByID[rd.ID] = rd
	}
	votesBySub := make(map[string][]model.Vote)
	for _, v := range votes {
		votesBySub[v.SubmissionID] = append(votesBySub[v.SubmissionID], v)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		ri, rj := roundByID[subs[i].RoundID], roundByID[subs[j].RoundID]
		gi, gj := gameByID[ri.GameID], gameByID[rj.GameID]
		if !gi.StartedAt.Equal(gj.StartedAt) {
			return gi.StartedAt.Before(gj.StartedAt)
		}
		if ri.Number != rj.Number {
			return ri.Number < rj.Number
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})

	var rows []model.ExportRow
	for _, s := range subs {
		rd, ok := roundByID[s.RoundID]
		if !ok {
			continue
		}
		g := gameByID[rd.GameID]
		base := model.ExportRow{
			GameCode:       g.Code,
			GameStatus:     string(g.Status),
			RoundNumber:    rd.Number,
			Category:       rd.Category,
			PlayerNickname: nickByID[s.PlayerID],
			Exemplar:       s.Text,
			YesVotes:       s.YesVotes,
			NoVotes:        s.NoVotes,
			Points:         s.Points,
		}
		vs := votesBySub[s.ID]
		if len(vs) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, v := range vs {
			row := base
			row.VoterNickname = nickByID[v.VoterID]
			vote := v.Vote
			row.Vote = &vote
			rows = append(rows, row)
		}
	}
	return rows, nil
}
