package service

import (
	"context"
	"time"

	"exemplarparty/internal/model"
)

// Store is the durable game log. Implemented by repository.MongoStore,
// sqlstore.Store and memstore.Store.
type Store interface {
	CreateGame(ctx context.Context, game *model.Game) error
	EndGame(ctx context.Context, gameID string, status model.GameStatus, totalRounds int, endedAt time.Time) error

	CreatePlayer(ctx context.Context, player *model.Player) error
	FindPlayer(ctx context.Context, id string) (*model.Player, error)
	UpdatePlayerScore(ctx context.Context, id string, score int) error
	SetPlayerConnected(ctx context.Context, id string, connected bool, at time.Time) error

	CreateRound(ctx context.Context, round *model.Round) error
	EndRound(ctx context.Context, roundID string, endedAt time.Time) error

	CreateSubmission(ctx context.Context, sub *model.Submission) error
	ScoreSubmission(ctx context.Context, submissionID string, yes, no, points int) error
	CreateVote(ctx context.Context, vote *model.Vote) error

	CategoryStore
	ExportSource

	Close(ctx context.Context) error
}

// CategoryStore is the slice of the store the category selector needs.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	SeedCategories(ctx context.Context, gameID string, texts []string) error
	AvailableCategories(ctx context.Context, gameID string) ([]model.Category, error)
	MarkCategoryUsed(ctx context.Context, categoryID string) (bool, error)
}

type ExportSource interface {
	ExportRows(ctx context.Context) ([]model.ExportRow, error)
}
