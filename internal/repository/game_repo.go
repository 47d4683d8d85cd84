package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"exemplarparty/internal/model"
)

type GameRepo interface {
	CreateGame(ctx context.Context, game *model.Game) error
	EndGame(ctx context.Context, gameID string, status model.GameStatus, totalRounds int, endedAt time.Time) error
}

type gameRepo struct {
	collection *mongo.Collection
}

func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		collection: db.Collection("games"),
	}
}

func (r *gameRepo) CreateGame(ctx context.Context, game *model.Game) error {
	if game.StartedAt.IsZero() {
		game.StartedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, game)
	return err
}

func (r *gameRepo) EndGame(ctx context.Context, gameID string, status model.GameStatus, totalRounds int, endedAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"status":      status,
		"totalRounds": totalRounds,
		"endedAt":     endedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": gameID}, update)
	return err
}
