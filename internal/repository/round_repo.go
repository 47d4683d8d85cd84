package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"exemplarparty/internal/model"
)

type RoundRepo interface {
	CreateRound(ctx context.Context, round *model.Round) error
	EndRound(ctx context.Context, roundID string, endedAt time.Time) error
}

type roundRepo struct {
	collection *mongo.Collection
}

func NewRoundRepo(db *mongo.Database) RoundRepo {
	return &roundRepo{
		collection: db.Collection("rounds"),
	}
}

func (r *roundRepo) CreateRound(ctx context.Context, round *model.Round) error {
	_, err := r.collection.InsertOne(ctx, round)
	return err
}

func (r *roundRepo) EndRound(ctx context.Context, roundID string, endedAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": roundID}, bson.M{"$set": bson.M{"endedAt": endedAt}})
	return err
}
