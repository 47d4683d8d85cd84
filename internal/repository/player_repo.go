package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"exemplarparty/internal/model"
)

type PlayerRepo interface {
	CreatePlayer(ctx context.Context, player *model.Player) error
	FindPlayer(ctx context.Context, id string) (*model.Player, error)
	UpdatePlayerScore(ctx context.Context, id string, score int) error
	SetPlayerConnected(ctx context.Context, id string, connected bool, at time.Time) error
}

type playerRepo struct {
	collection *mongo.Collection
}

func NewPlayerRepo(db *mongo.Database) PlayerRepo {
	return &playerRepo{
		collection: db.Collection("players"),
	}
}

func (r *playerRepo) CreatePlayer(ctx context.Context, player *model.Player) error {
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, player)
	return err
}

// FindPlayer returns nil, nil when the player does not exist.
func (r *playerRepo) FindPlayer(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&player)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepo) UpdatePlayerScore(ctx context.Context, id string, score int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"score": score}})
	return err
}

// SetPlayerConnected records a connect (clearing leftAt) or a disconnect (setting it).
func (r *playerRepo) SetPlayerConnected(ctx context.Context, id string, connected bool, at time.Time) error {
	update := bson.M{"$set": bson.M{"connected": true}, "$unset": bson.M{"leftAt": ""}}
	if !connected {
		update = bson.M{"$set": bson.M{"connected": false, "leftAt": at}}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
