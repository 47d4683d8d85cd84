package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore bundles the per-collection repositories into the game store.
type MongoStore struct {
	GameRepo
	PlayerRepo
	RoundRepo
	SubmissionRepo
	CategoryRepo
	ReportRepo

	client *mongo.Client
}

// NewMongoStore wires the repositories over an already connected client.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		GameRepo:       NewGameRepo(db),
		PlayerRepo:     NewPlayerRepo(db),
		RoundRepo:      NewRoundRepo(db),
		SubmissionRepo: NewSubmissionRepo(db),
		CategoryRepo:   NewCategoryRepo(db),
		ReportRepo:     NewReportRepo(db),
		client:         client,
	}
}

// ConnectMongo dials and pings MongoDB.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the lookup indexes the gameplay queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context, dbName string) error {
	db := s.client.Database(dbName)
	_, err := db.Collection("categories").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "used", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("categories index: %w", err)
	}
	_, err = db.Collection("players").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "gameId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("players index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
