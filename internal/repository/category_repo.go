package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"exemplarparty/internal/model"
)

type CategoryRepo interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	SeedCategories(ctx context.Context, gameID string, texts []string) error
	AvailableCategories(ctx context.Context, gameID string) ([]model.Category, error)
	MarkCategoryUsed(ctx context.Context, categoryID string) (bool, error)
}

type categoryRepo struct {
	collection *mongo.Collection
}

func NewCategoryRepo(db *mongo.Database) CategoryRepo {
	return &categoryRepo{
		collection: db.Collection("categories"),
	}
}

func (r *categoryRepo) CreateCategory(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.SubmittedAt.IsZero() {
		category.SubmittedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, category)
	return err
}

// SeedCategories inserts texts as unused preset entries of the game.
func (r *categoryRepo) SeedCategories(ctx context.Context, gameID string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(texts))
	for _, text := range texts {
		docs = append(docs, model.Category{
			ID:          uuid.NewString(),
			GameID:      gameID,
			Text:        text,
			IsPreset:    true,
			SubmittedAt: now,
		})
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// AvailableCategories lists unused entries, presets last, oldest first.
func (r *categoryRepo) AvailableCategories(ctx context.Context, gameID string) ([]model.Category, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "isPreset", Value: 1},
		{Key: "submittedAt", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"gameId": gameID, "used": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var categories []model.Category
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// MarkCategoryUsed flips used only if it is still false. It reports whether this
// call won.
func (r *categoryRepo) MarkCategoryUsed(ctx context.Context, categoryID string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": categoryID, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
