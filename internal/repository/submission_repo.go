package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"exemplarparty/internal/model"
)

type SubmissionRepo interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	ScoreSubmission(ctx context.Context, submissionID string, yes, no, points int) error
	CreateVote(ctx context.Context, vote *model.Vote) error
}

type submissionRepo struct {
	submissions *mongo.Collection
	votes       *mongo.Collection
}

func NewSubmissionRepo(db *mongo.Database) SubmissionRepo {
	return &submissionRepo{
		submissions: db.Collection("submissions"),
		votes:       db.Collection("votes"),
	}
}

func (r *submissionRepo) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	_, err := r.submissions.InsertOne(ctx, sub)
	return err
}

func (r *submissionRepo) ScoreSubmission(ctx context.Context, submissionID string, yes, no, points int) error {
	update := bson.M{"$set": bson.M{
		"yesVotes": yes,
		"noVotes":  no,
		"points":   points,
	}}
	_, err := r.submissions.UpdateOne(ctx, bson.M{"_id": submissionID}, update)
	return err
}

func (r *submissionRepo) CreateVote(ctx context.Context, vote *model.Vote) error {
	if vote.CastAt.IsZero() {
		vote.CastAt = time.Now()
	}
	_, err := r.votes.InsertOne(ctx, vote)
	return err
}
