package model

import "time"

// Submission is an exemplar entered for a round. The tally fields are filled in
// once voting closes.
type Submission struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	RoundID     string    `json:"roundId" bson:"roundId" gorm:"type:varchar(36);index"`
	PlayerID    string    `json:"playerId" bson:"playerId" gorm:"type:varchar(36);index"`
	Text        string    `json:"text" bson:"text"`
	YesVotes    int       `json:"yesVotes" bson:"yesVotes"`
	NoVotes     int       `json:"noVotes" bson:"noVotes"`
	Points      int       `json:"points" bson:"points"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

type Vote struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	SubmissionID string    `json:"submissionId" bson:"submissionId" gorm:"type:varchar(36);index"`
	VoterID      string    `json:"voterId" bson:"voterId" gorm:"type:varchar(36)"`
	Vote         bool      `json:"vote" bson:"vote"`
	CastAt       time.Time `json:"castAt" bson:"castAt"`
}
