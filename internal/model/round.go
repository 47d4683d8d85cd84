package model

import "time"

// Round is one category cycle of a game.
type Round struct {
	ID        string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	GameID    string     `json:"gameId" bson:"gameId" gorm:"type:varchar(36);index"`
	Number    int        `json:"number" bson:"number"`
	Category  string     `json:"category" bson:"category"`
	StartedAt time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}
