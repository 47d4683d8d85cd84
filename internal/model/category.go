package model

import "time"

// Category is one entry of a game's category pool. PlayerID is nil for host and
// preset entries.
type Category struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	GameID      string    `json:"gameId" bson:"gameId" gorm:"type:varchar(36);index"`
	PlayerID    *string   `json:"playerId,omitempty" bson:"playerId,omitempty" gorm:"type:varchar(36)"`
	Text        string    `json:"text" bson:"text"`
	IsPreset    bool      `json:"isPreset" bson:"isPreset"`
	Used        bool      `json:"used" bson:"used" gorm:"index"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}
