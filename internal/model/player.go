package model

import "time"

// Player is a room membership. ID is the durable player id handed to the client.
type Player struct {
	ID        string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	GameID    string     `json:"gameId" bson:"gameId" gorm:"type:varchar(36);index"`
	Nickname  string     `json:"nickname" bson:"nickname"`
	Score     int        `json:"score" bson:"score"`
	Connected bool       `json:"connected" bson:"connected"`
	JoinedAt  time.Time  `json:"joinedAt" bson:"joinedAt"`
	LeftAt    *time.Time `json:"leftAt,omitempty" bson:"leftAt,omitempty"`
}
