package model

import "time"

type GameStatus string

const (
	GameActive    GameStatus = "active"
	GameEnded     GameStatus = "ended"
	GameAbandoned GameStatus = "abandoned"
)

// Game is the durable record of one room's play session.
type Game struct {
	ID          string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Code        string     `json:"code" bson:"code" gorm:"type:varchar(8);index"`
	GMConn      string     `json:"gmConn" bson:"gmConn"`
	Status      GameStatus `json:"status" bson:"status" gorm:"type:varchar(16)"`
	TotalRounds int        `json:"totalRounds" bson:"totalRounds"`
	StartedAt   time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}
