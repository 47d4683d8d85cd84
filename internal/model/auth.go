package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims for a player's room-scoped reconnect token
type PlayerClaims struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
