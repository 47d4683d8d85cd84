package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"exemplarparty/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const playerTokenTTL = 24 * time.Hour

// AuthService issues player reconnect tokens and guards the export report
type AuthService struct {
	jwtSecret      []byte
	exportPassword string
	now            func() time.Time
}

func NewAuthService(jwtSecret, exportPassword string) *AuthService {
	return &AuthService{
		jwtSecret:      []byte(jwtSecret),
		exportPassword: exportPassword,
		now:            time.Now,
	}
}

// GeneratePlayerToken creates a room-scoped token for a player
func (s *AuthService) GeneratePlayerToken(roomCode, playerID string) (string, error) {
	now := s.now()
	claims := &model.PlayerClaims{
		RoomCode: roomCode,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(playerTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken validates a player JWT and returns claims
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// CheckExportPassword is false whenever no export password is configured.
func (s *AuthService) CheckExportPassword(password string) bool {
	if s.exportPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.exportPassword)) == 1
}
