package game

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotJoined        = errors.New("connection has not joined a room as a player")
	ErrInvalidNickname  = errors.New("nickname is required")
	ErrNicknameTaken    = errors.New("nickname already taken")
	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrAlreadyActed     = errors.New("already done for this round")
	ErrEmptyInput       = errors.New("input is empty")
	ErrInputTooLong     = errors.New("input is too long")
	ErrNotAuthorized    = errors.New("only the game master or display can do that")
	ErrNotEnoughPlayers = errors.New("at least 2 players are needed to start")
	ErrNoCategories     = errors.New("no categories available")
	ErrGMAlreadyBound   = errors.New("room already has a game master")
	ErrInvalidSettings  = errors.New("timer settings must be between 5 and 600 seconds")
	ErrPersistence      = errors.New("persistence failure")
)

// PersistenceError wraps a failed store write. It is logged and never rolls back
// in-memory state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
