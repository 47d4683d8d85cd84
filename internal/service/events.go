package service

import "exemplarparty/internal/game"

// Outbound event names.
const (
	EventRoomCreated        = "room-created"
	EventGMRejoined         = "gm-rejoined"
	EventJoinSuccess        = "join-success"
	EventJoinError          = "join-error"
	EventGameStateUpdate    = "game-state-update"
	EventDisplayUpdate      = "display-update"
	EventSubmissionConfirm  = "submission-confirmed"
	EventVotesConfirmed     = "votes-confirmed"
	EventCategorySubmitted  = "category-submitted"
	EventTimerUpdate        = "timer-update"
	EventReconnectSuccess   = "reconnect-success"
	EventReconnectError     = "reconnect-error"
	EventSubmittingStarted  = "submitting-started"
	EventVotingStarted      = "voting-started"
	EventShowExemplarResult = "show-exemplar-result"
	EventShowSummary        = "show-enhanced-summary"
	EventShowScoreboard     = "show-round-scoreboard"
	EventNeedsCategories    = "needs-categories"
	EventGameEnded          = "game-ended"
	EventGMDisconnected     = "gm-disconnected"
	EventPlayerJoined       = "player-joined"
	EventPlayerLeft         = "player-left"
	EventPlayerReconnected  = "player-reconnected"
	EventError              = "error"
)

type TimerView struct {
	Remaining int        `json:"remaining"`
	Duration  int        `json:"duration"`
	Phase     game.Phase `json:"phase"`
}

// GameState is the room snapshot sent to everyone after each change.
type GameState struct {
	Code       string             `json:"code"`
	Phase      game.Phase         `json:"phase"`
	Category   string             `json:"category"`
	Round      int                `json:"round"`
	Players    []game.Player      `json:"players"`
	Timer      *TimerView         `json:"timer,omitempty"`
	Settings   game.TimerSettings `json:"settings"`
	HasGM      bool               `json:"hasGm"`
	HasDisplay bool               `json:"hasDisplay"`
}

// SubmissionView is an exemplar as shown for voting; the author stays hidden.
type SubmissionView struct {
	Index    int    `json:"index"`
	Exemplar string `json:"exemplar"`
}

// DisplayUpdate carries the aggregates the shared screen renders for the phase.
type DisplayUpdate struct {
	State             GameState         `json:"gameState"`
	SubmittedCount    int               `json:"submittedCount"`
	VotedCount        int               `json:"votedCount"`
	ConnectedCount    int               `json:"connectedCount"`
	Submissions       []SubmissionView  `json:"submissions,omitempty"`
	PendingCategories []string          `json:"pendingCategories,omitempty"`
	Scoreboard        []game.ScoreEntry `json:"scoreboard,omitempty"`
}

type JoinResult struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Token    string `json:"token,omitempty"`
}

type ReconnectResult struct {
	Code         string           `json:"code"`
	PlayerID     string           `json:"playerId"`
	Nickname     string           `json:"nickname"`
	Score        int              `json:"score"`
	HasSubmitted bool             `json:"hasSubmitted"`
	HasVoted     bool             `json:"hasVoted"`
	State        GameState        `json:"gameState"`
	Submissions  []SubmissionView `json:"submissions,omitempty"`
}

type ReconnectRequest struct {
	Code     string
	PlayerID string
	Token    string
}

// SettingsPatch holds the host-adjustable durations; nil fields are left alone.
type SettingsPatch struct {
	SubmitSeconds            *int `json:"submitSeconds"`
	VotingMinSeconds         *int `json:"votingMinSeconds"`
	VotingPerExemplarSeconds *int `json:"votingPerExemplarSeconds"`
}

type ExemplarResult struct {
	Result   game.Result `json:"result"`
	Position int         `json:"position"`
	Total    int         `json:"total"`
}

type RoundScoreboard struct {
	Players    []game.ScoreEntry `json:"players"`
	Round      int               `json:"round"`
	IsGameWide bool              `json:"isGameWide"`
	IsFinal    bool              `json:"isFinal,omitempty"`
}

type VotingStarted struct {
	Submissions []SubmissionView `json:"submissions"`
	Duration    int              `json:"duration"`
}

type SubmittingStarted struct {
	Category string `json:"category"`
	Round    int    `json:"round"`
	Duration int    `json:"duration"`
}

type TimerUpdate struct {
	Remaining int        `json:"remaining"`
	Phase     game.Phase `json:"phase"`
	GameState GameState  `json:"gameState"`
}

type Message struct {
	Message string `json:"message"`
}

type NicknameEvent struct {
	Nickname string `json:"nickname"`
}
