package game

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Player is a room member. The durable ID outlives any single connection.
type Player struct {
	ID             string    `json:"playerId"`
	Nickname       string    `json:"nickname"`
	Score          int       `json:"score"`
	HasSubmitted   bool      `json:"hasSubmitted"`
	HasVoted       bool      `json:"hasVoted"`
	Connected      bool      `json:"connected"`
	ConnID         string    `json:"-"`
	JoinedAt       time.Time `json:"-"`
	DisconnectedAt time.Time `json:"-"`
}

// Submission is one exemplar in the active round. Votes maps voter player id to yes/no.
type Submission struct {
	ID       string          `json:"id"`
	Index    int             `json:"index"`
	PlayerID string          `json:"playerId"`
	Nickname string          `json:"nickname"`
	Exemplar string          `json:"exemplar"`
	Votes    map[string]bool `json:"-"`
}

// Tally partitions the vote map into yes and no counts.
func (s *Submission) Tally() (yes, no int) {
	for _, v := range s.Votes {
		if v {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

// TimerSettings holds the per-phase durations of a room, in seconds.
type TimerSettings struct {
	SubmitSeconds            int `json:"submitSeconds"`
	VotingMinSeconds         int `json:"votingMinSeconds"`
	VotingPerExemplarSeconds int `json:"votingPerExemplarSeconds"`
	RevealSeconds            int `json:"revealSeconds"`
	SummarySeconds           int `json:"summarySeconds"`
	ScoreboardSeconds        int `json:"scoreboardSeconds"`
}

const (
	MinPhaseSeconds = 5
	MaxPhaseSeconds = 600

	MaxNicknameLength = 20
	MaxExemplarLength = 100
)

// Validate checks the host-adjustable durations against the allowed bounds.
func (t TimerSettings) Validate() error {
	for _, v := range []int{t.SubmitSeconds, t.VotingMinSeconds, t.VotingPerExemplarSeconds} {
		if v < MinPhaseSeconds || v > MaxPhaseSeconds {
			return ErrInvalidSettings
		}
	}
	return nil
}

// VotingDuration is max(votingMinimum, submissions × votingPerExemplar).
func (t TimerSettings) VotingDuration(submissions int) int {
	return max(t.VotingMinSeconds, submissions*t.VotingPerExemplarSeconds)
}

// Room is the aggregate root of one play session. All fields are guarded by the
// embedded mutex; handlers and timer callbacks hold it for their whole run.
type Room struct {
	sync.Mutex

	Code      string
	GameID    string
	Phase     Phase
	Category  string
	Round     int
	RoundID   string
	CreatedAt time.Time

	GMConn      string
	DisplayConn string
	GMLeftAt    time.Time
	EndedAt     time.Time

	Settings   TimerSettings
	Timer      *Timer
	SavedTimer *TimerSnapshot

	PendingCategories []string
	Submissions       []*Submission
	Results           []Result
	ResultCursor      int

	players map[string]*Player
	order   []string
	closed  bool
}

func NewRoom(code, gameID string, settings TimerSettings, now time.Time) *Room {
	return &Room{
		Code:      code,
		GameID:    gameID,
		Phase:     PhaseLobby,
		CreatedAt: now,
		Settings:  settings,
		players:   make(map[string]*Player),
	}
}

// AddPlayer registers a player with score 0 unless one is given (rehydration).
func (r *Room) AddPlayer(p *Player) {
	if _, ok := r.players[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.players[p.ID] = p
}

// RemovePlayer purges a player and frees the nickname.
func (r *Room) RemovePlayer(id string) {
	if _, ok := r.players[id]; !ok {
		return
	}
	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Room) Player(id string) *Player {
	return r.players[id]
}

// PlayerByConn returns the player whose current connection is connID.
func (r *Room) PlayerByConn(connID string) *Player {
	if connID == "" {
		return nil
	}
	for _, p := range r.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// Players returns members in join order.
func (r *Room) Players() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Room) ConnectedPlayers() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, p := range r.Players() {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// NicknameTaken is a case-insensitive check against connected players only.
func (r *Room) NicknameTaken(nickname string) bool {
	for _, p := range r.players {
		if p.Connected && strings.EqualFold(p.Nickname, nickname) {
			return true
		}
	}
	return false
}

// NicknameHeldByOther reports whether a connected player other than id uses nickname.
func (r *Room) NicknameHeldByOther(nickname, id string) bool {
	for _, p := range r.players {
		if p.ID != id && p.Connected && strings.EqualFold(p.Nickname, nickname) {
			return true
		}
	}
	return false
}

// AllConnectedSubmitted is true when at least one player is connected and every
// connected player has submitted.
func (r *Room) AllConnectedSubmitted() bool {
	connected := r.ConnectedPlayers()
	if len(connected) == 0 {
		return false
	}
	for _, p := range connected {
		if !p.HasSubmitted {
			return false
		}
	}
	return true
}

func (r *Room) AllConnectedVoted() bool {
	connected := r.ConnectedPlayers()
	if len(connected) == 0 {
		return false
	}
	for _, p := range connected {
		if !p.HasVoted {
			return false
		}
	}
	return true
}

// ResetRoundFlags clears hasSubmitted and hasVoted for every player.
func (r *Room) ResetRoundFlags() {
	for _, p := range r.players {
		p.HasSubmitted = false
		p.HasVoted = false
	}
}

// CancelTimer stops the active timer, if any. It never fires completion.
func (r *Room) CancelTimer() {
	if r.Timer != nil {
		r.Timer.Cancel()
		r.Timer = nil
	}
}

// Close marks the room as deleted and stops its timer.
func (r *Room) Close() {
	r.closed = true
	r.CancelTimer()
}

func (r *Room) Closed() bool {
	return r.closed
}

// ScoreEntry is one scoreboard row.
type ScoreEntry struct {
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	Rank      int    `json:"rank"`
}

// Scoreboard returns players sorted by score descending, then nickname.
func (r *Room) Scoreboard() []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(r.players))
	for _, p := range r.Players() {
		entries = append(entries, ScoreEntry{
			PlayerID:  p.ID,
			Nickname:  p.Nickname,
			Score:     p.Score,
			Connected: p.Connected,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToLower(entries[i].Nickname) < strings.ToLower(entries[j].Nickname)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
