package model

import "strconv"

// ExportRow is one line of the CSV report: a vote on a submission, or a submission
// without votes (voter fields empty).
type ExportRow struct {
	GameCode       string
	GameStatus     string
	RoundNumber    int
	Category       string
	PlayerNickname string
	Exemplar       string
	YesVotes       int
	NoVotes        int
	Points         int
	VoterNickname  string
	Vote           *bool
}

var ExportHeader = []string{
	"game_code", "game_status", "round_number", "category", "player_nickname",
	"exemplar", "yes_votes", "no_votes", "points", "voter_nickname", "vote",
}

// Record renders the row in ExportHeader order.
func (r ExportRow) Record() []string {
	vote := ""
	if r.Vote != nil {
		vote = strconv.FormatBool(*r.Vote)
	}
	return []string{
		r.GameCode,
		r.GameStatus,
		strconv.Itoa(r.RoundNumber),
		r.Category,
		r.PlayerNickname,
		r.Exemplar,
		strconv.Itoa(r.YesVotes),
		strconv.Itoa(r.NoVotes),
		strconv.Itoa(r.Points),
		r.VoterNickname,
		vote,
	}
}
