package game

// VoteView is one voter's verdict on a submission, as revealed in results.
type VoteView struct {
	Voter string `json:"voter"`
	Vote  bool   `json:"vote"`
}

// Result is the derived outcome of one submission for the round.
type Result struct {
	Index        int        `json:"index"`
	SubmissionID string     `json:"submissionId"`
	PlayerID     string     `json:"playerId"`
	Nickname     string     `json:"nickname"`
	Exemplar     string     `json:"exemplar"`
	Votes        []VoteView `json:"votes"`
	Yes          int        `json:"yesCount"`
	No           int        `json:"noCount"`
	Points       int        `json:"points"`
}

// Controversy is |yes - no|; smaller means a more divided room.
func (r Result) Controversy() int {
	if r.Yes > r.No {
		return r.Yes - r.No
	}
	return r.No - r.Yes
}

// Points rewards exemplars that split opinion: min(yes, no).
func Points(yes, no int) int {
	return min(yes, no)
}

// ScoreRound computes results for every submission in round order and awards points
// to the owning players still in the room. Scores never decrease.
func ScoreRound(r *Room) []Result {
	results := make([]Result, 0, len(r.Submissions))
	for _, sub := range r.Submissions {
		yes, no := sub.Tally()
		res := Result{
			Index:        sub.Index,
			SubmissionID: sub.ID,
			PlayerID:     sub.PlayerID,
			Nickname:     sub.Nickname,
			Exemplar:     sub.Exemplar,
			Yes:          yes,
			No:           no,
			Points:       Points(yes, no),
		}
		for _, p := range r.Players() {
			if v, ok := sub.Votes[p.ID]; ok {
				res.Votes = append(res.Votes, VoteView{Voter: p.Nickname, Vote: v})
			}
		}
		if owner := r.Player(sub.PlayerID); owner != nil && res.Points > 0 {
			owner.Score += res.Points
		}
		results = append(results, res)
	}
	return results
}
