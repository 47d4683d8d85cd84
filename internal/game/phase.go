package game

// Phase is the room's current stage in the round lifecycle.
type Phase string

const (
	PhaseLobby              Phase = "lobby"
	PhaseSubmitting         Phase = "submitting"
	PhaseVoting             Phase = "voting"
	PhaseResults            Phase = "results"
	PhaseSummary            Phase = "summary"
	PhaseScoreboard         Phase = "scoreboard"
	PhaseWaitingForCategory Phase = "waiting-for-category"
	PhaseEnded              Phase = "ended"
)

func (p Phase) String() string {
	return string(p)
}

// InResults reports whether the phase belongs to the post-voting display sequence.
// Summary and scoreboard are presentation sub-states of results.
func (p Phase) InResults() bool {
	return p == PhaseResults || p == PhaseSummary || p == PhaseScoreboard
}

// CanTransitionTo checks if a transition from the current phase to target is valid.
func (p Phase) CanTransitionTo(target Phase) bool {
	if target == PhaseEnded {
		return p != PhaseEnded
	}
	validTransitions := map[Phase][]Phase{
		PhaseLobby:              {PhaseSubmitting},
		PhaseSubmitting:         {PhaseVoting, PhaseResults},
		PhaseVoting:             {PhaseResults},
		PhaseResults:            {PhaseResults, PhaseSummary},
		PhaseSummary:            {PhaseScoreboard},
		PhaseScoreboard:         {PhaseSubmitting, PhaseWaitingForCategory},
		PhaseWaitingForCategory: {PhaseSubmitting},
	}

	for _, phase := range validTransitions[p] {
		if phase == target {
			return true
		}
	}
	return false
}
