package game

import "sort"

const (
	summaryShowAllLimit = 6
	summaryEdgeSize     = 3
)

// Summary is the ranked end-of-round view. With more than six results only the top
// three and bottom three are shown.
type Summary struct {
	Round    int      `json:"round"`
	Category string   `json:"category"`
	ShowAll  bool     `json:"showAll"`
	All      []Result `json:"all,omitempty"`
	Top      []Result `json:"top,omitempty"`
	Bottom   []Result `json:"bottom,omitempty"`
}

// RankResults orders by points descending, then controversy ascending, then
// submission order.
func RankResults(results []Result) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Controversy() != b.Controversy() {
			return a.Controversy() < b.Controversy()
		}
		return a.Index < b.Index
	})
	return ranked
}

func Summarize(round int, category string, results []Result) Summary {
	ranked := RankResults(results)
	s := Summary{Round: round, Category: category}
	if len(ranked) <= summaryShowAllLimit {
		s.ShowAll = true
		s.All = ranked
		return s
	}
	s.Top = ranked[:summaryEdgeSize]
	s.Bottom = ranked[len(ranked)-summaryEdgeSize:]
	return s
}
