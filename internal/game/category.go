package game

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxCategoryLength = 50

// PresetCategories seeds every new game's pool.
var PresetCategories = []string{
	"furniture",
	"sports",
	"vegetables",
	"musical instruments",
	"vehicles",
	"birds",
	"tools",
	"clothing",
	"desserts",
	"board games",
	"weapons",
	"fruits",
	"pets",
	"drinks",
	"toys",
	"kitchen appliances",
	"weather",
	"hobbies",
}

// CategoryCandidate is an unused pool entry as read from the store.
type CategoryCandidate struct {
	ID          string
	Text        string
	Preset      bool
	SubmittedAt time.Time
}

// Intner is satisfied by *rand.Rand.
type Intner interface {
	Intn(n int) int
}

// PickCategory restricts the pool to player or host submitted entries when any exist,
// then picks uniformly at random.
func PickCategory(pool []CategoryCandidate, rng Intner) (CategoryCandidate, bool) {
	if len(pool) == 0 {
		return CategoryCandidate{}, false
	}
	var submitted []CategoryCandidate
	for _, c := range pool {
		if !c.Preset {
			submitted = append(submitted, c)
		}
	}
	if len(submitted) > 0 {
		pool = submitted
	}
	return pool[rng.Intn(len(pool))], true
}

// NormalizeCategory trims the text and enforces the length cap.
func NormalizeCategory(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(text) > MaxCategoryLength {
		return "", ErrInputTooLong
	}
	return text, nil
}
