package game

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func presetPool() []CategoryCandidate {
	pool := make([]CategoryCandidate, 0, len(PresetCategories))
	for i, text := range PresetCategories {
		pool = append(pool, CategoryCandidate{ID: fmt.Sprintf("preset-%d", i), Text: text, Preset: true})
	}
	return pool
}

func TestPickCategory_PrefersSubmittedUntilExhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := append(presetPool(),
		CategoryCandidate{ID: "u1", Text: "famous bridges", SubmittedAt: time.Now()},
		CategoryCandidate{ID: "u2", Text: "breakfast foods", SubmittedAt: time.Now()},
	)
	require.Len(t, pool, 20)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		picked, ok := PickCategory(pool, rng)
		require.True(t, ok)
		assert.False(t, picked.Preset, "pick %d should be player submitted", i)
		seen[picked.ID] = true
		pool = without(pool, picked.ID)
	}
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, seen)

	picked, ok := PickCategory(pool, rng)
	require.True(t, ok)
	assert.True(t, picked.Preset)
}

func TestPickCategory_RepeatedDrawsStayInSubmittedSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := append(presetPool(),
		CategoryCandidate{ID: "u1", Text: "a"},
		CategoryCandidate{ID: "u2", Text: "b"},
	)
	for i := 0; i < 200; i++ {
		picked, ok := PickCategory(pool, rng)
		require.True(t, ok)
		assert.Contains(t, []string{"u1", "u2"}, picked.ID)
	}
}

func TestPickCategory_Empty(t *testing.T) {
	_, ok := PickCategory(nil, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "trimmed", in: "  board games ", want: "board games"},
		{name: "blank", in: "   ", wantErr: ErrEmptyInput},
		{name: "at cap", in: strings.Repeat("x", 50), want: strings.Repeat("x", 50)},
		{name: "over cap", in: strings.Repeat("x", 51), wantErr: ErrInputTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeCategory(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPresetCatalogueSize(t *testing.T) {
	assert.Len(t, PresetCategories, 18)
}

func without(pool []CategoryCandidate, id string) []CategoryCandidate {
	out := pool[:0:0]
	for _, c := range pool {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
