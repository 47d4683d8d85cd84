package service

import (
	"context"
	"fmt"
	"time"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
)

const selectAttempts = 3

// CategorySelector draws round categories from a game's persisted pool.
type CategorySelector struct {
	store CategoryStore
	rng   game.Intner
	now   func() time.Time
}

// NewCategorySelector stamps submissions with now; nil means time.Now.
func NewCategorySelector(store CategoryStore, rng game.Intner, now func() time.Time) *CategorySelector {
	if now == nil {
		now = time.Now
	}
	return &CategorySelector{store: store, rng: rng, now: now}
}

// SelectNext picks an unused category, preferring player and host submitted ones, and
// marks it used. ok is false when the pool is exhausted. A pick lost to a concurrent
// caller is retried against a fresh read.
func (c *CategorySelector) SelectNext(ctx context.Context, gameID string) (text string, ok bool, err error) {
	for attempt := 0; attempt < selectAttempts; attempt++ {
		rows, err := c.store.AvailableCategories(ctx, gameID)
		if err != nil {
			return "", false, fmt.Errorf("available categories: %w", err)
		}
		pool := make([]game.CategoryCandidate, 0, len(rows))
		for _, r := range rows {
			pool = append(pool, game.CategoryCandidate{
				ID:          r.ID,
				Text:        r.Text,
				Preset:      r.IsPreset,
				SubmittedAt: r.SubmittedAt,
			})
		}
		pick, found := game.PickCategory(pool, c.rng)
		if !found {
			return "", false, nil
		}
		won, err := c.store.MarkCategoryUsed(ctx, pick.ID)
		if err != nil {
			return "", false, fmt.Errorf("mark category used: %w", err)
		}
		if won {
			return pick.Text, true, nil
		}
	}
	return "", false, nil
}

// Submit appends a pool entry. A nil playerID means the host submitted it.
func (c *CategorySelector) Submit(ctx context.Context, gameID string, playerID *string, text string, preset bool) error {
	return c.store.CreateCategory(ctx, &model.Category{
		GameID:      gameID,
		PlayerID:    playerID,
		Text:        text,
		IsPreset:    preset,
		SubmittedAt: c.now(),
	})
}

// Seed writes the preset catalogue for a new game.
func (c *CategorySelector) Seed(ctx context.Context, gameID string) error {
	return c.store.SeedCategories(ctx, gameID, game.PresetCategories)
}
