package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
	"exemplarparty/internal/repository/memstore"
)

type mockCategoryStore struct {
	mock.Mock
}

func (m *mockCategoryStore) CreateCategory(ctx context.Context, category *model.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockCategoryStore) SeedCategories(ctx context.Context, gameID string, texts []string) error {
	return m.Called(ctx, gameID, texts).Error(0)
}

func (m *mockCategoryStore) AvailableCategories(ctx context.Context, gameID string) ([]model.Category, error) {
	args := m.Called(ctx, gameID)
	rows, _ := args.Get(0).([]model.Category)
	return rows, args.Error(1)
}

func (m *mockCategoryStore) MarkCategoryUsed(ctx context.Context, categoryID string) (bool, error) {
	args := m.Called(ctx, categoryID)
	return args.Bool(0), args.Error(1)
}

func TestCategorySelector_PrefersSubmitted(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	sel := NewCategorySelector(store, rand.New(rand.NewSource(7)), nil)

	require.NoError(t, sel.Seed(ctx, "g1"))
	player := "p1"
	require.NoError(t, sel.Submit(ctx, "g1", &player, "rivers", false))
	require.NoError(t, sel.Submit(ctx, "g1", nil, "castles", false))

	first, ok, err := sel.SelectNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := sel.SelectNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"rivers", "castles"}, []string{first, second})

	third, ok, err := sel.SelectNext(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, game.PresetCategories, third)
}

func TestCategorySelector_ExhaustsPool(t *testing.T) {
	ctx := context.Background()
	sel := NewCategorySelector(memstore.New(), rand.New(rand.NewSource(1)), nil)
	require.NoError(t, sel.Seed(ctx, "g1"))

	seen := make(map[string]bool)
	for range game.PresetCategories {
		text, ok, err := sel.SelectNext(ctx, "g1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, seen[text], "category %q drawn twice", text)
		seen[text] = true
	}

	_, ok, err := sel.SelectNext(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = sel.SelectNext(ctx, "other-game")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategorySelector_RetriesLostMark(t *testing.T) {
	ctx := context.Background()
	store := new(mockCategoryStore)
	rows := []model.Category{{ID: "c1", Text: "rivers"}}
	store.On("AvailableCategories", ctx, "g1").Return(rows, nil)
	store.On("MarkCategoryUsed", ctx, "c1").Return(false, nil).Once()
	store.On("MarkCategoryUsed", ctx, "c1").Return(true, nil).Once()

	text, ok, err := NewCategorySelector(store, rand.New(rand.NewSource(1)), nil).SelectNext(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rivers", text)
	store.AssertNumberOfCalls(t, "AvailableCategories", 2)
}

func TestCategorySelector_GivesUpAfterRepeatedLosses(t *testing.T) {
	ctx := context.Background()
	store := new(mockCategoryStore)
	store.On("AvailableCategories", ctx, "g1").Return([]model.Category{{ID: "c1", Text: "rivers"}}, nil)
	store.On("MarkCategoryUsed", ctx, "c1").Return(false, nil)

	_, ok, err := NewCategorySelector(store, rand.New(rand.NewSource(1)), nil).SelectNext(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)
	store.AssertNumberOfCalls(t, "MarkCategoryUsed", selectAttempts)
}

func TestCategorySelector_SurfacesReadErrors(t *testing.T) {
	ctx := context.Background()
	store := new(mockCategoryStore)
	boom := errors.New("connection refused")
	store.On("AvailableCategories", ctx, "g1").Return(nil, boom)

	_, _, err := NewCategorySelector(store, rand.New(rand.NewSource(1)), nil).SelectNext(ctx, "g1")
	assert.ErrorIs(t, err, boom)
}

func TestCategorySelector_StampsWithInjectedClock(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sel := NewCategorySelector(store, rand.New(rand.NewSource(1)), func() time.Time { return fixed })

	require.NoError(t, sel.Submit(ctx, "g1", nil, "rivers", false))
	cats, err := store.AvailableCategories(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.True(t, fixed.Equal(cats[0].SubmittedAt))
}
