package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"tcg-arbitrage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRankOpportunities(t *testing.T) {
	now := time.Now()
	settings := fixtureSettings()

	// Wide spreads make the ROI positive despite fees and shipping.
	profitable := func(name string, buyUsd, sellEur float64) CardData {
		return cardData(name,
			snap(models.SourceTCGPlayer, buyUsd, now),
			snap(models.SourceCardmarket, sellEur, now),
		)
	}

	cards := []CardData{
		profitable("A", 10, 50),
		profitable("B", 10, 100),
		profitable("C", 10, 30),
		// single-source card: negative ROI after fees, must be dropped
		cardData("D", snap(models.SourceTCGPlayer, 50, now)),
		// no price at all, skipped
		cardData("E"),
	}

	t.Run("drops negative roi and unpriced cards", func(t *testing.T) {
		ranked := RankOpportunities(cards, settings, 10, now)
		require.Len(t, ranked, 3)
		for _, opp := range ranked {
			assert.GreaterOrEqual(t, opp.Roi, 0.0)
		}
	})

	t.Run("sorted non-increasing by score", func(t *testing.T) {
		ranked := RankOpportunities(cards, settings, 10, now)
		for i := 1; i < len(ranked); i++ {
			assert.GreaterOrEqual(t, ranked[i-1].OpportunityScore, ranked[i].OpportunityScore)
		}
	})

	t.Run("truncates to topN", func(t *testing.T) {
		ranked := RankOpportunities(cards, settings, 2, now)
		assert.Len(t, ranked, 2)
		assert.Equal(t, "B", ranked[0].CardName)
	})

	t.Run("score bounds hold for all rows", func(t *testing.T) {
		ranked := RankOpportunities(cards, settings, 10, now)
		for _, opp := range ranked {
			assert.GreaterOrEqual(t, opp.OpportunityScore, 0.0)
			assert.LessOrEqual(t, opp.OpportunityScore, 100.0)
		}
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		first := RankOpportunities(cards, settings, 10, now)
		second := RankOpportunities(cards, settings, 10, now)
		assert.Equal(t, first, second)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, RankOpportunities(nil, settings, 10, now))
	})
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) RecentSnapshots(ctx context.Context, cardID string, since time.Time) ([]models.PriceSnapshot, error) {
	args := m.Called(ctx, cardID, since)
	snaps, _ := args.Get(0).([]models.PriceSnapshot)
	return snaps, args.Error(1)
}

func (m *MockSnapshotStore) CardsWithRecentActivity(ctx context.Context, since time.Time) ([]CardData, error) {
	args := m.Called(ctx, since)
	cards, _ := args.Get(0).([]CardData)
	return cards, args.Error(1)
}

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Get(ctx context.Context) (models.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Settings), args.Error(1)
}

func (m *MockSettingsStore) Save(ctx context.Context, settings models.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MockCacheStore struct {
	mock.Mock
	replaced []models.OpportunityCache
}

func (m *MockCacheStore) ReplaceAll(ctx context.Context, rows []models.OpportunityCache) error {
	m.replaced = rows
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func TestCacheBuilder_Recompute(t *testing.T) {
	now := time.Now()

	t.Run("happy path replaces cache with ranked rows", func(t *testing.T) {
		snapshots := new(MockSnapshotStore)
		settingsStore := new(MockSettingsStore)
		cache := new(MockCacheStore)

		cards := []CardData{
			cardData("A",
				snap(models.SourceTCGPlayer, 10, now),
				snap(models.SourceCardmarket, 50, now),
			),
		}

		settingsStore.On("Get", mock.Anything).Return(fixtureSettings(), nil).Once()
		snapshots.On("CardsWithRecentActivity", mock.Anything, mock.Anything).Return(cards, nil).Once()
		cache.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil).Once()

		builder := NewCacheBuilder(snapshots, settingsStore, cache)
		count, err := builder.Recompute(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		require.Len(t, cache.replaced, 1)
		assert.Equal(t, "A", cache.replaced[0].CardName)
		settingsStore.AssertExpectations(t)
		snapshots.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("settings failure names its phase", func(t *testing.T) {
		snapshots := new(MockSnapshotStore)
		settingsStore := new(MockSettingsStore)
		cache := new(MockCacheStore)

		settingsStore.On("Get", mock.Anything).Return(models.Settings{}, errors.New("down")).Once()

		builder := NewCacheBuilder(snapshots, settingsStore, cache)
		_, err := builder.Recompute(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "load settings")
		cache.AssertNotCalled(t, "ReplaceAll")
	})

	t.Run("cache failure propagates with phase", func(t *testing.T) {
		snapshots := new(MockSnapshotStore)
		settingsStore := new(MockSettingsStore)
		cache := new(MockCacheStore)

		settingsStore.On("Get", mock.Anything).Return(fixtureSettings(), nil).Once()
		snapshots.On("CardsWithRecentActivity", mock.Anything, mock.Anything).Return([]CardData(nil), nil).Once()
		cache.On("ReplaceAll", mock.Anything, mock.Anything).Return(errors.New("deadlock")).Once()

		builder := NewCacheBuilder(snapshots, settingsStore, cache)
		_, err := builder.Recompute(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "replace cache")
	})
}
