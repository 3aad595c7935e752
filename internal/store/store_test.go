package store

import (
	"context"
	"testing"
	"time"

	"tcg-arbitrage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	// named in-memory DB so every pooled connection sees the same data
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.CardSet{},
		&models.Card{},
		&models.PriceSnapshot{},
		&models.Settings{},
		&models.OpportunityCache{},
	))
	return New(db)
}

func fp(v float64) *float64 { return &v }

func seedCard(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.UpsertSet(context.Background(), models.CardSet{ID: "base1", Name: "Base Set"}))
	require.NoError(t, s.UpsertCards(context.Background(), []models.Card{
		{ID: id, Name: "Card " + id, SetID: "base1"},
	}))
}

func TestSettingsDefaults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	settings, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), settings.ID)
	assert.Equal(t, "USD", settings.BaseCurrency)
	assert.Equal(t, 1.08, settings.FxRateEurUsd)
	assert.Equal(t, 0.12, settings.MarketplaceFee)

	settings.FxRateEurUsd = 1.12
	require.NoError(t, s.Save(ctx, settings))

	reloaded, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.12, reloaded.FxRateEurUsd)
}

func TestReplaceSnapshots(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedCard(t, s, "c1")
	now := time.Now()

	first := []models.PriceSnapshot{
		{CardID: "c1", Source: models.SourceTCGPlayer, Currency: "USD", PriceMarket: fp(10), Timestamp: now.AddDate(0, 0, -1)},
	}
	require.NoError(t, s.ReplaceSnapshots(ctx, "c1", models.SourceTCGPlayer, first))

	second := []models.PriceSnapshot{
		{CardID: "c1", Source: models.SourceTCGPlayer, Currency: "USD", PriceMarket: fp(12), Timestamp: now},
	}
	require.NoError(t, s.ReplaceSnapshots(ctx, "c1", models.SourceTCGPlayer, second))

	snaps, err := s.AllSnapshots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snaps, 1, "old snapshots must be superseded, not merged")
	assert.Equal(t, 12.0, *snaps[0].PriceMarket)
}

func TestCardsWithRecentActivity(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	seedCard(t, s, "fresh")
	seedCard(t, s, "stale")
	now := time.Now()

	require.NoError(t, s.ReplaceSnapshots(ctx, "fresh", models.SourceTCGPlayer, []models.PriceSnapshot{
		{CardID: "fresh", Source: models.SourceTCGPlayer, Currency: "USD", PriceMarket: fp(5), Timestamp: now.AddDate(0, 0, -2)},
	}))
	require.NoError(t, s.ReplaceSnapshots(ctx, "stale", models.SourceTCGPlayer, []models.PriceSnapshot{
		{CardID: "stale", Source: models.SourceTCGPlayer, Currency: "USD", PriceMarket: fp(5), Timestamp: now.AddDate(0, 0, -30)},
	}))

	cards, err := s.CardsWithRecentActivity(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "fresh", cards[0].Card.ID)
	assert.Equal(t, "Base Set", cards[0].Card.Set.Name)
	require.Len(t, cards[0].Snapshots, 1)
}

func TestReplaceAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	old := []models.OpportunityCache{
		{CardID: "a", CardName: "Old A", Roi: 5, OpportunityScore: 40, CalculatedAt: now.Add(-time.Hour)},
		{CardID: "b", CardName: "Old B", Roi: 2, OpportunityScore: 30, CalculatedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, s.ReplaceAll(ctx, old))

	fresh := []models.OpportunityCache{
		{CardID: "c", CardName: "New C", Roi: 20, OpportunityScore: 80, CalculatedAt: now},
	}
	require.NoError(t, s.ReplaceAll(ctx, fresh))

	rows, err := s.CachedOpportunities(ctx, 0, "opportunityScore", "desc", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1, "replace must be all-or-nothing, never a merge")
	assert.Equal(t, "New C", rows[0].CardName)

	t.Run("empty replacement clears the table", func(t *testing.T) {
		require.NoError(t, s.ReplaceAll(ctx, nil))
		rows, err := s.CachedOpportunities(ctx, 0, "opportunityScore", "desc", 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestCachedOpportunities(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	rows := []models.OpportunityCache{
		{CardID: "a", Roi: 5, OpportunityScore: 40, CalculatedAt: now},
		{CardID: "b", Roi: 50, OpportunityScore: 90, CalculatedAt: now},
		{CardID: "c", Roi: 15, OpportunityScore: 60, CalculatedAt: now},
	}
	require.NoError(t, s.ReplaceAll(ctx, rows))

	t.Run("min roi filter", func(t *testing.T) {
		got, err := s.CachedOpportunities(ctx, 10, "opportunityScore", "desc", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].CardID)
	})

	t.Run("sort by roi ascending", func(t *testing.T) {
		got, err := s.CachedOpportunities(ctx, 0, "roi", "asc", 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].CardID)
	})

	t.Run("unknown sort column falls back to score", func(t *testing.T) {
		got, err := s.CachedOpportunities(ctx, 0, "evil; DROP TABLE", "desc", 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].CardID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.CachedOpportunities(ctx, 0, "opportunityScore", "desc", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
