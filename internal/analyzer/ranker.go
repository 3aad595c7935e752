package analyzer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"tcg-arbitrage/internal/models"
)

// SnapshotStore is the read side of the snapshot persistence collaborator.
type SnapshotStore interface {
	RecentSnapshots(ctx context.Context, cardID string, since time.Time) ([]models.PriceSnapshot, error)
	CardsWithRecentActivity(ctx context.Context, since time.Time) ([]CardData, error)
}

// SettingsStore reads and writes the singleton settings record. Get must
// materialize defaults when no record exists, never fail with "not found".
type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

// CacheStore atomically replaces the materialized opportunity ranking.
// Readers must never observe an empty or partially populated cache.
type CacheStore interface {
	ReplaceAll(ctx context.Context, rows []models.OpportunityCache) error
}

// RankOpportunities evaluates every card, discards cards with no usable
// price or negative ROI, sorts by opportunity score descending and truncates
// to topN. Pure function of its inputs apart from the shared calculatedAt
// stamp; a bad card is skipped, never fails the batch.
func RankOpportunities(cards []CardData, settings models.Settings, topN int, calculatedAt time.Time) []models.OpportunityCache {
	opportunities := make([]models.OpportunityCache, 0, len(cards))
	for _, card := range cards {
		opp := EvaluateCard(card, settings, calculatedAt)
		if opp == nil {
			continue
		}
		if opp.Roi < 0 {
			continue
		}
		opportunities = append(opportunities, *opp)
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].OpportunityScore > opportunities[j].OpportunityScore
	})

	if topN > 0 && len(opportunities) > topN {
		opportunities = opportunities[:topN]
	}
	return opportunities
}

// CacheBuilder runs the full recompute: load settings once, load every card
// with recent activity, rank, and atomically replace the cache table.
type CacheBuilder struct {
	Snapshots SnapshotStore
	Settings  SettingsStore
	Cache     CacheStore
	TopN      int
}

func NewCacheBuilder(snapshots SnapshotStore, settings SettingsStore, cache CacheStore) *CacheBuilder {
	return &CacheBuilder{
		Snapshots: snapshots,
		Settings:  settings,
		Cache:     cache,
		TopN:      DefaultTopN,
	}
}

// Recompute regenerates the opportunity cache from current snapshots. It is
// an idempotent full recompute, never a merge with stale rows. On any
// failure the previous cache stays intact and servable; the error names the
// failed phase.
func (b *CacheBuilder) Recompute(ctx context.Context) (int, error) {
	settings, err := b.Settings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute: load settings: %w", err)
	}

	now := time.Now()
	cards, err := b.Snapshots.CardsWithRecentActivity(ctx, WindowStart(now))
	if err != nil {
		return 0, fmt.Errorf("recompute: load cards: %w", err)
	}
	log.Printf("[OpportunityCache] processing %d cards", len(cards))

	rows := RankOpportunities(cards, settings, b.TopN, now)

	if err := b.Cache.ReplaceAll(ctx, rows); err != nil {
		return 0, fmt.Errorf("recompute: replace cache: %w", err)
	}
	log.Printf("[OpportunityCache] cached %d opportunities", len(rows))
	return len(rows), nil
}
