// Package store provides the GORM-backed persistence collaborators consumed
// by the analyzer: snapshots, settings and the materialized opportunity
// cache.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tcg-arbitrage/internal/analyzer"
	"tcg-arbitrage/internal/models"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RecentSnapshots returns a card's snapshots since the cutoff, newest first.
func (s *Store) RecentSnapshots(ctx context.Context, cardID string, since time.Time) ([]models.PriceSnapshot, error) {
	var snapshots []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("card_id = ? AND timestamp >= ?", cardID, since).
		Order("timestamp DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for card %s: %w", cardID, err)
	}
	return snapshots, nil
}

// AllSnapshots returns every snapshot of a card, newest first.
func (s *Store) AllSnapshots(ctx context.Context, cardID string) ([]models.PriceSnapshot, error) {
	var snapshots []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("timestamp DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for card %s: %w", cardID, err)
	}
	return snapshots, nil
}

// CardsWithRecentActivity returns every card having at least one snapshot
// inside the window, each bundled with its windowed snapshots.
func (s *Store) CardsWithRecentActivity(ctx context.Context, since time.Time) ([]analyzer.CardData, error) {
	var cardIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.PriceSnapshot{}).
		Where("timestamp >= ?", since).
		Distinct("card_id").
		Pluck("card_id", &cardIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active cards: %w", err)
	}
	if len(cardIDs) == 0 {
		return nil, nil
	}

	var cards []models.Card
	if err := s.db.WithContext(ctx).Preload("Set").Where("id IN ?", cardIDs).Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	var snapshots []models.PriceSnapshot
	err = s.db.WithContext(ctx).
		Where("card_id IN ? AND timestamp >= ?", cardIDs, since).
		Order("timestamp DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	byCard := make(map[string][]models.PriceSnapshot, len(cards))
	for _, snap := range snapshots {
		byCard[snap.CardID] = append(byCard[snap.CardID], snap)
	}

	result := make([]analyzer.CardData, 0, len(cards))
	for _, card := range cards {
		result = append(result, analyzer.CardData{Card: card, Snapshots: byCard[card.ID]})
	}
	return result, nil
}

// ReplaceSnapshots supersedes a card's snapshots for one source: prior rows
// are deleted and the new observations inserted, no history merge.
func (s *Store) ReplaceSnapshots(ctx context.Context, cardID, source string, snapshots []models.PriceSnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ? AND source = ?", cardID, source).Delete(&models.PriceSnapshot{}).Error; err != nil {
			return fmt.Errorf("failed to delete prior snapshots: %w", err)
		}
		if len(snapshots) == 0 {
			return nil
		}
		if err := tx.Create(&snapshots).Error; err != nil {
			return fmt.Errorf("failed to insert snapshots: %w", err)
		}
		return nil
	})
}

// Get returns the singleton settings row, creating it with defaults when
// missing. It never fails with "not found".
func (s *Store) Get(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.db.WithContext(ctx).First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultSettings()
		if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return models.Settings{}, fmt.Errorf("failed to create default settings: %w", err)
		}
		return settings, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Save upserts the singleton settings row.
func (s *Store) Save(ctx context.Context, settings models.Settings) error {
	settings.ID = 1
	if err := s.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ReplaceAll swaps the opportunity cache contents inside one transaction so
// concurrent readers see either the prior set or the new one, never an empty
// or partial table.
func (s *Store) ReplaceAll(ctx context.Context, rows []models.OpportunityCache) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.OpportunityCache{}).Error; err != nil {
			return fmt.Errorf("failed to clear opportunity cache: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert opportunity cache: %w", err)
		}
		return nil
	})
}

// CachedOpportunities reads the materialized ranking with the caller's
// filter and ordering.
func (s *Store) CachedOpportunities(ctx context.Context, minRoi float64, sortBy, sortOrder string, limit int) ([]models.OpportunityCache, error) {
	order := cacheOrderClause(sortBy, sortOrder)
	var rows []models.OpportunityCache
	err := s.db.WithContext(ctx).
		Where("roi >= ?", minRoi).
		Order(order).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunity cache: %w", err)
	}
	return rows, nil
}

// cacheOrderClause whitelists sortable cache columns; anything else falls
// back to score descending.
func cacheOrderClause(sortBy, sortOrder string) string {
	columns := map[string]string{
		"opportunityScore": "opportunity_score",
		"roi":              "roi",
		"netProfit":        "net_profit",
		"spread":           "spread",
		"momentum":         "momentum",
		"liquidity":        "liquidity",
		"buyPrice":         "buy_price",
	}
	col, ok := columns[sortBy]
	if !ok {
		col = "opportunity_score"
	}
	dir := "DESC"
	if sortOrder == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}
