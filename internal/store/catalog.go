package store

import (
	"context"
	"fmt"

	"tcg-arbitrage/internal/models"

	"gorm.io/gorm/clause"
)

// UpsertSet inserts or refreshes one card set.
func (s *Store) UpsertSet(ctx context.Context, set models.CardSet) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&set).Error
	if err != nil {
		return fmt.Errorf("failed to upsert set %s: %w", set.ID, err)
	}
	return nil
}

// UpsertCards inserts or refreshes a batch of cards.
func (s *Store) UpsertCards(ctx context.Context, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&cards).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cards: %w", err)
	}
	return nil
}

// SeedProgress persists the resumable seed cursor on the settings row.
func (s *Store) SeedProgress(ctx context.Context, lastIndex int, progress string) error {
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	settings.LastSeedIndex = lastIndex
	settings.SeedProgress = progress
	return s.Save(ctx, settings)
}
