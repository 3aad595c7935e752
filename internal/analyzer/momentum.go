package analyzer

import (
	"sort"

	"tcg-arbitrage/internal/models"
)

// Momentum returns the percent price change between the oldest and latest
// snapshot of one source inside the trailing window. Fewer than 2 points, or
// a zero/absent endpoint, degrade to 0: momentum is a soft signal, not a
// correctness-critical value.
func Momentum(snapshots []models.PriceSnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	sorted := make([]models.PriceSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	latest := safePrice(sorted[0].PriceMarket)
	oldest := safePrice(sorted[len(sorted)-1].PriceMarket)
	if latest == 0 || oldest == 0 {
		return 0
	}
	return (latest - oldest) / oldest * 100
}
