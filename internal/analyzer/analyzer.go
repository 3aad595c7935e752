// Package analyzer computes cross-market arbitrage opportunities from raw
// per-source price snapshots: momentum, liquidity, fee-adjusted profit and
// ROI, and a composite 0-100 opportunity score used for ranking.
package analyzer

import (
	"math"
	"time"

	"tcg-arbitrage/internal/models"
)

// WindowDays is the trailing snapshot window used for momentum, liquidity
// and recent-activity filtering.
const WindowDays = 7

// DefaultTopN is the number of cache rows kept after ranking.
const DefaultTopN = 100

// CardData bundles a card with its snapshots inside the trailing window.
type CardData struct {
	Card      models.Card
	Snapshots []models.PriceSnapshot
}

// round2 rounds to 2 decimal places, the contract at all output boundaries.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clamp100 bounds a signal into the comparable 0-100 range.
func clamp100(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

// safePrice treats NaN, infinite and negative quotes as absent.
func safePrice(p *float64) float64 {
	if p == nil {
		return 0
	}
	v := *p
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// WindowStart returns the cutoff timestamp for the trailing window ending now.
func WindowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -WindowDays)
}
