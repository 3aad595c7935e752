package analyzer

import "math"

// Liquidity estimates how reliably a position could be entered and exited,
// on a 0-100 scale. Frequent observations raise the activity half (capped at
// 50); stable pricing raises the stability half. A card with one wildly
// fluctuating quote ranks as illiquid even if nominally profitable.
func Liquidity(snapshotCount int, priceVariancePercent float64) float64 {
	activityScore := math.Min(float64(snapshotCount)*10, 50)
	stabilityScore := math.Max(50-priceVariancePercent*2, 0)
	return math.Min(activityScore+stabilityScore, 100)
}

// PriceVariancePercent is the coefficient of variation of the observed
// prices: standard deviation over mean, as a percentage. Empty or zero-mean
// series yield 0.
func PriceVariancePercent(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, p := range prices {
		diff := p - mean
		variance += diff * diff
	}
	variance /= float64(len(prices))
	return math.Sqrt(variance) / mean * 100
}
