package analyzer

import (
	"testing"
	"time"

	"tcg-arbitrage/internal/models"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func snap(source string, price float64, ts time.Time) models.PriceSnapshot {
	return models.PriceSnapshot{
		Source:      source,
		Currency:    "USD",
		PriceMarket: fp(price),
		Timestamp:   ts,
	}
}

func TestMomentum(t *testing.T) {
	now := time.Now()

	t.Run("empty series", func(t *testing.T) {
		assert.Equal(t, 0.0, Momentum(nil))
	})

	t.Run("single snapshot is exactly zero", func(t *testing.T) {
		series := []models.PriceSnapshot{snap(models.SourceTCGPlayer, 42, now)}
		assert.Equal(t, 0.0, Momentum(series))
	})

	t.Run("oldest 100 latest 150 is exactly 50", func(t *testing.T) {
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 100, now.AddDate(0, 0, -6)),
			snap(models.SourceTCGPlayer, 150, now),
		}
		assert.Equal(t, 50.0, Momentum(series))
	})

	t.Run("input order does not matter", func(t *testing.T) {
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 150, now),
			snap(models.SourceTCGPlayer, 120, now.AddDate(0, 0, -3)),
			snap(models.SourceTCGPlayer, 100, now.AddDate(0, 0, -6)),
		}
		shuffled := []models.PriceSnapshot{series[1], series[2], series[0]}
		assert.Equal(t, Momentum(series), Momentum(shuffled))
		assert.Equal(t, 50.0, Momentum(shuffled))
	})

	t.Run("intermediate points are ignored", func(t *testing.T) {
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 100, now.AddDate(0, 0, -6)),
			snap(models.SourceTCGPlayer, 500, now.AddDate(0, 0, -3)),
			snap(models.SourceTCGPlayer, 150, now),
		}
		assert.Equal(t, 50.0, Momentum(series))
	})

	t.Run("zero endpoint degrades to zero", func(t *testing.T) {
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 0, now.AddDate(0, 0, -6)),
			snap(models.SourceTCGPlayer, 150, now),
		}
		assert.Equal(t, 0.0, Momentum(series))
	})

	t.Run("missing market price degrades to zero", func(t *testing.T) {
		noPrice := models.PriceSnapshot{Source: models.SourceTCGPlayer, Timestamp: now}
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 100, now.AddDate(0, 0, -6)),
			noPrice,
		}
		assert.Equal(t, 0.0, Momentum(series))
	})

	t.Run("declining series is negative", func(t *testing.T) {
		series := []models.PriceSnapshot{
			snap(models.SourceTCGPlayer, 200, now.AddDate(0, 0, -6)),
			snap(models.SourceTCGPlayer, 100, now),
		}
		assert.Equal(t, -50.0, Momentum(series))
	})
}

func TestLiquidity(t *testing.T) {
	t.Run("activity caps at 50", func(t *testing.T) {
		assert.Equal(t, 50.0, Liquidity(5, 25))
		assert.Equal(t, 50.0, Liquidity(100, 25))
	})

	t.Run("monotone in snapshot count up to the cap", func(t *testing.T) {
		prev := -1.0
		for count := 0; count <= 10; count++ {
			liq := Liquidity(count, 10)
			assert.GreaterOrEqual(t, liq, prev, "count %d", count)
			prev = liq
		}
	})

	t.Run("stability floor is zero", func(t *testing.T) {
		assert.Equal(t, 30.0, Liquidity(3, 100))
	})

	t.Run("never above 100", func(t *testing.T) {
		assert.Equal(t, 100.0, Liquidity(50, 0))
	})
}

func TestPriceVariancePercent(t *testing.T) {
	t.Run("empty and constant series", func(t *testing.T) {
		assert.Equal(t, 0.0, PriceVariancePercent(nil))
		assert.Equal(t, 0.0, PriceVariancePercent([]float64{10, 10, 10}))
	})

	t.Run("known dispersion", func(t *testing.T) {
		// mean 10, stddev 2 -> 20%
		got := PriceVariancePercent([]float64{8, 12, 8, 12})
		assert.InDelta(t, 20.0, got, 1e-9)
	})
}
