package analyzer

import (
	"time"

	"tcg-arbitrage/internal/models"
)

// sideQuote is one resolved leg of a trade: the source it came from, the
// quoted price in its original currency, and the same price in base currency.
type sideQuote struct {
	Source   string
	Currency string
	Original float64
	Base     float64
}

type sidesKind int

const (
	noPrice sidesKind = iota
	singleSource
	twoSource
)

// priceSides is the per-card resolution of "whichever sources exist":
// no usable price, a single source on both legs, or a proper buy-low /
// sell-high pair.
type priceSides struct {
	kind sidesKind
	buy  sideQuote
	sell sideQuote
}

// resolveSides picks the buy and sell legs from the latest quotes of both
// marketplaces, compared in base currency. With only one positive price the
// same source fills both legs; fees usually make that unprofitable, which is
// intentional — suppression happens at the ranking stage, not here.
func resolveSides(tcgUsd, cmEur float64, settings models.Settings) priceSides {
	cmUsd := ToBase(cmEur, "EUR", settings)

	tcgQuote := sideQuote{Source: models.SourceTCGPlayer, Currency: "USD", Original: tcgUsd, Base: tcgUsd}
	cmQuote := sideQuote{Source: models.SourceCardmarket, Currency: "EUR", Original: cmEur, Base: cmUsd}

	switch {
	case tcgUsd > 0 && cmUsd > 0:
		if tcgUsd < cmUsd {
			return priceSides{kind: twoSource, buy: tcgQuote, sell: cmQuote}
		}
		return priceSides{kind: twoSource, buy: cmQuote, sell: tcgQuote}
	case tcgUsd > 0:
		return priceSides{kind: singleSource, buy: tcgQuote, sell: tcgQuote}
	case cmUsd > 0:
		return priceSides{kind: singleSource, buy: cmQuote, sell: cmQuote}
	}
	return priceSides{kind: noPrice}
}

// OpportunityScore blends ROI, net profit, momentum and spread into one
// 0-100 desirability score. Each signal is clamped into 0-100 before
// weighting so no single volatile metric dominates unboundedly.
func OpportunityScore(roi, netProfit, momentum, spread float64) float64 {
	score := clamp100(roi)*0.35 +
		clamp100(netProfit*2)*0.25 +
		clamp100(momentum+50)*0.20 +
		clamp100(spread*2)*0.20
	return clamp100(score)
}

// latestMarketPrice returns the market price of the newest snapshot in the
// slice, or 0 when none carries a usable quote.
func latestMarketPrice(snapshots []models.PriceSnapshot) float64 {
	var best *models.PriceSnapshot
	for i := range snapshots {
		if best == nil || snapshots[i].Timestamp.After(best.Timestamp) {
			best = &snapshots[i]
		}
	}
	if best == nil {
		return 0
	}
	return safePrice(best.PriceMarket)
}

// EvaluateCard computes the full opportunity row for one card from its
// windowed snapshots and a settings value read once by the caller. It returns
// nil when neither marketplace has a positive price. A negative ROI does not
// suppress the row here; the ranker filters those.
func EvaluateCard(card CardData, settings models.Settings, calculatedAt time.Time) *models.OpportunityCache {
	var tcgSnaps, cmSnaps []models.PriceSnapshot
	for _, s := range card.Snapshots {
		switch s.Source {
		case models.SourceTCGPlayer:
			tcgSnaps = append(tcgSnaps, s)
		case models.SourceCardmarket:
			cmSnaps = append(cmSnaps, s)
		}
	}

	sides := resolveSides(latestMarketPrice(tcgSnaps), latestMarketPrice(cmSnaps), settings)
	if sides.kind == noPrice {
		return nil
	}

	// Momentum per source, averaged; an absent side contributes 0.
	momentum := (Momentum(tcgSnaps) + Momentum(cmSnaps)) / 2

	var prices []float64
	for _, s := range append(append([]models.PriceSnapshot{}, tcgSnaps...), cmSnaps...) {
		if p := safePrice(s.PriceMarket); p > 0 {
			prices = append(prices, p)
		}
	}
	liquidity := Liquidity(len(tcgSnaps)+len(cmSnaps), PriceVariancePercent(prices))

	spread := sides.sell.Base - sides.buy.Base
	netProfit, roi := ProfitROI(sides.buy.Base, sides.sell.Base, sides.buy.Source, settings)
	score := OpportunityScore(roi, netProfit, momentum, spread)

	return &models.OpportunityCache{
		CardID:           card.Card.ID,
		CardName:         card.Card.Name,
		SetName:          card.Card.Set.Name,
		Rarity:           card.Card.Rarity,
		ImageSmall:       card.Card.ImageSmall,
		BuyPrice:         round2(sides.buy.Original),
		BuySource:        sides.buy.Source,
		BuyCurrency:      sides.buy.Currency,
		SellPrice:        round2(sides.sell.Original),
		SellSource:       sides.sell.Source,
		SellCurrency:     sides.sell.Currency,
		Spread:           round2(spread),
		NetProfit:        round2(netProfit),
		Roi:              round2(roi),
		FxRate:           settings.FxRateEurUsd,
		Momentum:         round2(momentum),
		OpportunityScore: round2(score),
		Liquidity:        round2(liquidity),
		CalculatedAt:     calculatedAt,
	}
}
