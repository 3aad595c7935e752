package analyzer

import (
	"sort"

	"tcg-arbitrage/internal/models"
)

// GradeOpportunity is one rung of the graded-condition buy/sell ladder.
type GradeOpportunity struct {
	Grade     int     `json:"grade"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Profit    float64 `json:"profit"`
	Roi       float64 `json:"roi"`
	Estimated bool    `json:"estimated"` // true when synthesized from the base price
}

// Assumed bid/ask spread around an observed graded market price.
const (
	gradedBuyRatio  = 0.85
	gradedSellRatio = 1.10
)

// Value multipliers for the synthesized ladder, empirically calibrated to
// how grading inflates raw card value. Top grade ~5x, floor 1x.
var gradeMultipliers = []struct {
	Grade int
	Mult  float64
}{
	{10, 5},
	{9, 2.5},
	{8, 1.5},
	{7, 1.2},
	{6, 1},
}

// gradeQuote is the provenance variant feeding the shared profit formula:
// an observed graded market price, or one synthesized from the base price.
type gradeQuote struct {
	Grade     int
	Market    float64
	Estimated bool
}

// gradeOpportunity applies the shared bid/ask spread and fee formula to one
// graded quote. The graded tracker does not say which marketplace a price
// came from, so the TCGplayer fee serves as the fixed reference fee on both
// legs.
func gradeOpportunity(q gradeQuote, settings models.Settings) GradeOpportunity {
	buy := q.Market * gradedBuyRatio
	sell := q.Market * gradedSellRatio
	profit := sell*(1-settings.TcgplayerFee) - buy*(1+settings.TcgplayerFee) - settings.ShippingCost

	roi := 0.0
	if buy > 0 {
		roi = profit / (buy + settings.ShippingCost) * 100
	}

	return GradeOpportunity{
		Grade:     q.Grade,
		BuyPrice:  round2(buy),
		SellPrice: round2(sell),
		Profit:    round2(profit),
		Roi:       round2(roi),
		Estimated: q.Estimated,
	}
}

// RankGradedOpportunities produces the graded buy/sell ladder for one card,
// sorted by descending ROI. With graded observations each one becomes a
// rung; without any, the ladder is synthesized from the card's best ungraded
// base price so sparse data still yields a "best grade to seek"
// recommendation. Callers typically keep only the top 5.
func RankGradedOpportunities(gradedSnapshots []models.PriceSnapshot, basePrice float64, settings models.Settings) []GradeOpportunity {
	var quotes []gradeQuote
	for _, s := range gradedSnapshots {
		if s.PsaGrade == nil {
			continue
		}
		price := safePrice(s.PriceMarket)
		if price == 0 {
			continue
		}
		quotes = append(quotes, gradeQuote{Grade: *s.PsaGrade, Market: price})
	}

	if len(quotes) == 0 {
		for _, gm := range gradeMultipliers {
			quotes = append(quotes, gradeQuote{Grade: gm.Grade, Market: basePrice * gm.Mult, Estimated: true})
		}
	}

	ladder := make([]GradeOpportunity, 0, len(quotes))
	for _, q := range quotes {
		ladder = append(ladder, gradeOpportunity(q, settings))
	}

	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].Roi > ladder[j].Roi
	})
	return ladder
}
