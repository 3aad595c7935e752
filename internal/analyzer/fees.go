package analyzer

import "tcg-arbitrage/internal/models"

// ToBase converts a price to the base currency using the configured FX rate.
// Only EUR quotes need conversion; the base currency and USD quotes pass
// through unchanged.
func ToBase(price float64, currency string, settings models.Settings) float64 {
	if currency == "EUR" {
		return price * settings.FxRateEurUsd
	}
	return price
}

// BuyFee returns the fee fraction charged on the buy leg for a source.
func BuyFee(source string, settings models.Settings) float64 {
	switch source {
	case models.SourceTCGPlayer:
		return settings.TcgplayerFee
	case models.SourceCardmarket:
		return settings.CardmarketFee
	}
	return 0
}

// ProfitROI applies the fee schedule to a buy/sell pair in base currency.
// The sell leg always pays the flat marketplace resale fee regardless of the
// sell source: the modeled flow is import from the cheaper marketplace,
// resell on the local marketplace. Shipping is a flat additive on the buy
// leg. ROI is the return on total landed buy cost; zero cost yields 0.
func ProfitROI(buyPrice, sellPrice float64, buySource string, settings models.Settings) (netProfit, roi float64) {
	totalBuyCost := buyPrice*(1+BuyFee(buySource, settings)) + settings.ShippingCost
	netSellRevenue := sellPrice * (1 - settings.MarketplaceFee)

	netProfit = netSellRevenue - totalBuyCost
	if totalBuyCost > 0 {
		roi = netProfit / totalBuyCost * 100
	}
	return netProfit, roi
}
