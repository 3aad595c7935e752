package models

import (
	"time"
)

// Price sources tracked per card. TCGplayer quotes in USD, Cardmarket in EUR,
// the grade tracker attaches a PSA grade to each observation.
const (
	SourceTCGPlayer    = "tcgplayer"
	SourceCardmarket   = "cardmarket"
	SourcePriceTracker = "pricetracker"
)

// CardSet represents a trading card set (expansion)
type CardSet struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Series      string    `json:"series"`
	ReleaseDate string    `json:"release_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Card represents a single collectible card
type Card struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"index;not null"`
	Number     string    `json:"number"`
	Rarity     string    `json:"rarity"`
	ImageSmall string    `json:"image_small"`
	ImageLarge string    `json:"image_large"`
	SetID      string    `json:"set_id" gorm:"index"`
	Set        CardSet   `json:"set" gorm:"foreignKey:SetID"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PriceSnapshot is one timestamped price observation for a card on one
// source. Snapshots are immutable; re-ingestion deletes and replaces them.
type PriceSnapshot struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CardID      string    `json:"card_id" gorm:"index;not null"`
	Source      string    `json:"source" gorm:"index;not null"` // tcgplayer, cardmarket, pricetracker
	Currency    string    `json:"currency" gorm:"default:'USD'"`
	PriceLow    *float64  `json:"price_low"`
	PriceMarket *float64  `json:"price_market"`
	PriceTrend  *float64  `json:"price_trend"`
	PsaGrade    *int      `json:"psa_grade"` // only set for pricetracker rows
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

// Settings is the singleton configuration record (id = 1), lazily created
// with defaults on first read.
type Settings struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	BaseCurrency         string    `json:"base_currency" gorm:"default:'USD'"`
	FxRateEurUsd         float64   `json:"fx_rate_eur_usd"`
	MinRoiThreshold      float64   `json:"min_roi_threshold"`
	TcgplayerFee         float64   `json:"tcgplayer_fee"`
	CardmarketFee        float64   `json:"cardmarket_fee"`
	MarketplaceFee       float64   `json:"marketplace_fee"` // local resale fee, applied to every sell leg
	ShippingCost         float64   `json:"shipping_cost"`
	ImportAlertThreshold float64   `json:"import_alert_threshold"`
	LastSeedIndex        int       `json:"last_seed_index"`
	SeedProgress         string    `json:"seed_progress" gorm:"type:text"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings row materialized when none exists.
func DefaultSettings() Settings {
	return Settings{
		ID:                   1,
		BaseCurrency:         "USD",
		FxRateEurUsd:         1.08,
		MinRoiThreshold:      10,
		TcgplayerFee:         0.10,
		CardmarketFee:        0.05,
		MarketplaceFee:       0.12,
		ShippingCost:         5,
		ImportAlertThreshold: 3,
	}
}

// OpportunityCache is one fully computed row of the materialized opportunity
// ranking. Rows are derived, never hand-edited: the ranker deletes all prior
// rows and inserts the new top-N inside one transaction.
type OpportunityCache struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	CardID           string    `json:"card_id" gorm:"index;not null"`
	CardName         string    `json:"card_name"`
	SetName          string    `json:"set_name"`
	Rarity           string    `json:"rarity"`
	ImageSmall       string    `json:"image_small"`
	PsaGrade         *int      `json:"psa_grade"`
	BuyPrice         float64   `json:"buy_price"` // original currency of the buy source
	BuySource        string    `json:"buy_source"`
	BuyCurrency      string    `json:"buy_currency"`
	SellPrice        float64   `json:"sell_price"` // original currency of the sell source
	SellSource       string    `json:"sell_source"`
	SellCurrency     string    `json:"sell_currency"`
	Spread           float64   `json:"spread"` // base currency, pre-fee
	NetProfit        float64   `json:"net_profit"`
	Roi              float64   `json:"roi"`
	FxRate           float64   `json:"fx_rate"`
	Momentum         float64   `json:"momentum"`
	OpportunityScore float64   `json:"opportunity_score" gorm:"index"`
	Liquidity        float64   `json:"liquidity"`
	CalculatedAt     time.Time `json:"calculated_at"`
}

// Alert represents a ROI threshold alert on a card
type Alert struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	CardID       string     `json:"card_id" gorm:"index;not null"`
	CardName     string     `json:"card_name"`
	Email        string     `json:"email" gorm:"not null"`
	RoiThreshold float64    `json:"roi_threshold"`
	Triggered    bool       `json:"triggered" gorm:"default:false"`
	TriggeredAt  *time.Time `json:"triggered_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// WatchlistItem marks a card the user is tracking
type WatchlistItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CardID    string    `json:"card_id" gorm:"uniqueIndex;not null"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
