// Package tcgio ingests sets, cards and price points from the public
// Pokemon TCG API and the graded price tracker.
package tcgio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tcg-arbitrage/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	pokemonAPIBase      = "https://api.pokemontcg.io/v2"
	priceTrackerAPIBase = "https://www.pokemonpricetracker.com/api/v1"
)

type Client struct {
	apiKey          string
	priceTrackerKey string
	client          *resty.Client
}

func NewClient(apiKey, priceTrackerKey string) *Client {
	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(2 * time.Second)
	return &Client{
		apiKey:          apiKey,
		priceTrackerKey: priceTrackerKey,
		client:          client,
	}
}

type apiSet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	ReleaseDate string `json:"releaseDate"`
}

type apiPricePoint struct {
	Low    *float64 `json:"low"`
	Market *float64 `json:"market"`
}

type apiCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *struct {
		Prices map[string]apiPricePoint `json:"prices"`
	} `json:"tcgplayer"`
	Cardmarket *struct {
		Prices struct {
			LowPrice         *float64 `json:"lowPrice"`
			AverageSellPrice *float64 `json:"averageSellPrice"`
			TrendPrice       *float64 `json:"trendPrice"`
		} `json:"prices"`
	} `json:"cardmarket"`
}

type setsResponse struct {
	Data []apiSet `json:"data"`
}

type cardsResponse struct {
	Data       []apiCard `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalCount int       `json:"totalCount"`
}

func (c *Client) get(url string, out interface{}) error {
	req := c.client.R().SetHeader("Accept", "application/json")
	if c.apiKey != "" {
		req.SetHeader("X-Api-Key", c.apiKey)
	}
	resp, err := req.Get(url)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode(), url)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Sets lists every card set, oldest release first.
func (c *Client) Sets() ([]models.CardSet, error) {
	var parsed setsResponse
	if err := c.get(pokemonAPIBase+"/sets?orderBy=releaseDate", &parsed); err != nil {
		return nil, fmt.Errorf("failed to fetch sets: %w", err)
	}

	sets := make([]models.CardSet, 0, len(parsed.Data))
	for _, s := range parsed.Data {
		sets = append(sets, models.CardSet{
			ID:          s.ID,
			Name:        s.Name,
			Series:      s.Series,
			ReleaseDate: s.ReleaseDate,
		})
	}
	return sets, nil
}

// CardsForSet pulls one page of a set's cards plus their current marketplace
// price points as snapshots stamped with now.
func (c *Client) CardsForSet(setID string, page int) ([]models.Card, []models.PriceSnapshot, bool, error) {
	url := fmt.Sprintf("%s/cards?q=set.id:%s&page=%d&pageSize=250", pokemonAPIBase, setID, page)
	var parsed cardsResponse
	if err := c.get(url, &parsed); err != nil {
		return nil, nil, false, fmt.Errorf("failed to fetch cards for set %s: %w", setID, err)
	}

	now := time.Now()
	cards := make([]models.Card, 0, len(parsed.Data))
	var snapshots []models.PriceSnapshot
	for _, ac := range parsed.Data {
		cards = append(cards, models.Card{
			ID:         ac.ID,
			Name:       ac.Name,
			Number:     ac.Number,
			Rarity:     ac.Rarity,
			ImageSmall: ac.Images.Small,
			ImageLarge: ac.Images.Large,
			SetID:      setID,
		})
		snapshots = append(snapshots, cardSnapshots(ac, now)...)
	}

	hasMore := parsed.Page*parsed.PageSize < parsed.TotalCount
	return cards, snapshots, hasMore, nil
}

// cardSnapshots maps a card's API price blocks onto snapshot rows. TCGplayer
// publishes one block per finish; the first finish carrying a market price
// wins.
func cardSnapshots(ac apiCard, now time.Time) []models.PriceSnapshot {
	var snapshots []models.PriceSnapshot

	if ac.TCGPlayer != nil {
		for _, finish := range []string{"normal", "holofoil", "reverseHolofoil"} {
			point, ok := ac.TCGPlayer.Prices[finish]
			if !ok || point.Market == nil {
				continue
			}
			snapshots = append(snapshots, models.PriceSnapshot{
				CardID:      ac.ID,
				Source:      models.SourceTCGPlayer,
				Currency:    "USD",
				PriceLow:    point.Low,
				PriceMarket: point.Market,
				Timestamp:   now,
			})
			break
		}
	}

	if ac.Cardmarket != nil && ac.Cardmarket.Prices.AverageSellPrice != nil {
		snapshots = append(snapshots, models.PriceSnapshot{
			CardID:      ac.ID,
			Source:      models.SourceCardmarket,
			Currency:    "EUR",
			PriceLow:    ac.Cardmarket.Prices.LowPrice,
			PriceMarket: ac.Cardmarket.Prices.AverageSellPrice,
			PriceTrend:  ac.Cardmarket.Prices.TrendPrice,
			Timestamp:   now,
		})
	}

	return snapshots
}

type trackerResponse struct {
	Data []struct {
		Grade string   `json:"grade"`
		Price *float64 `json:"price"`
	} `json:"data"`
}

// GradedPrices pulls PSA graded price points for a card from the price
// tracker. Without an API key it returns nothing; graded data is optional.
func (c *Client) GradedPrices(cardID string) ([]models.PriceSnapshot, error) {
	if c.priceTrackerKey == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/prices?cardId=%s", priceTrackerAPIBase, cardID)
	resp, err := c.client.R().
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+c.priceTrackerKey).
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("price tracker request failed with status %d", resp.StatusCode())
	}

	var parsed trackerResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse price tracker response: %w", err)
	}

	now := time.Now()
	var snapshots []models.PriceSnapshot
	for _, point := range parsed.Data {
		grade, err := strconv.Atoi(point.Grade)
		if err != nil || point.Price == nil {
			continue
		}
		g := grade
		snapshots = append(snapshots, models.PriceSnapshot{
			CardID:      cardID,
			Source:      models.SourcePriceTracker,
			Currency:    "USD",
			PriceMarket: point.Price,
			PsaGrade:    &g,
			Timestamp:   now,
		})
	}
	return snapshots, nil
}
