// Package fx fetches official PTAX exchange quotes from the Brazilian
// central bank's Olinda OData API.
package fx

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
)

const ptaxBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

type Service struct {
	client *resty.Client
}

// Rate is one day's PTAX quote for a currency pair against BRL.
type Rate struct {
	Currency  string  `json:"currency"`
	Symbol    string  `json:"symbol"`
	BuyRate   float64 `json:"buy_rate"`
	SellRate  float64 `json:"sell_rate"`
	Date      string  `json:"date"`
	WeeklyAvg float64 `json:"weekly_avg,omitempty"`
	Variation float64 `json:"variation,omitempty"`
}

// ImportAlert flags the USD sitting notably below its weekly average, a good
// window for importing.
type ImportAlert struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	CurrentRate float64 `json:"current_rate"`
	WeeklyAvg   float64 `json:"weekly_avg"`
	Variation   float64 `json:"variation"`
}

type ptaxResponse struct {
	Value []struct {
		CotacaoCompra   float64 `json:"cotacaoCompra"`
		CotacaoVenda    float64 `json:"cotacaoVenda"`
		DataHoraCotacao string  `json:"dataHoraCotacao"`
	} `json:"value"`
}

func NewService() *Service {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	return &Service{client: client}
}

// fetchDay queries the PTAX quote for one currency and date. No quote is
// published on weekends and holidays; that comes back as an empty value set.
func (s *Service) fetchDay(currency string, day time.Time) (*Rate, error) {
	url := fmt.Sprintf("%s/CotacaoMoedaDia(moeda=@moeda,dataCotacao=@dataCotacao)", ptaxBaseURL)

	resp, err := s.client.R().
		SetQueryParams(map[string]string{
			"@moeda":       fmt.Sprintf("'%s'", currency),
			"@dataCotacao": fmt.Sprintf("'%s'", day.Format("01-02-2006")),
			"$top":         "1",
			"$orderby":     "dataHoraCotacao desc",
			"$format":      "json",
		}).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("PTAX request failed with status %d", resp.StatusCode())
	}

	var parsed ptaxResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse PTAX response: %w", err)
	}
	if len(parsed.Value) == 0 {
		return nil, nil
	}

	quote := parsed.Value[0]
	return &Rate{
		Currency: currency,
		BuyRate:  quote.CotacaoCompra,
		SellRate: quote.CotacaoVenda,
		Date:     day.Format("2006-01-02"),
	}, nil
}

// Latest walks back up to 5 days to find the most recent published quote.
func (s *Service) Latest(currency string) (*Rate, error) {
	today := time.Now()
	for i := 0; i < 5; i++ {
		rate, err := s.fetchDay(currency, today.AddDate(0, 0, -i))
		if err != nil {
			continue
		}
		if rate != nil {
			return rate, nil
		}
	}
	return nil, fmt.Errorf("no PTAX quote found for %s in the last 5 days", currency)
}

// WeeklySellRates collects up to 7 published sell quotes from the last 14
// calendar days, newest first.
func (s *Service) WeeklySellRates(currency string) []float64 {
	var rates []float64
	today := time.Now()
	for i := 0; i < 14 && len(rates) < 7; i++ {
		rate, err := s.fetchDay(currency, today.AddDate(0, 0, -i))
		if err != nil || rate == nil {
			continue
		}
		rates = append(rates, rate.SellRate)
	}
	return rates
}

// CheckImportAlert compares the current USD rate against the weekly average
// (excluding today) and returns an alert when it sits thresholdPercent or
// more below it.
func CheckImportAlert(current float64, weekly []float64, thresholdPercent float64) *ImportAlert {
	if len(weekly) < 2 {
		return nil
	}
	sum := 0.0
	for _, r := range weekly[1:] {
		sum += r
	}
	avg := sum / float64(len(weekly)-1)
	if avg <= 0 {
		return nil
	}

	variation := (current - avg) / avg * 100
	if variation > -thresholdPercent {
		return nil
	}
	return &ImportAlert{
		Type:        "import_opportunity",
		Message:     fmt.Sprintf("USD is %.1f%% below its weekly average, good time to import", math.Abs(variation)),
		CurrentRate: current,
		WeeklyAvg:   math.Round(avg*100) / 100,
		Variation:   math.Round(variation*100) / 100,
	}
}
