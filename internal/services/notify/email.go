// Package notify delivers ROI alert emails through an HTTP mail relay.
package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Mailer struct {
	relayURL string
	token    string
	appURL   string
	client   *resty.Client
}

func NewMailer(relayURL, token, appURL string) *Mailer {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	return &Mailer{
		relayURL: relayURL,
		token:    token,
		appURL:   appURL,
		client:   client,
	}
}

// Enabled reports whether a relay endpoint is configured. Alert delivery is
// optional; without a relay the notify pass only logs.
func (m *Mailer) Enabled() bool {
	return m.relayURL != ""
}

// AlertEmail is the payload for one triggered ROI alert.
type AlertEmail struct {
	Recipient string
	CardID    string
	CardName  string
	SetName   string
	Roi       float64
	Threshold float64
	TcgPrice  float64
	CmPrice   float64
}

// Send posts one alert email to the relay.
func (m *Mailer) Send(alert AlertEmail) error {
	if !m.Enabled() {
		return fmt.Errorf("mail relay not configured")
	}

	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>Price alert hit: %s</h2>
  <p>Set: %s</p>
  <p>Current ROI: <strong>%.1f%%</strong> (threshold %.0f%%)</p>
  <p>TCGplayer: $%.2f &middot; Cardmarket: &euro;%.2f</p>
  <p><a href="%s/cards/%s">View card</a></p>
</div>`, alert.CardName, alert.SetName, alert.Roi, alert.Threshold, alert.TcgPrice, alert.CmPrice, m.appURL, alert.CardID)

	resp, err := m.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"token":     m.token,
			"subject":   fmt.Sprintf("TCG alert: %s hit %.1f%% ROI", alert.CardName, alert.Roi),
			"body":      body,
			"is_html":   true,
			"recipient": alert.Recipient,
		}).
		Post(m.relayURL)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode())
	}
	return nil
}
