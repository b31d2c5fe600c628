// AngelaMos | 2026
// discord.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lumennodes/portal/internal/config"
)

const embedColor = 0x9333ea

type Sender interface {
	Send(ctx context.Context, evt OrderPlaced) error
}

type Discord struct {
	cfg        config.NotifyConfig
	httpClient *http.Client
	now        func() time.Time
}

func NewDiscord(cfg config.NotifyConfig) *Discord {
	return &Discord{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

type webhookBody struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Timestamp string       `json:"timestamp"`
	Footer    *embedFooter `json:"footer,omitempty"`
	Fields    []embedField `json:"fields"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (d *Discord) buildBody(evt OrderPlaced) webhookBody {
	customer := evt.CustomerName
	if customer == "" {
		customer = "Unknown"
	}

	body := webhookBody{
		Username:  d.cfg.Username,
		AvatarURL: d.cfg.AvatarURL,
		Embeds: []embed{{
			Title:     "New Order Placed",
			Color:     embedColor,
			Timestamp: d.now().UTC().Format(time.RFC3339),
			Footer:    &embedFooter{Text: "LumenNodes System"},
			Fields: []embedField{
				{Name: "Customer", Value: fmt.Sprintf("%s (%s)", customer, evt.CustomerEmail), Inline: true},
				{Name: "Plan", Value: evt.PlanName, Inline: true},
				{Name: "Amount", Value: "₹" + evt.Amount(), Inline: true},
				{Name: "Order ID", Value: "`" + evt.OrderID + "`"},
				{Name: "Hardware", Value: fmt.Sprintf("%s / %s / %s", evt.RAM, evt.CPU, evt.Disk)},
			},
		}},
	}

	if d.cfg.MentionRoleID != "" {
		body.Content = fmt.Sprintf(
			"<@&%s> A new order is waiting for approval!",
			d.cfg.MentionRoleID,
		)
	}

	return body
}

// Send posts the order embed to the webhook. 429 and 5xx responses are
// retried with exponential backoff until MaxElapsed; other 4xx are final.
func (d *Discord) Send(ctx context.Context, evt OrderPlaced) error {
	payload, err := json.Marshal(d.buildBody(evt))
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = d.cfg.MaxElapsed

	attempt := func() error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			d.cfg.DiscordWebhookURL,
			bytes.NewReader(payload),
		)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
	}

	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}

// Noop discards events. It stands in when no webhook is configured.
type Noop struct{}

func (Noop) Send(context.Context, OrderPlaced) error { return nil }

func NewSender(cfg config.NotifyConfig) Sender {
	if cfg.DiscordWebhookURL == "" {
		return Noop{}
	}
	return NewDiscord(cfg)
}
