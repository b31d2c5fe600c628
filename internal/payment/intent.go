// AngelaMos | 2026
// intent.go

package payment

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
)

// Intent is a static UPI payment descriptor. It depends only on the order
// id, the amount and configuration, so it can be rebuilt at any time.
type Intent struct {
	PaymentLink   string `json:"payment_link"`
	RenderedCode  string `json:"rendered_code"`
	DestinationID string `json:"destination_id"`
	PayeeName     string `json:"payee_name"`
	Amount        string `json:"amount"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	OrderID       string `json:"order_id"`
}

type Generator struct {
	cfg config.PaymentConfig
}

func NewGenerator(cfg config.PaymentConfig) *Generator {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.NotePrefix == "" {
		cfg.NotePrefix = "LumenNodes"
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = 300
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) Link(orderID string, amountMinor int64, payeeName string) string {
	if payeeName == "" {
		payeeName = g.cfg.PayeeName
	}

	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(g.cfg.UPIID)
	b.WriteString("&pn=")
	b.WriteString(url.PathEscape(payeeName))
	b.WriteString("&am=")
	b.WriteString(FormatMajor(amountMinor))
	b.WriteString("&cu=")
	b.WriteString(g.cfg.Currency)
	b.WriteString("&tn=")
	b.WriteString(url.PathEscape(g.cfg.NotePrefix + "-Order-" + orderID))
	return b.String()
}

func (g *Generator) Generate(
	orderID string,
	amountMinor int64,
	payeeName string,
) (*Intent, error) {
	if orderID == "" || amountMinor <= 0 {
		return nil, fmt.Errorf("payment intent: %w", core.ErrInvalidInput)
	}
	if payeeName == "" {
		payeeName = g.cfg.PayeeName
	}

	link := g.Link(orderID, amountMinor, payeeName)

	png, err := qrcode.Encode(link, qrcode.Medium, g.cfg.QRSize)
	if err != nil {
		return nil, fmt.Errorf("render payment code: %w", err)
	}

	return &Intent{
		PaymentLink:   link,
		RenderedCode:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		DestinationID: g.cfg.UPIID,
		PayeeName:     payeeName,
		Amount:        FormatMajor(amountMinor),
		AmountMinor:   amountMinor,
		Currency:      g.cfg.Currency,
		OrderID:       orderID,
	}, nil
}

func FormatMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ToMinor converts a major-unit amount to paise, rejecting fractions of a
// paisa and non-positive values.
func ToMinor(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount has more than two decimals: %w", core.ErrInvalidInput)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("amount must be positive: %w", core.ErrInvalidInput)
	}
	return minor.IntPart(), nil
}
