// AngelaMos | 2026
// dto.go

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
)

type CreateOrderRequest struct {
	ProductID   string `json:"product_id"   validate:"required_without=PlanSlug,omitempty,max=64"`
	PlanSlug    string `json:"plan_slug"    validate:"required_without=ProductID,omitempty,min=2,max=64"`
	PlanName    string `json:"plan_name"    validate:"omitempty,max=100"`
	AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
}

type SubmitPaymentRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,min=4,max=64,printascii"`
}

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if !p.Status.Valid() {
		p.Status = ""
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type OrderResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	AmountMinor int64     `json:"amount_minor"`
	Amount      string    `json:"amount"`
	Status      Status    `json:"status"`
	PaymentRef  *string   `json:"payment_ref,omitempty"`
	AdminNote   *string   `json:"admin_note,omitempty"`
	ServerID    *string   `json:"server_id,omitempty"`
	InvoiceID   *string   `json:"invoice_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewResponse is the row shape of the admin and staff order queues.
type ReviewResponse struct {
	OrderResponse
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	ProductName string `json:"product_name"`
	Degraded    bool   `json:"degraded"`
}

type DetailResponse struct {
	Order   OrderResponse              `json:"order"`
	Product *catalog.ProductResponse   `json:"product,omitempty"`
	Server  *gameserver.ServerResponse `json:"server,omitempty"`
	Invoice *invoice.InvoiceResponse   `json:"invoice,omitempty"`
}

func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func ToOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		AmountMinor: o.AmountMinor,
		Amount:      FormatAmount(o.AmountMinor),
		Status:      o.Status,
		PaymentRef:  o.PaymentRef,
		AdminNote:   o.AdminNote,
		ServerID:    o.ServerID,
		InvoiceID:   o.InvoiceID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func ToReviewResponse(v *View) ReviewResponse {
	return ReviewResponse{
		OrderResponse: ToOrderResponse(&v.Order),
		UserEmail:     v.UserEmail,
		UserName:      v.UserName,
		ProductName:   v.ProductName,
		Degraded: v.ServerStatus != nil &&
			gameserver.Status(*v.ServerStatus) == gameserver.StatusProvisioning &&
			v.ServerPanel == nil,
	}
}

func ToReviewResponseList(views []View) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(views))
	for i := range views {
		out = append(out, ToReviewResponse(&views[i]))
	}
	return out
}

func ToDetailResponse(d *Detail) DetailResponse {
	resp := DetailResponse{Order: ToOrderResponse(d.Order)}
	if d.Product != nil {
		p := catalog.ToProductResponse(d.Product)
		resp.Product = &p
	}
	if d.Server != nil {
		s := gameserver.ToServerResponse(d.Server)
		resp.Server = &s
	}
	if d.Invoice != nil {
		inv := invoice.ToInvoiceResponse(d.Invoice)
		resp.Invoice = &inv
	}
	return resp
}
