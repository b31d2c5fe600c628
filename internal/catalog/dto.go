// AngelaMos | 2026
// dto.go

package catalog

import (
	"time"
)

type CreateProductRequest struct {
	Slug       string `json:"slug"        validate:"required,min=2,max=64,lowercase"`
	Name       string `json:"name"        validate:"required,min=1,max=100"`
	Category   string `json:"category"    validate:"required,max=64"`
	RAM        string `json:"ram"         validate:"omitempty,max=64"`
	CPU        string `json:"cpu"         validate:"omitempty,max=64"`
	Disk       string `json:"disk"        validate:"omitempty,max=64"`
	Backups    int    `json:"backups"     validate:"gte=0,lte=100"`
	PriceMinor int64  `json:"price_minor" validate:"required,gt=0"`
	NestID     *int   `json:"nest_id"     validate:"omitempty,gt=0"`
	EggID      *int   `json:"egg_id"      validate:"omitempty,gt=0"`
	IsFeatured bool   `json:"is_featured"`
	SortOrder  int    `json:"sort_order"`
	Stock      *int   `json:"stock"       validate:"omitempty,gte=-1"`
}

// SetStockRequest sets the units left; -1 means unlimited.
type SetStockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=-1"`
}

// ResolveInput is the plan selector carried on an order-create request.
type ResolveInput struct {
	ProductID   string
	Slug        string
	Name        string
	AmountMinor int64
}

type ProductResponse struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	RAM        string    `json:"ram"`
	CPU        string    `json:"cpu"`
	Disk       string    `json:"disk"`
	Backups    int       `json:"backups"`
	PriceMinor int64     `json:"price_minor"`
	IsFeatured bool      `json:"is_featured"`
	Stock      int       `json:"stock"`
	InStock    bool      `json:"in_stock"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Slug:       p.Slug,
		Name:       p.Name,
		Category:   p.Category,
		RAM:        p.RAM,
		CPU:        p.CPU,
		Disk:       p.Disk,
		Backups:    p.Backups,
		PriceMinor: p.PriceMinor,
		IsFeatured: p.IsFeatured,
		Stock:      p.Stock,
		InStock:    p.InStock(),
		CreatedAt:  p.CreatedAt,
	}
}

func ToProductResponseList(products []Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i]))
	}
	return out
}
