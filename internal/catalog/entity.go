// AngelaMos | 2026
// entity.go

package catalog

import (
	"time"
)

// Product is an orderable plan. Ram, CPU and Disk are display strings
// ("6 GB", "150%"); provisioning parses them leniently. Stock is
// StockUnlimited, zero when sold out, or the units left.
type Product struct {
	ID         string    `db:"id"`
	Slug       string    `db:"slug"`
	Name       string    `db:"name"`
	Category   string    `db:"category"`
	RAM        string    `db:"ram"`
	CPU        string    `db:"cpu"`
	Disk       string    `db:"disk"`
	Backups    int       `db:"backups"`
	PriceMinor int64     `db:"price_minor"`
	NestID     *int      `db:"nest_id"`
	EggID      *int      `db:"egg_id"`
	IsFeatured bool      `db:"is_featured"`
	SortOrder  int       `db:"sort_order"`
	Stock      int       `db:"stock"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const (
	CategoryAdHoc  = "custom"
	StockUnlimited = -1
	unknownSpec    = "N/A"
)

func (p *Product) InStock() bool {
	return p.Stock != 0
}
