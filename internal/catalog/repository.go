// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumennodes/portal/internal/core"
)

type Repository interface {
	List(ctx context.Context, featuredOnly bool) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	// CreateIfAbsent inserts p unless its slug exists and returns whichever
	// row now owns the slug.
	CreateIfAbsent(ctx context.Context, p *Product) (*Product, error)
	SetStock(ctx context.Context, id string, stock int) (*Product, error)
	// TakeStock consumes one unit of a limited plan. Unlimited plans are
	// untouched; a sold-out plan yields ErrConflict.
	TakeStock(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const productColumns = `id, slug, name, category, ram, cpu, disk, backups,
		       price_minor, nest_id, egg_id, is_featured, sort_order,
		       stock, created_at, updated_at`

func (r *repository) List(
	ctx context.Context,
	featuredOnly bool,
) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = FALSE OR is_featured)
		ORDER BY sort_order, price_minor`

	var products []Product
	if err := r.db.SelectContext(ctx, &products, query, featuredOnly); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+`
		FROM products WHERE id = $1`, id)
}

func (r *repository) GetBySlug(
	ctx context.Context,
	slug string,
) (*Product, error) {
	return r.getOne(ctx, "get product by slug", `SELECT `+productColumns+`
		FROM products WHERE slug = $1`, slug)
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, slug, name, category, ram, cpu, disk,
		                      backups, price_minor, nest_id, egg_id,
		                      is_featured, sort_order, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID, p.Slug, p.Name, p.Category, p.RAM, p.CPU, p.Disk,
		p.Backups, p.PriceMinor, p.NestID, p.EggID,
		p.IsFeatured, p.SortOrder, p.Stock,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *repository) CreateIfAbsent(
	ctx context.Context,
	p *Product,
) (*Product, error) {
	query := `
		INSERT INTO products (id, slug, name, category, ram, cpu, disk,
		                      backups, price_minor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		p.ID, p.Slug, p.Name, p.Category, p.RAM, p.CPU, p.Disk,
		p.Backups, p.PriceMinor,
	); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return r.GetBySlug(ctx, p.Slug)
}

func (r *repository) SetStock(
	ctx context.Context,
	id string,
	stock int,
) (*Product, error) {
	if err := core.CheckID("product", id); err != nil {
		return nil, err
	}

	return r.getOne(ctx, "set stock", `UPDATE products
		SET stock = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns, id, stock)
}

func (r *repository) TakeStock(ctx context.Context, id string) error {
	if err := core.CheckID("product", id); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - 1, updated_at = NOW()
		WHERE id = $1 AND stock > 0`, id)
	if err != nil {
		return fmt.Errorf("take stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("take stock: %w", err)
	}
	if n == 1 {
		return nil
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("take stock: %w", err)
	}
	if p.InStock() {
		return nil
	}

	return fmt.Errorf("take stock: plan %s is sold out: %w", p.Slug, core.ErrConflict)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
