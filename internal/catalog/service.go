// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lumennodes/portal/internal/core"
)

type Service struct {
	repo       Repository
	allowAdHoc bool
	logger     *slog.Logger
}

func NewService(repo Repository, allowAdHoc bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, allowAdHoc: allowAdHoc, logger: logger}
}

func (s *Service) List(ctx context.Context, featuredOnly bool) ([]Product, error) {
	return s.repo.List(ctx, featuredOnly)
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(slug))
}

func (s *Service) Create(
	ctx context.Context,
	req CreateProductRequest,
) (*Product, error) {
	p := &Product{
		ID:         uuid.New().String(),
		Slug:       req.Slug,
		Name:       req.Name,
		Category:   req.Category,
		RAM:        orUnknown(req.RAM),
		CPU:        orUnknown(req.CPU),
		Disk:       orUnknown(req.Disk),
		Backups:    req.Backups,
		PriceMinor: req.PriceMinor,
		NestID:     req.NestID,
		EggID:      req.EggID,
		IsFeatured: req.IsFeatured,
		SortOrder:  req.SortOrder,
		Stock:      StockUnlimited,
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) SetStock(ctx context.Context, id string, stock int) (*Product, error) {
	if stock < StockUnlimited {
		return nil, fmt.Errorf("set stock: %d below -1: %w", stock, core.ErrInvalidInput)
	}

	p, err := s.repo.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan stock updated", "slug", p.Slug, "stock", p.Stock)
	return p, nil
}

// Resolve picks the product an order is placed against and enforces that
// the submitted amount equals its price. Unknown slugs become ad hoc
// products only when that is enabled; otherwise the catalog is closed.
func (s *Service) Resolve(
	ctx context.Context,
	in ResolveInput,
) (*Product, error) {
	if in.AmountMinor <= 0 {
		return nil, fmt.Errorf("resolve plan: amount must be positive: %w", core.ErrInvalidInput)
	}

	if in.ProductID != "" {
		if _, err := uuid.Parse(in.ProductID); err != nil {
			return nil, fmt.Errorf("resolve plan: %w", core.ErrNotFound)
		}
		p, err := s.repo.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve plan: %w", err)
		}
		return orderable(p, in.AmountMinor)
	}

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		return nil, fmt.Errorf("resolve plan: productId or planSlug required: %w", core.ErrInvalidInput)
	}

	p, err := s.repo.GetBySlug(ctx, slug)
	if err == nil {
		return orderable(p, in.AmountMinor)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}

	if !s.allowAdHoc {
		return nil, fmt.Errorf("resolve plan %q: %w", slug, core.ErrNotFound)
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("resolve plan: planName required for new plan: %w", core.ErrInvalidInput)
	}

	created, err := s.repo.CreateIfAbsent(ctx, &Product{
		ID:         uuid.New().String(),
		Slug:       slug,
		Name:       strings.TrimSpace(in.Name),
		Category:   CategoryAdHoc,
		RAM:        unknownSpec,
		CPU:        unknownSpec,
		Disk:       unknownSpec,
		PriceMinor: in.AmountMinor,
		Stock:      StockUnlimited,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}

	s.logger.Warn("ad hoc plan created from order request",
		"slug", created.Slug,
		"price_minor", created.PriceMinor,
	)

	return orderable(created, in.AmountMinor)
}

func orderable(p *Product, amount int64) (*Product, error) {
	if !p.InStock() {
		return nil, fmt.Errorf("resolve plan: %s is out of stock: %w", p.Slug, core.ErrConflict)
	}
	if p.PriceMinor != amount {
		return nil, fmt.Errorf(
			"resolve plan: amount %d does not match price %d: %w",
			amount,
			p.PriceMinor,
			core.ErrInvalidInput,
		)
	}
	return p, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownSpec
	}
	return s
}
