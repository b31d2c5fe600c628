// AngelaMos | 2026
// repository.go

package gameserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumennodes/portal/internal/core"
)

type Repository interface {
	Create(ctx context.Context, s *Server) error
	GetByID(ctx context.Context, id string) (*Server, error)
	ListByUser(ctx context.Context, userID string) ([]Server, error)
	Transition(ctx context.Context, id string, from, to Status) (*Server, error)
	Attach(ctx context.Context, id string, from Status, alloc Allocation, to Status) (*Server, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const serverColumns = `id, order_id, user_id, name, panel_id, identifier, ip,
		       port, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, s *Server) error {
	query := `
		INSERT INTO servers (id, order_id, user_id, name, panel_id,
		                     identifier, ip, port, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, s, query,
		s.ID, s.OrderID, s.UserID, s.Name, s.PanelID,
		s.Identifier, s.IP, s.Port, s.Status,
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Server, error) {
	if err := core.CheckID("server", id); err != nil {
		return nil, err
	}

	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`

	var s Server
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get server: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	return &s, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Server, error) {
	query := `SELECT ` + serverColumns + `
		FROM servers
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var servers []Server
	if err := r.db.SelectContext(ctx, &servers, query, userID); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	return servers, nil
}

// Transition moves a server between statuses only if it is still in from.
func (r *repository) Transition(
	ctx context.Context,
	id string,
	from, to Status,
) (*Server, error) {
	if err := core.CheckID("server", id); err != nil {
		return nil, err
	}

	query := `
		UPDATE servers
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + serverColumns

	var s Server
	err := r.db.GetContext(ctx, &s, query, id, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrConflict(ctx, "transition server", id)
	}
	if err != nil {
		return nil, fmt.Errorf("transition server: %w", err)
	}

	return &s, nil
}

// Attach records the panel allocation on a server that is still in from.
func (r *repository) Attach(
	ctx context.Context,
	id string,
	from Status,
	alloc Allocation,
	to Status,
) (*Server, error) {
	if err := core.CheckID("server", id); err != nil {
		return nil, err
	}

	query := `
		UPDATE servers
		SET panel_id = $3, identifier = $4, ip = $5, port = $6,
		    status = $7, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + serverColumns

	var s Server
	err := r.db.GetContext(ctx, &s, query,
		id, from, alloc.PanelID, nullString(alloc.Identifier),
		nullString(alloc.IP), nullInt(alloc.Port), to,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrConflict(ctx, "attach server", id)
	}
	if err != nil {
		return nil, fmt.Errorf("attach server: %w", err)
	}

	return &s, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM servers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count servers: %w", err)
	}

	out := make(map[Status]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *repository) missOrConflict(ctx context.Context, op, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: status changed: %w", op, core.ErrConflict)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
