// AngelaMos | 2026
// entity.go

package gameserver

import (
	"time"
)

type Status string

const (
	// StatusProvisioning marks a degraded approval: the local record exists
	// but the panel never confirmed a server.
	StatusProvisioning Status = "PROVISIONING"
	StatusInstalling   Status = "INSTALLING"
	StatusOnline       Status = "ONLINE"
	StatusSuspended    Status = "SUSPENDED"
)

type Server struct {
	ID         string    `db:"id"`
	OrderID    *string   `db:"order_id"`
	UserID     string    `db:"user_id"`
	Name       string    `db:"name"`
	PanelID    *int64    `db:"panel_id"`
	Identifier *string   `db:"identifier"`
	IP         *string   `db:"ip"`
	Port       *int      `db:"port"`
	Status     Status    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (s *Server) IsDegraded() bool {
	return s.Status == StatusProvisioning && s.PanelID == nil
}

// Allocation is what the panel reports back for a created server.
type Allocation struct {
	PanelID    int64
	Identifier string
	IP         string
	Port       int
}
