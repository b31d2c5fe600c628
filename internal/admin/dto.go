// AngelaMos | 2026
// dto.go

package admin

import (
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/order"
)

const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

type ReviewRequest struct {
	OrderID   string `json:"order_id"   validate:"required,uuid"`
	Action    string `json:"action"     validate:"required,oneof=approve deny"`
	AdminNote string `json:"admin_note" validate:"omitempty,max=500"`
}

type ReviewResponse struct {
	Order    order.OrderResponse        `json:"order"`
	Server   *gameserver.ServerResponse `json:"server,omitempty"`
	Invoice  *invoice.InvoiceResponse   `json:"invoice,omitempty"`
	Degraded bool                       `json:"degraded"`
}

type DashboardResponse struct {
	TotalUsers      int                    `json:"total_users"`
	TotalOrders     int                    `json:"total_orders"`
	PendingOrders   int                    `json:"pending_orders"`
	CompletedOrders int                    `json:"completed_orders"`
	RevenueMinor    int64                  `json:"total_revenue_minor"`
	Revenue         string                 `json:"total_revenue"`
	TotalServers    int                    `json:"total_servers"`
	DegradedServers int                    `json:"degraded_servers"`
	RecentOrders    []order.ReviewResponse `json:"recent_orders"`
}

type SystemStatsResponse struct {
	Database      DatabaseStatus     `json:"database"`
	Redis         RedisStatus        `json:"redis"`
	Panel         PanelStatus        `json:"panel"`
	Notifications *NotificationStats `json:"notifications,omitempty"`
	Runtime       RuntimeStats       `json:"runtime"`
}

type PanelStatus struct {
	Configured bool `json:"configured"`
	Reachable  bool `json:"reachable"`
}

type NotificationStats struct {
	InFlight int64  `json:"in_flight"`
	Sent     uint64 `json:"sent"`
	Failed   uint64 `json:"failed"`
	Dropped  uint64 `json:"dropped"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
