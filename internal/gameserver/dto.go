// AngelaMos | 2026
// dto.go

package gameserver

import (
	"time"
)

type ServerResponse struct {
	ID         string    `json:"id"`
	OrderID    *string   `json:"order_id,omitempty"`
	Name       string    `json:"name"`
	Identifier *string   `json:"identifier,omitempty"`
	IP         *string   `json:"ip,omitempty"`
	Port       *int      `json:"port,omitempty"`
	Status     Status    `json:"status"`
	Degraded   bool      `json:"degraded"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToServerResponse(s *Server) ServerResponse {
	return ServerResponse{
		ID:         s.ID,
		OrderID:    s.OrderID,
		Name:       s.Name,
		Identifier: s.Identifier,
		IP:         s.IP,
		Port:       s.Port,
		Status:     s.Status,
		Degraded:   s.IsDegraded(),
		CreatedAt:  s.CreatedAt,
	}
}

func ToServerResponseList(servers []Server) []ServerResponse {
	out := make([]ServerResponse, 0, len(servers))
	for i := range servers {
		out = append(out, ToServerResponse(&servers[i]))
	}
	return out
}
