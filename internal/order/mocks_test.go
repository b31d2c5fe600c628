// AngelaMos | 2026
// mocks_test.go

package order

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/notify"
	"github.com/lumennodes/portal/internal/payment"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*Order
	users  map[string][2]string
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*Order{}, users: map[string][2]string{}}
}

func (m *memOrders) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) GetView(ctx context.Context, id string) (*View, error) {
	o, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u := m.users[o.UserID]
	return &View{Order: *o, UserEmail: u[0], UserName: u[1]}, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []View
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, View{Order: *o})
		}
	}
	return out, nil
}

func (m *memOrders) List(_ context.Context, params ListParams) ([]View, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []View
	for _, o := range m.orders {
		if params.Status == "" || o.Status == params.Status {
			out = append(out, View{Order: *o})
		}
	}
	return out, len(out), nil
}

func (m *memOrders) Transition(
	_ context.Context,
	id string,
	from []Status,
	to Status,
	fields Fields,
) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("transition order: %w", core.ErrNotFound)
	}
	if !slices.Contains(from, o.Status) {
		return nil, fmt.Errorf("order is %s: %w", o.Status, core.ErrConflict)
	}
	o.Status = to
	if fields.PaymentRef != nil {
		o.PaymentRef = fields.PaymentRef
	}
	if fields.AdminNote != nil {
		o.AdminNote = fields.AdminNote
	}
	if fields.ServerID != nil {
		o.ServerID = fields.ServerID
	}
	if fields.InvoiceID != nil {
		o.InvoiceID = fields.InvoiceID
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("delete order: %w", core.ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrders) Stats(context.Context) (*Stats, error) {
	return &Stats{}, nil
}

func (m *memOrders) put(o Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = &o
}

type stubPlans struct {
	products map[string]*catalog.Product
}

func (s *stubPlans) Resolve(_ context.Context, in catalog.ResolveInput) (*catalog.Product, error) {
	for _, p := range s.products {
		if p.ID == in.ProductID || p.Slug == in.Slug {
			if p.PriceMinor != in.AmountMinor {
				return nil, fmt.Errorf("price mismatch: %w", core.ErrInvalidInput)
			}
			return p, nil
		}
	}
	return nil, fmt.Errorf("resolve plan: %w", core.ErrNotFound)
}

func (s *stubPlans) Get(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
}

type stubServers struct {
	gameserver.Repository
	servers map[string]*gameserver.Server
}

func (s *stubServers) GetByID(_ context.Context, id string) (*gameserver.Server, error) {
	if srv, ok := s.servers[id]; ok {
		return srv, nil
	}
	return nil, fmt.Errorf("get server: %w", core.ErrNotFound)
}

type stubInvoices struct {
	invoice.Repository
	invoices map[string]*invoice.Invoice
}

func (s *stubInvoices) GetByID(_ context.Context, id string) (*invoice.Invoice, error) {
	if inv, ok := s.invoices[id]; ok {
		return inv, nil
	}
	return nil, fmt.Errorf("get invoice: %w", core.ErrNotFound)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.OrderPlaced
}

func (r *recordingNotifier) OrderPlaced(evt notify.OrderPlaced) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

var _ IntentGenerator = (*payment.Generator)(nil)
