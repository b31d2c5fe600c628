// AngelaMos | 2026
// mocks_test.go

package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/order"
	"github.com/lumennodes/portal/internal/panel"
	"github.com/lumennodes/portal/internal/user"
)

type memStore struct {
	mu       sync.Mutex
	orders   map[string]*order.Order
	servers  map[string]*gameserver.Server
	invoices map[string]*invoice.Invoice
	failSave error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*order.Order{},
		servers:  map[string]*gameserver.Server{},
		invoices: map[string]*invoice.Invoice{},
	}
}

func (m *memStore) transition(id string, from, to order.Status) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
	}
	if o.Status != from {
		return nil, fmt.Errorf("order is %s: %w", o.Status, core.ErrConflict)
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *memStore) Claim(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition(id, order.StatusAwaitingVerification, order.StatusProvisioning)
}

func (m *memStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.transition(id, order.StatusProvisioning, order.StatusAwaitingVerification)
	return err
}

func (m *memStore) Complete(_ context.Context, c Completion) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return nil, m.failSave
	}
	o, ok := m.orders[c.OrderID]
	if !ok || o.Status != order.StatusProvisioning {
		return nil, fmt.Errorf("complete: %w", core.ErrConflict)
	}
	for _, inv := range m.invoices {
		if inv.OrderID == c.OrderID {
			return nil, fmt.Errorf("complete: %w", core.ErrDuplicateKey)
		}
	}
	srv := *c.Server
	inv := *c.Invoice
	m.servers[srv.ID] = &srv
	m.invoices[inv.ID] = &inv
	o.Status = order.StatusCompleted
	o.ServerID = &srv.ID
	o.InvoiceID = &inv.ID
	o.AdminNote = c.Note
	cp := *o
	return &cp, nil
}

func (m *memStore) Order(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) Servers() gameserver.Repository {
	return &memServers{store: m}
}

func (m *memStore) status(id string) order.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

type memServers struct {
	gameserver.Repository
	store *memStore
}

func (r *memServers) GetByID(_ context.Context, id string) (*gameserver.Server, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %s: %w", id, core.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *memServers) Transition(
	_ context.Context,
	id string,
	from, to gameserver.Status,
) (*gameserver.Server, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %s: %w", id, core.ErrNotFound)
	}
	if s.Status != from {
		return nil, fmt.Errorf("server is %s: %w", s.Status, core.ErrConflict)
	}
	s.Status = to
	cp := *s
	return &cp, nil
}

func (r *memServers) Attach(
	_ context.Context,
	id string,
	from gameserver.Status,
	alloc gameserver.Allocation,
	to gameserver.Status,
) (*gameserver.Server, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.servers[id]
	if !ok || s.Status != from {
		return nil, fmt.Errorf("attach: %w", core.ErrConflict)
	}
	s.PanelID = &alloc.PanelID
	s.Identifier = &alloc.Identifier
	s.IP = &alloc.IP
	s.Port = &alloc.Port
	s.Status = to
	cp := *s
	return &cp, nil
}

type fakePanel struct {
	findCalls   atomic.Int32
	createUsers atomic.Int32
	createSrvs  atomic.Int32
	deletes     atomic.Int32
	suspends    atomic.Int32

	existing     *panel.User
	findErr      error
	createUserID int64
	createErr    error
	serverErr    error
	server       *panel.Server
	lastParams   panel.CreateServerParams
	mu           sync.Mutex
	// gate blocks CreateServer until closed when set.
	gate chan struct{}
}

func (f *fakePanel) FindUserByEmail(context.Context, string) (*panel.User, error) {
	f.findCalls.Add(1)
	return f.existing, f.findErr
}

func (f *fakePanel) CreateUser(_ context.Context, email, _ string) (*panel.User, error) {
	f.createUsers.Add(1)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &panel.User{ID: f.createUserID, Email: email}, nil
}

func (f *fakePanel) CreateServer(_ context.Context, p panel.CreateServerParams) (*panel.Server, error) {
	f.createSrvs.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.lastParams = p
	f.mu.Unlock()
	if f.serverErr != nil {
		return nil, f.serverErr
	}
	srv := *f.server
	return &srv, nil
}

func (f *fakePanel) SuspendServer(context.Context, int64) error {
	f.suspends.Add(1)
	return nil
}

func (f *fakePanel) UnsuspendServer(context.Context, int64) error { return nil }

func (f *fakePanel) DeleteServer(context.Context, int64) error {
	f.deletes.Add(1)
	return nil
}

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]*user.User
	links atomic.Int32
}

func (a *fakeAccounts) GetUser(_ context.Context, id string) (*user.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (a *fakeAccounts) LinkPanelAccount(_ context.Context, id string, panelID int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.links.Add(1)
	u, ok := a.users[id]
	if !ok {
		return 0, errors.New("no such user")
	}
	if u.PanelUserID == nil {
		u.PanelUserID = &panelID
	}
	return *u.PanelUserID, nil
}

type fakeProducts map[string]*catalog.Product

func (p fakeProducts) Get(_ context.Context, id string) (*catalog.Product, error) {
	if prod, ok := p[id]; ok {
		return prod, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, core.ErrNotFound)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
