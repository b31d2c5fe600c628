// AngelaMos | 2026
// service_test.go

package provision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/order"
	"github.com/lumennodes/portal/internal/panel"
	"github.com/lumennodes/portal/internal/user"
)

const (
	orderID   = "0a0a0a0a-0000-4000-8000-000000000001"
	ownerID   = "0b0b0b0b-0000-4000-8000-000000000002"
	productID = "6f1b4a52-0c1d-4f0a-9a61-3d2f7b7e0004"
)

type harness struct {
	svc      *Service
	store    *memStore
	panel    *fakePanel
	accounts *fakeAccounts
}

func newHarness(status order.Status) *harness {
	store := newMemStore()
	store.orders[orderID] = &order.Order{
		ID:          orderID,
		UserID:      ownerID,
		ProductID:   productID,
		AmountMinor: 14000,
		Status:      status,
	}

	p := &fakePanel{
		createUserID: 55,
		server:       &panel.Server{ID: 9, Identifier: "srv-001", IP: "1.2.3.4", Port: 25565},
	}
	accounts := &fakeAccounts{users: map[string]*user.User{
		ownerID: {ID: ownerID, Email: "owner@example.com", Name: "Owner"},
	}}

	svc := NewService(ServiceConfig{
		Store:    store,
		Panel:    p,
		Accounts: accounts,
		Products: fakeProducts{productID: {
			ID: productID, Slug: "orion", Name: "Orion",
			RAM: "6 GB", CPU: "150%", Disk: "15 GB", PriceMinor: 14000,
			Stock: catalog.StockUnlimited,
		}},
		Defaults: config.PanelConfig{
			DefaultNestID: 1, DefaultEggID: 2, DefaultLocationID: 1,
			DefaultMemoryMB: 2048, DefaultCPU: 100, DefaultDiskMB: 10240,
		},
	})
	svc.now = func() time.Time { return fixedNow }

	return &harness{svc: svc, store: store, panel: p, accounts: accounts}
}

func TestApproveProvisionsServerAndInvoice(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)

	res, err := h.svc.Approve(context.Background(), orderID, "paid via UTR123")
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	require.NotNil(t, res.Order.AdminNote)
	assert.Equal(t, "paid via UTR123", *res.Order.AdminNote)

	assert.Equal(t, gameserver.StatusOnline, res.Server.Status)
	require.NotNil(t, res.Server.Identifier)
	assert.Equal(t, "srv-001", *res.Server.Identifier)
	assert.Equal(t, "1.2.3.4", *res.Server.IP)
	assert.Equal(t, 25565, *res.Server.Port)
	assert.Equal(t, "Orion", res.Server.Name)

	assert.Equal(t, int64(14000), res.Invoice.AmountMinor)
	assert.Equal(t, invoice.StatusPaid, res.Invoice.Status)
	assert.Equal(t, fixedNow, *res.Invoice.PaidAt)

	assert.Equal(t, int32(1), h.panel.findCalls.Load())
	assert.Equal(t, int32(1), h.panel.createUsers.Load())
	assert.Equal(t, int64(55), *h.accounts.users[ownerID].PanelUserID)

	params := h.panel.lastParams
	assert.Equal(t, "Orion - owner@example.com", params.Name)
	assert.Equal(t, int64(55), params.UserID)
	assert.Equal(t, 6144, params.MemoryMB)
	assert.Equal(t, 150, params.CPU)
	assert.Equal(t, 15360, params.DiskMB)
	assert.Equal(t, 1, params.NestID)
	assert.Equal(t, 2, params.EggID)
}

func TestApproveDegradesWhenServerCreationFails(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.serverErr = core.ErrUpstream

	res, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	assert.Equal(t, gameserver.StatusProvisioning, res.Server.Status)
	assert.Nil(t, res.Server.Identifier)
	assert.Nil(t, res.Server.PanelID)
	assert.True(t, res.Server.IsDegraded())
	assert.Equal(t, int64(14000), res.Invoice.AmountMinor)
	assert.Equal(t, invoice.StatusPaid, res.Invoice.Status)
}

func TestApproveUserFailureLeavesOrderRetryable(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.createErr = core.ErrUpstream

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.ErrorIs(t, err, core.ErrUpstream)

	assert.Equal(t, order.StatusAwaitingVerification, h.store.status(orderID))
	assert.Empty(t, h.store.servers)
	assert.Empty(t, h.store.invoices)
	assert.Equal(t, int32(0), h.panel.createSrvs.Load())

	h.panel.createErr = nil
	res, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	assert.Len(t, h.store.servers, 1)
	assert.Len(t, h.store.invoices, 1)
}

func TestApproveSoldOutPlanMakesNoPanelCalls(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.svc.products.(fakeProducts)[productID].Stock = 0

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.ErrorIs(t, err, core.ErrConflict)

	assert.Equal(t, order.StatusAwaitingVerification, h.store.status(orderID))
	assert.Equal(t, int32(0), h.panel.findCalls.Load())
	assert.Equal(t, int32(0), h.panel.createSrvs.Load())
	assert.Empty(t, h.store.servers)
}

func TestApproveWithStoredPanelIDSkipsUserCalls(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	existing := int64(77)
	h.accounts.users[ownerID].PanelUserID = &existing

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)

	assert.Equal(t, int32(0), h.panel.findCalls.Load())
	assert.Equal(t, int32(0), h.panel.createUsers.Load())
	assert.Equal(t, int32(0), h.accounts.links.Load())
	assert.Equal(t, int64(77), h.panel.lastParams.UserID)
}

func TestApproveAdoptsExistingPanelAccount(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.existing = &panel.User{ID: 31, Email: "owner@example.com"}

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)

	assert.Equal(t, int32(0), h.panel.createUsers.Load())
	assert.Equal(t, int64(31), *h.accounts.users[ownerID].PanelUserID)
}

func TestApproveLookupErrorFallsBackToCreate(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.findErr = core.ErrUpstream

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.panel.createUsers.Load())
}

func TestApproveRequiresAwaitingVerification(t *testing.T) {
	for _, status := range []order.Status{
		order.StatusPendingPayment,
		order.StatusProvisioning,
		order.StatusCompleted,
		order.StatusDenied,
		order.StatusCancelled,
	} {
		h := newHarness(status)

		_, err := h.svc.Approve(context.Background(), orderID, "")
		assert.ErrorIs(t, err, core.ErrConflict, status)
		assert.Equal(t, status, h.store.status(orderID))
		assert.Equal(t, int32(0), h.panel.createSrvs.Load())
	}
}

func TestApproveMissingOrder(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	_, err := h.svc.Approve(context.Background(), "0a0a0a0a-0000-4000-8000-00000000ffff", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentApproveCompletesOnce(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Approve(context.Background(), orderID, "")
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrConflict):
			conflicts++
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)
	assert.Len(t, h.store.servers, 1)
	assert.Len(t, h.store.invoices, 1)
	assert.Equal(t, int32(1), h.panel.createSrvs.Load())
	assert.Equal(t, order.StatusCompleted, h.store.status(orderID))
}

func TestApproveHoldsClaimWhileProvisioning(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Approve(context.Background(), orderID, "")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return h.panel.createSrvs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, order.StatusProvisioning, h.store.status(orderID))
	_, err := h.svc.Approve(context.Background(), orderID, "")
	assert.ErrorIs(t, err, core.ErrConflict)

	close(h.panel.gate)
	require.NoError(t, <-done)
	assert.Equal(t, order.StatusCompleted, h.store.status(orderID))
}

func TestApprovePersistFailureReleasesAndDiscards(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	h.store.failSave = errors.New("db down")

	_, err := h.svc.Approve(context.Background(), orderID, "")
	require.Error(t, err)

	assert.Equal(t, order.StatusAwaitingVerification, h.store.status(orderID))
	assert.Equal(t, int32(1), h.panel.deletes.Load())
}

func TestApproveSurvivesCallerCancellation(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.svc.Approve(ctx, orderID, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
}

func degradedHarness(t *testing.T) (*harness, string) {
	t.Helper()
	h := newHarness(order.StatusAwaitingVerification)
	h.panel.serverErr = core.ErrUpstream

	res, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)
	require.True(t, res.Degraded)

	h.panel.serverErr = nil
	return h, res.Server.ID
}

func TestRetryServer(t *testing.T) {
	h, serverID := degradedHarness(t)

	srv, err := h.svc.RetryServer(context.Background(), serverID)
	require.NoError(t, err)
	assert.Equal(t, gameserver.StatusOnline, srv.Status)
	assert.Equal(t, int64(9), *srv.PanelID)
	assert.Equal(t, "srv-001", *srv.Identifier)

	assert.Equal(t, int32(1), h.panel.createUsers.Load())

	_, err = h.svc.RetryServer(context.Background(), serverID)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestRetryServerFailureRestoresDegradedState(t *testing.T) {
	h, serverID := degradedHarness(t)
	h.panel.serverErr = core.ErrUpstream

	_, err := h.svc.RetryServer(context.Background(), serverID)
	require.ErrorIs(t, err, core.ErrUpstream)

	srv, err := h.store.Servers().GetByID(context.Background(), serverID)
	require.NoError(t, err)
	assert.Equal(t, gameserver.StatusProvisioning, srv.Status)
	assert.True(t, srv.IsDegraded())
}

func TestSuspendUnsuspend(t *testing.T) {
	h := newHarness(order.StatusAwaitingVerification)
	res, err := h.svc.Approve(context.Background(), orderID, "")
	require.NoError(t, err)

	srv, err := h.svc.Suspend(context.Background(), res.Server.ID)
	require.NoError(t, err)
	assert.Equal(t, gameserver.StatusSuspended, srv.Status)
	assert.Equal(t, int32(1), h.panel.suspends.Load())

	_, err = h.svc.Suspend(context.Background(), res.Server.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	srv, err = h.svc.Unsuspend(context.Background(), res.Server.ID)
	require.NoError(t, err)
	assert.Equal(t, gameserver.StatusOnline, srv.Status)
}

func TestSuspendDegradedServerConflicts(t *testing.T) {
	h, serverID := degradedHarness(t)

	_, err := h.svc.Suspend(context.Background(), serverID)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, int32(0), h.panel.suspends.Load())
}

func TestServerParams(t *testing.T) {
	defaults := config.PanelConfig{
		DefaultNestID: 1, DefaultEggID: 2, DefaultLocationID: 3,
		DefaultMemoryMB: 2048, DefaultCPU: 100, DefaultDiskMB: 10240,
	}
	nest, egg := 5, 16

	tests := []struct {
		name    string
		product catalog.Product
		want    panel.CreateServerParams
	}{
		{
			name:    "seeded plan strings",
			product: catalog.Product{RAM: "1GB DDR4 @ 3200MHz", CPU: "80%", Disk: "5GB NVMe SSD"},
			want:    panel.CreateServerParams{NestID: 1, EggID: 2, MemoryMB: 1024, CPU: 80, DiskMB: 5120, LocationID: 3},
		},
		{
			name:    "unparseable falls back",
			product: catalog.Product{RAM: "N/A", CPU: "N/A", Disk: ""},
			want:    panel.CreateServerParams{NestID: 1, EggID: 2, MemoryMB: 2048, CPU: 100, DiskMB: 10240, LocationID: 3},
		},
		{
			name:    "explicit template and units",
			product: catalog.Product{RAM: "512MB", CPU: "250", Disk: "1.5 GB", NestID: &nest, EggID: &egg},
			want:    panel.CreateServerParams{NestID: 5, EggID: 16, MemoryMB: 512, CPU: 250, DiskMB: 1536, LocationID: 3},
		},
		{
			name:    "kilobytes are not gigabytes",
			product: catalog.Product{RAM: "512 KB", CPU: "4 vCores", Disk: "2048 KB"},
			want:    panel.CreateServerParams{NestID: 1, EggID: 2, MemoryMB: 2048, CPU: 400, DiskMB: 2, LocationID: 3},
		},
		{
			name:    "unknown units fall back",
			product: catalog.Product{RAM: "4 PB", CPU: "2 GHz", Disk: "1TB NVMe"},
			want:    panel.CreateServerParams{NestID: 1, EggID: 2, MemoryMB: 2048, CPU: 100, DiskMB: 1048576, LocationID: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ServerParams(&tt.product, defaults, "", 0)
			assert.Equal(t, tt.want, got)
		})
	}
}
