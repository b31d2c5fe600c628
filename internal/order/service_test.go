// AngelaMos | 2026
// service_test.go

package order

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/gameserver"
	"github.com/lumennodes/portal/internal/invoice"
	"github.com/lumennodes/portal/internal/middleware"
	"github.com/lumennodes/portal/internal/payment"
)

const (
	ownerID    = "11111111-1111-4111-8111-111111111111"
	strangerID = "22222222-2222-4222-8222-222222222222"
	orionID    = "6f1b4a52-0c1d-4f0a-9a61-3d2f7b7e0004"
)

type fixture struct {
	svc      *Service
	orders   *memOrders
	notifier *recordingNotifier
}

func newFixture() *fixture {
	orders := newMemOrders()
	orders.users[ownerID] = [2]string{"owner@example.com", "Owner"}
	notifier := &recordingNotifier{}

	svc := NewService(ServiceConfig{
		Orders: orders,
		Plans: &stubPlans{products: map[string]*catalog.Product{
			orionID: {ID: orionID, Slug: "orion", Name: "Orion", PriceMinor: 14000, RAM: "16GB"},
		}},
		Servers:  &stubServers{servers: map[string]*gameserver.Server{}},
		Invoices: &stubInvoices{invoices: map[string]*invoice.Invoice{}},
		Intents:  payment.NewGenerator(config.PaymentConfig{UPIID: "lumen@upi", PayeeName: "Lumen"}),
		Notifier: notifier,
	})

	return &fixture{svc: svc, orders: orders, notifier: notifier}
}

func as(userID, role string) context.Context {
	return middleware.WithClaims(context.Background(), &middleware.AccessTokenClaims{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   role,
	})
}

func TestStateMachine(t *testing.T) {
	assert.True(t, CanTransition(StatusPendingPayment, StatusAwaitingVerification))
	assert.True(t, CanTransition(StatusAwaitingVerification, StatusProvisioning))
	assert.True(t, CanTransition(StatusProvisioning, StatusCompleted))
	assert.True(t, CanTransition(StatusProvisioning, StatusAwaitingVerification))

	assert.False(t, CanTransition(StatusPendingPayment, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusDenied))
	assert.False(t, CanTransition(StatusDenied, StatusAwaitingVerification))

	for _, s := range []Status{StatusCompleted, StatusDenied, StatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, StatusProvisioning.IsTerminal())

	assert.ElementsMatch(t,
		[]Status{StatusPendingPayment, StatusAwaitingVerification},
		SourcesOf(StatusDenied),
	)
	assert.Equal(t, []Status{StatusProvisioning}, SourcesOf(StatusCompleted))
}

func TestCreateUsesPlanPriceAndNotifies(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Create(as(ownerID, middleware.RoleUser), ownerID, CreateOrderRequest{
		PlanSlug:    "orion",
		AmountMinor: 14000,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPendingPayment, o.Status)
	assert.Equal(t, int64(14000), o.AmountMinor)
	assert.Equal(t, orionID, o.ProductID)

	require.Len(t, f.notifier.events, 1)
	evt := f.notifier.events[0]
	assert.Equal(t, "Orion", evt.PlanName)
	assert.Equal(t, "owner@example.com", evt.CustomerEmail)
	assert.Equal(t, "Owner", evt.CustomerName)
}

func TestCreateRejectsWrongAmount(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(as(ownerID, middleware.RoleUser), ownerID, CreateOrderRequest{
		PlanSlug:    "orion",
		AmountMinor: 100,
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, f.notifier.events)
	assert.Empty(t, f.orders.orders)
}

func seed(f *fixture, id string, status Status) {
	f.orders.put(Order{
		ID:          id,
		UserID:      ownerID,
		ProductID:   orionID,
		AmountMinor: 14000,
		Status:      status,
	})
}

func TestSubmitPayment(t *testing.T) {
	const id = "33333333-3333-4333-8333-333333333333"

	t.Run("owner moves order to review", func(t *testing.T) {
		f := newFixture()
		seed(f, id, StatusPendingPayment)

		o, err := f.svc.SubmitPayment(as(ownerID, middleware.RoleUser), id,
			SubmitPaymentRequest{PaymentRef: "UTR123"})
		require.NoError(t, err)
		assert.Equal(t, StatusAwaitingVerification, o.Status)
		require.NotNil(t, o.PaymentRef)
		assert.Equal(t, "UTR123", *o.PaymentRef)
	})

	t.Run("wrong status conflicts and leaves state", func(t *testing.T) {
		for _, status := range []Status{
			StatusAwaitingVerification, StatusCompleted, StatusDenied, StatusCancelled,
		} {
			f := newFixture()
			seed(f, id, status)

			_, err := f.svc.SubmitPayment(as(ownerID, middleware.RoleUser), id,
				SubmitPaymentRequest{PaymentRef: "UTR999"})
			assert.ErrorIs(t, err, core.ErrConflict, status)

			o, _ := f.orders.GetByID(context.Background(), id)
			assert.Equal(t, status, o.Status)
			assert.Nil(t, o.PaymentRef)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newFixture()
		seed(f, id, StatusPendingPayment)

		_, err := f.svc.SubmitPayment(as(strangerID, middleware.RoleUser), id,
			SubmitPaymentRequest{PaymentRef: "UTR123"})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.SubmitPayment(as(ownerID, middleware.RoleUser), id,
			SubmitPaymentRequest{PaymentRef: "UTR123"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestConcurrentSubmitPaymentSingleWinner(t *testing.T) {
	const id = "44444444-4444-4444-8444-444444444444"
	f := newFixture()
	seed(f, id, StatusPendingPayment)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitPayment(as(ownerID, middleware.RoleUser), id,
				SubmitPaymentRequest{PaymentRef: "UTR123"})
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, core.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), conflicts.Load())
}

func TestDeny(t *testing.T) {
	const id = "55555555-5555-4555-8555-555555555555"

	for _, status := range []Status{StatusPendingPayment, StatusAwaitingVerification} {
		f := newFixture()
		seed(f, id, status)

		o, err := f.svc.Deny(as(ownerID, middleware.RoleAdmin), id, "no payment received")
		require.NoError(t, err)
		assert.Equal(t, StatusDenied, o.Status)
		assert.Nil(t, o.ServerID)
		assert.Nil(t, o.InvoiceID)
		require.NotNil(t, o.AdminNote)
		assert.Equal(t, "no payment received", *o.AdminNote)
	}

	for _, status := range []Status{StatusProvisioning, StatusCompleted, StatusCancelled, StatusDenied} {
		f := newFixture()
		seed(f, id, status)

		_, err := f.svc.Deny(as(ownerID, middleware.RoleAdmin), id, "")
		assert.ErrorIs(t, err, core.ErrConflict, status)
	}
}

func TestCancel(t *testing.T) {
	const id = "66666666-6666-4666-8666-666666666666"
	f := newFixture()
	seed(f, id, StatusAwaitingVerification)

	_, err := f.svc.Cancel(as(strangerID, middleware.RoleUser), id)
	assert.ErrorIs(t, err, core.ErrForbidden)

	o, err := f.svc.Cancel(as(ownerID, middleware.RoleUser), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	_, err = f.svc.Cancel(as(ownerID, middleware.RoleUser), id)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestPaymentIntentOnlyWhileUnpaid(t *testing.T) {
	const id = "77777777-7777-4777-8777-777777777777"
	f := newFixture()
	seed(f, id, StatusPendingPayment)

	intent, err := f.svc.PaymentIntent(as(ownerID, middleware.RoleUser), id)
	require.NoError(t, err)
	assert.Equal(t, "140.00", intent.Amount)
	assert.Contains(t, intent.PaymentLink, "tn=LumenNodes-Order-"+id)

	seed(f, id, StatusCompleted)
	_, err = f.svc.PaymentIntent(as(ownerID, middleware.RoleUser), id)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestDetailStaffBypassesOwnership(t *testing.T) {
	const id = "88888888-8888-4888-8888-888888888888"
	f := newFixture()
	seed(f, id, StatusPendingPayment)

	_, err := f.svc.Detail(as(strangerID, middleware.RoleUser), id)
	assert.ErrorIs(t, err, core.ErrForbidden)

	d, err := f.svc.Detail(as(strangerID, middleware.RoleStaff), id)
	require.NoError(t, err)
	assert.Equal(t, "Orion", d.Product.Name)
	assert.Nil(t, d.Server)
	assert.Nil(t, d.Invoice)
}
