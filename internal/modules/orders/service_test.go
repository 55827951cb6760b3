package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/catalog"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
)

// --- fakes ---

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // "<kind>:<order id>"
}

func (f *fakeNotifier) Notify(_ context.Context, kind string, o Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind+":"+o.ID)
}

func (f *fakeNotifier) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > len(kind) && c[:len(kind)] == kind {
			n++
		}
	}
	return n
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAnalytics) Record(_ context.Context, event string, _ Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeGateway struct {
	name         string
	createErr    error
	refundErr    error
	refundStatus string
	refundCalls  int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (gateway.GatewayOrder, error) {
	if g.createErr != nil {
		return gateway.GatewayOrder{}, g.createErr
	}
	return gateway.GatewayOrder{
		ID:          "gwo_" + req.Reference,
		RedirectURL: "https://pay.example/gwo_" + req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyCallback(_, _, _ string) bool { return false }

func (g *fakeGateway) Refund(_ context.Context, _ gateway.RefundRequest) (gateway.RefundResult, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return gateway.RefundResult{}, g.refundErr
	}
	status := g.refundStatus
	if status == "" {
		status = "succeeded"
	}
	return gateway.RefundResult{RefundID: "rfnd_1", Status: status}, nil
}

func (g *fakeGateway) VerifyAndParseWebhook(http.Header, []byte) (gateway.Event, error) {
	return gateway.Event{}, gateway.ErrBadSignature
}

// --- harness ---

type harness struct {
	db        *gorm.DB
	svc       *Service
	notifier  *fakeNotifier
	analytics *fakeAnalytics
	gw        *fakeGateway
	userID    string
	addressID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{}, &catalog.Cart{}, &catalog.CartItem{},
		&catalog.Address{}, &catalog.DiscountCode{},
		&Order{}, &OrderItem{}, &PaymentLog{}, &OrderEvent{},
	))

	h := &harness{
		db:        db,
		notifier:  &fakeNotifier{},
		analytics: &fakeAnalytics{},
		gw:        &fakeGateway{name: MethodRazorpay},
		userID:    uuid.NewString(),
	}

	addr := catalog.Address{
		ID:        uuid.NewString(),
		UserID:    h.userID,
		FirstName: "Radhika", LastName: "K",
		Line1: "12 MG Road", City: "Bengaluru",
		PostalCode: "560001", Country: "IN", Phone: "+911234567890",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&addr).Error)
	h.addressID = addr.ID

	h.svc = NewService(
		db,
		catalog.NewStore(db),
		gateway.NewRegistry(h.gw),
		h.notifier,
		h.analytics,
		config.ShippingConfig{FlatCents: 0},
		slog.Default(),
	)
	return h
}

func (h *harness) seedProduct(t *testing.T, priceCents, stock int) catalog.Product {
	t.Helper()
	p := catalog.Product{
		ID:         uuid.NewString(),
		Name:       "Terracotta Vase",
		SKU:        "SKU-" + uuid.NewString()[:8],
		PriceCents: priceCents,
		Currency:   "INR",
		Stock:      stock,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, h.db.Create(&p).Error)
	return p
}

func (h *harness) createOrder(t *testing.T, method string, lines []CartLine) Order {
	t.Helper()
	o, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             lines,
		ShippingAddressID: h.addressID,
		PaymentMethod:     method,
	})
	require.NoError(t, err)
	return o
}

func (h *harness) reload(t *testing.T, id string) Order {
	t.Helper()
	var o Order
	require.NoError(t, h.db.First(&o, "id = ?", id).Error)
	return o
}

func (h *harness) logs(t *testing.T, orderID, stage string) []PaymentLog {
	t.Helper()
	var out []PaymentLog
	require.NoError(t, h.db.Where("order_id = ? AND stage = ?", orderID, stage).Find(&out).Error)
	return out
}

// --- checkout ---

func TestCreateOrderComputesTotalsFromCatalog(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)

	o, items, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             []CartLine{{ProductID: p.ID, Quantity: 2}},
		ShippingAddressID: h.addressID,
		PaymentMethod:     MethodRazorpay,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, 1000, o.SubtotalCents)
	assert.Equal(t, 0, o.DiscountCents)
	assert.Equal(t, 1000, o.TotalCents)
	assert.Equal(t, "INR", o.Currency)
	require.Len(t, items, 1)
	assert.Equal(t, 500, items[0].UnitPriceCents)
	assert.Equal(t, 1000, items[0].LineTotalCents)

	var prod catalog.Product
	require.NoError(t, h.db.First(&prod, "id = ?", p.ID).Error)
	assert.Equal(t, 8, prod.Stock)

	var events []OrderEvent
	require.NoError(t, h.db.Where("order_id = ?", o.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "checkout", events[0].Action)
	assert.Equal(t, StatusPending, events[0].ToStatus)
}

func TestCreateOrderCODConfirmsImmediately(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 2500, 5)

	o := h.createOrder(t, MethodCOD, []CartLine{{ProductID: p.ID, Quantity: 1}})

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, 1, h.notifier.count(NotifyOrderConfirmed))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		ShippingAddressID: h.addressID,
		PaymentMethod:     MethodRazorpay,
	})
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestCreateOrderRejectsForeignAddress(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)

	other := catalog.Address{
		ID: uuid.NewString(), UserID: uuid.NewString(),
		FirstName: "X", LastName: "Y", Line1: "1", City: "C",
		PostalCode: "1", Country: "IN", Phone: "1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, h.db.Create(&other).Error)

	_, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             []CartLine{{ProductID: p.ID, Quantity: 1}},
		ShippingAddressID: other.ID,
		PaymentMethod:     MethodRazorpay,
	})
	assert.ErrorIs(t, err, ErrAddressNotOwned)
}

func TestCreateOrderDiscount(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)

	until := time.Now().Add(24 * time.Hour)
	require.NoError(t, h.db.Create(&catalog.DiscountCode{
		Code: "FEST10", Type: catalog.DiscountPercentage, Value: 10,
		ValidUntil: &until, Active: true, CreatedAt: time.Now(),
	}).Error)

	o, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             []CartLine{{ProductID: p.ID, Quantity: 2}},
		ShippingAddressID: h.addressID,
		PaymentMethod:     MethodRazorpay,
		DiscountCode:      "FEST10",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, o.DiscountCents)
	assert.Equal(t, 900, o.TotalCents)
}

func TestCreateOrderExpiredDiscountRejected(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)

	until := time.Now().Add(-time.Hour)
	require.NoError(t, h.db.Create(&catalog.DiscountCode{
		Code: "OLD", Type: catalog.DiscountFixed, Value: 200,
		ValidUntil: &until, Active: true, CreatedAt: time.Now(),
	}).Error)

	_, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             []CartLine{{ProductID: p.ID, Quantity: 1}},
		ShippingAddressID: h.addressID,
		PaymentMethod:     MethodRazorpay,
		DiscountCode:      "OLD",
	})
	assert.ErrorIs(t, err, ErrDiscountInvalid)
}

func TestCreateOrderOutOfStock(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 1)

	_, _, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:            h.userID,
		Lines:             []CartLine{{ProductID: p.ID, Quantity: 3}},
		ShippingAddressID: h.addressID,
		PaymentMethod:     MethodRazorpay,
	})

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Len(t, oos.Items, 1)
	assert.Equal(t, 3, oos.Items[0].Requested)
	assert.Equal(t, 1, oos.Items[0].Available)

	// Nothing committed.
	var n int64
	require.NoError(t, h.db.Model(&Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

// --- payment initiation ---

func TestInitiatePayment(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 2}})

	handle, err := h.svc.InitiatePayment(context.Background(), o.ID, Actor{UserID: h.userID})
	require.NoError(t, err)
	assert.Equal(t, MethodRazorpay, handle.Gateway)
	assert.Equal(t, "gwo_"+o.Number, handle.GatewayOrderID)
	assert.Equal(t, 1000, handle.AmountCents)

	got := h.reload(t, o.ID)
	require.NotNil(t, got.GatewayOrderID)
	assert.Equal(t, handle.GatewayOrderID, *got.GatewayOrderID)
	assert.Len(t, h.logs(t, o.ID, LogCreated), 1)
}

func TestInitiatePaymentGates(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)

	cod := h.createOrder(t, MethodCOD, []CartLine{{ProductID: p.ID, Quantity: 1}})
	_, err := h.svc.InitiatePayment(context.Background(), cod.ID, Actor{UserID: h.userID})
	assert.ErrorIs(t, err, ErrNotPayable)

	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 1}})
	_, err = h.svc.InitiatePayment(context.Background(), o.ID, Actor{UserID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrForbidden)
}

// --- payment outcomes ---

func paidOrder(t *testing.T, h *harness) Order {
	t.Helper()
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, h.svc.ApplyPaymentOutcome(context.Background(), o.ID, PaymentOutcome{
		Success:          true,
		GatewayPaymentID: "pay_1",
		GatewayOrderID:   "gwo_1",
		AmountCents:      o.TotalCents,
	}))
	return h.reload(t, o.ID)
}

func TestTimeColumnsRoundTrip(t *testing.T) {
	// Timestamps are written and read through the same driver the suite runs
	// on; a reload must scan them back as time.Time, not fail or zero out.
	h := newHarness(t)
	o := paidOrder(t, h)

	got := h.reload(t, o.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
	require.NotNil(t, got.PaidAt)
	assert.WithinDuration(t, time.Now(), *got.PaidAt, time.Minute)

	logs := h.logs(t, o.ID, LogCompleted)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].CreatedAt.IsZero())
}

func TestApplyPaymentOutcomeSuccess(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	require.NotNil(t, o.GatewayPaymentID)
	assert.Equal(t, "pay_1", *o.GatewayPaymentID)
	assert.NotNil(t, o.PaidAt)

	assert.Len(t, h.logs(t, o.ID, LogCompleted), 1)
	assert.Equal(t, 1, h.notifier.count(NotifyOrderConfirmed))
}

func TestApplyPaymentOutcomeReplayIsNoOp(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	// Same outcome delivered again (webhook retry).
	require.NoError(t, h.svc.ApplyPaymentOutcome(context.Background(), o.ID, PaymentOutcome{
		Success:          true,
		GatewayPaymentID: "pay_1",
		GatewayOrderID:   "gwo_1",
		AmountCents:      o.TotalCents,
	}))

	got := h.reload(t, o.ID)
	assert.Equal(t, PaymentCompleted, got.PaymentStatus)
	assert.Len(t, h.logs(t, o.ID, LogCompleted), 1)
	assert.Empty(t, h.logs(t, o.ID, LogIgnored))
	assert.Equal(t, 1, h.notifier.count(NotifyOrderConfirmed))
}

func TestApplyPaymentOutcomeStaleFailureAfterSuccess(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	// A late "failed" event for a different attempt must not regress the order.
	require.NoError(t, h.svc.ApplyPaymentOutcome(context.Background(), o.ID, PaymentOutcome{
		Success:          false,
		GatewayPaymentID: "pay_2",
		AmountCents:      o.TotalCents,
		Message:          "card declined",
	}))

	got := h.reload(t, o.ID)
	assert.Equal(t, PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Len(t, h.logs(t, o.ID, LogIgnored), 1)
	assert.Empty(t, h.logs(t, o.ID, LogFailed))
}

func TestApplyPaymentOutcomeFailure(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 1}})

	require.NoError(t, h.svc.ApplyPaymentOutcome(context.Background(), o.ID, PaymentOutcome{
		Success:          false,
		GatewayPaymentID: "pay_9",
		AmountCents:      o.TotalCents,
		Message:          "insufficient funds",
	}))

	got := h.reload(t, o.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentFailed, got.PaymentStatus)
	assert.Len(t, h.logs(t, o.ID, LogFailed), 1)
	assert.Equal(t, 1, h.notifier.count(NotifyPaymentFailed))
}

func TestApplyPaymentOutcomeAmountMismatch(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 2}})

	err := h.svc.ApplyPaymentOutcome(context.Background(), o.ID, PaymentOutcome{
		Success:          true,
		GatewayPaymentID: "pay_bad",
		AmountCents:      o.TotalCents - 1,
	})
	assert.ErrorIs(t, err, ErrAmountMismatch)

	got := h.reload(t, o.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentPending, got.PaymentStatus)
	assert.NotNil(t, got.FlaggedAt)
	assert.Len(t, h.logs(t, o.ID, LogAmountMismatch), 1)
	assert.Zero(t, h.notifier.count(NotifyOrderConfirmed))
}

func TestApplyPaymentOutcomeRequiresPaymentID(t *testing.T) {
	h := newHarness(t)
	err := h.svc.ApplyPaymentOutcome(context.Background(), uuid.NewString(), PaymentOutcome{Success: true})
	assert.ErrorIs(t, err, ErrBadOutcome)
}

// --- shipping ---

func TestUpdateShippingStatusForward(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	tracking := "TRK123"
	eta := time.Now().Add(72 * time.Hour)
	got, err := h.svc.UpdateShippingStatus(context.Background(), ShippingUpdateInput{
		OrderID:           o.ID,
		NewStatus:         StatusShipped,
		TrackingNumber:    &tracking,
		EstimatedDelivery: &eta,
		ActorUserID:       "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.Status)

	fresh := h.reload(t, o.ID)
	assert.Equal(t, StatusShipped, fresh.Status)
	require.NotNil(t, fresh.TrackingNumber)
	assert.Equal(t, "TRK123", *fresh.TrackingNumber)
	assert.Equal(t, 1, h.notifier.count(NotifyOrderShipped))
}

func TestUpdateShippingStatusRejectsBackward(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	for _, to := range []string{StatusShipped, StatusInTransit, StatusDelivered} {
		_, err := h.svc.UpdateShippingStatus(context.Background(), ShippingUpdateInput{
			OrderID: o.ID, NewStatus: to, ActorUserID: "admin-1",
		})
		require.NoError(t, err, "advancing to %s", to)
	}

	_, err := h.svc.UpdateShippingStatus(context.Background(), ShippingUpdateInput{
		OrderID: o.ID, NewStatus: StatusShipped, ActorUserID: "admin-1",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateShippingStatusRejectsUnpaidPending(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 1}})

	_, err := h.svc.UpdateShippingStatus(context.Background(), ShippingUpdateInput{
		OrderID: o.ID, NewStatus: StatusShipped, ActorUserID: "admin-1",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// --- cancellation ---

func TestCancelUnpaidOrderRestocks(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 2}})

	got, err := h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: h.userID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, PaymentPending, got.PaymentStatus)
	assert.Zero(t, h.gw.refundCalls)

	var prod catalog.Product
	require.NoError(t, h.db.First(&prod, "id = ?", p.ID).Error)
	assert.Equal(t, 10, prod.Stock)
	assert.Equal(t, 1, h.notifier.count(NotifyOrderCancelled))
}

func TestCancelPaidOrderRefunds(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	got, err := h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: h.userID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, 1, h.gw.refundCalls)
	assert.Len(t, h.logs(t, o.ID, LogRefunded), 1)
	assert.Equal(t, 1, h.notifier.count(NotifyOrderRefunded))
}

func TestCancelPaidOrderRefundFailureAborts(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)
	h.gw.refundErr = fmt.Errorf("%w: gateway down", gateway.ErrUnavailable)

	_, err := h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: h.userID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrUnavailable))

	got := h.reload(t, o.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, PaymentCompleted, got.PaymentStatus)
	assert.Empty(t, h.logs(t, o.ID, LogRefunded))
}

func TestCancelShippedOrderRejected(t *testing.T) {
	h := newHarness(t)
	o := paidOrder(t, h)

	_, err := h.svc.UpdateShippingStatus(context.Background(), ShippingUpdateInput{
		OrderID: o.ID, NewStatus: StatusShipped, ActorUserID: "admin-1",
	})
	require.NoError(t, err)

	_, err = h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: h.userID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelForbiddenForOtherUser(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 1}})

	_, err := h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.CancelOrder(context.Background(), o.ID, Actor{UserID: uuid.NewString(), Role: "admin"})
	assert.NoError(t, err)
}

// --- rejected verification ---

func TestRecordRejectedVerification(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct(t, 500, 10)
	o := h.createOrder(t, MethodRazorpay, []CartLine{{ProductID: p.ID, Quantity: 1}})

	require.NoError(t, h.svc.RecordRejectedVerification(context.Background(), o.ID, "gwo_x", "pay_x"))

	assert.Len(t, h.logs(t, o.ID, LogRejected), 1)
	got := h.reload(t, o.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentPending, got.PaymentStatus)
}
