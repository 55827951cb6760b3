package webhook

import (
	"context"
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
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, orders.Order) {}

type noopAnalytics struct{}

func (noopAnalytics) Record(context.Context, string, orders.Order) {}

func newTestProcessor(t *testing.T) (*Processor, *gorm.DB, orders.Order) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{}, &catalog.Cart{}, &catalog.CartItem{},
		&catalog.Address{}, &catalog.DiscountCode{},
		&orders.Order{}, &orders.OrderItem{}, &orders.PaymentLog{}, &orders.OrderEvent{},
		&GatewayEventRecord{},
	))

	userID := uuid.NewString()
	addr := catalog.Address{
		ID: uuid.NewString(), UserID: userID,
		FirstName: "A", LastName: "B", Line1: "1", City: "C",
		PostalCode: "1", Country: "IN", Phone: "1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&addr).Error)

	p := catalog.Product{
		ID: uuid.NewString(), Name: "P", SKU: "S-" + uuid.NewString()[:8],
		PriceCents: 500, Currency: "INR", Stock: 10,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&p).Error)

	svc := orders.NewService(db, catalog.NewStore(db), gateway.NewRegistry(),
		noopNotifier{}, noopAnalytics{}, config.ShippingConfig{}, nil)
	repo := orders.NewRepo(db)

	o, _, err := svc.CreateOrder(context.Background(), orders.CreateOrderInput{
		UserID:            userID,
		Lines:             []orders.CartLine{{ProductID: p.ID, Quantity: 2}},
		ShippingAddressID: addr.ID,
		PaymentMethod:     orders.MethodRazorpay,
	})
	require.NoError(t, err)

	// Simulate an initiated payment so the event correlates.
	gwo := "order_gw_1"
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", o.ID).
		Update("gateway_order_id", gwo).Error)
	o.GatewayOrderID = &gwo

	return NewProcessor(db, repo, svc, nil), db, o
}

func successEvent(o orders.Order) gateway.Event {
	return gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentSucceeded,
		GatewayPaymentID: "pay_1",
		GatewayOrderID:   *o.GatewayOrderID,
		AmountCents:      o.TotalCents,
		Currency:         o.Currency,
	}
}

func TestProcessConfirmsOrder(t *testing.T) {
	p, db, o := newTestProcessor(t)

	require.NoError(t, p.Process(context.Background(), "razorpay", successEvent(o), []byte(`{"raw":true}`)))

	var got orders.Order
	require.NoError(t, db.First(&got, "id = ?", o.ID).Error)
	assert.Equal(t, orders.StatusConfirmed, got.Status)
	assert.Equal(t, orders.PaymentCompleted, got.PaymentStatus)

	var rec GatewayEventRecord
	require.NoError(t, db.First(&rec, "gateway = ? AND event_id = ?", "razorpay", "evt_1").Error)
	assert.NotNil(t, rec.ProcessedAt)
	assert.Nil(t, rec.ProcessError)
}

func TestProcessDeduplicatesRetries(t *testing.T) {
	p, db, o := newTestProcessor(t)
	ev := successEvent(o)

	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))
	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))
	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))

	var n int64
	require.NoError(t, db.Model(&GatewayEventRecord{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.Model(&orders.PaymentLog{}).
		Where("order_id = ? AND stage = ?", o.ID, orders.LogCompleted).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestProcessUnknownOrderStillAcknowledged(t *testing.T) {
	p, db, o := newTestProcessor(t)
	ev := successEvent(o)
	ev.ID = "evt_unknown"
	ev.GatewayOrderID = "order_gw_does_not_exist"

	// The delivery is recorded and acked; the failure is kept for reconciliation.
	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))

	var rec GatewayEventRecord
	require.NoError(t, db.First(&rec, "event_id = ?", "evt_unknown").Error)
	assert.Nil(t, rec.ProcessedAt)
	require.NotNil(t, rec.ProcessError)
	assert.NotEmpty(t, *rec.ProcessError)
}

func TestProcessAmountMismatchFlagsOrder(t *testing.T) {
	p, db, o := newTestProcessor(t)
	ev := successEvent(o)
	ev.AmountCents = o.TotalCents + 500

	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))

	var got orders.Order
	require.NoError(t, db.First(&got, "id = ?", o.ID).Error)
	assert.Equal(t, orders.PaymentPending, got.PaymentStatus)
	assert.NotNil(t, got.FlaggedAt)

	var rec GatewayEventRecord
	require.NoError(t, db.First(&rec, "event_id = ?", ev.ID).Error)
	assert.NotNil(t, rec.ProcessError)
}

func TestProcessFailureEvent(t *testing.T) {
	p, db, o := newTestProcessor(t)
	ev := successEvent(o)
	ev.Type = gateway.EventPaymentFailed
	ev.GatewayPaymentID = "pay_declined"

	require.NoError(t, p.Process(context.Background(), "razorpay", ev, []byte(`{}`)))

	var got orders.Order
	require.NoError(t, db.First(&got, "id = ?", o.ID).Error)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.Equal(t, orders.PaymentFailed, got.PaymentStatus)
}
