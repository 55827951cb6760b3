package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/mailer"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
)

func newNotifyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&EmailOutbox{}))
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT
	)`).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, firstName string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, email, first_name) VALUES (?, ?, ?)`,
		id, email, firstName,
	).Error)
	return id
}

func testOrder(userID string) orders.Order {
	return orders.Order{
		ID:         uuid.NewString(),
		Number:     "ORD-1700000000000-abcd1234",
		UserID:     userID,
		TotalCents: 129900,
		Currency:   "INR",
	}
}

func TestDispatcherEnqueuesEmail(t *testing.T) {
	db := newNotifyDB(t)
	userID := seedUser(t, db, "priya@example.com", "Priya")
	d := NewDispatcher(db, nil)

	d.Notify(context.Background(), orders.NotifyOrderConfirmed, testOrder(userID))

	var rows []EmailOutbox
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "priya@example.com", rows[0].ToAddr)
	assert.Equal(t, OutboxPending, rows[0].Status)
	assert.Contains(t, rows[0].Subject, "Order Confirmation")
	assert.Contains(t, rows[0].Subject, "ORD-1700000000000-abcd1234")
	assert.Contains(t, rows[0].TextBody, "Hello Priya")
	assert.Contains(t, rows[0].TextBody, "confirmed")
}

func TestDispatcherSwallowsMissingUser(t *testing.T) {
	db := newNotifyDB(t)
	d := NewDispatcher(db, nil)

	// Must not panic or error; nothing gets enqueued.
	d.Notify(context.Background(), orders.NotifyOrderConfirmed, testOrder(uuid.NewString()))

	var n int64
	require.NoError(t, db.Model(&EmailOutbox{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDispatcherUnknownKind(t *testing.T) {
	db := newNotifyDB(t)
	userID := seedUser(t, db, "a@example.com", "")
	d := NewDispatcher(db, nil)

	d.Notify(context.Background(), "made_up_kind", testOrder(userID))

	var n int64
	require.NoError(t, db.Model(&EmailOutbox{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDispatcherSurvivesCancelledContext(t *testing.T) {
	db := newNotifyDB(t)
	userID := seedUser(t, db, "b@example.com", "B")
	d := NewDispatcher(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, orders.NotifyOrderCancelled, testOrder(userID))

	var n int64
	require.NoError(t, db.Model(&EmailOutbox{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRenderShippingExtras(t *testing.T) {
	tracking := "TRK42"
	eta := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	o := testOrder(uuid.NewString())
	o.TrackingNumber = &tracking
	o.EstimatedDelivery = &eta

	c, ok := render(orders.NotifyOrderShipped, "Priya", o)
	require.True(t, ok)
	assert.Contains(t, c.Text, "TRK42")
	assert.Contains(t, c.Text, "04 Sep 2026")
	assert.Contains(t, c.HTML, "TRK42")

	// Extras only apply to shipping kinds.
	c, ok = render(orders.NotifyOrderConfirmed, "Priya", o)
	require.True(t, ok)
	assert.NotContains(t, c.Text, "TRK42")
}

func TestWorkerDeliversPending(t *testing.T) {
	db := newNotifyDB(t)
	userID := seedUser(t, db, "c@example.com", "C")
	NewDispatcher(db, nil).Notify(context.Background(), orders.NotifyOrderDelivered, testOrder(userID))

	mock := &mailer.Mock{}
	w := NewWorker(db, mock, "no-reply@homekraft.local", "Radhika's HomeKraft", time.Second, nil)
	w.ProcessBatch(context.Background())

	assert.Equal(t, 1, mock.SentCount())
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, []string{"c@example.com"}, mock.Sent[0].To)
	assert.Equal(t, "no-reply@homekraft.local", mock.Sent[0].From)

	var row EmailOutbox
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, OutboxSent, row.Status)
	assert.NotNil(t, row.SentAt)
	assert.Equal(t, 1, row.Attempts)

	// A second pass finds nothing to do.
	w.ProcessBatch(context.Background())
	assert.Equal(t, 1, mock.SentCount())
}

func TestWorkerRetriesThenParksFailed(t *testing.T) {
	db := newNotifyDB(t)
	userID := seedUser(t, db, "d@example.com", "D")
	NewDispatcher(db, nil).Notify(context.Background(), orders.NotifyOrderConfirmed, testOrder(userID))

	mock := &mailer.Mock{Err: errors.New("smtp: connection refused")}
	w := NewWorker(db, mock, "no-reply@homekraft.local", "", time.Second, nil)

	for i := 0; i < maxAttempts+2; i++ {
		w.ProcessBatch(context.Background())
	}

	var row EmailOutbox
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, OutboxFailed, row.Status)
	assert.Equal(t, maxAttempts, row.Attempts)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "connection refused")
	assert.Zero(t, mock.SentCount())
}
