package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
)

// OrderMetric is an append-only business-event row consumed by reporting.
type OrderMetric struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	OrderID     string `gorm:"type:char(36);not null;index:ix_order_metrics_order_id"`
	Event       string `gorm:"type:varchar(64);not null"`
	AmountCents int    `gorm:"not null"`
	Currency    string `gorm:"type:char(3);not null"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (OrderMetric) TableName() string { return "order_metrics" }

// Recorder satisfies orders.Analytics. Recording is best effort: a storage
// error is logged and swallowed, never surfaced to the transition that fired it.
type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRecorder(db *gorm.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, event string, o orders.Order) {
	ctx = context.WithoutCancel(ctx)
	m := OrderMetric{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Event:       event,
		AmountCents: o.TotalCents,
		Currency:    o.Currency,
		CreatedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to record order metric",
			"order_id", o.ID, "event", event, "err", err)
	}
}
