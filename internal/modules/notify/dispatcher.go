package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
)

// Dispatcher satisfies orders.Notifier. A dispatch failure is logged and
// swallowed; the transition that triggered it has already committed and must
// not be affected by notification problems.
type Dispatcher struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewDispatcher(db *gorm.DB, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{db: db, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, kind string, o orders.Order) {
	// The request context may already be done; the enqueue must still happen.
	ctx = context.WithoutCancel(ctx)

	email, name, err := d.recipient(ctx, o.UserID)
	if err != nil {
		d.logger.ErrorContext(ctx, "notification recipient lookup failed",
			"order_id", o.ID, "kind", kind, "err", err)
		return
	}

	c, ok := render(kind, name, o)
	if !ok {
		d.logger.WarnContext(ctx, "unknown notification kind", "order_id", o.ID, "kind", kind)
		return
	}

	now := time.Now()
	row := EmailOutbox{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Kind:      kind,
		ToAddr:    email,
		ToName:    name,
		Subject:   c.Subject,
		TextBody:  c.Text,
		HTMLBody:  c.HTML,
		Status:    OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		d.logger.ErrorContext(ctx, "failed to enqueue notification",
			"order_id", o.ID, "kind", kind, "err", err)
		return
	}

	d.logger.InfoContext(ctx, "notification enqueued", "order_id", o.ID, "kind", kind)
}

func (d *Dispatcher) recipient(ctx context.Context, userID string) (email, name string, err error) {
	var row struct {
		Email     string
		FirstName *string
	}
	if err := d.db.WithContext(ctx).
		Table("users").
		Select("email", "first_name").
		Where("id = ?", userID).
		Take(&row).Error; err != nil {
		return "", "", err
	}
	name = "Customer"
	if row.FirstName != nil && *row.FirstName != "" {
		name = *row.FirstName
	}
	return row.Email, name, nil
}
