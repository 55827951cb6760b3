package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/dbx"
)

// GatewayEventRecord stores every accepted webhook delivery. The unique
// (gateway, event_id) index is the dedupe line for retried deliveries.
type GatewayEventRecord struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Gateway     string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_gateway_events_gateway_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_gateway_events_gateway_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"precision:3;not null"`
	ProcessedAt  *time.Time `gorm:"precision:3"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (GatewayEventRecord) TableName() string { return "gateway_events" }

// Processor routes verified gateway events into the order lifecycle. Events
// are recorded durably before any business logic runs; a business failure
// leaves process_error set for manual reconciliation and the endpoint still
// acknowledges the delivery.
type Processor struct {
	db     *gorm.DB
	repo   *orders.Repo
	svc    *orders.Service
	logger *slog.Logger
}

func NewProcessor(db *gorm.DB, repo *orders.Repo, svc *orders.Service, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{db: db, repo: repo, svc: svc, logger: logger}
}

// Process ingests one verified event. It returns an error only when the event
// could not be durably recorded; every other failure is absorbed so the
// gateway does not retry-storm on a problem that is on our side.
func (p *Processor) Process(ctx context.Context, gatewayName string, ev gateway.Event, rawBody []byte) error {
	rec := GatewayEventRecord{
		ID:          uuid.NewString(),
		Gateway:     gatewayName,
		EventID:     ev.ID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(rawBody),
		ReceivedAt:  time.Now(),
	}

	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if dbx.IsDuplicate(err) {
			p.logger.InfoContext(ctx, "webhook event deduplicated",
				"gateway", gatewayName, "event_id", ev.ID, "type", ev.Type)
			return nil
		}
		p.logger.ErrorContext(ctx, "failed to persist gateway event",
			"gateway", gatewayName, "event_id", ev.ID, "err", err)
		return err
	}

	if err := p.apply(ctx, ev); err != nil {
		p.markFailed(ctx, rec.ID, err)
		p.logger.ErrorContext(ctx, "webhook event apply failed",
			"gateway", gatewayName, "event_id", ev.ID, "type", ev.Type, "err", err)
		return nil
	}

	now := time.Now()
	if err := p.db.WithContext(ctx).Model(&GatewayEventRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{"processed_at": now, "process_error": nil}).Error; err != nil {
		p.logger.ErrorContext(ctx, "failed to mark gateway event processed", "event_id", ev.ID, "err", err)
	}

	p.logger.InfoContext(ctx, "webhook event processed",
		"gateway", gatewayName, "event_id", ev.ID, "type", ev.Type)
	return nil
}

func (p *Processor) apply(ctx context.Context, ev gateway.Event) error {
	if ev.GatewayOrderID == "" {
		return errors.New("event missing gateway order id")
	}

	o, err := p.repo.FindByGatewayOrderID(ctx, ev.GatewayOrderID)
	if err != nil {
		return err
	}

	out := orders.PaymentOutcome{
		Success:          ev.Type == gateway.EventPaymentSucceeded,
		GatewayPaymentID: ev.GatewayPaymentID,
		GatewayOrderID:   ev.GatewayOrderID,
		AmountCents:      ev.AmountCents,
	}
	if !out.Success {
		out.Message = "gateway webhook: " + ev.Type
	}

	return p.svc.ApplyPaymentOutcome(ctx, o.ID, out)
}

func (p *Processor) markFailed(ctx context.Context, recID string, applyErr error) {
	msg := applyErr.Error()
	if len(msg) > 250 {
		msg = msg[:250]
	}
	if err := p.db.WithContext(ctx).Model(&GatewayEventRecord{}).
		Where("id = ?", recID).
		Updates(map[string]any{"process_error": msg}).Error; err != nil {
		p.logger.ErrorContext(ctx, "failed to record gateway event error", "record_id", recID, "err", err)
	}
}
