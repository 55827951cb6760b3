package notify

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/mailer"
)

// Worker drains the email outbox. One instance runs per process; pending rows
// are retried until maxAttempts and then parked as failed.
type Worker struct {
	db           *gorm.DB
	mail         mailer.Service
	fromAddr     string
	fromName     string
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewWorker(db *gorm.DB, mail mailer.Service, fromAddr, fromName string, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		db:           db,
		mail:         mail,
		fromAddr:     fromAddr,
		fromName:     fromName,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("email outbox worker started", "interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch sends up to one batch of pending emails. Exported so tests and
// tools can drive the worker without the ticker loop.
func (w *Worker) ProcessBatch(ctx context.Context) {
	var batch []EmailOutbox
	if err := w.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", OutboxPending, maxAttempts).
		Order("created_at ASC").
		Limit(10).
		Find(&batch).Error; err != nil {
		w.logger.ErrorContext(ctx, "outbox poll failed", "err", err)
		return
	}

	for _, row := range batch {
		w.deliver(ctx, row)
	}
}

func (w *Worker) deliver(ctx context.Context, row EmailOutbox) {
	err := w.mail.Send(ctx, mailer.Email{
		From:     w.fromAddr,
		FromName: w.fromName,
		To:       []string{row.ToAddr},
		Subject:  row.Subject,
		TextBody: row.TextBody,
		HTMLBody: row.HTMLBody,
	})

	now := time.Now()
	if err == nil {
		if uerr := w.db.WithContext(ctx).Model(&EmailOutbox{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"status":     OutboxSent,
				"attempts":   row.Attempts + 1,
				"sent_at":    now,
				"updated_at": now,
			}).Error; uerr != nil {
			w.logger.ErrorContext(ctx, "failed to mark email sent", "id", row.ID, "err", uerr)
		}
		return
	}

	w.logger.WarnContext(ctx, "email delivery failed",
		"id", row.ID, "kind", row.Kind, "attempt", row.Attempts+1, "err", err)

	status := OutboxPending
	if row.Attempts+1 >= maxAttempts {
		status = OutboxFailed
	}
	msg := err.Error()
	if len(msg) > 250 {
		msg = msg[:250]
	}
	if uerr := w.db.WithContext(ctx).Model(&EmailOutbox{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":     status,
			"attempts":   row.Attempts + 1,
			"last_error": msg,
			"updated_at": now,
		}).Error; uerr != nil {
		w.logger.ErrorContext(ctx, "failed to record email failure", "id", row.ID, "err", uerr)
	}
}
