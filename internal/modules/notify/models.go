package notify

import "time"

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

const maxAttempts = 5

// EmailOutbox decouples notification delivery from order processing: rows are
// enqueued after the state-changing transaction commits and drained by the
// background worker, so a slow mail provider cannot stall a checkout.
type EmailOutbox struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	OrderID  string `gorm:"type:char(36);not null;index:ix_email_outbox_order_id"`
	Kind     string `gorm:"type:varchar(32);not null"`
	ToAddr   string `gorm:"type:varchar(255);not null"`
	ToName   string `gorm:"type:varchar(255)"`
	Subject  string `gorm:"type:varchar(255);not null"`
	TextBody string `gorm:"type:text;not null"`
	HTMLBody string `gorm:"type:text;not null"`

	Status    string  `gorm:"type:varchar(16);not null;index:ix_email_outbox_status"`
	Attempts  int     `gorm:"not null"`
	LastError *string `gorm:"type:varchar(255)"`

	SentAt    *time.Time `gorm:"precision:3"`
	CreatedAt time.Time  `gorm:"precision:3;not null"`
	UpdatedAt time.Time  `gorm:"precision:3;not null"`
}

func (EmailOutbox) TableName() string { return "email_outbox" }
