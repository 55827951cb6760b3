package orders

import (
	"time"

	"gorm.io/datatypes"
)

// Order status machine:
// pending -> confirmed -> shipped -> in_transit -> delivered
// cancelled is reachable from pending/confirmed only.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment status machine: pending -> completed | failed; completed -> refunded.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	MethodRazorpay = "razorpay"
	MethodStripe   = "stripe"
	MethodCOD      = "cod"
)

// shippingRank orders the forward-only shipping statuses.
var shippingRank = map[string]int{
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusInTransit: 3,
	StatusDelivered: 4,
}

// CanShipTo reports whether from -> to is a legal forward shipping transition.
func CanShipTo(from, to string) bool {
	fr, ok := shippingRank[from]
	if !ok {
		return false
	}
	tr, ok := shippingRank[to]
	if !ok || to == StatusConfirmed {
		return false
	}
	return tr > fr
}

// CanCancel reports whether an order in the given status may still be cancelled.
func CanCancel(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

type Order struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	Number string `gorm:"type:varchar(40);not null;uniqueIndex:ux_orders_number"`
	UserID string `gorm:"type:char(36);not null;index:ix_orders_user_id"`

	Status        string `gorm:"type:varchar(32);not null"`
	PaymentStatus string `gorm:"type:varchar(32);not null"`
	PaymentMethod string `gorm:"type:varchar(32);not null"`

	SubtotalCents int    `gorm:"not null"`
	DiscountCents int    `gorm:"not null"`
	ShippingCents int    `gorm:"not null"`
	TotalCents    int    `gorm:"not null"`
	Currency      string `gorm:"type:char(3);not null"`

	DiscountCode *string `gorm:"type:varchar(64)"`

	ShippingAddressID   string         `gorm:"type:char(36);not null"`
	BillingAddressID    string         `gorm:"type:char(36);not null"`
	ShippingAddressJSON datatypes.JSON `gorm:"type:json;not null"`
	BillingAddressJSON  datatypes.JSON `gorm:"type:json;not null"`

	// Gateway correlation, nil until a payment is attempted.
	GatewayOrderID   *string `gorm:"type:varchar(128);index:ix_orders_gateway_order_id"`
	GatewayPaymentID *string `gorm:"type:varchar(128)"`

	TrackingNumber    *string    `gorm:"type:varchar(64)"`
	EstimatedDelivery *time.Time `gorm:"precision:3"`

	// Set when a gateway reported an amount that disagrees with TotalCents.
	FlaggedAt *time.Time `gorm:"precision:3"`

	PaidAt      *time.Time `gorm:"precision:3"`
	CancelledAt *time.Time `gorm:"precision:3"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
	UpdatedAt time.Time `gorm:"precision:3;not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is immutable after creation; UnitPriceCents is the catalog price
// snapshotted at order time, never re-read from the live catalog.
type OrderItem struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	OrderID     string `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	ProductID   string `gorm:"type:char(36);not null;index:ix_order_items_product_id"`
	ProductName string `gorm:"type:varchar(255);not null"`
	SKU         string `gorm:"type:varchar(64);not null"`

	Quantity       int    `gorm:"not null"`
	UnitPriceCents int    `gorm:"not null"`
	LineTotalCents int    `gorm:"not null"`
	Currency       string `gorm:"type:char(3);not null"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// PaymentLog stages.
const (
	LogCreated        = "created"         // gateway order/intent created
	LogCompleted      = "completed"       // payment confirmed
	LogFailed         = "failed"          // payment declined
	LogRejected       = "rejected"        // signature verification failed
	LogIgnored        = "ignored"         // stale event after a terminal outcome
	LogAmountMismatch = "amount_mismatch" // gateway amount != order total
	LogRefunded       = "refunded"
	LogRefundFailed   = "refund_failed"
)

// PaymentLog is append-only: one row per gateway interaction attempt. Rows are
// never updated; idempotency checks and dispute resolution read them.
type PaymentLog struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	OrderID string `gorm:"type:char(36);not null;index:ix_payment_logs_order_id"`
	Gateway string `gorm:"type:varchar(32);not null"`
	Stage   string `gorm:"type:varchar(32);not null"`

	GatewayOrderID   *string `gorm:"type:varchar(128)"`
	GatewayPaymentID *string `gorm:"type:varchar(128);index:ix_payment_logs_gateway_payment_id"`

	AmountCents int    `gorm:"not null"`
	Currency    string `gorm:"type:char(3);not null"`

	Message *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (PaymentLog) TableName() string { return "payment_logs" }

// OrderEvent is the audit trail for status transitions.
type OrderEvent struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OrderID     string  `gorm:"type:char(36);not null;index:ix_order_events_order_id"`
	ActorUserID string  `gorm:"type:char(36);not null"`
	Action      string  `gorm:"type:varchar(32);not null"`
	FromStatus  string  `gorm:"type:varchar(32);not null"`
	ToStatus    string  `gorm:"type:varchar(32);not null"`
	Note        *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (OrderEvent) TableName() string { return "order_events" }
