package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/catalog"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/dbx"
)

// Notification kinds handed to the Notifier after a transition commits.
const (
	NotifyOrderConfirmed = "order_confirmed"
	NotifyPaymentFailed  = "payment_failed"
	NotifyOrderShipped   = "order_shipped"
	NotifyOrderInTransit = "order_in_transit"
	NotifyOrderDelivered = "order_delivered"
	NotifyOrderCancelled = "order_cancelled"
	NotifyOrderRefunded  = "order_refunded"
)

// CatalogStore is the slice of the catalog/cart/address collaborators the
// order engine needs. catalog.Store satisfies it.
type CatalogStore interface {
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
	GetAddress(ctx context.Context, addressID string) (catalog.Address, error)
	GetDiscountCode(ctx context.Context, code string) (catalog.DiscountCode, error)
	GetUserCart(ctx context.Context, userID string) (catalog.Cart, error)
	ClearUserCart(ctx context.Context, userID string) error
}

// Notifier receives best-effort notifications after the state-changing
// transaction has committed. Implementations must never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, kind string, o Order)
}

// Analytics records business events post-commit, best effort.
type Analytics interface {
	Record(ctx context.Context, event string, o Order)
}

// Actor identifies who is performing a lifecycle operation.
type Actor struct {
	UserID string
	Role   string // user|admin
}

func (a Actor) IsAdmin() bool { return a.Role == "admin" }

// Service owns the order state machine. It is the only component that mutates
// Order.Status and Order.PaymentStatus.
type Service struct {
	db        *gorm.DB
	catalog   CatalogStore
	gateways  *gateway.Registry
	notifier  Notifier
	analytics Analytics
	shipping  config.ShippingConfig
	logger    *slog.Logger
}

func NewService(
	db *gorm.DB,
	cat CatalogStore,
	gateways *gateway.Registry,
	notifier Notifier,
	analytics Analytics,
	shipping config.ShippingConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        db,
		catalog:   cat,
		gateways:  gateways,
		notifier:  notifier,
		analytics: analytics,
		shipping:  shipping,
		logger:    logger,
	}
}

type CartLine struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	UserID            string
	Lines             []CartLine // empty => use the user's stored cart
	ShippingAddressID string
	BillingAddressID  string // empty => same as shipping
	PaymentMethod     string
	DiscountCode      string
}

// CreateOrder converts a cart into a durable pending order. Totals are
// recomputed from current catalog prices; client-submitted prices are never
// trusted. Order + items + stock deduction commit in one transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, []OrderItem, error) {
	switch in.PaymentMethod {
	case MethodRazorpay, MethodStripe, MethodCOD:
	default:
		return Order{}, nil, fmt.Errorf("%w: unknown payment method %q", ErrNotPayable, in.PaymentMethod)
	}

	lines := in.Lines
	fromStoredCart := false
	if len(lines) == 0 {
		crt, err := s.catalog.GetUserCart(ctx, in.UserID)
		if err != nil {
			return Order{}, nil, err
		}
		for _, it := range crt.Items {
			lines = append(lines, CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		fromStoredCart = true
	}
	if len(lines) == 0 {
		return Order{}, nil, ErrCartEmpty
	}

	shipAddr, err := s.ownedAddress(ctx, in.ShippingAddressID, in.UserID)
	if err != nil {
		return Order{}, nil, err
	}
	billAddr := shipAddr
	if in.BillingAddressID != "" && in.BillingAddressID != in.ShippingAddressID {
		billAddr, err = s.ownedAddress(ctx, in.BillingAddressID, in.UserID)
		if err != nil {
			return Order{}, nil, err
		}
	}

	now := time.Now()
	currency := ""
	subtotal := 0
	items := make([]OrderItem, 0, len(lines))
	stock := make([]StockLine, 0, len(lines))

	for _, ln := range lines {
		if ln.Quantity < 1 {
			return Order{}, nil, ErrInvalidQuantity
		}
		p, err := s.catalog.GetProduct(ctx, ln.ProductID)
		if err != nil {
			return Order{}, nil, err
		}
		if currency == "" {
			currency = p.Currency
		} else if currency != p.Currency {
			return Order{}, nil, ErrCurrencyMismatch
		}

		lineTotal := p.PriceCents * ln.Quantity
		subtotal += lineTotal
		items = append(items, OrderItem{
			ID:             uuid.NewString(),
			ProductID:      p.ID,
			ProductName:    p.Name,
			SKU:            p.SKU,
			Quantity:       ln.Quantity,
			UnitPriceCents: p.PriceCents,
			LineTotalCents: lineTotal,
			Currency:       p.Currency,
			CreatedAt:      now,
		})
		stock = append(stock, StockLine{ProductID: p.ID, Qty: ln.Quantity})
	}

	discount := 0
	var codePtr *string
	if in.DiscountCode != "" {
		d, err := s.catalog.GetDiscountCode(ctx, in.DiscountCode)
		if err != nil {
			if errors.Is(err, catalog.ErrDiscountNotFound) {
				return Order{}, nil, ErrDiscountInvalid
			}
			return Order{}, nil, err
		}
		// A code that expired between cart view and checkout is rejected, not
		// silently dropped, so the shopper sees what happened.
		if !d.ValidAt(now) {
			return Order{}, nil, ErrDiscountInvalid
		}
		discount = d.AmountOff(subtotal)
		codePtr = &d.Code
	}

	shippingCents := s.shipping.FlatCents
	if s.shipping.FreeAboveCents > 0 && subtotal-discount >= s.shipping.FreeAboveCents {
		shippingCents = 0
	}

	total := subtotal - discount + shippingCents

	shipJSON, err := json.Marshal(addressSnapshot(shipAddr))
	if err != nil {
		return Order{}, nil, err
	}
	billJSON, err := json.Marshal(addressSnapshot(billAddr))
	if err != nil {
		return Order{}, nil, err
	}

	status := StatusPending
	if in.PaymentMethod == MethodCOD {
		// COD needs no gateway round trip; the order is confirmed right away
		// and settles on delivery.
		status = StatusConfirmed
	}

	o := Order{
		ID:                  uuid.NewString(),
		Number:              NewOrderNumber(now),
		UserID:              in.UserID,
		Status:              status,
		PaymentStatus:       PaymentPending,
		PaymentMethod:       in.PaymentMethod,
		SubtotalCents:       subtotal,
		DiscountCents:       discount,
		ShippingCents:       shippingCents,
		TotalCents:          total,
		Currency:            currency,
		DiscountCode:        codePtr,
		ShippingAddressID:   shipAddr.ID,
		BillingAddressID:    billAddr.ID,
		ShippingAddressJSON: datatypes.JSON(shipJSON),
		BillingAddressJSON:  datatypes.JSON(billJSON),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = dbx.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
		if err := deductStockInTx(ctx, tx, stock); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}
		return s.insertEvent(ctx, tx, o.ID, in.UserID, "checkout", "", o.Status, nil, now)
	})
	if err != nil {
		return Order{}, nil, err
	}

	if fromStoredCart {
		if err := s.catalog.ClearUserCart(ctx, in.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after checkout", "user_id", in.UserID, "err", err)
		}
	}

	if o.Status == StatusConfirmed {
		s.notifier.Notify(ctx, NotifyOrderConfirmed, o)
	}
	s.analytics.Record(ctx, "order_created", o)

	return o, items, nil
}

func (s *Service) ownedAddress(ctx context.Context, addressID, userID string) (catalog.Address, error) {
	if addressID == "" {
		return catalog.Address{}, catalog.ErrAddressNotFound
	}
	a, err := s.catalog.GetAddress(ctx, addressID)
	if err != nil {
		return catalog.Address{}, err
	}
	if a.UserID != userID {
		return catalog.Address{}, ErrAddressNotOwned
	}
	return a, nil
}

type addressSnapshotJSON struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func addressSnapshot(a catalog.Address) addressSnapshotJSON {
	return addressSnapshotJSON{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

// GatewayHandle is what the client needs to take over the payment.
type GatewayHandle struct {
	Gateway        string
	GatewayOrderID string
	RedirectURL    string
	ClientSecret   string
	AmountCents    int
	Currency       string
}

// InitiatePayment creates the gateway-side order/intent and records a
// PaymentLog row. Order status is not changed; a timeout here leaves the
// order pending with no correlation id, safe to retry.
func (s *Service) InitiatePayment(ctx context.Context, orderID string, actor Actor) (GatewayHandle, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return GatewayHandle{}, err
	}
	if !actor.IsAdmin() && o.UserID != actor.UserID {
		return GatewayHandle{}, ErrForbidden
	}
	if o.PaymentMethod == MethodCOD {
		return GatewayHandle{}, ErrNotPayable
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		return GatewayHandle{}, ErrNotPayable
	}

	g, ok := s.gateways.Get(o.PaymentMethod)
	if !ok {
		return GatewayHandle{}, fmt.Errorf("%w: gateway %q not configured", ErrNotPayable, o.PaymentMethod)
	}

	gw, err := g.CreateOrder(ctx, gateway.CreateOrderRequest{
		AmountCents: o.TotalCents,
		Currency:    o.Currency,
		Reference:   o.Number,
	})
	if err != nil {
		return GatewayHandle{}, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ?", o.ID).
			Updates(map[string]any{"gateway_order_id": gw.ID, "updated_at": now}).Error; err != nil {
			return err
		}
		return s.insertLog(ctx, tx, o, PaymentLog{
			Stage:          LogCreated,
			GatewayOrderID: &gw.ID,
			AmountCents:    o.TotalCents,
		}, now)
	})
	if err != nil {
		return GatewayHandle{}, err
	}

	return GatewayHandle{
		Gateway:        g.Name(),
		GatewayOrderID: gw.ID,
		RedirectURL:    gw.RedirectURL,
		ClientSecret:   gw.ClientSecret,
		AmountCents:    o.TotalCents,
		Currency:       o.Currency,
	}, nil
}

// PaymentOutcome is the normalized result of a payment attempt, whether it
// arrived via the synchronous redirect callback or an asynchronous webhook.
type PaymentOutcome struct {
	Success          bool
	GatewayPaymentID string
	GatewayOrderID   string
	AmountCents      int
	Message          string
}

// ApplyPaymentOutcome is the single choke point for payment confirmations.
//
// Contract: idempotent per gateway payment id (duplicates are no-ops that do
// not re-fire side effects); the reported amount must equal the persisted
// total; status writes and the PaymentLog insert share one transaction under
// a row lock, so concurrent deliveries for the same order serialize.
func (s *Service) ApplyPaymentOutcome(ctx context.Context, orderID string, out PaymentOutcome) error {
	if out.GatewayPaymentID == "" {
		return ErrBadOutcome
	}

	var fire []func()
	mismatch := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := dbx.Locked(tx.WithContext(ctx)).First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		now := time.Now()

		seenCompleted, seenFailed, err := s.priorOutcomes(ctx, tx, o.ID, out.GatewayPaymentID)
		if err != nil {
			return err
		}

		// Terminal payment states never regress. Exact duplicates are silent
		// no-ops; anything else stale gets an "ignored" audit row.
		if o.PaymentStatus != PaymentPending {
			if (seenCompleted && out.Success) || (seenFailed && !out.Success) {
				return nil
			}
			s.logger.WarnContext(ctx, "stale payment outcome ignored",
				"order_id", o.ID, "payment_id", out.GatewayPaymentID, "success", out.Success)
			return s.insertLog(ctx, tx, o, outcomeLog(LogIgnored, out, "outcome after terminal payment status "+o.PaymentStatus), now)
		}
		if seenFailed && !out.Success {
			return nil
		}

		if out.Success {
			if out.AmountCents != o.TotalCents {
				// Fraud/error condition: flag the order, keep the audit row,
				// abort the transition. The flag and log still commit.
				mismatch = true
				if err := tx.WithContext(ctx).Model(&Order{}).
					Where("id = ?", o.ID).
					Updates(map[string]any{"flagged_at": now, "updated_at": now}).Error; err != nil {
					return err
				}
				reason := fmt.Sprintf("gateway reported %d, order total %d", out.AmountCents, o.TotalCents)
				return s.insertLog(ctx, tx, o, outcomeLog(LogAmountMismatch, out, reason), now)
			}

			updates := map[string]any{
				"payment_status":     PaymentCompleted,
				"gateway_payment_id": out.GatewayPaymentID,
				"paid_at":            now,
				"updated_at":         now,
			}
			if out.GatewayOrderID != "" && o.GatewayOrderID == nil {
				updates["gateway_order_id"] = out.GatewayOrderID
			}
			newStatus := o.Status
			if o.Status == StatusPending {
				newStatus = StatusConfirmed
				updates["status"] = newStatus
			}
			if err := tx.WithContext(ctx).Model(&Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := s.insertLog(ctx, tx, o, outcomeLog(LogCompleted, out, ""), now); err != nil {
				return err
			}
			if err := s.insertEvent(ctx, tx, o.ID, "gateway", "payment", o.Status, newStatus, nil, now); err != nil {
				return err
			}

			done := o
			done.Status = newStatus
			done.PaymentStatus = PaymentCompleted
			pid := out.GatewayPaymentID
			done.GatewayPaymentID = &pid
			fire = append(fire, func() {
				s.notifier.Notify(ctx, NotifyOrderConfirmed, done)
				s.analytics.Record(ctx, "payment_completed", done)
			})
			return nil
		}

		// Failure: payment status moves to failed, order status is untouched.
		if err := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ?", o.ID).
			Updates(map[string]any{
				"payment_status":     PaymentFailed,
				"gateway_payment_id": out.GatewayPaymentID,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}
		if err := s.insertLog(ctx, tx, o, outcomeLog(LogFailed, out, out.Message), now); err != nil {
			return err
		}

		done := o
		done.PaymentStatus = PaymentFailed
		fire = append(fire, func() {
			s.notifier.Notify(ctx, NotifyPaymentFailed, done)
			s.analytics.Record(ctx, "payment_failed", done)
		})
		return nil
	})
	if err != nil {
		return err
	}
	if mismatch {
		return ErrAmountMismatch
	}

	// Side effects run only after the transaction committed; a failure inside
	// the Notifier never rolls anything back.
	for _, f := range fire {
		f()
	}
	return nil
}

// RecordRejectedVerification appends the audit marker for a redirect callback
// that failed signature verification. No order state changes.
func (s *Service) RecordRejectedVerification(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID string) error {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	now := time.Now()
	log := PaymentLog{Stage: LogRejected, AmountCents: 0}
	if gatewayOrderID != "" {
		log.GatewayOrderID = &gatewayOrderID
	}
	if gatewayPaymentID != "" {
		log.GatewayPaymentID = &gatewayPaymentID
	}
	return s.insertLog(ctx, s.db, o, log, now)
}

type ShippingUpdateInput struct {
	OrderID           string
	NewStatus         string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	ActorUserID       string
}

// UpdateShippingStatus advances the fulfilment side of the state machine.
// Backward transitions are rejected; each change leaves an audit event and
// triggers the matching status notification.
func (s *Service) UpdateShippingStatus(ctx context.Context, in ShippingUpdateInput) (Order, error) {
	var updated Order
	var kind string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := dbx.Locked(tx.WithContext(ctx)).First(&o, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !CanShipTo(o.Status, in.NewStatus) {
			return ErrInvalidTransition
		}

		now := time.Now()
		updates := map[string]any{"status": in.NewStatus, "updated_at": now}
		if in.TrackingNumber != nil {
			updates["tracking_number"] = *in.TrackingNumber
		}
		if in.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *in.EstimatedDelivery
		}

		if err := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, o.Status). // optimistic guard
			Updates(updates).Error; err != nil {
			return err
		}
		if err := s.insertEvent(ctx, tx, o.ID, in.ActorUserID, "ship_update", o.Status, in.NewStatus, nil, now); err != nil {
			return err
		}

		updated = o
		updated.Status = in.NewStatus
		updated.TrackingNumber = in.TrackingNumber
		if in.EstimatedDelivery != nil {
			updated.EstimatedDelivery = in.EstimatedDelivery
		}
		kind = notifyKindForStatus(in.NewStatus)
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if kind != "" {
		s.notifier.Notify(ctx, kind, updated)
	}
	s.analytics.Record(ctx, "shipping_"+in.NewStatus, updated)
	return updated, nil
}

func notifyKindForStatus(status string) string {
	switch status {
	case StatusShipped:
		return NotifyOrderShipped
	case StatusInTransit:
		return NotifyOrderInTransit
	case StatusDelivered:
		return NotifyOrderDelivered
	default:
		return ""
	}
}

// CancelOrder cancels a pending/confirmed order. When the payment already
// completed, the gateway refund must succeed first; a refund failure aborts
// the cancellation and surfaces the gateway error.
func (s *Service) CancelOrder(ctx context.Context, orderID string, actor Actor) (Order, error) {
	// Phase 1: gate checks under lock, decide whether a refund is owed.
	var o Order
	needRefund := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := dbx.Locked(tx.WithContext(ctx)).First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !actor.IsAdmin() && o.UserID != actor.UserID {
			return ErrForbidden
		}
		if !CanCancel(o.Status) {
			return ErrInvalidTransition
		}
		needRefund = o.PaymentStatus == PaymentCompleted
		if needRefund && o.GatewayPaymentID == nil {
			return fmt.Errorf("order %s completed without gateway payment id", o.ID)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	// Phase 2: the refund call happens outside any transaction.
	refundID := ""
	if needRefund {
		g, ok := s.gateways.Get(o.PaymentMethod)
		if !ok {
			return Order{}, fmt.Errorf("gateway %q not configured", o.PaymentMethod)
		}
		res, err := g.Refund(ctx, gateway.RefundRequest{
			GatewayPaymentID: *o.GatewayPaymentID,
			AmountCents:      o.TotalCents,
			Currency:         o.Currency,
			Reference:        o.Number,
		})
		if err != nil {
			return Order{}, err
		}
		if res.Status == "failed" {
			return Order{}, fmt.Errorf("gateway refund failed for order %s", o.ID)
		}
		refundID = res.RefundID
	}

	// Phase 3: finalize under a fresh lock; re-check the gates because state
	// may have moved while we were talking to the gateway.
	var cancelled Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur Order
		if err := dbx.Locked(tx.WithContext(ctx)).First(&cur, "id = ?", orderID).Error; err != nil {
			return err
		}
		if !CanCancel(cur.Status) {
			return ErrInvalidTransition
		}
		if !needRefund && cur.PaymentStatus == PaymentCompleted {
			// Payment landed between the phases; retrying will refund it.
			return ErrInvalidTransition
		}

		now := time.Now()
		updates := map[string]any{
			"status":       StatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}
		if needRefund {
			updates["payment_status"] = PaymentRefunded
		}
		if err := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ? AND status = ?", cur.ID, cur.Status).
			Updates(updates).Error; err != nil {
			return err
		}

		if needRefund {
			msg := "refund " + refundID
			log := outcomeLog(LogRefunded, PaymentOutcome{
				GatewayPaymentID: *cur.GatewayPaymentID,
				AmountCents:      cur.TotalCents,
			}, msg)
			if err := s.insertLog(ctx, tx, cur, log, now); err != nil {
				return err
			}
		}

		if err := s.restockItems(ctx, tx, cur.ID); err != nil {
			return err
		}
		if err := s.insertEvent(ctx, tx, cur.ID, actor.UserID, "cancel", cur.Status, StatusCancelled, nil, now); err != nil {
			return err
		}

		cancelled = cur
		cancelled.Status = StatusCancelled
		cancelled.CancelledAt = &now
		if needRefund {
			cancelled.PaymentStatus = PaymentRefunded
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	kind := NotifyOrderCancelled
	if needRefund {
		kind = NotifyOrderRefunded
	}
	s.notifier.Notify(ctx, kind, cancelled)
	s.analytics.Record(ctx, "order_cancelled", cancelled)
	return cancelled, nil
}

// --- internals ---

func (s *Service) getOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (s *Service) priorOutcomes(ctx context.Context, tx *gorm.DB, orderID, gatewayPaymentID string) (seenCompleted, seenFailed bool, err error) {
	var prior []PaymentLog
	err = tx.WithContext(ctx).
		Where("order_id = ? AND gateway_payment_id = ? AND stage IN ?",
			orderID, gatewayPaymentID, []string{LogCompleted, LogFailed}).
		Find(&prior).Error
	if err != nil {
		return false, false, err
	}
	for _, pl := range prior {
		switch pl.Stage {
		case LogCompleted:
			seenCompleted = true
		case LogFailed:
			seenFailed = true
		}
	}
	return seenCompleted, seenFailed, nil
}

func outcomeLog(stage string, out PaymentOutcome, message string) PaymentLog {
	pl := PaymentLog{Stage: stage, AmountCents: out.AmountCents}
	if out.GatewayPaymentID != "" {
		pid := out.GatewayPaymentID
		pl.GatewayPaymentID = &pid
	}
	if out.GatewayOrderID != "" {
		oid := out.GatewayOrderID
		pl.GatewayOrderID = &oid
	}
	if message != "" {
		m := truncate(message, 250)
		pl.Message = &m
	}
	return pl
}

func (s *Service) insertLog(ctx context.Context, tx *gorm.DB, o Order, log PaymentLog, now time.Time) error {
	log.ID = uuid.NewString()
	log.OrderID = o.ID
	log.Gateway = o.PaymentMethod
	log.Currency = o.Currency
	log.CreatedAt = now
	return tx.WithContext(ctx).Create(&log).Error
}

func (s *Service) insertEvent(ctx context.Context, tx *gorm.DB, orderID, actorID, action, from, to string, note *string, now time.Time) error {
	ev := OrderEvent{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		ActorUserID: actorID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		Note:        note,
		CreatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&ev).Error
}

func (s *Service) restockItems(ctx context.Context, tx *gorm.DB, orderID string) error {
	var items []OrderItem
	if err := tx.WithContext(ctx).Find(&items, "order_id = ?", orderID).Error; err != nil {
		return err
	}
	for _, it := range items {
		if err := tx.WithContext(ctx).
			Table("products").
			Where("id = ?", it.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", it.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
