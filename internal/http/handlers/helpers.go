package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/catalog"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

// failDomain maps domain errors onto the apperr taxonomy at the boundary.
func failDomain(c *gin.Context, err error) {
	var oos *orders.OutOfStockError

	switch {
	case errors.Is(err, orders.ErrCartEmpty):
		middleware.Fail(c, apperr.InvalidErr("Cart is empty.", nil))
	case errors.Is(err, orders.ErrInvalidQuantity):
		middleware.Fail(c, apperr.InvalidErr("Item quantity must be at least 1.", nil))
	case errors.Is(err, orders.ErrCurrencyMismatch):
		middleware.Fail(c, apperr.InvalidErr("Cart items have mixed currencies.", nil))
	case errors.Is(err, orders.ErrDiscountInvalid):
		middleware.Fail(c, apperr.InvalidErr("Discount code is not valid.", nil))
	case errors.Is(err, orders.ErrAddressNotOwned), errors.Is(err, catalog.ErrAddressNotFound):
		middleware.Fail(c, apperr.InvalidErr("Address is invalid.", nil))
	case errors.Is(err, catalog.ErrProductNotFound):
		middleware.Fail(c, apperr.InvalidErr("One of the products is unavailable.", nil))
	case errors.As(err, &oos):
		middleware.Fail(c, apperr.InvalidErr("One or more items are out of stock.", nil))
	case errors.Is(err, orders.ErrOrderNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
	case errors.Is(err, orders.ErrForbidden):
		middleware.Fail(c, apperr.ForbiddenErr("You do not have access to this order."))
	case errors.Is(err, orders.ErrInvalidTransition):
		middleware.Fail(c, apperr.ConflictErr("This status change is not allowed."))
	case errors.Is(err, orders.ErrNotPayable):
		middleware.Fail(c, apperr.ConflictErr("Order is not payable."))
	case errors.Is(err, orders.ErrAmountMismatch):
		middleware.Fail(c, apperr.IntegrityErr(err))
	case errors.Is(err, gateway.ErrUnavailable):
		middleware.Fail(c, apperr.UnavailableErr(err))
	default:
		middleware.Fail(c, apperr.Wrap(err))
	}
}

type orderItemJSON struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unitPriceCents"`
	LineTotalCents int    `json:"lineTotalCents"`
}

type orderJSON struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"paymentStatus"`
	PaymentMethod     string          `json:"paymentMethod"`
	SubtotalCents     int             `json:"subtotalCents"`
	DiscountCents     int             `json:"discountCents"`
	ShippingCents     int             `json:"shippingCents"`
	TotalCents        int             `json:"totalCents"`
	Currency          string          `json:"currency"`
	DiscountCode      *string         `json:"discountCode,omitempty"`
	TrackingNumber    *string         `json:"trackingNumber,omitempty"`
	EstimatedDelivery *string         `json:"estimatedDelivery,omitempty"`
	CreatedAt         string          `json:"createdAt"`
	Items             []orderItemJSON `json:"items,omitempty"`
}

func orderView(o orders.Order, items []orders.OrderItem) orderJSON {
	out := orderJSON{
		ID:             o.ID,
		Number:         o.Number,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		SubtotalCents:  o.SubtotalCents,
		DiscountCents:  o.DiscountCents,
		ShippingCents:  o.ShippingCents,
		TotalCents:     o.TotalCents,
		Currency:       o.Currency,
		DiscountCode:   o.DiscountCode,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.EstimatedDelivery != nil {
		s := o.EstimatedDelivery.UTC().Format("2006-01-02T15:04:05Z07:00")
		out.EstimatedDelivery = &s
	}
	for _, it := range items {
		out.Items = append(out.Items, orderItemJSON{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return out
}
