package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/validation"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

type CheckoutHandler struct {
	svc    *orders.Service
	logger *slog.Logger
}

func NewCheckoutHandler(svc *orders.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, logger: logger}
}

type checkoutItemInput struct {
	ProductID string `json:"productId" binding:"required,uuid4"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=99"`
}

type checkoutInput struct {
	// Items may be omitted; the user's stored cart is used instead.
	Items             []checkoutItemInput `json:"items" binding:"omitempty,dive"`
	ShippingAddressID string              `json:"shippingAddressId" binding:"required,uuid4"`
	BillingAddressID  string              `json:"billingAddressId" binding:"omitempty,uuid4"`
	PaymentMethod     string              `json:"paymentMethod" binding:"required,oneof=razorpay stripe cod"`
	DiscountCode      string              `json:"discountCode" binding:"omitempty,max=64"`
}

// Create handles POST /checkout.
func (h *CheckoutHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	var in checkoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid checkout payload.", validation.FromBindError(err, &in)))
		return
	}

	lines := make([]orders.CartLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, orders.CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, items, err := h.svc.CreateOrder(c.Request.Context(), orders.CreateOrderInput{
		UserID:            user.ID,
		Lines:             lines,
		ShippingAddressID: in.ShippingAddressID,
		BillingAddressID:  in.BillingAddressID,
		PaymentMethod:     in.PaymentMethod,
		DiscountCode:      in.DiscountCode,
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": orderView(o, items)})
}
