package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/validation"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

type PaymentHandler struct {
	svc      *orders.Service
	repo     *orders.Repo
	gateways *gateway.Registry
	logger   *slog.Logger
}

func NewPaymentHandler(svc *orders.Service, repo *orders.Repo, gateways *gateway.Registry, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, repo: repo, gateways: gateways, logger: logger}
}

type initPaymentInput struct {
	OrderID string `json:"orderId" binding:"required,uuid4"`
}

// Init handles POST /checkout/:gateway/init. It creates the gateway-side
// order or intent and returns the redirect URL / client secret the frontend
// needs to collect payment.
func (h *PaymentHandler) Init(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	var in initPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid payment request.", validation.FromBindError(err, &in)))
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), in.OrderID)
	if err != nil {
		failDomain(c, err)
		return
	}
	if o.PaymentMethod != c.Param("gateway") {
		middleware.Fail(c, apperr.InvalidErr("Order does not use this payment method.", nil))
		return
	}

	handle, err := h.svc.InitiatePayment(c.Request.Context(), in.OrderID, orders.Actor{UserID: user.ID, Role: user.Role})
	if err != nil {
		failDomain(c, err)
		return
	}

	resp := gin.H{
		"gateway":        handle.Gateway,
		"gatewayOrderId": handle.GatewayOrderID,
		"amountCents":    handle.AmountCents,
		"currency":       handle.Currency,
	}
	if handle.RedirectURL != "" {
		resp["redirectUrl"] = handle.RedirectURL
	}
	if handle.ClientSecret != "" {
		resp["clientSecret"] = handle.ClientSecret
	}
	c.JSON(http.StatusOK, resp)
}

type verifyPaymentInput struct {
	OrderID          string `json:"orderId" binding:"required,uuid4"`
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required,max=128"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required,max=128"`
	Signature        string `json:"signature" binding:"required,max=256"`
}

// Verify handles POST /checkout/:gateway/verify, the synchronous return leg
// after a hosted-page redirect. A bad signature is recorded and rejected;
// the asynchronous webhook remains authoritative either way.
func (h *PaymentHandler) Verify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	var in verifyPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid verification payload.", validation.FromBindError(err, &in)))
		return
	}

	g, ok := h.gateways.Get(c.Param("gateway"))
	if !ok {
		middleware.Fail(c, apperr.NotFoundErr("Unknown payment gateway."))
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), in.OrderID)
	if err != nil {
		failDomain(c, err)
		return
	}
	if o.UserID != user.ID && user.Role != "admin" {
		failDomain(c, orders.ErrForbidden)
		return
	}
	if o.GatewayOrderID == nil || *o.GatewayOrderID != in.GatewayOrderID {
		middleware.Fail(c, apperr.InvalidErr("Unknown gateway order.", nil))
		return
	}

	if !g.VerifyCallback(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		if err := h.svc.RecordRejectedVerification(c.Request.Context(), o.ID, in.GatewayOrderID, in.GatewayPaymentID); err != nil {
			h.logger.LogAttrs(c.Request.Context(), slog.LevelError, "record rejected verification",
				slog.String("order_id", o.ID), slog.String("error", err.Error()))
		}
		middleware.Fail(c, apperr.IntegrityErr(gateway.ErrBadSignature))
		return
	}

	// The signature binds the payment to the gateway order we created for
	// exactly TotalCents, so the callback carries no independent amount.
	err = h.svc.ApplyPaymentOutcome(c.Request.Context(), o.ID, orders.PaymentOutcome{
		Success:          true,
		GatewayPaymentID: in.GatewayPaymentID,
		GatewayOrderID:   in.GatewayOrderID,
		AmountCents:      o.TotalCents,
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	updated, items, err := h.repo.GetWithItems(c.Request.Context(), o.ID)
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": orderView(updated, items)})
}
