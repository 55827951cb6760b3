package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/validation"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

type AdminOrderHandler struct {
	svc    *orders.Service
	logger *slog.Logger
}

func NewAdminOrderHandler(svc *orders.Service, logger *slog.Logger) *AdminOrderHandler {
	return &AdminOrderHandler{svc: svc, logger: logger}
}

type shippingUpdateInput struct {
	Status            string `json:"status" binding:"required,oneof=shipped in_transit delivered"`
	TrackingNumber    string `json:"trackingNumber" binding:"omitempty,max=64"`
	EstimatedDelivery string `json:"estimatedDelivery" binding:"omitempty"` // RFC 3339
}

// UpdateStatus handles PUT /admin/orders/:id/status. RequireAdmin runs
// before this; the body names a forward shipping status only, cancellation
// goes through the cancel endpoint so refunds are never skipped.
func (h *AdminOrderHandler) UpdateStatus(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var in shippingUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid status payload.", validation.FromBindError(err, &in)))
		return
	}

	upd := orders.ShippingUpdateInput{
		OrderID:     c.Param("id"),
		NewStatus:   in.Status,
		ActorUserID: user.ID,
	}
	if in.TrackingNumber != "" {
		upd.TrackingNumber = &in.TrackingNumber
	}
	if in.EstimatedDelivery != "" {
		eta, err := time.Parse(time.RFC3339, in.EstimatedDelivery)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("Invalid status payload.", map[string]string{
				"estimatedDelivery": "Must be an RFC 3339 timestamp.",
			}))
			return
		}
		upd.EstimatedDelivery = &eta
	}

	o, err := h.svc.UpdateShippingStatus(c.Request.Context(), upd)
	if err != nil {
		failDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": orderView(o, nil)})
}
