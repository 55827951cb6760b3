package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

type OrderHandler struct {
	svc    *orders.Service
	repo   *orders.Repo
	logger *slog.Logger
}

func NewOrderHandler(svc *orders.Service, repo *orders.Repo, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, repo: repo, logger: logger}
}

// List handles GET /orders for the signed-in user.
func (h *OrderHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	res, err := h.repo.ListByUser(c.Request.Context(), orders.ListByUserParams{
		UserID:   user.ID,
		Page:     page,
		PageSize: size,
		Status:   c.Query("status"),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, gin.H{
			"order":     orderView(it.Order, nil),
			"itemCount": it.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": items, "total": res.Total})
}

// Get handles GET /orders/:id. Owners and admins only.
func (h *OrderHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	o, items, err := h.repo.GetWithItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	if o.UserID != user.ID && user.Role != "admin" {
		failDomain(c, orders.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": orderView(o, items)})
}

// Cancel handles PUT /orders/:id/cancel. A paid order is refunded first;
// the refund and the cancellation land together or not at all.
func (h *OrderHandler) Cancel(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Please sign in."))
		return
	}

	o, err := h.svc.CancelOrder(c.Request.Context(), c.Param("id"), orders.Actor{UserID: user.ID, Role: user.Role})
	if err != nil {
		failDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": orderView(o, nil)})
}
