package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http/middleware"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/webhook"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/shared/apperr"
)

// webhookBodyLimit caps the raw payload we are willing to buffer.
const webhookBodyLimit = 1 << 20

type WebhookHandler struct {
	gateways  *gateway.Registry
	processor *webhook.Processor
	logger    *slog.Logger
}

func NewWebhookHandler(gateways *gateway.Registry, processor *webhook.Processor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{gateways: gateways, processor: processor, logger: logger}
}

// Receive handles POST /webhooks/:gateway. Signature failures get a 400 with
// no detail. Once the event is durably recorded we answer 200 even if the
// business-side application failed, so the gateway stops retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	g, ok := h.gateways.Get(c.Param("gateway"))
	if !ok {
		middleware.Fail(c, apperr.NotFoundErr("Unknown payment gateway."))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Could not read payload.", nil))
		return
	}

	ev, err := g.VerifyAndParseWebhook(c.Request.Header, body)
	if err != nil {
		h.logger.LogAttrs(c.Request.Context(), slog.LevelWarn, "webhook rejected",
			slog.String("gateway", g.Name()))
		middleware.Fail(c, apperr.InvalidErr("Invalid webhook payload.", nil))
		return
	}

	if err := h.processor.Process(c.Request.Context(), g.Name(), ev, body); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
