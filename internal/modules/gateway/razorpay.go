package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
)

// Razorpay is the redirect/confirm variant: the client pays at the gateway and
// returns with {order_id, payment_id, signature}; the server verifies
// HMAC-SHA256(secret, orderID+"|"+paymentID) before trusting the outcome.
type Razorpay struct {
	cfg    config.GatewayConfig
	client *http.Client
}

func NewRazorpay(cfg config.GatewayConfig) *Razorpay {
	return &Razorpay{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *Razorpay) Name() string { return "razorpay" }

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (g *Razorpay) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   req.AmountCents,
		"currency": req.Currency,
		"receipt":  req.Reference,
	})
	if err != nil {
		return GatewayOrder{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return GatewayOrder{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return GatewayOrder{}, fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}

	var out razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}

	return GatewayOrder{
		ID:          out.ID,
		RedirectURL: fmt.Sprintf("%s/checkout?order_id=%s&key_id=%s", g.cfg.BaseURL, out.ID, g.cfg.KeyID),
	}, nil
}

func (g *Razorpay) VerifyCallback(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *Razorpay) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	payload := map[string]any{}
	if req.AmountCents > 0 {
		payload["amount"] = req.AmountCents
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return RefundResult{}, err
	}

	url := fmt.Sprintf("%s/payments/%s/refund", g.cfg.BaseURL, req.GatewayPaymentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return RefundResult{}, err
	}
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return RefundResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return RefundResult{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return RefundResult{}, fmt.Errorf("razorpay refund: status %d", resp.StatusCode)
	}

	var out razorpayRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RefundResult{}, fmt.Errorf("razorpay refund: %w", err)
	}

	status := "succeeded"
	if out.Status == "pending" || out.Status == "created" {
		status = "pending"
	}
	return RefundResult{RefundID: out.ID, Status: status}, nil
}

type razorpayWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int    `json:"amount"`
				Currency string `json:"currency"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyAndParseWebhook checks HMAC-SHA256(webhookSecret, rawBody) against the
// X-Razorpay-Signature header before the body is parsed.
func (g *Razorpay) VerifyAndParseWebhook(header http.Header, body []byte) (Event, error) {
	sig := header.Get("X-Razorpay-Signature")
	if sig == "" {
		return Event{}, ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Event{}, ErrBadSignature
	}

	var p razorpayWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, ErrBadSignature
	}

	ev := Event{
		ID:               header.Get("X-Razorpay-Event-Id"),
		GatewayPaymentID: p.Payload.Payment.Entity.ID,
		GatewayOrderID:   p.Payload.Payment.Entity.OrderID,
		AmountCents:      p.Payload.Payment.Entity.Amount,
		Currency:         p.Payload.Payment.Entity.Currency,
	}

	switch p.Event {
	case "payment.captured":
		ev.Type = EventPaymentSucceeded
	case "payment.failed":
		ev.Type = EventPaymentFailed
	default:
		return Event{}, fmt.Errorf("unsupported razorpay event %q", p.Event)
	}

	if ev.ID == "" || ev.GatewayPaymentID == "" {
		return Event{}, ErrBadSignature
	}
	return ev, nil
}
