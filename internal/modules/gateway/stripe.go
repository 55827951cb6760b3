package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
)

// webhookTolerance bounds how stale a signed webhook timestamp may be.
const webhookTolerance = 5 * time.Minute

// Stripe is the intent/webhook variant: the server creates a payment intent,
// the client confirms it with the client secret, and the gateway reports the
// outcome asynchronously through signed webhook events.
type Stripe struct {
	cfg    config.GatewayConfig
	client *http.Client
	now    func() time.Time
}

func NewStripe(cfg config.GatewayConfig) *Stripe {
	return &Stripe{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

func (g *Stripe) Name() string { return "stripe" }

type stripeIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int    `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

func (g *Stripe) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	form := url.Values{}
	form.Set("amount", strconv.Itoa(req.AmountCents))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("metadata[reference]", req.Reference)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return GatewayOrder{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return GatewayOrder{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return GatewayOrder{}, fmt.Errorf("stripe create intent: status %d", resp.StatusCode)
	}

	var out stripeIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GatewayOrder{}, fmt.Errorf("stripe create intent: %w", err)
	}

	return GatewayOrder{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

// VerifyCallback is not part of the intent flow; outcomes arrive via webhook.
func (g *Stripe) VerifyCallback(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return false
}

type stripeRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *Stripe) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", req.GatewayPaymentID)
	if req.AmountCents > 0 {
		form.Set("amount", strconv.Itoa(req.AmountCents))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/refunds", strings.NewReader(form.Encode()))
	if err != nil {
		return RefundResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return RefundResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return RefundResult{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return RefundResult{}, fmt.Errorf("stripe refund: status %d", resp.StatusCode)
	}

	var out stripeRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RefundResult{}, fmt.Errorf("stripe refund: %w", err)
	}

	status := "succeeded"
	if out.Status == "pending" {
		status = "pending"
	} else if out.Status == "failed" {
		status = "failed"
	}
	return RefundResult{RefundID: out.ID, Status: status}, nil
}

type stripeWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Amount   int    `json:"amount"`
			Currency string `json:"currency"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyAndParseWebhook implements the documented scheme: the Stripe-Signature
// header carries "t=<unix>,v1=<hex>" where v1 = HMAC-SHA256(secret,
// "<t>.<rawBody>"). Stale timestamps are rejected to stop replays.
func (g *Stripe) VerifyAndParseWebhook(header http.Header, body []byte) (Event, error) {
	ts, sigs, err := parseStripeSignature(header.Get("Stripe-Signature"))
	if err != nil {
		return Event{}, ErrBadSignature
	}

	age := g.now().Sub(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return Event{}, ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			ok = true
			break
		}
	}
	if !ok {
		return Event{}, ErrBadSignature
	}

	var p stripeWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, ErrBadSignature
	}

	ev := Event{
		ID:               p.ID,
		GatewayPaymentID: p.Data.Object.ID,
		GatewayOrderID:   p.Data.Object.ID, // the intent id is our correlation id
		AmountCents:      p.Data.Object.Amount,
		Currency:         strings.ToUpper(p.Data.Object.Currency),
	}

	switch p.Type {
	case "payment_intent.succeeded":
		ev.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		ev.Type = EventPaymentFailed
	default:
		return Event{}, fmt.Errorf("unsupported stripe event %q", p.Type)
	}

	if ev.ID == "" || ev.GatewayPaymentID == "" {
		return Event{}, ErrBadSignature
	}
	return ev, nil
}

func parseStripeSignature(raw string) (int64, []string, error) {
	if raw == "" {
		return 0, nil, fmt.Errorf("empty signature header")
	}

	var ts int64 = -1
	var sigs []string
	for _, part := range strings.Split(raw, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, err
			}
			ts = n
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("malformed signature header")
	}
	return ts, sigs, nil
}
