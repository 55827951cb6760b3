package gateway

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrUnavailable wraps upstream timeouts and 5xx responses; the caller may
	// retry. Absence of a positive result is never treated as success.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrBadSignature means the payload failed authenticity checks. Handlers
	// must not leak detail about why.
	ErrBadSignature = errors.New("invalid signature or payload")
)

type CreateOrderRequest struct {
	AmountCents int
	Currency    string
	Reference   string // our order number
}

// GatewayOrder is the gateway-side correlation handle plus whatever the
// client needs to launch the payment (redirect URL or client secret).
type GatewayOrder struct {
	ID           string
	RedirectURL  string
	ClientSecret string
}

type RefundRequest struct {
	GatewayPaymentID string
	AmountCents      int // 0 => full amount
	Currency         string
	Reference        string
}

type RefundResult struct {
	RefundID string
	Status   string // succeeded|pending|failed
}

// Event is the normalized shape produced from a raw webhook payload.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type Event struct {
	ID               string
	Type             string
	GatewayPaymentID string
	GatewayOrderID   string
	AmountCents      int
	Currency         string
}

// Gateway abstracts one external payment service. Two variants exist: the
// redirect/confirm style where the client returns with a signed callback, and
// the intent/webhook style where the gateway posts events asynchronously.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)

	// VerifyCallback checks the redirect-callback signature. Only meaningful
	// for redirect-style gateways; intent-style gateways always return false.
	VerifyCallback(gatewayOrderID, gatewayPaymentID, signature string) bool

	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)

	// VerifyAndParseWebhook authenticates the raw payload before anything in
	// it is trusted, then normalizes it into an Event.
	VerifyAndParseWebhook(header http.Header, body []byte) (Event, error)
}
