package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
)

func hmacHex(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestRazorpay(baseURL string) *Razorpay {
	return NewRazorpay(config.GatewayConfig{
		BaseURL:       baseURL,
		KeyID:         "rzp_test_key",
		KeySecret:     "rzp_test_secret",
		WebhookSecret: "whsec_rzp",
		Timeout:       2 * time.Second,
	})
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)
		w.Write([]byte(`{"id":"order_abc","amount":100000,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	g := newTestRazorpay(srv.URL)
	got, err := g.CreateOrder(context.Background(), CreateOrderRequest{
		AmountCents: 100000, Currency: "INR", Reference: "ORD-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", got.ID)
	assert.Contains(t, got.RedirectURL, "order_abc")
}

func TestRazorpayCreateOrderUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := newTestRazorpay(srv.URL)
	_, err := g.CreateOrder(context.Background(), CreateOrderRequest{AmountCents: 1, Currency: "INR"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRazorpayVerifyCallback(t *testing.T) {
	g := newTestRazorpay("http://unused")

	sig := hmacHex("rzp_test_secret", []byte("order_abc|pay_xyz"))
	assert.True(t, g.VerifyCallback("order_abc", "pay_xyz", sig))

	// Any tampered component fails.
	assert.False(t, g.VerifyCallback("order_abc", "pay_other", sig))
	assert.False(t, g.VerifyCallback("order_other", "pay_xyz", sig))
	assert.False(t, g.VerifyCallback("order_abc", "pay_xyz", sig[:len(sig)-1]+"0"))
	assert.False(t, g.VerifyCallback("", "pay_xyz", sig))
	assert.False(t, g.VerifyCallback("order_abc", "pay_xyz", ""))
}

func TestRazorpayWebhook(t *testing.T) {
	g := newTestRazorpay("http://unused")
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":90000,"currency":"INR"}}}}`)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", hmacHex("whsec_rzp", body))
	h.Set("X-Razorpay-Event-Id", "evt_1")

	ev, err := g.VerifyAndParseWebhook(h, body)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pay_1", ev.GatewayPaymentID)
	assert.Equal(t, "order_1", ev.GatewayOrderID)
	assert.Equal(t, 90000, ev.AmountCents)
}

func TestRazorpayWebhookBadSignature(t *testing.T) {
	g := newTestRazorpay("http://unused")
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":90000,"currency":"INR"}}}}`)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", hmacHex("wrong_secret", body))
	h.Set("X-Razorpay-Event-Id", "evt_1")
	_, err := g.VerifyAndParseWebhook(h, body)
	assert.ErrorIs(t, err, ErrBadSignature)

	// Tampered body after signing.
	h.Set("X-Razorpay-Signature", hmacHex("whsec_rzp", body))
	_, err = g.VerifyAndParseWebhook(h, append(body, ' '))
	assert.ErrorIs(t, err, ErrBadSignature)

	// Missing header entirely.
	_, err = g.VerifyAndParseWebhook(http.Header{}, body)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestRazorpayWebhookFailedEvent(t *testing.T) {
	g := newTestRazorpay("http://unused")
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_1","amount":90000,"currency":"INR"}}}}`)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", hmacHex("whsec_rzp", body))
	h.Set("X-Razorpay-Event-Id", "evt_2")

	ev, err := g.VerifyAndParseWebhook(h, body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Type)
}

func TestRazorpayRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1/refund", r.URL.Path)
		w.Write([]byte(`{"id":"rfnd_1","status":"processed"}`))
	}))
	defer srv.Close()

	g := newTestRazorpay(srv.URL)
	res, err := g.Refund(context.Background(), RefundRequest{GatewayPaymentID: "pay_1", AmountCents: 90000})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", res.RefundID)
	assert.Equal(t, "succeeded", res.Status)
}
