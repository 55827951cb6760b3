// Command mockwebhook signs and posts a fake gateway webhook to a locally
// running API, for exercising the payment pipeline without a real gateway.
//
// Usage:
//
//	mockwebhook -gateway razorpay -order order_123 -payment pay_456 -amount 100000
//	mockwebhook -gateway stripe -payment pi_789 -amount 100000 -event failed
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		base    = flag.String("base", "http://localhost:8080", "API base URL")
		gw      = flag.String("gateway", "razorpay", "razorpay or stripe")
		orderID = flag.String("order", "", "gateway order id (razorpay)")
		payID   = flag.String("payment", "", "gateway payment id")
		amount  = flag.Int("amount", 0, "amount in minor units")
		cur     = flag.String("currency", "INR", "currency code")
		event   = flag.String("event", "succeeded", "succeeded or failed")
		secret  = flag.String("secret", "", "webhook secret (defaults to env)")
	)
	flag.Parse()

	if *payID == "" {
		fmt.Fprintln(os.Stderr, "-payment is required")
		os.Exit(2)
	}

	var body []byte
	var header http.Header
	var err error

	switch *gw {
	case "razorpay":
		body, header, err = razorpayDelivery(*orderID, *payID, *amount, *cur, *event, envDefault(*secret, "RAZORPAY_WEBHOOK_SECRET"))
	case "stripe":
		body, header, err = stripeDelivery(*payID, *amount, *cur, *event, envDefault(*secret, "STRIPE_WEBHOOK_SECRET"))
	default:
		err = fmt.Errorf("unknown gateway %q", *gw)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	url := fmt.Sprintf("%s/webhooks/%s", *base, *gw)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req.Header = header
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s\n%s\n", resp.Status, url, out)
}

func envDefault(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func razorpayDelivery(orderID, payID string, amount int, cur, event, secret string) ([]byte, http.Header, error) {
	if secret == "" {
		return nil, nil, fmt.Errorf("no razorpay webhook secret")
	}
	name := "payment.captured"
	if event == "failed" {
		name = "payment.failed"
	}
	body, err := json.Marshal(map[string]any{
		"event": name,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       payID,
					"order_id": orderID,
					"amount":   amount,
					"currency": cur,
				},
			},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", hex.EncodeToString(mac.Sum(nil)))
	h.Set("X-Razorpay-Event-Id", "evt_"+uuid.NewString())
	return body, h, nil
}

func stripeDelivery(payID string, amount int, cur, event, secret string) ([]byte, http.Header, error) {
	if secret == "" {
		return nil, nil, fmt.Errorf("no stripe webhook secret")
	}
	name := "payment_intent.succeeded"
	if event == "failed" {
		name = "payment_intent.payment_failed"
	}
	body, err := json.Marshal(map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": name,
		"data": map[string]any{
			"object": map[string]any{
				"id":       payID,
				"amount":   amount,
				"currency": cur,
			},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(body)))

	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return body, h, nil
}
