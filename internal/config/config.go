package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env      string // dev|prod
	Addr     string
	BaseURL  string
	DB       DBConfig
	SMTP     SMTPConfig
	Shipping ShippingConfig
	Razorpay GatewayConfig
	Stripe   GatewayConfig
}

type DBConfig struct {
	DSN string
}

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // none|starttls|tls
	SkipVerifyTLS bool
	FromAddr      string
	FromName      string
}

type ShippingConfig struct {
	FlatCents      int
	FreeAboveCents int // 0 disables free shipping
}

// GatewayConfig is built once at startup and injected into the gateway
// adapters; there are no lazily initialized package-level clients.
type GatewayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		Env:     getenv("APP_ENV", "dev"),
		Addr:    getenv("APP_ADDR", ":8080"),
		BaseURL: getenv("APP_BASE_URL", "http://localhost:8080"),
		DB: DBConfig{
			DSN: os.Getenv("DB_DSN"),
		},
		SMTP: SMTPConfig{
			Host:          getenv("SMTP_HOST", "localhost"),
			Port:          getenv("SMTP_PORT", "1025"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       getenv("SMTP_TLS_MODE", "none"),
			SkipVerifyTLS: getenv("SMTP_TLS_SKIP_VERIFY", "false") == "true",
			FromAddr:      getenv("SMTP_FROM_ADDR", "no-reply@homekraft.local"),
			FromName:      getenv("SMTP_FROM_NAME", "Radhika's HomeKraft"),
		},
		Shipping: ShippingConfig{
			FlatCents:      getenvInt("SHIPPING_FLAT_CENTS", 4900),
			FreeAboveCents: getenvInt("SHIPPING_FREE_ABOVE_CENTS", 99900),
		},
		Razorpay: GatewayConfig{
			BaseURL:       getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
			Timeout:       getenvDuration("RAZORPAY_TIMEOUT", 30*time.Second),
		},
		Stripe: GatewayConfig{
			BaseURL:       getenv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
			KeySecret:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Timeout:       getenvDuration("STRIPE_TIMEOUT", 30*time.Second),
		},
	}

	if cfg.DB.DSN == "" {
		return Config{}, fmt.Errorf("DB_DSN is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
