// Command createtable creates the MySQL schema. Run once against a fresh
// database; statements use IF NOT EXISTS so reruns are harmless.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(32) NOT NULL DEFAULT 'customer',
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY ux_users_email (email)
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		expires_at DATETIME(3) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		last_seen_at DATETIME(3) NOT NULL,
		KEY ix_sessions_user_id (user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		price_cents INT NOT NULL,
		currency CHAR(3) NOT NULL DEFAULT 'INR',
		stock INT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY ux_products_sku (sku)
	)`,

	`CREATE TABLE IF NOT EXISTS carts (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		KEY ix_carts_user_id (user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS cart_items (
		id CHAR(36) PRIMARY KEY,
		cart_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		quantity INT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		KEY ix_cart_items_cart_id (cart_id),
		KEY ix_cart_items_product_id (product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS addresses (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		line1 VARCHAR(255) NOT NULL,
		line2 VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL,
		postal_code VARCHAR(32) NOT NULL,
		country CHAR(2) NOT NULL DEFAULT 'IN',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		KEY ix_addresses_user_id (user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS discount_codes (
		code VARCHAR(64) PRIMARY KEY,
		type VARCHAR(16) NOT NULL,
		value INT NOT NULL,
		valid_from DATETIME(3) NULL,
		valid_until DATETIME(3) NULL,
		active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(3) NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) PRIMARY KEY,
		number VARCHAR(40) NOT NULL,
		user_id CHAR(36) NOT NULL,
		status VARCHAR(32) NOT NULL,
		payment_status VARCHAR(32) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		subtotal_cents INT NOT NULL,
		discount_cents INT NOT NULL,
		shipping_cents INT NOT NULL,
		total_cents INT NOT NULL,
		currency CHAR(3) NOT NULL,
		discount_code VARCHAR(64) NULL,
		shipping_address_id CHAR(36) NOT NULL,
		billing_address_id CHAR(36) NOT NULL,
		shipping_address_json JSON NOT NULL,
		billing_address_json JSON NOT NULL,
		gateway_order_id VARCHAR(128) NULL,
		gateway_payment_id VARCHAR(128) NULL,
		tracking_number VARCHAR(64) NULL,
		estimated_delivery DATETIME(3) NULL,
		flagged_at DATETIME(3) NULL,
		paid_at DATETIME(3) NULL,
		cancelled_at DATETIME(3) NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY ux_orders_number (number),
		KEY ix_orders_user_id (user_id),
		KEY ix_orders_gateway_order_id (gateway_order_id)
	)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		unit_price_cents INT NOT NULL,
		line_total_cents INT NOT NULL,
		currency CHAR(3) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		KEY ix_order_items_order_id (order_id),
		KEY ix_order_items_product_id (product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS payment_logs (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		gateway VARCHAR(32) NOT NULL,
		stage VARCHAR(32) NOT NULL,
		gateway_order_id VARCHAR(128) NULL,
		gateway_payment_id VARCHAR(128) NULL,
		amount_cents INT NOT NULL,
		currency CHAR(3) NOT NULL,
		message VARCHAR(255) NULL,
		created_at DATETIME(3) NOT NULL,
		KEY ix_payment_logs_order_id (order_id),
		KEY ix_payment_logs_gateway_payment_id (gateway_payment_id)
	)`,

	`CREATE TABLE IF NOT EXISTS order_events (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		actor_user_id CHAR(36) NOT NULL,
		action VARCHAR(32) NOT NULL,
		from_status VARCHAR(32) NOT NULL,
		to_status VARCHAR(32) NOT NULL,
		note VARCHAR(255) NULL,
		created_at DATETIME(3) NOT NULL,
		KEY ix_order_events_order_id (order_id)
	)`,

	`CREATE TABLE IF NOT EXISTS gateway_events (
		id CHAR(36) PRIMARY KEY,
		gateway VARCHAR(32) NOT NULL,
		event_id VARCHAR(128) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		payload_json JSON NOT NULL,
		received_at DATETIME(3) NOT NULL,
		processed_at DATETIME(3) NULL,
		process_error VARCHAR(255) NULL,
		UNIQUE KEY ux_gateway_events_gateway_event (gateway, event_id)
	)`,

	`CREATE TABLE IF NOT EXISTS email_outbox (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		to_addr VARCHAR(255) NOT NULL,
		to_name VARCHAR(255) NOT NULL DEFAULT '',
		subject VARCHAR(255) NOT NULL,
		text_body TEXT NOT NULL,
		html_body TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		last_error VARCHAR(255) NULL,
		sent_at DATETIME(3) NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		KEY ix_email_outbox_status (status),
		KEY ix_email_outbox_order_id (order_id)
	)`,

	`CREATE TABLE IF NOT EXISTS order_metrics (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		event VARCHAR(64) NOT NULL,
		amount_cents INT NOT NULL,
		currency CHAR(3) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		KEY ix_order_metrics_event (event),
		KEY ix_order_metrics_order_id (order_id)
	)`,
}

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load", "error", err)
		os.Exit(1)
	}

	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		logger.Error("db open", "error", err)
		os.Exit(1)
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Error("exec", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("schema ready", "tables", len(statements))
}
