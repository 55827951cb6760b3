package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/config"
	apphttp "github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/http"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/mailer"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/analytics"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/catalog"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/gateway"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/notify"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/webhook"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	registry := gateway.NewRegistry(
		gateway.NewRazorpay(cfg.Razorpay),
		gateway.NewStripe(cfg.Stripe),
	)

	var mail mailer.Service
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	} else {
		logger.Warn("smtp not configured, using mock mailer")
		mail = &mailer.Mock{}
	}

	store := catalog.NewStore(db)
	dispatcher := notify.NewDispatcher(db, logger)
	recorder := analytics.NewRecorder(db, logger)
	svc := orders.NewService(db, store, registry, dispatcher, recorder, cfg.Shipping, logger)
	repo := orders.NewRepo(db)
	processor := webhook.NewProcessor(db, repo, svc, logger)

	worker := notify.NewWorker(db, mail, cfg.SMTP.FromAddr, cfg.SMTP.FromName, 15*time.Second, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx)

	router := apphttp.NewRouter(apphttp.RouterDeps{
		Cfg:       cfg,
		DB:        db,
		Svc:       svc,
		Repo:      repo,
		Gateways:  registry,
		Processor: processor,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
