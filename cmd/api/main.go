package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/auth"
	"github.com/safar/techshop-orders/internal/cache"
	"github.com/safar/techshop-orders/internal/config"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/httpapi"
	"github.com/safar/techshop-orders/internal/logging"
	"github.com/safar/techshop-orders/internal/pricing"
	"github.com/safar/techshop-orders/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caps, err := database.DetectCapabilities(ctx, db)
	if err != nil {
		return fmt.Errorf("detect schema: %w", err)
	}
	logger.Info("schema detected",
		zap.Bool("coupons", caps.Coupons),
		zap.Bool("coupon_redemptions", caps.CouponRedemptions),
		zap.Bool("inventory_log", caps.InventoryLog),
		zap.Bool("status_history", caps.StatusHistory),
		zap.Bool("payment_status", caps.PaymentStatus))

	opts := []service.Option{service.WithTxOptions(database.TxOptionsFromConfig(cfg.Database))}
	if cfg.Redis.URL != "" {
		orderCache, err := cache.Connect(ctx, cfg.Redis.URL, cfg.Redis.OrderTTL)
		if err != nil {
			logger.Warn("order cache disabled", zap.Error(err))
		} else {
			defer orderCache.Close()
			opts = append(opts, service.WithCache(orderCache))
			logger.Info("order cache enabled", zap.Duration("ttl", cfg.Redis.OrderTTL))
		}
	}

	orders := service.NewOrderService(db, logger, pricing.NewRules(cfg.Pricing), caps, opts...)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Orders:        orders,
		Coupons:       orders.Coupons(),
		Products:      service.NewCatalog(db, logger),
		Users:         service.NewAccounts(db, logger),
		DB:            db,
		Auth:          auth.NewAuthenticator(tokens, logger),
		Logger:        logger,
		CheckoutRPS:   cfg.RateLimit.CheckoutRPS,
		CheckoutBurst: cfg.RateLimit.CheckoutBurst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
