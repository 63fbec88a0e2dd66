package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"airpool/internal/airport"
	"airpool/internal/auth"
	"airpool/internal/booking"
	"airpool/internal/cache"
	"airpool/internal/chat"
	"airpool/internal/clock"
	"airpool/internal/config"
	"airpool/internal/db"
	"airpool/internal/logger"
	"airpool/internal/notification"
	"airpool/internal/payment"
	"airpool/internal/payout"
	"airpool/internal/rating"
	"airpool/internal/request"
	"airpool/internal/ride"
	"airpool/internal/server"
	"airpool/internal/user"
	"airpool/internal/wallet"
	"airpool/internal/webhook"
)

func main() {
	logger.Init()
	logger.Info("starting airpool application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect mongodb client", "err", err)
		}
	}()
	logger.Info("mongodb connected")

	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.Fatalf("failed to ensure indexes: %v", err)
	}
	logger.Info("indexes ensured")

	c := clock.Real()

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Info("no STRIPE_SECRET_KEY configured, payments run against the null gateway")
		gateway = payment.Null{}
	}

	cacheLayer := cache.New(cfg.RedisURL)

	var dispatcher notification.Dispatcher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			opts = &redis.Options{Addr: cfg.RedisURL}
		}
		dispatcher = notification.NewRedisDispatcher(redis.NewClient(opts))
	} else {
		dispatcher = notification.NullDispatcher{}
	}

	authn := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	userRepo := user.NewRepository(database, c)
	airportRepo := airport.NewRepository(database)
	rideRepo := ride.NewRepository(database, c)
	bookingRepo := booking.NewRepository(database, c)
	requestRepo := request.NewRepository(client, database, c)
	walletRepo := wallet.NewRepository(client, database, c)
	notificationRepo := notification.NewRepository(database, c)
	ratingRepo := rating.NewRepository(database, c)
	payoutRepo := payout.NewRepository(database, c)
	webhookRepo := webhook.NewRepository(database, c)
	chatRepo := chat.NewRepository(database, c)

	notifier := notification.NewBus(notificationRepo, cacheLayer, dispatcher)

	userSvc := user.NewService(userRepo, authn)
	airportSvc := airport.NewService(airportRepo)
	rideSvc := ride.NewService(rideRepo, c)
	walletSvc := wallet.NewService(walletRepo, cfg.PlatformFeePercent)
	bookingSvc := booking.NewService(bookingRepo, rideRepo, userRepo, walletSvc, gateway, notifier, c)
	requestSvc := request.NewService(requestRepo, rideRepo, walletSvc, gateway, notifier, c)
	ratingSvc := rating.NewService(ratingRepo, bookingRepo, rideRepo, userRepo, notifier, c)
	payoutSvc := payout.NewService(payoutRepo, walletSvc, userRepo, gateway)
	webhookSvc := webhook.NewService(webhookRepo, gateway, bookingRepo, rideRepo, userRepo, walletSvc, payoutRepo)
	chatSvc := chat.NewService(chatRepo, rideRepo, bookingRepo, requestRepo)

	handlers := server.Handlers{
		User:         user.NewHandler(userSvc),
		Airport:      airport.NewHandler(airportSvc),
		Ride:         ride.NewHandler(rideSvc),
		Booking:      booking.NewHandler(bookingSvc),
		Request:      request.NewHandler(requestSvc),
		Wallet:       wallet.NewHandler(walletSvc),
		Payout:       payout.NewHandler(payoutSvc),
		Rating:       rating.NewHandler(ratingSvc),
		Notification: notification.NewHandler(notifier),
		Webhook:      webhook.NewHandler(webhookSvc),
		Chat:         chat.NewHandler(chatSvc),
	}

	ratingScheduler := rating.NewScheduler(rideRepo, bookingRepo, ratingRepo, notifier, c)
	go ratingScheduler.Run(ctx)
	logger.Info("rating scheduler started")

	go runExpirySweep(ctx, requestSvc)
	logger.Info("ride request expiry sweep started")

	srv := server.New(cfg, authn, handlers)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("server error: %v", err)
	}

	logger.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error during server shutdown: %v", err)
	}

	logger.Info("server stopped")
}

// runExpirySweep periodically expires ride requests past their
// expiresAt, the same ticker-driven shape as rating.Scheduler.Run.
func runExpirySweep(ctx context.Context, svc request.Service) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireDue(ctx)
			if err != nil {
				logger.Error("ride request expiry sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("ride request expiry sweep", "expired", n)
			}
		}
	}
}
