// File: furk/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"furk/config"
	"furk/handlers"
	"furk/middleware"
	"furk/routes"
	"furk/services/admin"
	"furk/services/api"
	"furk/services/auth"
	"furk/services/booking"
	"furk/services/catalog"
	"furk/services/identity"
	"furk/services/lazyload"
	"furk/services/merchant"
	"furk/services/notification"
	"furk/services/profile"
	"furk/services/progress"
	"furk/services/referral"
	"furk/services/review"
	"furk/services/session"
	"furk/services/transaction"
	"furk/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	if err := middleware.RegisterValidators(); err != nil {
		logger.Sugar().Fatalf("main: failed to register validators: %v", err)
	}

	// Session records.
	var (
		store       session.Store
		redisClient *redis.Client
	)
	switch cfg.SessionStore {
	case "memory":
		store = session.NewMemoryStore()
		logger.Warn("main: using in-memory session store; sessions do not survive restarts")
	default:
		sealer, err := utils.NewSealer(cfg.SessionSecret)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize session sealer: %v", err)
		}
		redisClient = utils.GetSessionCacheClient()
		store = session.NewRedisStore(redisClient, sealer)
	}

	// Backend and identity clients.
	client := api.New(cfg.APIBaseURL, cfg.APITimeout)
	provider := identity.NewCognitoProvider(cfg.CognitoRegion, cfg.CognitoClientID, cfg.CognitoClientSecret)

	// services.
	bookingService := booking.NewDefaultBookingService(client)
	catalogService := catalog.NewDefaultCatalogService(client)
	merchantService := merchant.NewDefaultMerchantService(client)
	notificationService := notification.NewDefaultNotificationService(client)
	reviewService := review.NewDefaultReviewService(client)
	referralService := referral.NewDefaultReferralService(client)
	transactionService := transaction.NewDefaultTransactionService(client)
	adminService := admin.NewDefaultAdminService(client)
	profileService := profile.NewDefaultProfileService(client)

	authService := auth.NewService(auth.Options{
		Provider:  provider,
		Store:     store,
		Merchants: merchantService,
		Referrals: referralService,
		Profiles:  profileService,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	loaders := lazyload.NewBoundedRegistry(cfg.LoaderMaxSessions, cfg.LoaderIdleTTL)
	go loaders.Watch(ctx, store)

	policy := progress.DefaultPolicy
	if cfg.ProgressMaxRetry > 0 {
		policy.MaxAttempts = cfg.ProgressMaxRetry
	}
	progressManager := progress.NewManager(store, progress.ManagerConfig{
		URL:               cfg.ProgressWSURL,
		Policy:            policy,
		Source:            bookingService,
		ReconcileInterval: cfg.ProgressReconcile,
	})
	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		progressManager.Run(ctx)
	}()

	utils.StartHealthMonitor(ctx, redisClient, cfg.APIBaseURL)

	handlerBundle := &handlers.HandlerBundle{
		Auth: handlers.NewAuthHandler(authService),
		Pages: &handlers.PageHandler{
			Auth:          authService,
			Bookings:      bookingService,
			Catalog:       catalogService,
			Merchants:     merchantService,
			Notifications: notificationService,
			Reviews:       reviewService,
			Referrals:     referralService,
			Transactions:  transactionService,
			Admin:         adminService,
			Profiles:      profileService,
			Loaders:       loaders,
			PageSize:      cfg.PageSize,
		},
		Progress: handlers.NewProgressHandler(progressManager, config.Origins()),
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	routes.RegisterRoutes(router, handlerBundle, routes.Options{
		Auth:              authService,
		Cookies:           middleware.NewCookieStore(cfg.SessionSecret, config.IsProduction()),
		CookieName:        cfg.SessionCookieName,
		AllowedOrigins:    config.Origins(),
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
	})

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	stop()
	<-managerDone
	logger.Sugar().Info("main: server stopped gracefully")
}
