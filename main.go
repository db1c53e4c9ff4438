package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soloist/config"
	"soloist/database"
	authapi "soloist/internal/api/auth"
	"soloist/internal/api/billing"
	logsapi "soloist/internal/api/logs"
	stripewebhooks "soloist/internal/api/stripewebhook"
	"soloist/internal/api/users"
	routes "soloist/internal/app/http"
	"soloist/internal/infra/kafka"
	"soloist/internal/infra/postgres"
	"soloist/internal/infra/stripe"
	"soloist/internal/logger"
	"soloist/internal/metrics"
	"soloist/internal/service/payments"
	"soloist/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	if cfg.Stripe.SecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set; checkout endpoints will answer 500")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set; webhook endpoint will answer 500")
	}
	processor := stripe.New(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	hub := ws.NewHub()
	notifiers := []payments.Notifier{hub}
	if cfg.Kafka.Enabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			log.WithError(err).Fatal("failed to start kafka publisher")
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	paymentRepo := postgres.NewPaymentRepository(db)
	userRepo := postgres.NewUserRepository(db)
	logRepo := postgres.NewLogRepository(db)

	svc := payments.NewService(paymentRepo, processor, log, payments.Options{
		HostingURL:      cfg.Stripe.HostingURL,
		PriceIDs:        cfg.Stripe.PriceIDs,
		DefaultCurrency: cfg.Stripe.DefaultCurrency,
	}, notifiers...)

	authOpts := authapi.Options{
		Tokens:           authapi.TokenConfig{Secret: cfg.JWT.Secret, TTL: cfg.JWT.TTL},
		FrontendRedirect: cfg.Auth.FrontendRedirect,
		SecureCookies:    cfg.IsProduction(),
	}
	if cfg.Auth.GitHubEnabled() {
		authOpts.GitHub = authapi.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubRedirectURL)
	}
	if cfg.Auth.OIDCEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		provider, err := authapi.DiscoverOIDCProvider(ctx, cfg.Auth.OIDCIssuerURL, cfg.Auth.OIDCClientID, cfg.Auth.OIDCClientSecret, cfg.Auth.OIDCRedirectURL)
		cancel()
		if err != nil {
			log.WithError(err).Warn("OIDC sign-in disabled")
		} else {
			authOpts.OIDC = provider
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Auth: authapi.NewHandler(userRepo, authOpts, log),
		Billing: billing.NewHandler(svc, billing.PublicConfig{
			PublishableKey: cfg.Stripe.PublishableKey,
			PriceIDs:       cfg.Stripe.PriceIDs,
			HostingURL:     cfg.Stripe.HostingURL,
		}, log),
		Webhook:   stripewebhooks.NewHandler(svc, log),
		Users:     users.NewHandler(userRepo, svc, log),
		Logs:      logsapi.NewHandler(logRepo, log),
		PaymentWS: ws.NewHandler(hub, svc, cfg.CORSOrigin, log),
		JWTSecret: cfg.JWT.Secret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
