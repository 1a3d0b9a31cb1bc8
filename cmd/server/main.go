package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/subflowhq/gateway/api"
	"github.com/subflowhq/gateway/pkg/billing"
	"github.com/subflowhq/gateway/pkg/captcha"
	"github.com/subflowhq/gateway/pkg/config"
	"github.com/subflowhq/gateway/pkg/httpserver"
	"github.com/subflowhq/gateway/pkg/logger"
	"github.com/subflowhq/gateway/pkg/redis"
	"github.com/subflowhq/gateway/pkg/userstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithExtractors(api.RequestLogContext()...))
	logger.SetAsDefault(log)

	var (
		mongoCfg   userstore.Config
		redisCfg   redis.Config
		captchaCfg captcha.Config
		billingCfg billing.Config
		serverCfg  httpserver.Config
	)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&captchaCfg)
	config.MustLoad(&billingCfg)
	config.MustLoad(&serverCfg)

	mongoClient, err := userstore.Connect(ctx, mongoCfg)
	if err != nil {
		log.ErrorContext(ctx, "user record database connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.ErrorContext(ctx, "redis connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	store := userstore.NewMongoStore(mongoClient, mongoCfg)

	verifier, err := captcha.NewVerifier(captchaCfg, nil, log)
	if err != nil {
		log.ErrorContext(ctx, "captcha verifier initialization failed", logger.Error(err))
		os.Exit(1)
	}

	provider, err := billing.NewStripeProvider(billingCfg)
	if err != nil {
		log.ErrorContext(ctx, "billing provider initialization failed", logger.Error(err))
		os.Exit(1)
	}

	broker := billing.NewBroker(billingCfg, provider, store, log)
	deduper := billing.NewRedisDeduper(redisClient, billingCfg.DedupeTTL)
	reconciler := billing.NewReconciler(provider, store, deduper, log)

	router := api.NewRouter(api.RouterOptions{
		Captcha: verifier,
		Broker:  broker,
		Events:  reconciler,
		Log:     log,
		ReadinessChecks: []func(context.Context) error{
			userstore.Healthcheck(mongoClient),
			redis.Healthcheck(redisClient),
		},
	})

	server := httpserver.NewFromConfig(serverCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server listening", slog.String("addr", serverCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)
	if err := server.Run(ctx, router); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}
