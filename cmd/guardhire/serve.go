package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/guardhire/guardhire-api/internal/config"
	"github.com/guardhire/guardhire-api/internal/handler"
	"github.com/guardhire/guardhire-api/internal/middleware"
	"github.com/guardhire/guardhire-api/internal/payu"
	"github.com/guardhire/guardhire-api/internal/queue"
	"github.com/guardhire/guardhire-api/internal/repository"
	"github.com/guardhire/guardhire-api/internal/router"
	"github.com/guardhire/guardhire-api/internal/service"
	"github.com/guardhire/guardhire-api/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := seed(ctx, cfg, db); err != nil {
		return err
	}

	// Redis is optional; both middleware pass through without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: response cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}
	newsCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)

	publisher := queue.NewPublisher(cfg.RabbitURL, log)

	profiles := repository.NewProfileRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)
	notifications := repository.NewNotificationRepo(db)

	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, notifications, orders, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event consumer stopped")
			}
		}()
	}

	var gateway payu.Gateway
	if cfg.PayU.Enabled {
		tokens := payu.NewTokenCache(payu.NewClientCredentials(cfg.PayU), payu.DefaultTokenMargin)
		gateway = payu.NewClient(cfg.PayU, tokens)
	} else {
		log.Warn().Msg("payment gateway disabled")
	}
	paymentSvc := service.NewPaymentService(payments, publisher, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("25M"))

	router.Register(e, router.Handlers{
		DB:            db,
		Profiles:      handler.NewProfileHandler(cfg, profiles),
		Orders:        handler.NewOrderHandler(orders, profiles, publisher),
		Payments:      handler.NewPaymentHandler(cfg, payments, orders, gateway, paymentSvc, log),
		News:          handler.NewNewsHandler(repository.NewNewsRepo(db), newsCache, log),
		Notifications: handler.NewNotificationHandler(notifications, profiles),
		Comments:      handler.NewCommentHandler(repository.NewCommentRepo(db), orders),
		Reports:       handler.NewReportHandler(repository.NewReportRepo(db), orders, storage.NewDisk(cfg.UploadDir), log),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		UploadDir: cfg.UploadDir,
		RateLimit: limiter,
		NewsCache: newsCache.Middleware(),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
