package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tubehub/tubehub-api/internal/auth"
	"github.com/tubehub/tubehub-api/internal/config"
	"github.com/tubehub/tubehub-api/internal/database"
	"github.com/tubehub/tubehub-api/internal/handler"
	"github.com/tubehub/tubehub-api/internal/logging"
	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/metrics"
	"github.com/tubehub/tubehub-api/internal/middleware"
	"github.com/tubehub/tubehub-api/internal/queue"
	"github.com/tubehub/tubehub-api/internal/repository"
	"github.com/tubehub/tubehub-api/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable; using in-process rate limiting and no listing cache", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	store, err := media.NewS3Store(ctx, cfg.Media, logging.WithComponent(logger, "media"))
	if err != nil {
		return err
	}

	tokens, err := auth.NewIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RefreshTTL:    cfg.RefreshTokenExpiry,
		Issuer:        "tubehub",
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	publisher := queue.NewPublisher(cfg.RabbitURL, logging.WithComponent(logger, "events"))
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	accounts := repository.NewAccountRepo(db, hasher)
	videos := repository.NewVideoRepo(db)
	social := repository.NewSocialRepo(db)
	dashboard := repository.NewDashboardRepo(db)

	sessions := auth.NewService(auth.Deps{
		Accounts: accounts,
		Hasher:   hasher,
		Tokens:   tokens,
		Media:    store,
		Events:   publisher,
		Observer: m,
		Logger:   logger,
	})
	listCache := middleware.NewResponseCache(cfg.Cache, rdb, logging.WithComponent(logger, "cache"))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(m.Middleware())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))
	e.Use(echomw.BodyLimit(strconv.Itoa(cfg.MaxUploadMB) + "M"))

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(sessions, handler.CookieConfig{Secure: cfg.CookieSecure}, cfg.UploadTmpDir),
		Accounts:  handler.NewAccountHandler(accounts, store, cfg.UploadTmpDir, logger),
		Videos:    handler.NewVideoHandler(videos, accounts, store, publisher, listCache, cfg.UploadTmpDir, logger),
		Social:    handler.NewSocialHandler(social),
		Dashboard: handler.NewDashboardHandler(dashboard),

		Gate:         middleware.Authenticate(tokens, accounts),
		OptionalGate: middleware.OptionalAuthenticate(tokens, accounts),
		RateLimit:    middleware.RateLimit(cfg.RateLimit, rdb, logging.WithComponent(logger, "ratelimit")),
		ListCache:    listCache.Middleware(),
		Metrics:      echo.WrapHandler(m.Handler()),
	}
	router.RegisterRoutes(e, h)
	router.RegisterAPI(e, h)

	if cfg.ActivityConsumer && publisher.Enabled() {
		consumer := &queue.Consumer{
			URL:     cfg.RabbitURL,
			Queue:   queue.ActivityQueue,
			LogPath: cfg.ActivityLogPath,
			Logger:  logging.WithComponent(logger, "activity"),
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity consumer stopped", "err", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		srvErr <- e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
