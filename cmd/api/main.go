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

	"temandifa-backend/internal/aiproxy"
	"temandifa-backend/internal/auth"
	"temandifa-backend/internal/calls"
	"temandifa-backend/internal/config"
	"temandifa-backend/internal/contacts"
	"temandifa-backend/internal/events"
	"temandifa-backend/internal/gateway"
	"temandifa-backend/internal/httpapi"
	"temandifa-backend/internal/metrics"
	"temandifa-backend/internal/notify"
	"temandifa-backend/internal/presence"
	"temandifa-backend/internal/rtc"
	"temandifa-backend/internal/users"
	"temandifa-backend/pkg/logger"
	"temandifa-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	issuer, err := rtc.NewHMACIssuer(cfg.RTC)
	if err != nil {
		log.Error("rtc issuer init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	userService := users.NewService(users.NewPostgresRepo(db))
	contactService := contacts.NewService(contacts.NewPostgresRepo(db))

	bus := events.NewRedisBus(rdb, log)
	coordinator := calls.NewCoordinator(
		calls.NewRedisStore(rdb),
		calls.UsersDirectory{Users: userService},
		issuer,
		bus,
		notify.NewExpoNotifier(cfg.Push, log),
		log,
		calls.Options{
			RingingTTL: cfg.Call.RingingTTL,
			ActiveTTL:  cfg.Call.ActiveTTL,
			TokenTTL:   cfg.RTC.TokenTTL,
		},
	)

	registry := presence.NewRegistry()
	gw := gateway.New(authManager, registry, coordinator, bus, log)
	if err := gw.Start(rootCtx); err != nil {
		log.Error("event bus subscribe failed", "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	m.RegisterConnectionGauge(registry.Count)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())

	h := httpapi.Handlers{
		Auth:     authManager,
		Users:    userService,
		Contacts: contactService,
		Calls:    coordinator,
		AI:       aiproxy.NewService(cfg.AI, log),
		AIConfig: cfg.AI,
		Metrics:  m,
	}
	registerRoutes(r, h, gw, m, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
