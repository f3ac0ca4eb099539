package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkazakova/fabrika/internal/api"
	"github.com/mkazakova/fabrika/internal/config"
	"github.com/mkazakova/fabrika/internal/domain/finished"
	"github.com/mkazakova/fabrika/internal/domain/materials"
	"github.com/mkazakova/fabrika/internal/domain/recipes"
	"github.com/mkazakova/fabrika/internal/domain/stages"
	"github.com/mkazakova/fabrika/internal/domain/wip"
	"github.com/mkazakova/fabrika/internal/domain/workorders"
	"github.com/mkazakova/fabrika/internal/infra/db"
	httpx "github.com/mkazakova/fabrika/internal/infra/http"
	"github.com/mkazakova/fabrika/internal/infra/logger"
	"github.com/mkazakova/fabrika/internal/infra/notify"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	notifier, err := notify.New(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}

	handler := api.New(log, api.Deps{
		Orders:   workorders.NewRepo(pool),
		Mats:     materials.NewRepo(pool),
		Recipes:  recipes.NewRepo(pool),
		Stages:   stages.NewRepo(pool),
		WIP:      wip.NewRepo(pool),
		Finished: finished.NewRepo(pool),
		Notifier: notifier,
		APIKey:   cfg.Auth.APIKey,
	})

	srv := httpx.New(cfg.HTTP.Addr, handler.Routes(), cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
