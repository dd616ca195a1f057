package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadp "meref-loan-engine/internal/adapter/http"
	idemp "meref-loan-engine/internal/adapter/middleware"
	"meref-loan-engine/internal/adapter/notify"
	"meref-loan-engine/internal/adapter/repository/mysql"
	"meref-loan-engine/internal/config"
	"meref-loan-engine/internal/infrastructure/cache"
	"meref-loan-engine/internal/infrastructure/db"
	"meref-loan-engine/internal/infrastructure/logger"
	"meref-loan-engine/internal/infrastructure/metrics"
	"meref-loan-engine/internal/usecase"
	activityuc "meref-loan-engine/internal/usecase/activity"
	"meref-loan-engine/internal/usecase/disbursement"
	"meref-loan-engine/internal/usecase/ledger"
	loanuc "meref-loan-engine/internal/usecase/loan"
	paymentuc "meref-loan-engine/internal/usecase/payment"
	planuc "meref-loan-engine/internal/usecase/plan"
	subsidyuc "meref-loan-engine/internal/usecase/subsidy"
)

// systemActor performs scheduled work such as the default sweep.
const systemActor = "00000000000000000000000000000000"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.DefaultPool)
	if err != nil {
		return err
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		return err
	}
	rdb, err := cache.OpenRedis(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	m := metrics.New()
	events := notify.NewAsync(notify.NewStreamSender(rdb, cfg.NotifyStream, 0), notify.AsyncOptions{
		Buffer:  cfg.NotifyBuffer,
		Retries: cfg.NotifyRetries,
		Metrics: m,
		Log:     log.Named("notify"),
	})

	tx := mysql.NewGormUoW(gdb)
	repos := tx.Repos()
	deps := usecase.Deps{Policy: cfg.Policy, Events: events, Metrics: m, Log: log}

	loans := loanuc.NewUsecase(repos.Loans, tx, deps)
	handlers := httpadp.Handlers{
		Health: httpadp.NewHandler(
			httpadp.Check{Name: "mysql", Fn: func(ctx context.Context) error {
				sqlDB, err := gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			httpadp.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		),
		Plans: httpadp.NewPlanHandler(planuc.NewUsecase(repos.Plans, tx, deps)),
		Loans: httpadp.NewLoanHandler(
			loans,
			disbursement.NewUsecase(tx, deps),
			paymentuc.NewUsecase(repos.Payments, repos.Loans, tx, deps),
		),
		Subsidies: httpadp.NewSubsidyHandler(
			subsidyuc.NewUsecase(repos.Requests, tx, deps),
			ledger.NewUsecase(repos.Allocations, tx, deps),
		),
		Activities: httpadp.NewActivityHandler(activityuc.NewUsecase(repos.Activities)),
		Metrics:    m.Handler(),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.RequestID(), middleware.Logger(), middleware.Recover())
	httpadp.Register(e, handlers, idemp.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.SweepIntervalMins > 0 {
		g.Go(func() error {
			sweep(gctx, loans, time.Duration(cfg.SweepIntervalMins)*time.Minute, log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		return events.Close(shutdownCtx)
	})
	return g.Wait()
}

func sweep(ctx context.Context, loans *loanuc.Usecase, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ids, err := loans.SweepDefaults(ctx, systemActor)
			if err != nil {
				log.Error("default sweep", zap.Error(err), zap.Int("defaulted", len(ids)))
				continue
			}
			if len(ids) > 0 {
				log.Info("default sweep", zap.Strings("loan_ids", ids))
			}
		}
	}
}
