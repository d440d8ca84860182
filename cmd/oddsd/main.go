package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/game"
	"github.com/triplea-game/triplea-sub029/internal/logging"
	"github.com/triplea-game/triplea-sub029/internal/odds"
	"github.com/triplea-game/triplea-sub029/internal/server"
	"github.com/triplea-game/triplea-sub029/internal/telemetry"
)

func main() {
	cfg, err := config.ParseServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "oddsd", cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	cc, sc, err := config.LoadAll(cfg.ConfigDir)
	if err != nil {
		log.Fatal("load config", zap.String("dir", cfg.ConfigDir), zap.Error(err))
	}
	st, err := game.FromConfig(cc, sc)
	if err != nil {
		log.Fatal("build state", zap.Error(err))
	}

	calc := odds.NewCalculator(st, cfg.Settings, odds.WithLogger(log))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(st, calc, log, cfg.ProgressEvery).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		calc.Cancel()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("oddsd listening", zap.String("addr", cfg.Addr), zap.Int("units", len(st.Units())))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}
