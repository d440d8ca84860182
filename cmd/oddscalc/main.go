package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/game"
	"github.com/triplea-game/triplea-sub029/internal/logging"
	"github.com/triplea-game/triplea-sub029/internal/odds"
)

func main() {
	var cfgDir, out, level string
	var seed int64
	var n int
	var saveLog bool
	flag.StringVar(&cfgDir, "config", "assets", "config dir")
	flag.StringVar(&out, "out", "out.json", "output file")
	flag.Int64Var(&seed, "seed", 12345, "seed")
	flag.IntVar(&n, "n", 0, "number of runs (0 uses the scenario, then ODDS_RUN_COUNT)")
	flag.BoolVar(&saveLog, "log", true, "save the round event log when n==1")
	flag.StringVar(&level, "level", "info", "log level")
	flag.Parse()

	log, err := logging.New(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	settings, err := config.ParseSettings()
	if err != nil {
		log.Fatal("settings", zap.Error(err))
	}
	settings.Seed = seed

	cc, sc, err := config.LoadAll(cfgDir)
	if err != nil {
		log.Fatal("load config", zap.String("dir", cfgDir), zap.Error(err))
	}
	st, err := game.FromConfig(cc, sc)
	if err != nil {
		log.Fatal("build state", zap.Error(err))
	}

	req := odds.RequestFor(st, sc.Battle)
	if n > 0 {
		req.RunCount = n
	}
	var events []battle.Event
	if req.RunCount == 1 && saveLog {
		req.OnEvent = func(ev battle.Event) { events = append(events, ev) }
	}

	calc := odds.NewCalculator(st, settings, odds.WithLogger(log))
	res, err := calc.Calculate(context.Background(), req)
	if err != nil {
		log.Fatal("calculate", zap.Error(err))
	}

	report := struct {
		Location string `json:"location"`
		odds.Summary
		Events []battle.Event `json:"events,omitempty"`
	}{Location: req.Location, Summary: res.Summary(), Events: events}
	if err := os.WriteFile(out, odds.MarshalPretty(report), 0644); err != nil {
		log.Fatal("write report", zap.String("out", out), zap.Error(err))
	}
	fmt.Printf("%s: %d runs, attacker %.1f%% defender %.1f%% draw %.1f%% -> %s\n",
		req.Location, res.RunCount(),
		100*res.AttackerWinFraction(), 100*res.DefenderWinFraction(), 100*res.DrawFraction(),
		filepath.Base(out))
}
