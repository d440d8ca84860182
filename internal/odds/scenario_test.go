package odds

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/game"
)

func TestShippedScenario(t *testing.T) {
	cc, sc, err := config.LoadAll("../../assets")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	st, err := game.FromConfig(cc, sc)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	req := RequestFor(st, sc.Battle)
	if len(req.Attackers) != 12 || len(req.Defenders) != 10 || len(req.Bombarders) != 2 {
		t.Fatalf("request sides = %d / %d / %d, want 12 / 10 / 2",
			len(req.Attackers), len(req.Defenders), len(req.Bombarders))
	}
	req.RunCount = 100
	s := config.DefaultSettings()
	s.Seed = 11
	res, err := NewCalculator(st, s, WithLogger(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))).Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if res.RunCount() == 0 {
		t.Fatalf("no runs")
	}
}
