package odds

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/game"
)

func TestEmptyResults(t *testing.T) {
	var r AggregateResults
	if r.RunCount() != 0 || r.AttackerWinFraction() != 0 || r.DrawFraction() != 0 || r.AverageRounds() != 0 {
		t.Fatalf("empty results = %+v", r.Summary())
	}
	if r.RepresentativeAttackers() != nil {
		t.Fatalf("representative of nothing should be nil")
	}
}

func TestRepresentativeIsClosestToAverage(t *testing.T) {
	ids := func(n int) []game.UnitID {
		out := make([]game.UnitID, n)
		for i := range out {
			out[i] = uuid.New()
		}
		return out
	}
	var r AggregateResults
	r.add(RunResult{Winner: battle.AttackerWin, Attackers: ids(4)})
	r.add(RunResult{Winner: battle.AttackerWin, Attackers: ids(2)})
	r.add(RunResult{Winner: battle.DefenderWin, Defenders: ids(1), Retreated: true})
	if got := r.AverageAttackersRemaining(); got != 2 {
		t.Fatalf("AverageAttackersRemaining = %v, want 2", got)
	}
	if got := len(r.RepresentativeAttackers()); got != 2 {
		t.Fatalf("representative has %d attackers, want 2", got)
	}
	if got := r.RetreatFraction(); got < 0.33 || got > 0.34 {
		t.Fatalf("RetreatFraction = %v", got)
	}

	var s Summary
	if err := json.Unmarshal(MarshalPretty(r.Summary()), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Runs != 3 || s.DefenderWin < 0.33 {
		t.Fatalf("summary = %+v", s)
	}
}
