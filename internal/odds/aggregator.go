package odds

import (
	"context"
	"fmt"
	"time"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/sim"
)

// Progress is reported after every run.
type Progress struct {
	Done        int     `json:"done"`
	Total       int     `json:"total"`
	AttackerWin float64 `json:"attacker_win"`
	DefenderWin float64 `json:"defender_win"`
	Draw        float64 `json:"draw"`
	ElapsedMS   int64   `json:"elapsed_ms"`
}

// Aggregator fights the scenario staged in a context over and over,
// restoring the context between runs.
type Aggregator struct {
	Context *sim.Context
	Options battle.Options
	// Stopped is polled between runs; true ends the loop early.
	Stopped func() bool
	OnRun   func(Progress)
}

// Run performs up to runs battles. Cancellation through ctx or Stopped
// returns the runs completed so far. A context that does not match its
// staged baseline, before the first run or after any revert, aborts with an
// error and no results.
func (a *Aggregator) Run(ctx context.Context, runs int) (*AggregateResults, error) {
	sc, err := a.Context.Staged()
	if err != nil {
		return nil, err
	}
	if err := a.Context.Verify(); err != nil {
		return nil, fmt.Errorf("before first run: %w", err)
	}
	cost := func(hs []sim.Handle) int {
		total := 0
		for _, h := range hs {
			total += a.Context.Type(h).Cost
		}
		return total
	}
	attackerTUV, defenderTUV := cost(sc.Attackers), cost(sc.Defenders)

	res := &AggregateResults{}
	start := time.Now()
	defer func() { res.elapsed = time.Since(start) }()
	for i := 0; i < runs; i++ {
		if ctx.Err() != nil || (a.Stopped != nil && a.Stopped()) {
			res.cancelled = true
			break
		}
		b, err := battle.New(a.Context, a.Options)
		if err != nil {
			return nil, err
		}
		out, err := b.Fight()
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		res.add(RunResult{
			Winner:          out.Winner,
			Attackers:       a.Context.Origins(out.Attackers),
			Defenders:       a.Context.Origins(out.Defenders),
			Rounds:          out.Rounds,
			Retreated:       out.Retreated,
			AttackerTUVLost: attackerTUV - cost(out.Attackers),
			DefenderTUVLost: defenderTUV - cost(out.Defenders),
		})
		if err := a.Context.Revert(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		if err := a.Context.Verify(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		if a.OnRun != nil {
			a.OnRun(Progress{
				Done:        i + 1,
				Total:       runs,
				AttackerWin: res.AttackerWinFraction(),
				DefenderWin: res.DefenderWinFraction(),
				Draw:        res.DrawFraction(),
				ElapsedMS:   time.Since(start).Milliseconds(),
			})
		}
	}
	return res, nil
}
