package odds

import (
	"encoding/json"
	"math"
	"time"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/game"
)

// RunResult is the outcome of one simulated battle, in real unit ids.
type RunResult struct {
	Winner          battle.State
	Attackers       []game.UnitID
	Defenders       []game.UnitID
	Rounds          int
	Retreated       bool
	AttackerTUVLost int
	DefenderTUVLost int
}

// AggregateResults collects the runs of one calculation.
type AggregateResults struct {
	runs           []RunResult
	attackerWins   int
	defenderWins   int
	draws          int
	elapsed        time.Duration
	cancelled      bool
	shortCircuited bool
}

func (r *AggregateResults) add(run RunResult) {
	r.runs = append(r.runs, run)
	switch run.Winner {
	case battle.AttackerWin:
		r.attackerWins++
	case battle.DefenderWin:
		r.defenderWins++
	default:
		r.draws++
	}
}

func (r *AggregateResults) RunCount() int { return len(r.runs) }

func (r *AggregateResults) fraction(n int) float64 {
	if len(r.runs) == 0 {
		return 0
	}
	return float64(n) / float64(len(r.runs))
}

func (r *AggregateResults) AttackerWinFraction() float64 { return r.fraction(r.attackerWins) }

func (r *AggregateResults) DefenderWinFraction() float64 { return r.fraction(r.defenderWins) }

func (r *AggregateResults) DrawFraction() float64 { return r.fraction(r.draws) }

func (r *AggregateResults) mean(f func(RunResult) float64) float64 {
	if len(r.runs) == 0 {
		return 0
	}
	sum := 0.0
	for _, run := range r.runs {
		sum += f(run)
	}
	return sum / float64(len(r.runs))
}

func (r *AggregateResults) AverageAttackersRemaining() float64 {
	return r.mean(func(run RunResult) float64 { return float64(len(run.Attackers)) })
}

func (r *AggregateResults) AverageDefendersRemaining() float64 {
	return r.mean(func(run RunResult) float64 { return float64(len(run.Defenders)) })
}

func (r *AggregateResults) AverageRounds() float64 {
	return r.mean(func(run RunResult) float64 { return float64(run.Rounds) })
}

func (r *AggregateResults) RetreatFraction() float64 {
	return r.mean(func(run RunResult) float64 {
		if run.Retreated {
			return 1
		}
		return 0
	})
}

func (r *AggregateResults) AverageAttackerTUVLost() float64 {
	return r.mean(func(run RunResult) float64 { return float64(run.AttackerTUVLost) })
}

func (r *AggregateResults) AverageDefenderTUVLost() float64 {
	return r.mean(func(run RunResult) float64 { return float64(run.DefenderTUVLost) })
}

// RepresentativeAttackers returns the surviving attackers of the run whose
// survivor count is closest to the average.
func (r *AggregateResults) RepresentativeAttackers() []game.UnitID {
	avg := r.AverageAttackersRemaining()
	return r.closest(avg, func(run RunResult) []game.UnitID { return run.Attackers })
}

func (r *AggregateResults) RepresentativeDefenders() []game.UnitID {
	avg := r.AverageDefendersRemaining()
	return r.closest(avg, func(run RunResult) []game.UnitID { return run.Defenders })
}

func (r *AggregateResults) closest(avg float64, side func(RunResult) []game.UnitID) []game.UnitID {
	var best []game.UnitID
	bestDist := math.Inf(1)
	for _, run := range r.runs {
		units := side(run)
		if d := math.Abs(float64(len(units)) - avg); d < bestDist {
			best, bestDist = units, d
		}
	}
	return best
}

func (r *AggregateResults) Runs() []RunResult { return r.runs }

func (r *AggregateResults) Elapsed() time.Duration { return r.elapsed }

// Cancelled reports whether the calculation stopped before its run count.
func (r *AggregateResults) Cancelled() bool { return r.cancelled }

// ShortCircuited reports whether the result was synthesized without
// simulating, because one side was empty or overwhelming.
func (r *AggregateResults) ShortCircuited() bool { return r.shortCircuited }

type Summary struct {
	Runs                    int           `json:"runs"`
	AttackerWin             float64       `json:"attacker_win"`
	DefenderWin             float64       `json:"defender_win"`
	Draw                    float64       `json:"draw"`
	AvgAttackersLeft        float64       `json:"avg_attackers_left"`
	AvgDefendersLeft        float64       `json:"avg_defenders_left"`
	AvgRounds               float64       `json:"avg_rounds"`
	RetreatRate             float64       `json:"retreat_rate"`
	AvgAttackerTUVLost      float64       `json:"avg_attacker_tuv_lost"`
	AvgDefenderTUVLost      float64       `json:"avg_defender_tuv_lost"`
	RepresentativeAttackers []game.UnitID `json:"representative_attackers"`
	RepresentativeDefenders []game.UnitID `json:"representative_defenders"`
	ElapsedMS               int64         `json:"elapsed_ms"`
	Cancelled               bool          `json:"cancelled,omitempty"`
	ShortCircuited          bool          `json:"short_circuited,omitempty"`
}

func (r *AggregateResults) Summary() Summary {
	return Summary{
		Runs:                    r.RunCount(),
		AttackerWin:             r.AttackerWinFraction(),
		DefenderWin:             r.DefenderWinFraction(),
		Draw:                    r.DrawFraction(),
		AvgAttackersLeft:        r.AverageAttackersRemaining(),
		AvgDefendersLeft:        r.AverageDefendersRemaining(),
		AvgRounds:               r.AverageRounds(),
		RetreatRate:             r.RetreatFraction(),
		AvgAttackerTUVLost:      r.AverageAttackerTUVLost(),
		AvgDefenderTUVLost:      r.AverageDefenderTUVLost(),
		RepresentativeAttackers: r.RepresentativeAttackers(),
		RepresentativeDefenders: r.RepresentativeDefenders(),
		ElapsedMS:               r.elapsed.Milliseconds(),
		Cancelled:               r.cancelled,
		ShortCircuited:          r.shortCircuited,
	}
}

func MarshalPretty(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}
