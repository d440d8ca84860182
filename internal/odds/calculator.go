// Package odds estimates battle outcomes by fighting a battle many times in
// an isolated copy of the game state.
package odds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/casualty"
	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/dice"
	"github.com/triplea-game/triplea-sub029/internal/game"
	"github.com/triplea-game/triplea-sub029/internal/sim"
)

const tracerName = "github.com/triplea-game/triplea-sub029/internal/odds"

type Request struct {
	Attackers  []game.UnitID `json:"attackers"`
	Defenders  []game.UnitID `json:"defenders"`
	Bombarders []game.UnitID `json:"bombarders,omitempty"`
	Location   string        `json:"location"`
	// RunCount overrides the configured run count when positive.
	RunCount        int  `json:"run_count,omitempty"`
	KeepOneLandUnit bool `json:"keep_one_land_unit,omitempty"`
	// TimeConstrained scales the run count down for interactive callers.
	TimeConstrained bool                `json:"time_constrained,omitempty"`
	AttackerOrder   string              `json:"attacker_order,omitempty"`
	DefenderOrder   string              `json:"defender_order,omitempty"`
	Retreat         battle.RetreatRules `json:"retreat"`
	RetreatExpr     string              `json:"retreat_expr,omitempty"`

	OnRun   func(Progress)     `json:"-"`
	OnEvent func(battle.Event) `json:"-"`
}

type Calculator struct {
	reader   game.Reader
	settings config.Settings
	log      *zap.Logger
	tracer   trace.Tracer
	dice     func(job int64) dice.Source

	jobs  atomic.Int64
	epoch atomic.Int64
}

type Option func(*Calculator)

func WithLogger(l *zap.Logger) Option { return func(c *Calculator) { c.log = l } }

func WithTracer(t trace.Tracer) Option { return func(c *Calculator) { c.tracer = t } }

// WithDice replaces the dice source factory. Each calculation calls it once
// with a distinct job number.
func WithDice(f func(job int64) dice.Source) Option { return func(c *Calculator) { c.dice = f } }

func NewCalculator(r game.Reader, s config.Settings, opts ...Option) *Calculator {
	c := &Calculator{reader: r, settings: s}
	c.dice = func(job int64) dice.Source {
		if s.Seed == 0 {
			return dice.New(time.Now().UnixNano() + job*7919)
		}
		return dice.New(s.Seed + job*7919)
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Cancel stops every calculation running at the time of the call. They
// return the runs completed so far. Calculations started afterwards are
// unaffected.
func (c *Calculator) Cancel() { c.epoch.Add(1) }

// Calculate estimates the outcome of req against a fresh snapshot of the
// game state. The game state is only read.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*AggregateResults, error) {
	return c.calculate(ctx, req, func() (*sim.Context, error) { return sim.Snapshot(c.reader) })
}

// CalculateMany runs independent calculations in parallel over one snapshot.
// Results are in request order. The first error cancels the rest.
func (c *Calculator) CalculateMany(ctx context.Context, reqs []Request) ([]*AggregateResults, error) {
	base, err := sim.Snapshot(c.reader)
	if err != nil {
		return nil, err
	}
	out := make([]*AggregateResults, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if w := c.settings.Workers; w > 0 {
		g.SetLimit(w)
	}
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.calculate(gctx, req, base.Clone)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Calculator) calculate(ctx context.Context, req Request, snapshot func() (*sim.Context, error)) (res *AggregateResults, err error) {
	epoch := c.epoch.Load()
	job := c.jobs.Add(1)
	ctx, span := c.tracer.Start(ctx, "odds.Calculate", trace.WithAttributes(
		attribute.String("odds.location", req.Location),
		attribute.Int("odds.attackers", len(req.Attackers)),
		attribute.Int("odds.defenders", len(req.Defenders)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("odds.runs", res.RunCount()),
				attribute.Float64("odds.attacker_win", res.AttackerWinFraction()),
				attribute.Bool("odds.cancelled", res.Cancelled()),
			)
		}
		span.End()
	}()

	if _, ok := c.reader.Territory(req.Location); !ok {
		return nil, fmt.Errorf("%q: %w", req.Location, sim.ErrUnknownLocation)
	}
	attackers, defenders := c.known(req.Attackers), c.known(req.Defenders)
	if len(attackers) == 0 || len(defenders) == 0 {
		return degenerate(attackers, defenders), nil
	}

	opts, err := c.battleOptions(req)
	if err != nil {
		return nil, err
	}
	opts.Dice = c.dice(job)

	attScore, defScore := c.attackScore(attackers), c.defenseScore(defenders)
	ratio := math.Max(attScore, defScore) / math.Min(attScore, defScore)
	// the scores leave AA fire out
	if opts.AAFire && c.aaCanFire(attackers, defenders) {
		ratio = 1
	}
	if r := c.settings.ShortCircuitRatio; r > 0 && ratio >= r && !req.Retreat.Enabled() && req.RetreatExpr == "" {
		c.log.Debug("short-circuit", zap.String("location", req.Location), zap.Float64("ratio", ratio))
		if attScore > defScore {
			return synthesized(battle.AttackerWin, attackers, nil), nil
		}
		return synthesized(battle.DefenderWin, nil, defenders), nil
	}
	runs := c.runCount(req, ratio)

	sc, err := snapshot()
	if err != nil {
		return nil, err
	}
	if err := sc.StageScenario(req.Location, sc.Translate(attackers), sc.Translate(defenders), sc.Translate(req.Bombarders)); err != nil {
		return nil, err
	}
	agg := &Aggregator{
		Context: sc,
		Options: opts,
		Stopped: func() bool { return c.epoch.Load() != epoch },
		OnRun:   req.OnRun,
	}
	res, err = agg.Run(ctx, runs)
	if err != nil {
		if errors.Is(err, sim.ErrRevertMismatch) {
			c.log.Error("simulation context corrupted", zap.String("location", req.Location), zap.Error(err))
		}
		return nil, err
	}
	c.log.Info("odds calculated",
		zap.String("location", req.Location),
		zap.Int("runs", res.RunCount()),
		zap.Int("planned", runs),
		zap.Float64("attacker_win", res.AttackerWinFraction()),
		zap.Duration("elapsed", res.Elapsed()),
		zap.Bool("cancelled", res.Cancelled()),
	)
	return res, nil
}

func (c *Calculator) battleOptions(req Request) (battle.Options, error) {
	known := func(name string) bool { _, ok := c.reader.UnitType(name); return ok }
	attOrder, err := casualty.ParseOrderOfLosses(req.AttackerOrder, known)
	if err != nil {
		return battle.Options{}, fmt.Errorf("attacker order: %w", err)
	}
	defOrder, err := casualty.ParseOrderOfLosses(req.DefenderOrder, known)
	if err != nil {
		return battle.Options{}, fmt.Errorf("defender order: %w", err)
	}
	opts := battle.Options{
		AttackerPolicy: casualty.DefaultPolicy{KeepOneLandUnit: req.KeepOneLandUnit},
		DefenderPolicy: casualty.DefaultPolicy{},
		MaxRounds:      c.settings.MaxRounds,
		AAFire:         c.settings.AAFire,
		AAStrength:     c.settings.AAStrength,
		Logger:         c.log,
		Emit:           req.OnEvent,
	}
	if len(attOrder) > 0 {
		opts.AttackerOrder = attOrder
	}
	if len(defOrder) > 0 {
		opts.DefenderOrder = defOrder
	}
	var retreat battle.AnyRetreat
	if req.Retreat.Enabled() {
		retreat = append(retreat, req.Retreat)
	}
	if req.RetreatExpr != "" {
		r, err := battle.NewExprRetreat(req.RetreatExpr)
		if err != nil {
			return battle.Options{}, err
		}
		retreat = append(retreat, r)
	}
	if len(retreat) > 0 {
		opts.Retreat = retreat
	}
	return opts, nil
}

// runCount applies the time budget and the lopsided-matchup reduction.
func (c *Calculator) runCount(req Request, ratio float64) int {
	n := c.settings.RunCount
	if req.RunCount > 0 {
		n = req.RunCount
	}
	if req.TimeConstrained {
		n = max(1, int(float64(n)*c.settings.TimeBudgetPercent/100))
	}
	if r := c.settings.ReductionRatio; r > 0 && ratio > r {
		n = max(1, int(float64(n)/(ratio*c.settings.ReductionDivisor)))
	}
	return n
}

func (c *Calculator) known(ids []game.UnitID) []game.UnitID {
	out := make([]game.UnitID, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.reader.Unit(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// attackScore is a cheap strength estimate used to skip or shorten
// simulation of lopsided battles.
func (c *Calculator) attackScore(ids []game.UnitID) float64 {
	score := 0.0
	for _, id := range ids {
		t, ok := c.unitType(id)
		if !ok || t.IsInfrastructure() {
			continue
		}
		s := float64(1 + t.Attack)
		if t.IsTwoHit() {
			s *= 2
		}
		score += s * float64(t.AttackRolls)
	}
	return score
}

func (c *Calculator) defenseScore(ids []game.UnitID) float64 {
	score := 0.0
	for _, id := range ids {
		t, ok := c.unitType(id)
		if !ok || t.AA {
			continue
		}
		s := float64(1 + t.Defense)
		if t.IsTwoHit() {
			s *= 2
		}
		score += s
	}
	return score
}

// aaCanFire reports whether defending AA has attacking air to shoot at.
func (c *Calculator) aaCanFire(attackers, defenders []game.UnitID) bool {
	aa := slices.ContainsFunc(defenders, func(id game.UnitID) bool {
		t, ok := c.unitType(id)
		return ok && t.AA
	})
	return aa && slices.ContainsFunc(attackers, func(id game.UnitID) bool {
		t, ok := c.unitType(id)
		return ok && t.Air
	})
}

func (c *Calculator) unitType(id game.UnitID) (game.UnitType, bool) {
	u, ok := c.reader.Unit(id)
	if !ok {
		return game.UnitType{}, false
	}
	return c.reader.UnitType(u.Type)
}

// degenerate resolves a battle with an empty side without simulating.
func degenerate(attackers, defenders []game.UnitID) *AggregateResults {
	switch {
	case len(attackers) == 0 && len(defenders) == 0:
		return synthesized(battle.Draw, nil, nil)
	case len(attackers) == 0:
		return synthesized(battle.DefenderWin, nil, defenders)
	default:
		return synthesized(battle.AttackerWin, attackers, nil)
	}
}

func synthesized(winner battle.State, attackers, defenders []game.UnitID) *AggregateResults {
	res := &AggregateResults{shortCircuited: true}
	res.add(RunResult{Winner: winner, Attackers: attackers, Defenders: defenders})
	return res
}
