// Package battle fights one battle inside a staged sim.Context.
package battle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/triplea-game/triplea-sub029/internal/casualty"
	"github.com/triplea-game/triplea-sub029/internal/dice"
	"github.com/triplea-game/triplea-sub029/internal/sim"
)

var (
	ErrNoDice        = errors.New("battle needs a dice source")
	ErrAlreadyFought = errors.New("battle already fought")
)

type State int

const (
	NotStarted State = iota
	RoundInProgress
	AttackerWin
	DefenderWin
	Draw
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case RoundInProgress:
		return "round_in_progress"
	case AttackerWin:
		return "attacker_win"
	case DefenderWin:
		return "defender_win"
	case Draw:
		return "draw"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool { return s >= AttackerWin }

// Result is the outcome of one battle. Attackers and Defenders hold the
// staged units still on the board at the end.
type Result struct {
	Winner    State
	Attackers []sim.Handle
	Defenders []sim.Handle
	Rounds    int
	Retreated bool
}

type Options struct {
	Dice           dice.Source
	AttackerPolicy casualty.Policy
	DefenderPolicy casualty.Policy
	AttackerOrder  casualty.Orderer
	DefenderOrder  casualty.Orderer
	Retreat        RetreatPolicy
	// MaxRounds ends the battle in a draw once reached. Zero means no cap.
	MaxRounds  int
	AAFire     bool
	AAStrength int
	Logger     *zap.Logger
	Emit       func(Event)
}

type Battle struct {
	ctx       *sim.Context
	opts      Options
	sc        sim.Scenario
	log       *zap.Logger
	state     State
	round     int
	retreated bool
	attackers []sim.Handle
	defenders []sim.Handle
}

// New prepares a battle over the scenario staged in c. Every change the
// battle makes goes through c and can be reverted.
func New(c *sim.Context, opts Options) (*Battle, error) {
	sc, err := c.Staged()
	if err != nil {
		return nil, err
	}
	if opts.Dice == nil {
		return nil, ErrNoDice
	}
	if opts.AttackerPolicy == nil {
		opts.AttackerPolicy = casualty.DefaultPolicy{}
	}
	if opts.DefenderPolicy == nil {
		opts.DefenderPolicy = casualty.DefaultPolicy{}
	}
	if opts.AAStrength <= 0 {
		opts.AAStrength = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Battle{ctx: c, opts: opts, sc: sc, log: log}, nil
}

func (b *Battle) State() State { return b.state }

func (b *Battle) Round() int { return b.round }

// Fight runs rounds until the battle ends.
func (b *Battle) Fight() (Result, error) {
	if b.state != NotStarted {
		return Result{}, ErrAlreadyFought
	}
	b.refresh()
	b.emit(EventStart, map[string]any{
		"location":  b.sc.Location,
		"attackers": len(b.attackers),
		"defenders": len(b.defenders),
	})

	// AA fires before round 1 even when the defender has nothing else.
	if b.opts.AAFire && len(b.aaTargets()) > 0 {
		if err := b.fireAA(); err != nil {
			return Result{}, fmt.Errorf("aa fire: %w", err)
		}
		if len(b.attackers) == 0 {
			b.state = DefenderWin
		}
	}
	for !b.state.Terminal() && !b.settle() {
		b.round++
		b.state = RoundInProgress
		if !b.canDamage() {
			b.state = Draw
			break
		}
		if err := b.fightRound(); err != nil {
			return Result{}, fmt.Errorf("round %d: %w", b.round, err)
		}
		if b.settle() {
			break
		}
		if b.opts.MaxRounds > 0 && b.round >= b.opts.MaxRounds {
			b.state = Draw
			break
		}
		if b.opts.Retreat != nil && b.opts.Retreat.ShouldRetreat(b.view()) {
			b.emit(EventRetreat, nil)
			b.state = DefenderWin
			b.retreated = true
			break
		}
	}

	res := Result{
		Winner:    b.state,
		Attackers: b.attackers,
		Defenders: b.defenders,
		Rounds:    b.round,
		Retreated: b.retreated,
	}
	b.emit(EventEnd, map[string]any{"winner": b.state.String(), "rounds": b.round, "retreated": b.retreated})
	return res, nil
}

// settle sets a terminal state when a side has nothing left to fight with.
func (b *Battle) settle() bool {
	att, def := b.eligible(b.attackers), b.eligible(b.defenders)
	switch {
	case len(att) == 0 && len(def) == 0:
		b.state = Draw
	case len(att) == 0:
		b.state = DefenderWin
	case len(def) == 0:
		b.state = AttackerWin
	default:
		return false
	}
	return true
}

func (b *Battle) fightRound() error {
	sides := b.ctx.DiceSides()
	att, def := b.eligible(b.attackers), b.eligible(b.defenders)

	attHits := 0
	if b.round == 1 && len(b.sc.Bombarders) > 0 {
		bombard := 0
		for _, h := range b.sc.Bombarders {
			if !b.ctx.Present(h) {
				continue
			}
			t := b.ctx.Type(h)
			bombard += dice.CountHits(b.opts.Dice, sides, t.Attack, t.AttackRolls)
		}
		b.emit(EventBombard, map[string]any{"hits": bombard})
		attHits += bombard
	}
	for _, h := range att {
		t := b.ctx.Type(h)
		attHits += dice.CountHits(b.opts.Dice, sides, t.Attack, t.AttackRolls)
	}
	defHits := 0
	for _, h := range def {
		defHits += dice.CountHits(b.opts.Dice, sides, b.ctx.Type(h).Defense, 1)
	}
	b.emit(EventFire, map[string]any{"attacker_hits": attHits, "defender_hits": defHits})
	if ce := b.log.Check(zap.DebugLevel, "round fired"); ce != nil {
		ce.Write(zap.Int("round", b.round), zap.Int("attacker_hits", attHits), zap.Int("defender_hits", defHits))
	}

	defCas := b.selectCasualties("defender", def, false, attHits, b.opts.DefenderPolicy, b.opts.DefenderOrder)
	attCas := b.selectCasualties("attacker", att, true, defHits, b.opts.AttackerPolicy, b.opts.AttackerOrder)
	if err := b.apply(defCas); err != nil {
		return err
	}
	if err := b.apply(attCas); err != nil {
		return err
	}
	b.refresh()
	return nil
}

// fireAA gives every attacking air unit one shot from defending AA.
func (b *Battle) fireAA() error {
	air := b.aaTargets()
	if len(air) == 0 {
		return nil
	}
	hits := dice.CountHits(b.opts.Dice, b.ctx.DiceSides(), b.opts.AAStrength, len(air))
	b.emit(EventAAFire, map[string]any{"shots": len(air), "hits": hits})
	d := b.selectCasualties("attacker", air, true, hits, b.opts.AttackerPolicy, b.opts.AttackerOrder)
	if err := b.apply(d); err != nil {
		return err
	}
	b.refresh()
	return nil
}

// aaTargets lists the attacking air units defending AA can shoot at.
func (b *Battle) aaTargets() []sim.Handle {
	hasAA := false
	for _, h := range b.defenders {
		if b.ctx.Type(h).AA {
			hasAA = true
			break
		}
	}
	if !hasAA {
		return nil
	}
	var air []sim.Handle
	for _, h := range b.eligible(b.attackers) {
		if b.ctx.Type(h).Air {
			air = append(air, h)
		}
	}
	return air
}

func (b *Battle) selectCasualties(side string, units []sim.Handle, attacking bool, hits int, p casualty.Policy, o casualty.Orderer) casualty.Details {
	if hits == 0 || len(units) == 0 {
		return casualty.Details{}
	}
	cands := b.candidates(units, attacking)
	req := casualty.Request{Hits: hits, Candidates: cands, Default: casualty.DefaultList(cands, hits, o)}
	d, err := p.SelectCasualties(req)
	if err == nil {
		err = casualty.Validate(req, d)
	}
	if err != nil {
		b.log.Debug("casualty selection rejected, using default",
			zap.String("side", side), zap.Int("round", b.round), zap.Error(err))
		b.emit(EventFallback, map[string]any{"side": side, "error": err.Error()})
		d = casualty.FromDefault(req)
	}
	b.emit(EventCasualties, map[string]any{"side": side, "damaged": len(d.Damaged), "destroyed": len(d.Destroyed)})
	return d
}

func (b *Battle) apply(d casualty.Details) error {
	for _, h := range d.Damaged {
		if err := b.ctx.AddHits(h, 1); err != nil {
			return fmt.Errorf("damage: %w", err)
		}
	}
	if err := b.ctx.RemoveUnits(d.Destroyed); err != nil {
		return fmt.Errorf("remove casualties: %w", err)
	}
	return nil
}

func (b *Battle) candidates(units []sim.Handle, attacking bool) []casualty.Candidate {
	out := make([]casualty.Candidate, 0, len(units))
	for _, h := range units {
		t := b.ctx.Type(h)
		c := casualty.Candidate{
			Unit:     h,
			Type:     t.Name,
			Cost:     t.Cost,
			Strength: t.Defense,
			Rolls:    1,
			HitsLeft: b.ctx.HitsLeft(h),
			Land:     t.IsLand(),
			Air:      t.Air,
		}
		if attacking {
			c.Strength, c.Rolls = t.Attack, t.AttackRolls
		}
		out = append(out, c)
	}
	return out
}

// eligible filters units able to fight at the location: infrastructure never
// fights, land units sit out sea battles and sea units land battles.
func (b *Battle) eligible(units []sim.Handle) []sim.Handle {
	out := make([]sim.Handle, 0, len(units))
	for _, h := range units {
		t := b.ctx.Type(h)
		if t.IsInfrastructure() {
			continue
		}
		if b.sc.Water && t.IsLand() || !b.sc.Water && t.Sea {
			continue
		}
		out = append(out, h)
	}
	return out
}

// canDamage reports whether any shot this round could hit.
func (b *Battle) canDamage() bool {
	if b.round == 1 {
		for _, h := range b.sc.Bombarders {
			if t := b.ctx.Type(h); b.ctx.Present(h) && t.Attack > 0 {
				return true
			}
		}
	}
	for _, h := range b.eligible(b.attackers) {
		if t := b.ctx.Type(h); t.Attack > 0 && t.AttackRolls > 0 {
			return true
		}
	}
	for _, h := range b.eligible(b.defenders) {
		if b.ctx.Type(h).Defense > 0 {
			return true
		}
	}
	return false
}

func (b *Battle) view() RoundView {
	v := RoundView{Round: b.round}
	att := b.eligible(b.attackers)
	v.AttackersLeft = len(att)
	for _, h := range att {
		t := b.ctx.Type(h)
		v.AttackerHP += b.ctx.HitsLeft(h)
		v.AttackerPower += t.Attack * t.AttackRolls
		if t.Air {
			v.AttackerAir++
		}
	}
	def := b.eligible(b.defenders)
	v.DefendersLeft = len(def)
	for _, h := range def {
		v.DefenderHP += b.ctx.HitsLeft(h)
		v.DefenderPower += b.ctx.Type(h).Defense
	}
	return v
}

func (b *Battle) refresh() {
	b.attackers = present(b.ctx, b.sc.Attackers)
	b.defenders = present(b.ctx, b.sc.Defenders)
}

func present(c *sim.Context, hs []sim.Handle) []sim.Handle {
	out := make([]sim.Handle, 0, len(hs))
	for _, h := range hs {
		if c.Present(h) {
			out = append(out, h)
		}
	}
	return out
}

func (b *Battle) emit(typ string, payload map[string]any) {
	if b.opts.Emit == nil {
		return
	}
	b.opts.Emit(Event{Round: b.round, Type: typ, Payload: payload})
}
