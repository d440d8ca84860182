package battle

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrInvalidRetreat = errors.New("invalid retreat expression")

// RoundView is what a retreat decision sees after each round. Field names
// double as identifiers in retreat expressions.
type RoundView struct {
	Round         int
	AttackersLeft int
	DefendersLeft int
	AttackerHP    int
	DefenderHP    int
	AttackerPower int
	DefenderPower int
	AttackerAir   int
}

// AttackerMetaPower weighs firepower by staying power.
func (v RoundView) AttackerMetaPower() int { return v.AttackerPower * v.AttackerHP }

func (v RoundView) DefenderMetaPower() int { return v.DefenderPower * v.DefenderHP }

func (v RoundView) AttackerOnlyAir() bool {
	return v.AttackersLeft > 0 && v.AttackerAir == v.AttackersLeft
}

// RetreatPolicy decides whether the attacker withdraws after a round.
type RetreatPolicy interface {
	ShouldRetreat(v RoundView) bool
}

// RetreatRules are the fixed retreat conditions. Zero values are disabled.
// With WhenOnlyAirLeft set, AfterUnitsLeft also counts non-air units only:
// the attacker retreats once air plus AfterUnitsLeft covers what is left.
type RetreatRules struct {
	AfterRound      int  `json:"after_round,omitempty"`
	AfterUnitsLeft  int  `json:"after_units_left,omitempty"`
	WhenOnlyAirLeft bool `json:"when_only_air_left,omitempty"`
	WhenPowerLower  bool `json:"when_power_lower,omitempty"`
}

func (r RetreatRules) Enabled() bool {
	return r.AfterRound > 0 || r.AfterUnitsLeft > 0 || r.WhenOnlyAirLeft || r.WhenPowerLower
}

func (r RetreatRules) ShouldRetreat(v RoundView) bool {
	switch {
	case r.AfterRound > 0 && v.Round >= r.AfterRound:
		return true
	case r.AfterUnitsLeft > 0 && v.AttackersLeft <= r.AfterUnitsLeft:
		return true
	case r.WhenOnlyAirLeft && v.AttackersLeft > 0 && v.AttackerAir+r.AfterUnitsLeft >= v.AttackersLeft:
		return true
	case r.WhenPowerLower && v.AttackerMetaPower() < v.DefenderMetaPower():
		return true
	}
	return false
}

// ExprRetreat retreats when a boolean expression over RoundView holds,
// e.g. "Round >= 2 && AttackersLeft < DefendersLeft".
type ExprRetreat struct {
	Source  string
	program *vm.Program
}

func NewExprRetreat(src string) (*ExprRetreat, error) {
	prog, err := expr.Compile(src, expr.Env(RoundView{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w: %v", src, ErrInvalidRetreat, err)
	}
	return &ExprRetreat{Source: src, program: prog}, nil
}

// ShouldRetreat reports false if the expression fails at run time.
func (e *ExprRetreat) ShouldRetreat(v RoundView) bool {
	out, err := vm.Run(e.program, v)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// AnyRetreat retreats when any member does. Nil members are skipped.
type AnyRetreat []RetreatPolicy

func (a AnyRetreat) ShouldRetreat(v RoundView) bool {
	for _, p := range a {
		if p != nil && p.ShouldRetreat(v) {
			return true
		}
	}
	return false
}
