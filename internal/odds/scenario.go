package odds

import (
	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/game"
)

// UnitFinder looks up a player's units by territory.
type UnitFinder interface {
	UnitsOf(owner string, territories ...string) []game.UnitID
}

// RequestFor builds the request a scenario file describes. Attackers are the
// attacker's units at the location and in the attack_from territories.
func RequestFor(f UnitFinder, b config.BattleDef) Request {
	from := append([]string{b.Location}, b.AttackFrom...)
	return Request{
		Attackers:       f.UnitsOf(b.Attacker, from...),
		Defenders:       f.UnitsOf(b.Defender, b.Location),
		Bombarders:      f.UnitsOf(b.Attacker, b.BombardFrom...),
		Location:        b.Location,
		RunCount:        b.RunCount,
		KeepOneLandUnit: b.KeepOneLandUnit,
		AttackerOrder:   b.AttackerOrder,
		DefenderOrder:   b.DefenderOrder,
		Retreat: battle.RetreatRules{
			AfterRound:      max(b.Retreat.AfterRound, 0),
			AfterUnitsLeft:  max(b.Retreat.AfterUnitsLeft, 0),
			WhenOnlyAirLeft: b.Retreat.WhenOnlyAirLeft,
			WhenPowerLower:  b.Retreat.WhenPowerLower,
		},
		RetreatExpr: b.Retreat.Expression,
	}
}
