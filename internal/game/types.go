// Package game holds the authoritative board state the odds calculator reads.
// The calculator only ever goes through Reader; nothing in the simulation
// path writes to a State.
package game

import "github.com/google/uuid"

// UnitID identifies a unit in the real game state.
type UnitID = uuid.UUID

// UnitType carries the static attributes of a kind of unit.
type UnitType struct {
	Name        string `json:"name"`
	Attack      int    `json:"attack"`
	Defense     int    `json:"defense"`
	AttackRolls int    `json:"attack_rolls"`
	HitPoints   int    `json:"hit_points"`
	Cost        int    `json:"cost"`
	Movement    int    `json:"movement"`
	Air         bool   `json:"air,omitempty"`
	Sea         bool   `json:"sea,omitempty"`
	AA          bool   `json:"aa,omitempty"`
	Factory     bool   `json:"factory,omitempty"`
}

// IsLand reports whether the type is neither air nor sea.
func (t UnitType) IsLand() bool { return !t.Air && !t.Sea }

// IsTwoHit reports whether a unit of this type survives its first hit.
func (t UnitType) IsTwoHit() bool { return t.HitPoints > 1 }

// IsInfrastructure reports whether the type never deals combat damage.
func (t UnitType) IsInfrastructure() bool { return t.AA || t.Factory }

// Unit is a value copy of one unit of the real state.
type Unit struct {
	ID           UnitID `json:"id"`
	Type         string `json:"type"`
	Owner        string `json:"owner"`
	Hits         int    `json:"hits"`
	MovementLeft int    `json:"movement_left"`
	Territory    string `json:"territory"`
}

type Player struct {
	Name string `json:"name"`
}

// Territory is a value copy of a board location and the units in it.
type Territory struct {
	Name  string   `json:"name"`
	Water bool     `json:"water,omitempty"`
	Units []UnitID `json:"units"`
}

// Reader is the read-only view of game state the calculator consumes.
type Reader interface {
	DiceSides() int
	UnitTypes() []UnitType
	Players() []Player
	Territories() []Territory
	Units() []Unit
	Unit(id UnitID) (Unit, bool)
	UnitType(name string) (UnitType, bool)
	Territory(name string) (Territory, bool)
}
