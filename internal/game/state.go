package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownUnitType  = errors.New("unknown unit type")
	ErrUnknownTerritory = errors.New("unknown territory")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownUnit      = errors.New("unknown unit")
	ErrDuplicate        = errors.New("already defined")
)

// State is the authoritative game state. It is safe for concurrent readers;
// writers are the turn delegates that live outside this repository, modelled
// here by the setup methods.
type State struct {
	mu          sync.RWMutex
	diceSides   int
	types       map[string]UnitType
	players     map[string]Player
	territories map[string]*Territory
	units       map[UnitID]*Unit
	order       []string
}

// NewState returns an empty board rolling dice with the given number of sides.
func NewState(diceSides int) *State {
	if diceSides < 1 {
		diceSides = 6
	}
	return &State{
		diceSides:   diceSides,
		types:       map[string]UnitType{},
		players:     map[string]Player{},
		territories: map[string]*Territory{},
		units:       map[UnitID]*Unit{},
	}
}

func (s *State) AddUnitType(t UnitType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t.Name]; ok {
		return fmt.Errorf("unit type %q: %w", t.Name, ErrDuplicate)
	}
	if t.HitPoints < 1 {
		t.HitPoints = 1
	}
	if t.AttackRolls < 1 {
		t.AttackRolls = 1
	}
	s.types[t.Name] = t
	return nil
}

func (s *State) AddPlayer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[name]; ok {
		return fmt.Errorf("player %q: %w", name, ErrDuplicate)
	}
	s.players[name] = Player{Name: name}
	return nil
}

func (s *State) AddTerritory(name string, water bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.territories[name]; ok {
		return fmt.Errorf("territory %q: %w", name, ErrDuplicate)
	}
	s.territories[name] = &Territory{Name: name, Water: water}
	s.order = append(s.order, name)
	return nil
}

// PlaceUnit creates a unit of typeName for owner in territory and returns its id.
func (s *State) PlaceUnit(typeName, owner, territory string) (UnitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ut, ok := s.types[typeName]
	if !ok {
		return uuid.Nil, fmt.Errorf("%q: %w", typeName, ErrUnknownUnitType)
	}
	if _, ok := s.players[owner]; !ok {
		return uuid.Nil, fmt.Errorf("%q: %w", owner, ErrUnknownPlayer)
	}
	t, ok := s.territories[territory]
	if !ok {
		return uuid.Nil, fmt.Errorf("%q: %w", territory, ErrUnknownTerritory)
	}
	u := &Unit{
		ID:           uuid.New(),
		Type:         typeName,
		Owner:        owner,
		MovementLeft: ut.Movement,
		Territory:    territory,
	}
	s.units[u.ID] = u
	t.Units = append(t.Units, u.ID)
	return u.ID, nil
}

// SetHits records damage already taken by a unit.
func (s *State) SetHits(id UnitID, hits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownUnit)
	}
	if hits < 0 || hits >= s.types[u.Type].HitPoints {
		return fmt.Errorf("unit %s: hits %d out of range", id, hits)
	}
	u.Hits = hits
	return nil
}

// RemoveUnit deletes a unit, as a delegate does after a real battle.
func (s *State) RemoveUnit(id UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownUnit)
	}
	t := s.territories[u.Territory]
	t.Units = slices.DeleteFunc(t.Units, func(x UnitID) bool { return x == id })
	delete(s.units, id)
	return nil
}

func (s *State) DiceSides() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diceSides
}

func (s *State) UnitTypes() []UnitType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UnitType, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *State) UnitType(name string) (UnitType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

func (s *State) Players() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Territories returns copies in insertion order.
func (s *State) Territories() []Territory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Territory, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, copyTerritory(s.territories[name]))
	}
	return out
}

func (s *State) Territory(name string) (Territory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.territories[name]
	if !ok {
		return Territory{}, false
	}
	return copyTerritory(t), true
}

// Units returns copies ordered by territory then placement order.
func (s *State) Units() []Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Unit, 0, len(s.units))
	for _, name := range s.order {
		for _, id := range s.territories[name].Units {
			out = append(out, *s.units[id])
		}
	}
	return out
}

func (s *State) Unit(id UnitID) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// UnitsOf returns the ids of owner's units in the given territories.
func (s *State) UnitsOf(owner string, territories ...string) []UnitID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UnitID
	for _, name := range territories {
		t, ok := s.territories[name]
		if !ok {
			continue
		}
		for _, id := range t.Units {
			if strings.EqualFold(s.units[id].Owner, owner) {
				out = append(out, id)
			}
		}
	}
	return out
}

type stateJSON struct {
	DiceSides   int         `json:"dice_sides"`
	UnitTypes   []UnitType  `json:"unit_types"`
	Players     []Player    `json:"players"`
	Territories []Territory `json:"territories"`
	Units       []Unit      `json:"units"`
}

// MarshalJSON renders a deterministic document; equal states serialize to
// identical bytes.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		DiceSides:   s.DiceSides(),
		UnitTypes:   s.UnitTypes(),
		Players:     s.Players(),
		Territories: s.Territories(),
		Units:       s.Units(),
	})
}

func copyTerritory(t *Territory) Territory {
	return Territory{Name: t.Name, Water: t.Water, Units: slices.Clone(t.Units)}
}
