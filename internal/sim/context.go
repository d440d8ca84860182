// Package sim is the sandbox battles are fought in. A Context holds an
// index-based copy of the parts of game state combat needs; every change
// made while fighting is journaled so the context can be put back exactly
// as it was staged.
package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/triplea-game/triplea-sub029/internal/game"
)

var (
	ErrUnknownLocation = errors.New("unknown location")
	ErrUnitOnBothSides = errors.New("unit staged on more than one side")
	ErrNotStaged       = errors.New("no scenario staged")
	ErrUnitNotPresent  = errors.New("unit not present")
	ErrPendingChanges  = errors.New("context has unreverted changes")
	// ErrRevertMismatch means the context no longer equals its staged
	// baseline after a revert. Any statistics gathered past this point are
	// corrupt.
	ErrRevertMismatch = errors.New("context differs from staged baseline")
)

// Handle indexes a unit in a Context arena. Handles are only meaningful for
// the context (or clones of it) that issued them.
type Handle int32

// offBoard marks a unit that sits in no territory.
const offBoard = -1

// Unit is the arena record of one unit.
type Unit struct {
	Type         int
	Owner        string
	Hits         int
	MovementLeft int
	Territory    int
}

type territory struct {
	name  string
	water bool
	units []Handle
}

// Scenario is the staged starting position replayed by every run.
type Scenario struct {
	Location   string
	Water      bool
	Attackers  []Handle
	Defenders  []Handle
	Bombarders []Handle
}

type baseline struct {
	location int
	units    []Handle
	staged   []Handle
	hits     []int
	places   []int
}

type Context struct {
	diceSides int
	types     []game.UnitType
	typeIndex map[string]int
	players   []game.Player
	terrs     []territory
	terrIndex map[string]int
	units     []Unit
	origin    []game.UnitID
	handles   map[game.UnitID]Handle

	journal  []Change
	scenario *Scenario
	base     baseline
}

// Snapshot copies the catalogue, players, map and units out of r. It is the
// expensive step and is done once per calculation.
func Snapshot(r game.Reader) (*Context, error) {
	c := &Context{
		diceSides: r.DiceSides(),
		typeIndex: map[string]int{},
		terrIndex: map[string]int{},
		handles:   map[game.UnitID]Handle{},
		players:   r.Players(),
	}
	c.types = r.UnitTypes()
	for i, t := range c.types {
		c.typeIndex[t.Name] = i
	}
	for _, t := range r.Territories() {
		ti := len(c.terrs)
		c.terrIndex[t.Name] = ti
		terr := territory{name: t.Name, water: t.Water, units: make([]Handle, 0, len(t.Units))}
		for _, id := range t.Units {
			u, ok := r.Unit(id)
			if !ok {
				continue
			}
			typ, ok := c.typeIndex[u.Type]
			if !ok {
				return nil, fmt.Errorf("unit %s: type %q: %w", id, u.Type, game.ErrUnknownUnitType)
			}
			h := Handle(len(c.units))
			c.units = append(c.units, Unit{
				Type:         typ,
				Owner:        u.Owner,
				Hits:         u.Hits,
				MovementLeft: u.MovementLeft,
				Territory:    ti,
			})
			c.origin = append(c.origin, id)
			c.handles[id] = h
			terr.units = append(terr.units, h)
		}
		c.terrs = append(c.terrs, terr)
	}
	return c, nil
}

// Translate maps real unit ids to handles. Ids with no counterpart in the
// snapshot are dropped.
func (c *Context) Translate(ids []game.UnitID) []Handle {
	out := make([]Handle, 0, len(ids))
	for _, id := range ids {
		if h, ok := c.handles[id]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Origin maps a handle back to the real unit id.
func (c *Context) Origin(h Handle) game.UnitID { return c.origin[h] }

// Origins maps handles back to real unit ids.
func (c *Context) Origins(hs []Handle) []game.UnitID {
	out := make([]game.UnitID, len(hs))
	for i, h := range hs {
		out[i] = c.origin[h]
	}
	return out
}

// StageScenario clears location and puts attackers and defenders into it.
// Units already at the location are taken off the board. The resulting
// position becomes the baseline every run starts from.
func (c *Context) StageScenario(location string, attackers, defenders, bombarders []Handle) error {
	li, ok := c.terrIndex[location]
	if !ok {
		return fmt.Errorf("%q: %w", location, ErrUnknownLocation)
	}
	if len(c.journal) > 0 {
		return ErrPendingChanges
	}
	attackers = dedupe(attackers)
	defenders = dedupe(defenders)
	bombarders = dedupe(bombarders)
	seen := map[Handle]bool{}
	for _, side := range [][]Handle{attackers, defenders, bombarders} {
		for _, h := range side {
			if seen[h] {
				return fmt.Errorf("unit %s: %w", c.origin[h], ErrUnitOnBothSides)
			}
			seen[h] = true
		}
	}

	for _, h := range c.terrs[li].units {
		c.units[h].Territory = offBoard
	}
	c.terrs[li].units = c.terrs[li].units[:0]
	for _, side := range [][]Handle{attackers, defenders} {
		for _, h := range side {
			if from := c.units[h].Territory; from != offBoard && from != li {
				c.terrs[from].units = slices.DeleteFunc(c.terrs[from].units, func(x Handle) bool { return x == h })
			}
			c.units[h].Territory = li
			c.terrs[li].units = append(c.terrs[li].units, h)
		}
	}

	c.scenario = &Scenario{
		Location:   location,
		Water:      c.terrs[li].water,
		Attackers:  attackers,
		Defenders:  defenders,
		Bombarders: bombarders,
	}
	staged := slices.Concat(attackers, defenders, bombarders)
	c.base = baseline{
		location: li,
		units:    slices.Clone(c.terrs[li].units),
		staged:   staged,
		hits:     make([]int, len(staged)),
		places:   make([]int, len(staged)),
	}
	for i, h := range staged {
		c.base.hits[i] = c.units[h].Hits
		c.base.places[i] = c.units[h].Territory
	}
	return nil
}

// Staged returns a copy of the staged scenario.
func (c *Context) Staged() (Scenario, error) {
	if c.scenario == nil {
		return Scenario{}, ErrNotStaged
	}
	s := *c.scenario
	s.Attackers = slices.Clone(s.Attackers)
	s.Defenders = slices.Clone(s.Defenders)
	s.Bombarders = slices.Clone(s.Bombarders)
	return s, nil
}

// Apply performs ch and records it for Revert.
func (c *Context) Apply(ch Change) error {
	if err := ch.apply(c); err != nil {
		return err
	}
	c.journal = append(c.journal, ch)
	return nil
}

// AddHits records n more hits on h.
func (c *Context) AddHits(h Handle, n int) error {
	cur := c.units[h].Hits
	return c.Apply(HitChange{Unit: h, From: cur, To: cur + n})
}

// RemoveUnits takes hs off the staged location.
func (c *Context) RemoveUnits(hs []Handle) error {
	if c.scenario == nil {
		return ErrNotStaged
	}
	if len(hs) == 0 {
		return nil
	}
	li := c.base.location
	rm, err := newRemoval(c, li, hs)
	if err != nil {
		return err
	}
	return c.Apply(rm)
}

// Pending reports how many changes Revert would undo.
func (c *Context) Pending() int { return len(c.journal) }

// Revert undoes every journaled change in reverse order.
func (c *Context) Revert() error {
	for i := len(c.journal) - 1; i >= 0; i-- {
		if err := c.journal[i].Invert().apply(c); err != nil {
			c.journal = c.journal[:i+1]
			return fmt.Errorf("revert change %d: %w", i, err)
		}
	}
	c.journal = c.journal[:0]
	return nil
}

// Verify checks the context against the staged baseline.
func (c *Context) Verify() error {
	if c.scenario == nil {
		return ErrNotStaged
	}
	if len(c.journal) > 0 {
		return fmt.Errorf("%d pending changes: %w", len(c.journal), ErrRevertMismatch)
	}
	if !slices.Equal(c.terrs[c.base.location].units, c.base.units) {
		return fmt.Errorf("units at %s: %w", c.scenario.Location, ErrRevertMismatch)
	}
	for i, h := range c.base.staged {
		u := c.units[h]
		if u.Hits != c.base.hits[i] || u.Territory != c.base.places[i] {
			return fmt.Errorf("unit %s: %w", c.origin[h], ErrRevertMismatch)
		}
	}
	return nil
}

// Clone returns an independent copy sharing only immutable tables.
func (c *Context) Clone() (*Context, error) {
	if len(c.journal) > 0 {
		return nil, ErrPendingChanges
	}
	cp := *c
	cp.units = slices.Clone(c.units)
	cp.origin = slices.Clone(c.origin)
	cp.terrs = make([]territory, len(c.terrs))
	for i, t := range c.terrs {
		t.units = slices.Clone(t.units)
		cp.terrs[i] = t
	}
	cp.journal = nil
	if c.scenario != nil {
		s, _ := c.Staged()
		cp.scenario = &s
		cp.base = baseline{
			location: c.base.location,
			units:    slices.Clone(c.base.units),
			staged:   slices.Clone(c.base.staged),
			hits:     slices.Clone(c.base.hits),
			places:   slices.Clone(c.base.places),
		}
	}
	return &cp, nil
}

func (c *Context) DiceSides() int { return c.diceSides }

// Type returns the catalogue entry of h. The result must not be modified.
func (c *Context) Type(h Handle) *game.UnitType { return &c.types[c.units[h].Type] }

// TypeByName looks up a catalogue entry.
func (c *Context) TypeByName(name string) (game.UnitType, bool) {
	i, ok := c.typeIndex[name]
	if !ok {
		return game.UnitType{}, false
	}
	return c.types[i], true
}

func (c *Context) Unit(h Handle) Unit { return c.units[h] }

// HitsLeft is the number of further hits h can absorb before dying.
func (c *Context) HitsLeft(h Handle) int {
	return c.types[c.units[h].Type].HitPoints - c.units[h].Hits
}

// UnitsAt returns a copy of the handles at location.
func (c *Context) UnitsAt(location string) ([]Handle, error) {
	li, ok := c.terrIndex[location]
	if !ok {
		return nil, fmt.Errorf("%q: %w", location, ErrUnknownLocation)
	}
	return slices.Clone(c.terrs[li].units), nil
}

// Present reports whether h is on the board.
func (c *Context) Present(h Handle) bool { return c.units[h].Territory != offBoard }

func dedupe(hs []Handle) []Handle {
	seen := make(map[Handle]bool, len(hs))
	out := make([]Handle, 0, len(hs))
	for _, h := range hs {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
