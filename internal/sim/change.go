package sim

import (
	"fmt"
	"slices"
	"sort"
)

// Change is one reversible mutation of a Context. Invert returns the change
// that undoes it.
type Change interface {
	apply(c *Context) error
	Invert() Change
}

// HitChange moves a unit's hit count from From to To.
type HitChange struct {
	Unit     Handle
	From, To int
}

func (ch HitChange) apply(c *Context) error {
	if got := c.units[ch.Unit].Hits; got != ch.From {
		return fmt.Errorf("unit %s has %d hits, want %d", c.origin[ch.Unit], got, ch.From)
	}
	c.units[ch.Unit].Hits = ch.To
	return nil
}

func (ch HitChange) Invert() Change { return HitChange{Unit: ch.Unit, From: ch.To, To: ch.From} }

// Composite applies its parts in order and inverts them in reverse.
type Composite []Change

func (cc Composite) apply(c *Context) error {
	for i, ch := range cc {
		if err := ch.apply(c); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = cc[j].Invert().apply(c)
			}
			return err
		}
	}
	return nil
}

func (cc Composite) Invert() Change {
	out := make(Composite, len(cc))
	for i, ch := range cc {
		out[len(cc)-1-i] = ch.Invert()
	}
	return out
}

type placed struct {
	unit Handle
	at   int
}

// removal takes units out of a territory. Positions are the indices the units
// held before removal, in ascending order, so the inverse can reinsert them.
type removal struct {
	territory int
	entries   []placed
}

type restoration removal

func newRemoval(c *Context, ti int, hs []Handle) (removal, error) {
	list := c.terrs[ti].units
	rm := removal{territory: ti, entries: make([]placed, 0, len(hs))}
	seen := make(map[Handle]bool, len(hs))
	for _, h := range hs {
		if seen[h] {
			continue
		}
		seen[h] = true
		at := slices.Index(list, h)
		if at < 0 {
			return removal{}, fmt.Errorf("unit %s at %s: %w", c.origin[h], c.terrs[ti].name, ErrUnitNotPresent)
		}
		rm.entries = append(rm.entries, placed{unit: h, at: at})
	}
	sort.Slice(rm.entries, func(i, j int) bool { return rm.entries[i].at < rm.entries[j].at })
	return rm, nil
}

func (rm removal) apply(c *Context) error {
	list := c.terrs[rm.territory].units
	for _, e := range rm.entries {
		if e.at >= len(list) || list[e.at] != e.unit {
			return fmt.Errorf("unit %s at %s: %w", c.origin[e.unit], c.terrs[rm.territory].name, ErrUnitNotPresent)
		}
	}
	out := list[:0]
	next := 0
	for i, h := range list {
		if next < len(rm.entries) && rm.entries[next].at == i {
			next++
			c.units[h].Territory = offBoard
			continue
		}
		out = append(out, h)
	}
	c.terrs[rm.territory].units = out
	return nil
}

func (rm removal) Invert() Change { return restoration(rm) }

func (rs restoration) apply(c *Context) error {
	list := c.terrs[rs.territory].units
	for _, e := range rs.entries {
		if e.at > len(list) {
			return fmt.Errorf("restore %s at index %d: %w", c.origin[e.unit], e.at, ErrRevertMismatch)
		}
		list = slices.Insert(list, e.at, e.unit)
		c.units[e.unit].Territory = rs.territory
	}
	c.terrs[rs.territory].units = list
	return nil
}

func (rs restoration) Invert() Change { return removal(rs) }
