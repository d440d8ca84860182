// Package casualty decides which units absorb the hits a side takes.
package casualty

import (
	"errors"
	"fmt"

	"github.com/triplea-game/triplea-sub029/internal/sim"
)

var (
	ErrWrongCasualtyCount = errors.New("wrong number of casualties")
	ErrUnknownCasualty    = errors.New("casualty is not an eligible unit")
	ErrInvalidDamage      = errors.New("invalid damage assignment")
)

// Candidate is a unit that may be chosen as a casualty.
type Candidate struct {
	Unit     sim.Handle
	Type     string
	Cost     int
	Strength int
	Rolls    int
	HitsLeft int
	Land     bool
	Air      bool
}

// Power is the expected hit contribution of the candidate, in pips.
func (c Candidate) Power() int { return c.Strength * c.Rolls }

type Request struct {
	Hits       int
	Candidates []Candidate
	// Default is the fallback selection, one entry per hit. A unit listed
	// more than once takes more than one hit.
	Default []sim.Handle
}

// Required is the number of hits that must be assigned: all of them, unless
// the candidates cannot absorb that many.
func (r Request) Required() int {
	capacity := 0
	for _, c := range r.Candidates {
		capacity += c.HitsLeft
	}
	return min(r.Hits, capacity)
}

// Details is a casualty selection. Every entry in Damaged is one hit that
// does not kill; a unit in Destroyed takes the final hit it had left.
type Details struct {
	Damaged   []sim.Handle `json:"damaged,omitempty"`
	Destroyed []sim.Handle `json:"destroyed,omitempty"`
}

func (d Details) Count() int { return len(d.Damaged) + len(d.Destroyed) }

type Policy interface {
	SelectCasualties(req Request) (Details, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(req Request) (Details, error)

func (f PolicyFunc) SelectCasualties(req Request) (Details, error) { return f(req) }

// Validate checks d against req.
func Validate(req Request, d Details) error {
	cands := index(req.Candidates)
	damage := map[sim.Handle]int{}
	for _, h := range d.Damaged {
		if _, ok := cands[h]; !ok {
			return fmt.Errorf("damaged unit %d: %w", h, ErrUnknownCasualty)
		}
		damage[h]++
	}
	dead := map[sim.Handle]bool{}
	for _, h := range d.Destroyed {
		if _, ok := cands[h]; !ok {
			return fmt.Errorf("destroyed unit %d: %w", h, ErrUnknownCasualty)
		}
		if dead[h] {
			return fmt.Errorf("unit %d destroyed twice: %w", h, ErrUnknownCasualty)
		}
		dead[h] = true
	}
	if got, want := d.Count(), req.Required(); got != want {
		return fmt.Errorf("%d casualties for %d hits: %w", got, want, ErrWrongCasualtyCount)
	}
	for h, n := range damage {
		if n > cands[h].HitsLeft-1 {
			return fmt.Errorf("unit %d takes %d non-lethal hits with %d left: %w", h, n, cands[h].HitsLeft, ErrInvalidDamage)
		}
	}
	for h := range dead {
		if damage[h] != cands[h].HitsLeft-1 {
			return fmt.Errorf("unit %d destroyed with %d hits left: %w", h, cands[h].HitsLeft-damage[h], ErrInvalidDamage)
		}
	}
	return nil
}

// FromDefault converts the default list of req into a selection. Entries
// beyond what a unit can absorb or beyond the required count are ignored.
func FromDefault(req Request) Details {
	cands := index(req.Candidates)
	want := req.Required()
	used := map[sim.Handle]int{}
	var d Details
	for _, h := range req.Default {
		if d.Count() == want {
			break
		}
		c, ok := cands[h]
		if !ok {
			continue
		}
		switch n := used[h] + 1; {
		case n < c.HitsLeft:
			d.Damaged = append(d.Damaged, h)
		case n == c.HitsLeft:
			d.Destroyed = append(d.Destroyed, h)
		default:
			continue
		}
		used[h]++
	}
	return d
}

// DefaultPolicy takes the default list as is. With KeepOneLandUnit set it
// will not kill the last land unit while a non-land unit could die instead,
// so the side can still take the territory.
type DefaultPolicy struct {
	KeepOneLandUnit bool
}

func (p DefaultPolicy) SelectCasualties(req Request) (Details, error) {
	d := FromDefault(req)
	if p.KeepOneLandUnit {
		d = keepOneLand(req, d)
	}
	return d, nil
}

func keepOneLand(req Request, d Details) Details {
	dead := map[sim.Handle]bool{}
	for _, h := range d.Destroyed {
		dead[h] = true
	}
	damage := map[sim.Handle]int{}
	for _, h := range d.Damaged {
		damage[h]++
	}
	var survivorLand, survivorOther bool
	for _, c := range req.Candidates {
		if dead[c.Unit] {
			continue
		}
		if c.Land {
			survivorLand = true
		} else {
			survivorOther = true
		}
	}
	if survivorLand || !survivorOther {
		return d
	}

	victim := -1
	for i, h := range d.Destroyed {
		c := candidate(req.Candidates, h)
		if !c.Land {
			continue
		}
		if victim < 0 || c.Cost > candidate(req.Candidates, d.Destroyed[victim]).Cost {
			victim = i
		}
	}
	if victim < 0 {
		return d
	}
	var sub *Candidate
	for i := range req.Candidates {
		c := &req.Candidates[i]
		if c.Land || dead[c.Unit] || c.HitsLeft-damage[c.Unit] != 1 {
			continue
		}
		if sub == nil || c.Cost < sub.Cost {
			sub = c
		}
	}
	if sub == nil {
		return d
	}
	out := Details{Damaged: d.Damaged, Destroyed: make([]sim.Handle, 0, len(d.Destroyed))}
	for i, h := range d.Destroyed {
		if i != victim {
			out.Destroyed = append(out.Destroyed, h)
		}
	}
	out.Destroyed = append(out.Destroyed, sub.Unit)
	return out
}

func index(cs []Candidate) map[sim.Handle]Candidate {
	m := make(map[sim.Handle]Candidate, len(cs))
	for _, c := range cs {
		m[c.Unit] = c
	}
	return m
}

func candidate(cs []Candidate, h sim.Handle) Candidate {
	for _, c := range cs {
		if c.Unit == h {
			return c
		}
	}
	return Candidate{}
}
