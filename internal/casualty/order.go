package casualty

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/triplea-game/triplea-sub029/internal/sim"
)

var ErrInvalidOrderOfLosses = errors.New("invalid order of losses")

// Orderer ranks candidates from first to last to be taken as casualties.
type Orderer interface {
	Order(cands []Candidate) []Candidate
}

// ByCost takes the cheapest units first, the weakest among equals.
type ByCost struct{}

func (ByCost) Order(cands []Candidate) []Candidate {
	out := slices.Clone(cands)
	slices.SortStableFunc(out, compareCost)
	return out
}

func compareCost(a, b Candidate) int {
	if a.Cost != b.Cost {
		return a.Cost - b.Cost
	}
	if a.Power() != b.Power() {
		return a.Power() - b.Power()
	}
	return int(a.Unit) - int(b.Unit)
}

// DefaultList builds the one-entry-per-hit fallback for hits against cands.
// Multi-hit units soak their spare hits before anything is killed; kills then
// follow the orderer.
func DefaultList(cands []Candidate, hits int, o Orderer) []sim.Handle {
	if o == nil {
		o = ByCost{}
	}
	want := Request{Hits: hits, Candidates: cands}.Required()
	ordered := o.Order(cands)
	out := make([]sim.Handle, 0, want)
	for _, c := range ordered {
		for i := 1; i < c.HitsLeft && len(out) < want; i++ {
			out = append(out, c.Unit)
		}
	}
	for _, c := range ordered {
		if len(out) == want {
			break
		}
		if c.HitsLeft > 0 {
			out = append(out, c.Unit)
		}
	}
	return out
}

// All takes every unit of the type.
const All = -1

type LossSection struct {
	Amount int
	Type   string
}

// OrderOfLosses is a user order such as "*^infantry;2^armour". Casualties
// start from the leftmost section. Amounts are claimed from the right, so a
// trailing "1^infantry" holds back the last infantry. Units no section
// claims are ordered by cost after the rest.
type OrderOfLosses []LossSection

// ParseOrderOfLosses parses s. known reports whether a unit type exists;
// nil accepts any name.
func ParseOrderOfLosses(s string, known func(string) bool) (OrderOfLosses, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out OrderOfLosses
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		amount, typ, ok := strings.Cut(part, "^")
		if !ok || typ == "" {
			return nil, fmt.Errorf("section %q: %w", part, ErrInvalidOrderOfLosses)
		}
		n := All
		if amount != "*" {
			v, err := strconv.Atoi(amount)
			if err != nil || v < 1 {
				return nil, fmt.Errorf("amount %q: %w", amount, ErrInvalidOrderOfLosses)
			}
			n = v
		}
		if known != nil && !known(typ) {
			return nil, fmt.Errorf("unit type %q: %w", typ, ErrInvalidOrderOfLosses)
		}
		out = append(out, LossSection{Amount: n, Type: typ})
	}
	return out, nil
}

func (o OrderOfLosses) String() string {
	parts := make([]string, len(o))
	for i, sec := range o {
		amount := "*"
		if sec.Amount != All {
			amount = strconv.Itoa(sec.Amount)
		}
		parts[i] = amount + "^" + sec.Type
	}
	return strings.Join(parts, ";")
}

func (o OrderOfLosses) Order(cands []Candidate) []Candidate {
	rest := ByCost{}.Order(cands)
	out := make([]Candidate, 0, len(cands))
	for i := len(o) - 1; i >= 0; i-- {
		sec := o[i]
		taken := 0
		rest = slices.DeleteFunc(rest, func(c Candidate) bool {
			if c.Type != sec.Type || (sec.Amount != All && taken >= sec.Amount) {
				return false
			}
			taken++
			out = append(out, c)
			return true
		})
	}
	slices.Reverse(out)
	return append(out, rest...)
}
