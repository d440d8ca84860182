package casualty

import (
	"errors"
	"slices"
	"testing"

	"github.com/triplea-game/triplea-sub029/internal/sim"
)

func inf(h sim.Handle) Candidate {
	return Candidate{Unit: h, Type: "infantry", Cost: 3, Strength: 1, Rolls: 1, HitsLeft: 1, Land: true}
}

func fighter(h sim.Handle) Candidate {
	return Candidate{Unit: h, Type: "fighter", Cost: 10, Strength: 3, Rolls: 1, HitsLeft: 1, Air: true}
}

func battleship(h sim.Handle, hitsLeft int) Candidate {
	return Candidate{Unit: h, Type: "battleship", Cost: 20, Strength: 4, Rolls: 1, HitsLeft: hitsLeft}
}

func TestFromDefaultTwoHit(t *testing.T) {
	tcs := []struct {
		name          string
		hits          int
		cands         []Candidate
		def           []sim.Handle
		wantDamaged   []sim.Handle
		wantDestroyed []sim.Handle
	}{
		{"undamaged listed once", 1, []Candidate{battleship(1, 2)}, []sim.Handle{1}, []sim.Handle{1}, nil},
		{"listed twice", 2, []Candidate{battleship(1, 2)}, []sim.Handle{1, 1}, []sim.Handle{1}, []sim.Handle{1}},
		{"already damaged", 1, []Candidate{battleship(1, 1)}, []sim.Handle{1}, nil, []sim.Handle{1}},
		{"single hit unit", 1, []Candidate{inf(1)}, []sim.Handle{1}, nil, []sim.Handle{1}},
		{"more hits than capacity", 5, []Candidate{inf(1), inf(2)}, []sim.Handle{1, 2}, nil, []sim.Handle{1, 2}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := Request{Hits: tc.hits, Candidates: tc.cands, Default: tc.def}
			d := FromDefault(req)
			if !slices.Equal(d.Damaged, tc.wantDamaged) || !slices.Equal(d.Destroyed, tc.wantDestroyed) {
				t.Fatalf("FromDefault = %+v, want damaged %v destroyed %v", d, tc.wantDamaged, tc.wantDestroyed)
			}
			if err := Validate(req, d); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	cands := []Candidate{inf(1), inf(2), battleship(3, 2)}
	tcs := []struct {
		name string
		hits int
		d    Details
		want error
	}{
		{"too few", 2, Details{Destroyed: []sim.Handle{1}}, ErrWrongCasualtyCount},
		{"too many", 1, Details{Destroyed: []sim.Handle{1, 2}}, ErrWrongCasualtyCount},
		{"not a candidate", 1, Details{Destroyed: []sim.Handle{9}}, ErrUnknownCasualty},
		{"killed twice", 2, Details{Destroyed: []sim.Handle{1, 1}}, ErrUnknownCasualty},
		{"damage a single hit unit", 1, Details{Damaged: []sim.Handle{1}}, ErrInvalidDamage},
		{"kill a two hit unit outright", 1, Details{Destroyed: []sim.Handle{3}}, ErrInvalidDamage},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(Request{Hits: tc.hits, Candidates: cands}, tc.d)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestKeepOneLandUnit(t *testing.T) {
	cands := []Candidate{inf(1), fighter(2), fighter(3)}
	cands[2].Cost = 12
	req := Request{Hits: 1, Candidates: cands, Default: []sim.Handle{1}}

	d, err := DefaultPolicy{}.SelectCasualties(req)
	if err != nil {
		t.Fatalf("SelectCasualties: %v", err)
	}
	if !slices.Equal(d.Destroyed, []sim.Handle{1}) {
		t.Fatalf("plain policy destroyed %v, want [1]", d.Destroyed)
	}

	d, err = DefaultPolicy{KeepOneLandUnit: true}.SelectCasualties(req)
	if err != nil {
		t.Fatalf("SelectCasualties: %v", err)
	}
	if !slices.Equal(d.Destroyed, []sim.Handle{2}) {
		t.Fatalf("keep-one-land destroyed %v, want the cheapest fighter [2]", d.Destroyed)
	}
	if err := Validate(req, d); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestKeepOneLandUnitLeavesOtherCasesAlone(t *testing.T) {
	tcs := []struct {
		name  string
		cands []Candidate
		def   []sim.Handle
	}{
		{"land survives", []Candidate{inf(1), inf(2), fighter(3)}, []sim.Handle{1}},
		{"nothing else survives", []Candidate{inf(1), fighter(2)}, []sim.Handle{1, 2}},
		{"only land", []Candidate{inf(1)}, []sim.Handle{1}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := Request{Hits: len(tc.def), Candidates: tc.cands, Default: tc.def}
			d, _ := DefaultPolicy{KeepOneLandUnit: true}.SelectCasualties(req)
			if !slices.Equal(d.Destroyed, tc.def) {
				t.Fatalf("destroyed %v, want %v", d.Destroyed, tc.def)
			}
		})
	}
}

func TestPolicyFunc(t *testing.T) {
	var p Policy = PolicyFunc(func(req Request) (Details, error) {
		return Details{Destroyed: req.Default[:1]}, nil
	})
	d, err := p.SelectCasualties(Request{Hits: 1, Candidates: []Candidate{inf(4)}, Default: []sim.Handle{4}})
	if err != nil || !slices.Equal(d.Destroyed, []sim.Handle{4}) {
		t.Fatalf("SelectCasualties = %+v, %v", d, err)
	}
}
