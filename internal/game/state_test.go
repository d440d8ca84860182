package game

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/triplea-game/triplea-sub029/internal/config"
)

func testState(t *testing.T) *State {
	t.Helper()
	cc := &config.CatalogConfig{UnitTypes: []config.UnitTypeDef{
		{Name: "infantry", Attack: 1, Defense: 2, Cost: 3},
		{Name: "battleship", Attack: 4, Defense: 4, HitPoints: 2, Sea: true, Cost: 20},
	}}
	if err := cc.Validate(); err != nil {
		t.Fatalf("validate catalog: %v", err)
	}
	sc := &config.ScenarioConfig{
		Players:     []config.PlayerDef{{Name: "Germans"}, {Name: "Russians"}},
		Territories: []config.TerritoryDef{{Name: "Karelia"}, {Name: "Baltic Sea", Water: true}},
		Placements: []config.Placement{
			{Territory: "Karelia", Owner: "Russians", Units: map[string]int{"infantry": 3}},
			{Territory: "Baltic Sea", Owner: "Germans", Units: map[string]int{"battleship": 2}, Damaged: map[string]int{"battleship": 1}},
		},
	}
	s, err := FromConfig(cc, sc)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return s
}

func TestFromConfigPlacesUnits(t *testing.T) {
	s := testState(t)
	if got := len(s.UnitsOf("Russians", "Karelia")); got != 3 {
		t.Fatalf("russian units in Karelia = %d, want 3", got)
	}
	ships := s.UnitsOf("Germans", "Baltic Sea")
	if len(ships) != 2 {
		t.Fatalf("german ships = %d, want 2", len(ships))
	}
	first, _ := s.Unit(ships[0])
	second, _ := s.Unit(ships[1])
	if first.Hits != 1 || second.Hits != 0 {
		t.Fatalf("ship hits = %d, %d; want 1, 0", first.Hits, second.Hits)
	}
	bs, ok := s.UnitType("battleship")
	if !ok || !bs.IsTwoHit() || bs.IsLand() {
		t.Fatalf("battleship type = %+v", bs)
	}
}

func TestPlaceUnitRejectsUnknowns(t *testing.T) {
	s := testState(t)
	tcs := []struct {
		typ, owner, territory string
		want                  error
	}{
		{"tank", "Germans", "Karelia", ErrUnknownUnitType},
		{"infantry", "French", "Karelia", ErrUnknownPlayer},
		{"infantry", "Germans", "Atlantis", ErrUnknownTerritory},
	}
	for _, tc := range tcs {
		_, err := s.PlaceUnit(tc.typ, tc.owner, tc.territory)
		if !errors.Is(err, tc.want) {
			t.Fatalf("PlaceUnit(%q, %q, %q) error = %v, want %v", tc.typ, tc.owner, tc.territory, err, tc.want)
		}
	}
}

func TestReadersReturnCopies(t *testing.T) {
	s := testState(t)
	terr, _ := s.Territory("Karelia")
	terr.Units[0] = terr.Units[1]
	again, _ := s.Territory("Karelia")
	if again.Units[0] == again.Units[1] {
		t.Fatal("mutating a returned territory changed the state")
	}
}

func TestMarshalJSONIsDeterministic(t *testing.T) {
	s := testState(t)
	a, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, _ := json.Marshal(s)
	if string(a) != string(b) {
		t.Fatal("two marshals of the same state differ")
	}
}

func TestRemoveUnit(t *testing.T) {
	s := testState(t)
	ids := s.UnitsOf("Russians", "Karelia")
	if err := s.RemoveUnit(ids[0]); err != nil {
		t.Fatalf("RemoveUnit: %v", err)
	}
	if _, ok := s.Unit(ids[0]); ok {
		t.Fatal("unit still present")
	}
	if got := len(s.UnitsOf("Russians", "Karelia")); got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}
	if err := s.RemoveUnit(ids[0]); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("second RemoveUnit error = %v, want %v", err, ErrUnknownUnit)
	}
}
