package game

import (
	"fmt"
	"sort"

	"github.com/triplea-game/triplea-sub029/internal/config"
)

// FromConfig builds a board from catalogue and scenario content.
func FromConfig(cc *config.CatalogConfig, sc *config.ScenarioConfig) (*State, error) {
	s := NewState(cc.DiceSides)
	for _, ut := range cc.UnitTypes {
		if err := s.AddUnitType(UnitType{
			Name:        ut.Name,
			Attack:      ut.Attack,
			Defense:     ut.Defense,
			AttackRolls: ut.AttackRolls,
			HitPoints:   ut.HitPoints,
			Cost:        ut.Cost,
			Movement:    ut.Movement,
			Air:         ut.Air,
			Sea:         ut.Sea,
			AA:          ut.AA,
			Factory:     ut.Factory,
		}); err != nil {
			return nil, err
		}
	}
	for _, p := range sc.Players {
		if err := s.AddPlayer(p.Name); err != nil {
			return nil, err
		}
	}
	for _, t := range sc.Territories {
		if err := s.AddTerritory(t.Name, t.Water); err != nil {
			return nil, err
		}
	}
	for i, pl := range sc.Placements {
		names := make([]string, 0, len(pl.Units))
		for name := range pl.Units {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			damaged := pl.Damaged[name]
			for n := 0; n < pl.Units[name]; n++ {
				id, err := s.PlaceUnit(name, pl.Owner, pl.Territory)
				if err != nil {
					return nil, fmt.Errorf("placement #%d: %w", i, err)
				}
				if n < damaged {
					if err := s.SetHits(id, 1); err != nil {
						return nil, fmt.Errorf("placement #%d: %w", i, err)
					}
				}
			}
		}
	}
	return s, nil
}
