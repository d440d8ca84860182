package config

import "fmt"

type CatalogConfig struct {
	DiceSides int           `yaml:"dice_sides"`
	UnitTypes []UnitTypeDef `yaml:"unit_types"`
}

type UnitTypeDef struct {
	Name        string `yaml:"name"`
	Attack      int    `yaml:"attack"`
	Defense     int    `yaml:"defense"`
	AttackRolls int    `yaml:"attack_rolls"`
	HitPoints   int    `yaml:"hit_points"`
	Cost        int    `yaml:"cost"`
	Movement    int    `yaml:"movement"`
	Air         bool   `yaml:"air"`
	Sea         bool   `yaml:"sea"`
	AA          bool   `yaml:"aa"`
	Factory     bool   `yaml:"factory"`
	Note        string `yaml:"note"`
}

// Validate fills defaults and rejects malformed entries.
func (cc *CatalogConfig) Validate() error {
	if cc.DiceSides == 0 {
		cc.DiceSides = 6
	}
	if cc.DiceSides < 1 {
		return fmt.Errorf("dice_sides %d: must be positive", cc.DiceSides)
	}
	if len(cc.UnitTypes) == 0 {
		return ErrNoUnitTypes
	}
	seen := map[string]bool{}
	for i := range cc.UnitTypes {
		ut := &cc.UnitTypes[i]
		if ut.Name == "" {
			return fmt.Errorf("unit type #%d: name is required", i)
		}
		if seen[ut.Name] {
			return fmt.Errorf("unit type %q: defined twice", ut.Name)
		}
		seen[ut.Name] = true
		if ut.Air && ut.Sea {
			return fmt.Errorf("unit type %q: cannot be both air and sea", ut.Name)
		}
		if ut.HitPoints == 0 {
			ut.HitPoints = 1
		}
		if ut.AttackRolls == 0 {
			ut.AttackRolls = 1
		}
		if ut.HitPoints < 0 || ut.AttackRolls < 0 || ut.Attack < 0 || ut.Defense < 0 {
			return fmt.Errorf("unit type %q: negative attribute", ut.Name)
		}
	}
	return nil
}
