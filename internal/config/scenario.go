package config

// ScenarioConfig describes a board position and the battle to evaluate on it.
type ScenarioConfig struct {
	Players     []PlayerDef    `yaml:"players"`
	Territories []TerritoryDef `yaml:"territories"`
	Placements  []Placement    `yaml:"placements"`
	Battle      BattleDef      `yaml:"battle"`
}

type PlayerDef struct {
	Name string `yaml:"name"`
	Note string `yaml:"note"`
}

type TerritoryDef struct {
	Name  string `yaml:"name"`
	Water bool   `yaml:"water"`
}

// Placement puts Units (type -> count) owned by Owner into Territory.
// Damaged lists how many of each type start with one hit.
type Placement struct {
	Territory string         `yaml:"territory"`
	Owner     string         `yaml:"owner"`
	Units     map[string]int `yaml:"units"`
	Damaged   map[string]int `yaml:"damaged"`
}

type BattleDef struct {
	Location        string     `yaml:"location"`
	Attacker        string     `yaml:"attacker"`
	Defender        string     `yaml:"defender"`
	AttackFrom      []string   `yaml:"attack_from"`
	BombardFrom     []string   `yaml:"bombard_from"`
	RunCount        int        `yaml:"run_count"`
	KeepOneLandUnit bool       `yaml:"keep_one_land_unit"`
	AttackerOrder   string     `yaml:"attacker_order"`
	DefenderOrder   string     `yaml:"defender_order"`
	Retreat         RetreatDef `yaml:"retreat"`
}

// RetreatDef mirrors the attacker retreat rules. Negative or zero
// thresholds disable the matching rule.
type RetreatDef struct {
	AfterRound      int    `yaml:"after_round"`
	AfterUnitsLeft  int    `yaml:"after_units_left"`
	WhenOnlyAirLeft bool   `yaml:"when_only_air_left"`
	WhenPowerLower  bool   `yaml:"when_power_lower"`
	Expression      string `yaml:"expression"`
}
