package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoUnitTypes indicates a catalogue without any unit type.
var ErrNoUnitTypes = errors.New("catalog defines no unit types")

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadCatalog reads catalog.yaml from dir.
func LoadCatalog(dir string) (*CatalogConfig, error) {
	var cc CatalogConfig
	if err := loadYAML(filepath.Join(dir, "catalog.yaml"), &cc); err != nil {
		return nil, err
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	return &cc, nil
}

// LoadScenario reads scenario.yaml from dir.
func LoadScenario(dir string) (*ScenarioConfig, error) {
	var sc ScenarioConfig
	if err := loadYAML(filepath.Join(dir, "scenario.yaml"), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadAll reads both content files from dir.
func LoadAll(dir string) (*CatalogConfig, *ScenarioConfig, error) {
	cc, err := LoadCatalog(dir)
	if err != nil {
		return nil, nil, err
	}
	sc, err := LoadScenario(dir)
	if err != nil {
		return nil, nil, err
	}
	return cc, sc, nil
}
