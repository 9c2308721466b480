package gwsim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VarConfig describes one simulated variable.
type VarConfig struct {
	// Name is the fully-qualified variable address.
	Name string `yaml:"pv_name"`

	// Initial is the starting value.
	Initial float64 `yaml:"initial"`

	// Walk is the random walk amplitude per tick; zero holds the value
	// steady until a client writes it.
	Walk float64 `yaml:"walk"`

	// Precision is the reported display precision, if any.
	Precision *int `yaml:"precision"`

	// Units is the reported engineering unit.
	Units string `yaml:"units"`

	// Enums marks the variable as enumerated and supplies its labels.
	Enums []string `yaml:"enums"`
}

// LoadVars reads a YAML list of variable definitions.
func LoadVars(path string) ([]VarConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var vars []VarConfig
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("gwsim: parse %s: %w", path, err)
	}

	for i, vc := range vars {
		if vc.Name == "" {
			return nil, fmt.Errorf("gwsim: %s: variable %d has no pv_name", path, i)
		}
	}
	return vars, nil
}

// DemoVars is a small built-in variable set for trying the simulator
// without a definition file.
func DemoVars() []VarConfig {
	two := 2
	return []VarConfig{
		{Name: "tec0:temp", Initial: 23.5, Walk: 0.05, Precision: &two, Units: " C"},
		{Name: "tec0:temp_sp", Initial: 23.0, Precision: &two, Units: " C"},
		{Name: "tec0:current", Initial: 1.2, Walk: 0.02, Precision: &two, Units: " A"},
		{Name: "tec0:current_sp", Initial: 1.2, Precision: &two, Units: " A"},
		{Name: "tec0:mode", Initial: 1, Enums: []string{"Off", "On", "Auto"}},
		{Name: "tec0:status", Initial: 2, Walk: 0},
		{Name: "tec0:reset", Initial: 0},
	}
}
