package config

import (
	_ "embed"
	"fmt"
	"maps"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Profile is an analysis preset read from a TOML file:
//
//	target = "SalePrice"
//	factors = ["Neighborhood", "House_Style", "Bsmt_Full_Bath"]
//	multi_factor = true
//
//	[descriptions]
//	SalePrice = "Sale price in USD"
type Profile struct {
	Name         string            `toml:"name"`
	Target       string            `toml:"target"`
	Factors      []string          `toml:"factors"`
	Alpha        float64           `toml:"alpha"`
	Posthoc      string            `toml:"posthoc"`
	MultiFactor  *bool             `toml:"multi_factor"`
	Interactions *bool             `toml:"interactions"`
	Descriptions map[string]string `toml:"descriptions"`
}

//go:embed ames.toml
var defaultProfile []byte

// DefaultProfile returns the built-in Ames housing profile, which only
// carries column descriptions
func DefaultProfile() (*Profile, error) {
	return ParseProfile(defaultProfile)
}

// DefaultDescriptions returns a fresh copy of the built-in column dictionary
func DefaultDescriptions() map[string]string {
	p, err := DefaultProfile()
	if err != nil {
		return map[string]string{}
	}
	return maps.Clone(p.Descriptions)
}

// LoadProfile reads and parses a profile file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile '%s': %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile parses profile TOML
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return &p, nil
}

// Apply overrides the analysis settings with every field set in the profile
func (p *Profile) Apply(cfg *Config) {
	if p.Target != "" {
		cfg.Analysis.Target = p.Target
	}
	if len(p.Factors) > 0 {
		cfg.Analysis.Factors = append([]string(nil), p.Factors...)
	}
	if p.Alpha != 0 {
		cfg.Analysis.Alpha = p.Alpha
	}
	if p.Posthoc != "" {
		cfg.Analysis.Posthoc = p.Posthoc
	}
	if p.MultiFactor != nil {
		cfg.Analysis.MultiFactor = *p.MultiFactor
	}
	if p.Interactions != nil {
		cfg.Analysis.Interactions = *p.Interactions
	}
	if cfg.Analysis.Descriptions == nil {
		cfg.Analysis.Descriptions = map[string]string{}
	}
	for col, desc := range p.Descriptions {
		cfg.Analysis.Descriptions[col] = desc
	}
}
