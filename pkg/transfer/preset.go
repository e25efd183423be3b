package transfer

import (
	"fmt"
	"sort"
)

// Preset is a named pair of knot lists.
type Preset struct {
	Name   string      `yaml:"name"`
	Colors []ColorKnot `yaml:"colors"`
	Alphas []AlphaKnot `yaml:"alphas"`
}

// ApplyPreset replaces both knot lists with the preset's.
func (tf *TransferFunction) ApplyPreset(p Preset) {
	tf.ReplaceKnots(&p.Colors, &p.Alphas)
}

// Grayscale ramps from transparent black to opaque white.
func Grayscale() Preset {
	return Preset{
		Name: "grayscale",
		Colors: []ColorKnot{
			{Position: 0, R: 0, G: 0, B: 0},
			{Position: 255, R: 1, G: 1, B: 1},
		},
		Alphas: []AlphaKnot{
			{Position: 0, Alpha: 0},
			{Position: 255, Alpha: 1},
		},
	}
}

// Bone hides soft tissue and tints dense material ivory.
func Bone() Preset {
	return Preset{
		Name: "bone",
		Colors: []ColorKnot{
			{Position: 0, R: 0, G: 0, B: 0},
			{Position: 80, R: 0.55, G: 0.25, B: 0.15},
			{Position: 150, R: 0.9, G: 0.82, B: 0.7},
			{Position: 255, R: 1, G: 1, B: 0.95},
		},
		Alphas: []AlphaKnot{
			{Position: 0, Alpha: 0},
			{Position: 80, Alpha: 0},
			{Position: 150, Alpha: 0.6},
			{Position: 255, Alpha: 1},
		},
	}
}

// Presets indexes presets by name.
type Presets map[string]Preset

// DefaultPresets returns the built-in presets.
func DefaultPresets() Presets {
	return Presets{
		"grayscale": Grayscale(),
		"bone":      Bone(),
	}
}

// Lookup returns the named preset.
func (p Presets) Lookup(name string) (Preset, error) {
	preset, ok := p[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q, available: %v", name, p.Names())
	}
	if preset.Name == "" {
		preset.Name = name
	}
	return preset, nil
}

// Names returns preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
