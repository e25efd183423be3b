// Package transfer implements the transfer function that maps normalized
// intensity to color and opacity, and the plain-text .tfl format it is
// stored in.
//
// A TransferFunction keeps two knot lists, color and alpha, each sorted by
// position in [0, 255]. Every mutation regenerates a fixed-size RGBA lookup
// table by piecewise-linear interpolation between neighbouring knots. Outside
// the knot range the nearest knot's value is held; an empty list yields black
// and zero alpha.
package transfer

import (
	"slices"
)

// MaxPosition is the largest knot position, matching 8-bit intensity.
const MaxPosition = 255

// DefaultSize is the lookup table length used when none is given.
const DefaultSize = 256

// ColorKnot is a color control point.
type ColorKnot struct {
	Position float64 `yaml:"position"`
	R        float64 `yaml:"r"`
	G        float64 `yaml:"g"`
	B        float64 `yaml:"b"`
}

// AlphaKnot is an opacity control point.
type AlphaKnot struct {
	Position float64 `yaml:"position"`
	Alpha    float64 `yaml:"alpha"`
}

// RGBA is one lookup table entry.
type RGBA struct {
	R, G, B, A float32
}

// TransferFunction owns the knot lists and the lookup table derived from
// them. It is not safe for concurrent mutation.
type TransferFunction struct {
	size   int
	colors []ColorKnot
	alphas []AlphaKnot
	table  []RGBA
}

// New creates an empty transfer function with a table of size entries.
// size <= 0 uses DefaultSize.
func New(size int) *TransferFunction {
	if size <= 0 {
		size = DefaultSize
	}
	tf := &TransferFunction{size: size}
	tf.generateTable()
	return tf
}

// Size returns the lookup table length.
func (tf *TransferFunction) Size() int {
	return tf.size
}

// AddColorKnot inserts a color knot. Knots at an existing position are kept
// after the ones already there.
func (tf *TransferFunction) AddColorKnot(position, r, g, b float64) {
	tf.colors = append(tf.colors, ColorKnot{Position: position, R: r, G: g, B: b})
	sortColors(tf.colors)
	tf.generateTable()
}

// AddAlphaKnot inserts an alpha knot.
func (tf *TransferFunction) AddAlphaKnot(position, alpha float64) {
	tf.alphas = append(tf.alphas, AlphaKnot{Position: position, Alpha: alpha})
	sortAlphas(tf.alphas)
	tf.generateTable()
}

// ReplaceKnots swaps in new knot lists. A nil pointer leaves that list
// unchanged; a pointer to an empty slice clears it. The given slices are
// copied. The table is regenerated even when both are nil.
func (tf *TransferFunction) ReplaceKnots(colors *[]ColorKnot, alphas *[]AlphaKnot) {
	if colors != nil {
		tf.colors = slices.Clone(*colors)
		sortColors(tf.colors)
	}
	if alphas != nil {
		tf.alphas = slices.Clone(*alphas)
		sortAlphas(tf.alphas)
	}
	tf.generateTable()
}

// Clear removes every knot.
func (tf *TransferFunction) Clear() {
	tf.colors = nil
	tf.alphas = nil
	tf.generateTable()
}

// ColorKnots returns a copy of the color knots in position order.
func (tf *TransferFunction) ColorKnots() []ColorKnot {
	return slices.Clone(tf.colors)
}

// AlphaKnots returns a copy of the alpha knots in position order.
func (tf *TransferFunction) AlphaKnots() []AlphaKnot {
	return slices.Clone(tf.alphas)
}

// Knots returns copies of both lists.
func (tf *TransferFunction) Knots() Knots {
	return Knots{Colors: tf.ColorKnots(), Alphas: tf.AlphaKnots()}
}

// ColorAt interpolates the color knots at position.
func (tf *TransferFunction) ColorAt(position float64) (r, g, b float64) {
	knots := tf.colors
	if len(knots) == 0 {
		return 0, 0, 0
	}

	first, last := knots[0], knots[len(knots)-1]
	if position <= first.Position {
		return first.R, first.G, first.B
	}
	if position >= last.Position {
		return last.R, last.G, last.B
	}

	for i := 0; i < len(knots)-1; i++ {
		k0, k1 := knots[i], knots[i+1]
		if k0.Position <= position && position <= k1.Position {
			t := segment(k0.Position, k1.Position, position)
			return lerp(k0.R, k1.R, t), lerp(k0.G, k1.G, t), lerp(k0.B, k1.B, t)
		}
	}
	return 0, 0, 0
}

// AlphaAt interpolates the alpha knots at position.
func (tf *TransferFunction) AlphaAt(position float64) float64 {
	knots := tf.alphas
	if len(knots) == 0 {
		return 0
	}

	first, last := knots[0], knots[len(knots)-1]
	if position <= first.Position {
		return first.Alpha
	}
	if position >= last.Position {
		return last.Alpha
	}

	for i := 0; i < len(knots)-1; i++ {
		k0, k1 := knots[i], knots[i+1]
		if k0.Position <= position && position <= k1.Position {
			return lerp(k0.Alpha, k1.Alpha, segment(k0.Position, k1.Position, position))
		}
	}
	return 0
}

// Sample returns the interpolated color and alpha at position.
func (tf *TransferFunction) Sample(position float64) RGBA {
	r, g, b := tf.ColorAt(position)
	return RGBA{R: float32(r), G: float32(g), B: float32(b), A: float32(tf.AlphaAt(position))}
}

// Table returns a copy of the lookup table. Entry i samples position
// i*255/(Size-1), so a 256-entry table samples every integer intensity.
func (tf *TransferFunction) Table() []RGBA {
	return slices.Clone(tf.table)
}

// Flatten returns the table packed as R, G, B, A floats, Size*4 long, in the
// layout expected by a 1-D RGBA32F texture upload.
func (tf *TransferFunction) Flatten() []float32 {
	out := make([]float32, 0, len(tf.table)*4)
	for _, e := range tf.table {
		out = append(out, e.R, e.G, e.B, e.A)
	}
	return out
}

// Lookup returns the table entry for a normalized intensity v in [0, 1].
// Values outside the range are clamped.
func (tf *TransferFunction) Lookup(v float64) RGBA {
	i := int(v*float64(tf.size-1) + 0.5)
	if i < 0 {
		i = 0
	}
	if i >= tf.size {
		i = tf.size - 1
	}
	return tf.table[i]
}

func (tf *TransferFunction) generateTable() {
	if len(tf.table) != tf.size {
		tf.table = make([]RGBA, tf.size)
	}
	for i := range tf.table {
		tf.table[i] = tf.Sample(tf.position(i))
	}
}

// position maps table index i onto the knot domain [0, MaxPosition].
func (tf *TransferFunction) position(i int) float64 {
	if tf.size == 1 {
		return 0
	}
	return float64(i) * MaxPosition / float64(tf.size-1)
}

// segment returns where x lies between x0 and x1. A zero-length segment
// returns 0 so the first knot wins.
func segment(x0, x1, x float64) float64 {
	if x1 == x0 {
		return 0
	}
	return (x - x0) / (x1 - x0)
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func sortColors(knots []ColorKnot) {
	slices.SortStableFunc(knots, func(a, b ColorKnot) int {
		return cmpPosition(a.Position, b.Position)
	})
}

func sortAlphas(knots []AlphaKnot) {
	slices.SortStableFunc(knots, func(a, b AlphaKnot) int {
		return cmpPosition(a.Position, b.Position)
	})
}

func cmpPosition(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
