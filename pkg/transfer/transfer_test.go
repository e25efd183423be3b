package transfer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redToBlue(size int) *TransferFunction {
	tf := New(size)
	tf.AddColorKnot(0, 1, 0, 0)
	tf.AddColorKnot(255, 0, 0, 1)
	tf.AddAlphaKnot(0, 0)
	tf.AddAlphaKnot(255, 1)
	return tf
}

func TestNewDefaultsSize(t *testing.T) {
	assert.Equal(t, 256, New(0).Size())
	assert.Equal(t, 256, New(-3).Size())
	assert.Equal(t, 64, New(64).Size())
	assert.Len(t, New(0).Table(), 256)
}

func TestEmptyKnotsGiveBlackTransparent(t *testing.T) {
	tf := New(256)
	for _, e := range tf.Table() {
		assert.Equal(t, RGBA{}, e)
	}

	r, g, b := tf.ColorAt(100)
	assert.Zero(t, r+g+b)
	assert.Zero(t, tf.AlphaAt(100))
}

func TestRedToBlueTable(t *testing.T) {
	table := redToBlue(256).Table()
	require.Len(t, table, 256)

	assert.Equal(t, RGBA{R: 1, G: 0, B: 0, A: 0}, table[0])
	assert.Equal(t, RGBA{R: 0, G: 0, B: 1, A: 1}, table[255])

	mid := table[128]
	assert.InDelta(t, 0.5, mid.R, 0.01)
	assert.InDelta(t, 0.5, mid.B, 0.01)
	assert.InDelta(t, 0.5, mid.A, 0.01)
	assert.Zero(t, mid.G)
}

func TestInterpolationIsMonotonic(t *testing.T) {
	table := redToBlue(256).Table()
	for i := 1; i < len(table); i++ {
		assert.LessOrEqual(t, table[i].R, table[i-1].R)
		assert.GreaterOrEqual(t, table[i].B, table[i-1].B)
		assert.GreaterOrEqual(t, table[i].A, table[i-1].A)
	}
}

func TestFlatExtrapolation(t *testing.T) {
	tf := New(256)
	tf.AddColorKnot(100, 0.2, 0.4, 0.6)
	tf.AddColorKnot(200, 0.8, 0.6, 0.4)
	tf.AddAlphaKnot(50, 0.3)
	tf.AddAlphaKnot(150, 0.9)

	r, g, b := tf.ColorAt(0)
	assert.Equal(t, [3]float64{0.2, 0.4, 0.6}, [3]float64{r, g, b})
	r, g, b = tf.ColorAt(255)
	assert.Equal(t, [3]float64{0.8, 0.6, 0.4}, [3]float64{r, g, b})

	assert.Equal(t, 0.3, tf.AlphaAt(-10))
	assert.Equal(t, 0.9, tf.AlphaAt(300))
	assert.InDelta(t, 0.6, tf.AlphaAt(100), 1e-12)
}

func TestKnotsStaySorted(t *testing.T) {
	tf := New(256)
	tf.AddAlphaKnot(200, 1)
	tf.AddAlphaKnot(10, 0)
	tf.AddAlphaKnot(90, 0.5)

	knots := tf.AlphaKnots()
	require.Len(t, knots, 3)
	assert.Equal(t, []float64{10, 90, 200}, []float64{knots[0].Position, knots[1].Position, knots[2].Position})
}

func TestDuplicatePositionsFirstSegmentWins(t *testing.T) {
	tf := New(256)
	tf.AddAlphaKnot(0, 0)
	tf.AddAlphaKnot(100, 0.2)
	tf.AddAlphaKnot(100, 0.8)
	tf.AddAlphaKnot(255, 1)

	// The earlier insertion stays first and closes the segment ending at 100.
	assert.Equal(t, 0.2, tf.AlphaAt(100))
	assert.InDelta(t, 0.1, tf.AlphaAt(50), 1e-12)
	assert.Greater(t, tf.AlphaAt(101), 0.8)
}

func TestSingleKnot(t *testing.T) {
	tf := New(256)
	tf.AddColorKnot(128, 0.1, 0.2, 0.3)
	for _, e := range tf.Table() {
		assert.Equal(t, RGBA{R: 0.1, G: 0.2, B: 0.3, A: 0}, e)
	}
}

func TestReplaceKnots(t *testing.T) {
	tf := redToBlue(256)

	alphas := []AlphaKnot{{Position: 255, Alpha: 0.5}, {Position: 0, Alpha: 0.5}}
	tf.ReplaceKnots(nil, &alphas)

	assert.Len(t, tf.ColorKnots(), 2, "nil colors left untouched")
	assert.Equal(t, 0.0, tf.AlphaKnots()[0].Position)
	assert.Equal(t, float32(0.5), tf.Table()[0].A)

	// mutating the caller's slice must not reach the model
	alphas[0].Alpha = 0
	assert.Equal(t, float32(0.5), tf.Table()[255].A)

	empty := []ColorKnot{}
	tf.ReplaceKnots(&empty, nil)
	assert.Empty(t, tf.ColorKnots())
	assert.Equal(t, float32(0), tf.Table()[0].R)
}

func TestClear(t *testing.T) {
	tf := redToBlue(256)
	tf.Clear()

	assert.Empty(t, tf.ColorKnots())
	assert.Empty(t, tf.AlphaKnots())
	assert.Equal(t, RGBA{}, tf.Table()[255])
}

func TestTableIsACopy(t *testing.T) {
	tf := redToBlue(256)
	table := tf.Table()
	table[0] = RGBA{R: 9}

	assert.Equal(t, float32(1), tf.Table()[0].R)
}

func TestFlattenAndLookup(t *testing.T) {
	tf := redToBlue(256)
	flat := tf.Flatten()
	require.Len(t, flat, 256*4)
	assert.Equal(t, []float32{1, 0, 0, 0}, flat[:4])
	assert.Equal(t, []float32{0, 0, 1, 1}, flat[len(flat)-4:])

	assert.Equal(t, tf.Table()[0], tf.Lookup(-1))
	assert.Equal(t, tf.Table()[255], tf.Lookup(1))
	assert.Equal(t, tf.Table()[255], tf.Lookup(2))
	assert.Equal(t, tf.Table()[128], tf.Lookup(0.5))
}

func TestResizedTableSpansKnotDomain(t *testing.T) {
	tf := redToBlue(5)

	var buf bytes.Buffer
	for i, e := range tf.Table() {
		fmt.Fprintf(&buf, "%d %g %g %g %g\n", i, e.R, e.G, e.B, e.A)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "red_to_blue_table", buf.Bytes())
}

func TestPresets(t *testing.T) {
	presets := DefaultPresets()
	assert.Equal(t, []string{"bone", "grayscale"}, presets.Names())

	p, err := presets.Lookup("grayscale")
	require.NoError(t, err)

	tf := New(256)
	tf.ApplyPreset(p)
	assert.Equal(t, RGBA{R: 1, G: 1, B: 1, A: 1}, tf.Table()[255])
	assert.Equal(t, RGBA{}, tf.Table()[0])

	bone, err := presets.Lookup("bone")
	require.NoError(t, err)
	tf.ApplyPreset(bone)
	assert.Zero(t, tf.Table()[60].A)
	assert.Greater(t, tf.Table()[200].A, float32(0.6))

	_, err = presets.Lookup("lungs")
	assert.ErrorContains(t, err, "grayscale")
}
