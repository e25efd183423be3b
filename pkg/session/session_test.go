package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volview/pkg/transfer"
	"volview/pkg/volerr"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(opts)
}

func writeRaw(t *testing.T, dir, name string, payload []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, payload, 0644))
	return path
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t)

	id, err := uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	u := s.Uniforms()
	assert.False(t, u.HasVolume)
	assert.Equal(t, ViewIsovalue, u.Mode)
	assert.Equal(t, float32(0), u.IsoMin)
	assert.Equal(t, float32(1), u.IsoMax)
	assert.Equal(t, float32(1), u.Color[0])
	assert.InDelta(t, 100.0/255, u.Color[1], 1e-6)
	assert.InDelta(t, 100.0/255, u.Color[2], 1e-6)
	assert.Len(t, s.Table(), 256)
}

func TestApplyVolumeLoaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeRaw(t, dir, "4x2x8_uint8.raw", func() []byte {
		b := make([]byte, 64)
		for i := range b {
			b[i] = byte(i)
		}
		return b
	}())

	s := newTestSession(t)
	require.NoError(t, s.Apply(ctx, VolumeLoaded{Path: path}))

	vol := s.Volume()
	require.NotNil(t, vol)
	assert.Equal(t, path, vol.Path)
	assert.Equal(t, 64, len(vol.Normalized.Data))
	assert.NotZero(t, vol.Checksum)

	u := s.Uniforms()
	assert.True(t, u.HasVolume)
	assert.Equal(t, 1.0, u.ScaleFactors.Z)
	assert.Equal(t, 0.5, u.ScaleFactors.X)
	assert.Equal(t, 0.25, u.ScaleFactors.Y)
}

func TestReloadSamePathIsNoop(t *testing.T) {
	ctx := context.Background()
	path := writeRaw(t, t.TempDir(), "2x2x2_uint8.raw", []byte{0, 1, 2, 3, 4, 5, 6, 7})

	s := newTestSession(t)
	require.NoError(t, s.Apply(ctx, VolumeLoaded{Path: path}))
	first := s.Volume()

	// the file changes on disk but the same path is not reloaded
	require.NoError(t, os.WriteFile(path, []byte{9, 9, 9, 9, 9, 9, 9, 9}, 0644))
	require.NoError(t, s.Apply(ctx, VolumeLoaded{Path: path}))
	assert.Same(t, first, s.Volume())
}

func TestFailedLoadKeepsPriorVolume(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := writeRaw(t, dir, "2x2x2_uint8.raw", []byte{0, 1, 2, 3, 4, 5, 6, 7})
	short := writeRaw(t, dir, "3x3x3_uint8.raw", []byte{1, 2, 3})

	s := newTestSession(t)
	require.NoError(t, s.Apply(ctx, VolumeLoaded{Path: good}))
	before := s.Volume()

	err := s.Apply(ctx, VolumeLoaded{Path: short})
	require.Error(t, err)
	assert.True(t, errors.Is(err, volerr.ErrSizeMismatch))
	assert.Same(t, before, s.Volume())

	err = s.Apply(ctx, VolumeLoaded{Path: filepath.Join(dir, "image.png")})
	assert.True(t, errors.Is(err, volerr.ErrUnsupportedExtension))
	assert.Same(t, before, s.Volume())
}

func TestApplyRenderParameters(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	require.NoError(t, s.Apply(ctx, ColorChanged{R: 0, G: 0.5, B: 1}))
	require.NoError(t, s.Apply(ctx, MinIsovalueChanged{Value: 51}))
	require.NoError(t, s.Apply(ctx, MaxIsovalueChanged{Value: 204}))
	require.NoError(t, s.Apply(ctx, ViewModeChanged{Mode: ViewTransferFunction}))

	u := s.Uniforms()
	assert.Equal(t, [3]float32{0, 0.5, 1}, u.Color)
	assert.InDelta(t, 0.2, u.IsoMin, 1e-6)
	assert.InDelta(t, 0.8, u.IsoMax, 1e-6)
	assert.Equal(t, ViewTransferFunction, u.Mode)

	assert.Error(t, s.Apply(ctx, MinIsovalueChanged{Value: 256}))
	assert.Error(t, s.Apply(ctx, MaxIsovalueChanged{Value: -1}))
	assert.Error(t, s.Apply(ctx, ColorChanged{R: 2}))
	assert.Error(t, s.Apply(ctx, ViewModeChanged{Mode: ViewMode(7)}))

	// rejected events leave state alone
	assert.Equal(t, u, s.Uniforms())
}

func TestTransferFunctionImportExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.tfl")
	require.NoError(t, os.WriteFile(in, []byte("0 0\n255 1\n0 1 0 0\n255 0 0 1\n"), 0644))

	outbox := NewQueue()
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Outbox = outbox
	s := New(opts)

	require.NoError(t, s.Apply(ctx, TransferFunctionImported{Path: in}))
	table := s.Table()
	assert.Equal(t, transfer.RGBA{R: 1}, table[0])
	assert.Equal(t, transfer.RGBA{B: 1, A: 1}, table[255])

	emitted := outbox.PopAll()
	require.Len(t, emitted, 1)
	update, ok := emitted[0].(TransferFunctionUpdated)
	require.True(t, ok)
	assert.Len(t, *update.Colors, 2)
	assert.Len(t, *update.Alphas, 2)

	out := filepath.Join(dir, "out.tfl")
	require.NoError(t, s.Apply(ctx, TransferFunctionExported{Path: out}))
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0 0\n255 1\n0 1 0 0\n255 0 0 1\n", string(written))

	err = s.Apply(ctx, TransferFunctionImported{Path: filepath.Join(dir, "missing.tfl")})
	assert.True(t, errors.Is(err, volerr.ErrFileNotFound))
	assert.Equal(t, table, s.Table())
}

func TestTransferFunctionUpdatedAndPreset(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	alphas := []transfer.AlphaKnot{{Position: 0, Alpha: 1}}
	require.NoError(t, s.Apply(ctx, TransferFunctionUpdated{Alphas: &alphas}))
	assert.Equal(t, float32(1), s.Table()[128].A)
	assert.Empty(t, s.TransferFunction().ColorKnots())

	require.NoError(t, s.Apply(ctx, PresetSelected{Name: "grayscale"}))
	assert.Equal(t, transfer.RGBA{R: 1, G: 1, B: 1, A: 1}, s.Table()[255])

	assert.Error(t, s.Apply(ctx, PresetSelected{Name: "nope"}))
	assert.Equal(t, transfer.RGBA{R: 1, G: 1, B: 1, A: 1}, s.Table()[255])
}

type bogusEvent struct{ Event }

func TestApplyUnknownEvent(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorContains(t, s.Apply(context.Background(), bogusEvent{}), "unknown event")
}

func TestApplyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSession(t)
	err := s.Apply(ctx, MinIsovalueChanged{Value: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, float32(0), s.Uniforms().IsoMin)
}

func TestDrainAppliesInOrder(t *testing.T) {
	s := newTestSession(t)
	q := NewQueue()

	q.Push(MinIsovalueChanged{Value: 10})
	q.Push(MinIsovalueChanged{Value: 300})
	q.Push(MinIsovalueChanged{Value: 20})
	q.Push(ViewModeChanged{Mode: ViewTransferFunction})

	err := s.Drain(context.Background(), q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "300")

	assert.InDelta(t, 20.0/255, s.Uniforms().IsoMin, 1e-6)
	assert.Equal(t, ViewTransferFunction, s.Uniforms().Mode)
	assert.Zero(t, q.Len())
	assert.NoError(t, s.Drain(context.Background(), q))
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(MaxIsovalueChanged{Value: j})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
	assert.Len(t, q.PopAll(), 800)
	assert.Empty(t, q.PopAll())
}

func TestParseViewMode(t *testing.T) {
	m, err := ParseViewMode("tf")
	require.NoError(t, err)
	assert.Equal(t, ViewTransferFunction, m)
	assert.Equal(t, "iso", ViewIsovalue.String())

	_, err = ParseViewMode("mip")
	assert.Error(t, err)
}
