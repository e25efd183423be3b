// Package session holds the state a volume viewer renders from: the loaded
// volume, the transfer function and the isovalue-mode parameters. State
// changes arrive as events, typically through a Queue filled by a UI
// goroutine and drained by the render loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"volview/internal/models"
	"volview/pkg/ingest"
	"volview/pkg/transfer"
)

// MaxIsovalue is the upper bound of the isovalue limits.
const MaxIsovalue = 255

// Options configures a new Session.
type Options struct {
	// TableSize is the transfer function table length.
	TableSize int

	// IsoMin and IsoMax are the initial isovalue limits.
	IsoMin, IsoMax int

	// Color is the initial isovalue-mode color.
	Color [3]float64

	// Mode is the initial view mode.
	Mode ViewMode

	// Presets are the transfer function presets PresetSelected can name.
	Presets transfer.Presets

	// Outbox, when set, receives events the session emits for the UI.
	Outbox *Queue

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the viewer's startup state: a full isovalue range
// and a light red volume color.
func DefaultOptions() Options {
	return Options{
		TableSize: transfer.DefaultSize,
		IsoMin:    0,
		IsoMax:    MaxIsovalue,
		Color:     [3]float64{1, 100.0 / 255, 100.0 / 255},
		Mode:      ViewIsovalue,
		Presets:   transfer.DefaultPresets(),
	}
}

// Volume is the currently loaded volume.
type Volume struct {
	Path       string
	Metadata   models.VolumeMetadata
	Normalized *models.NormalizedVolume

	// Checksum is the xxhash64 of the raw payload.
	Checksum uint64
}

// Uniforms is a snapshot of the parameters a renderer needs each frame.
type Uniforms struct {
	HasVolume    bool
	ScaleFactors r3.Vec
	Mode         ViewMode

	// IsoMin and IsoMax are the isovalue limits divided by 255.
	IsoMin, IsoMax float32

	Color [3]float32
}

// Session owns viewer state. It is not safe for concurrent use; feed it
// from other goroutines through a Queue.
type Session struct {
	id      string
	logger  *slog.Logger
	loader  *ingest.Loader
	tf      *transfer.TransferFunction
	presets transfer.Presets
	outbox  *Queue

	volume *Volume
	mode   ViewMode
	isoMin int
	isoMax int
	color  [3]float64
}

// New creates a session from opts.
func New(opts Options) *Session {
	id := uuid.Must(uuid.NewV7()).String()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	presets := opts.Presets
	if presets == nil {
		presets = transfer.DefaultPresets()
	}

	return &Session{
		id:      id,
		logger:  logger,
		loader:  ingest.NewLoader(logger),
		tf:      transfer.New(opts.TableSize),
		presets: presets,
		outbox:  opts.Outbox,
		mode:    opts.Mode,
		isoMin:  clampIso(opts.IsoMin),
		isoMax:  clampIso(opts.IsoMax),
		color:   opts.Color,
	}
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string {
	return s.id
}

// Volume returns the loaded volume, or nil.
func (s *Session) Volume() *Volume {
	return s.volume
}

// TransferFunction returns the session's transfer function.
func (s *Session) TransferFunction() *transfer.TransferFunction {
	return s.tf
}

// Table returns a copy of the transfer function table for upload.
func (s *Session) Table() []transfer.RGBA {
	return s.tf.Table()
}

// Uniforms returns the current render parameters.
func (s *Session) Uniforms() Uniforms {
	u := Uniforms{
		Mode:   s.mode,
		IsoMin: float32(s.isoMin) / MaxIsovalue,
		IsoMax: float32(s.isoMax) / MaxIsovalue,
		Color:  [3]float32{float32(s.color[0]), float32(s.color[1]), float32(s.color[2])},
	}
	if s.volume != nil {
		u.HasVolume = true
		u.ScaleFactors = s.volume.Normalized.ScaleFactors
	}
	return u
}

// Apply handles one event. On error the session state is unchanged.
func (s *Session) Apply(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch e := ev.(type) {
	case VolumeLoaded:
		return s.loadVolume(e.Path)

	case ColorChanged:
		for _, c := range [3]float64{e.R, e.G, e.B} {
			if c < 0 || c > 1 {
				return fmt.Errorf("color component %g out of range [0, 1]", c)
			}
		}
		s.color = [3]float64{e.R, e.G, e.B}

	case MinIsovalueChanged:
		if e.Value < 0 || e.Value > MaxIsovalue {
			return fmt.Errorf("isovalue %d out of range [0, %d]", e.Value, MaxIsovalue)
		}
		s.isoMin = e.Value

	case MaxIsovalueChanged:
		if e.Value < 0 || e.Value > MaxIsovalue {
			return fmt.Errorf("isovalue %d out of range [0, %d]", e.Value, MaxIsovalue)
		}
		s.isoMax = e.Value

	case ViewModeChanged:
		if !e.Mode.Valid() {
			return fmt.Errorf("unknown view mode %s", e.Mode)
		}
		s.mode = e.Mode

	case TransferFunctionImported:
		knots, err := transfer.ReadFile(e.Path)
		if err != nil {
			return err
		}
		s.tf.ReplaceKnots(&knots.Colors, &knots.Alphas)
		s.logger.Info("transfer function imported",
			"path", e.Path,
			"colors", len(knots.Colors),
			"alphas", len(knots.Alphas))
		if s.outbox != nil {
			current := s.tf.Knots()
			s.outbox.Push(TransferFunctionUpdated{Colors: &current.Colors, Alphas: &current.Alphas})
		}

	case TransferFunctionExported:
		if err := transfer.WriteFile(e.Path, s.tf.Knots()); err != nil {
			return err
		}
		s.logger.Info("transfer function exported", "path", e.Path)

	case TransferFunctionUpdated:
		s.tf.ReplaceKnots(e.Colors, e.Alphas)

	case PresetSelected:
		preset, err := s.presets.Lookup(e.Name)
		if err != nil {
			return err
		}
		s.tf.ApplyPreset(preset)
		s.logger.Info("preset applied", "preset", preset.Name)

	default:
		return fmt.Errorf("unknown event %T", ev)
	}

	return nil
}

// Drain applies every event queued on q in order. A failing event does not
// stop the ones after it; the failures are joined into the returned error.
// Cancelling ctx stops draining and drops the remaining events.
func (s *Session) Drain(ctx context.Context, q *Queue) error {
	var errs []error
	for _, ev := range q.PopAll() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Apply(ctx, ev); err != nil {
			s.logger.Warn("event failed", "event", fmt.Sprintf("%T", ev), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) loadVolume(path string) error {
	if s.volume != nil && s.volume.Path == path {
		s.logger.Debug("volume already loaded", "path", path)
		return nil
	}

	meta, buf, err := s.loader.Load(path)
	if err != nil {
		return err
	}
	vol, err := s.loader.Normalize(meta, buf)
	if err != nil {
		return err
	}

	s.volume = &Volume{
		Path:       path,
		Metadata:   meta,
		Normalized: vol,
		Checksum:   buf.Checksum(),
	}
	s.logger.Info("volume ready",
		"path", path,
		"checksum", fmt.Sprintf("%016x", s.volume.Checksum),
		"constant", vol.Constant)

	return nil
}

func clampIso(v int) int {
	return max(0, min(v, MaxIsovalue))
}
