package session

import (
	"fmt"

	"volview/pkg/transfer"
)

// Event is a request to change session state. The set of events is closed:
// only the types in this package implement it.
type Event interface {
	isEvent()
}

// VolumeLoaded asks the session to load the volume at Path.
type VolumeLoaded struct {
	Path string
}

// ColorChanged sets the isovalue-mode color. Components are in [0, 1].
type ColorChanged struct {
	R, G, B float64
}

// MinIsovalueChanged sets the lower isovalue limit, 0 to 255.
type MinIsovalueChanged struct {
	Value int
}

// MaxIsovalueChanged sets the upper isovalue limit, 0 to 255.
type MaxIsovalueChanged struct {
	Value int
}

// ViewModeChanged switches between isovalue and transfer-function rendering.
type ViewModeChanged struct {
	Mode ViewMode
}

// TransferFunctionImported replaces the transfer function with the knots
// stored in the .tfl file at Path.
type TransferFunctionImported struct {
	Path string
}

// TransferFunctionExported writes the current knots to Path.
type TransferFunctionExported struct {
	Path string
}

// TransferFunctionUpdated replaces knot lists. A nil list is left unchanged.
// The session also emits it on its outbox after an import so editors can
// refresh their curves.
type TransferFunctionUpdated struct {
	Colors *[]transfer.ColorKnot
	Alphas *[]transfer.AlphaKnot
}

// PresetSelected applies a named preset to the transfer function.
type PresetSelected struct {
	Name string
}

func (VolumeLoaded) isEvent()             {}
func (ColorChanged) isEvent()             {}
func (MinIsovalueChanged) isEvent()       {}
func (MaxIsovalueChanged) isEvent()       {}
func (ViewModeChanged) isEvent()          {}
func (TransferFunctionImported) isEvent() {}
func (TransferFunctionExported) isEvent() {}
func (TransferFunctionUpdated) isEvent()  {}
func (PresetSelected) isEvent()           {}

// ViewMode selects the rendering path.
type ViewMode int

const (
	// ViewIsovalue renders voxels between the isovalue limits in a single color.
	ViewIsovalue ViewMode = iota
	// ViewTransferFunction colors voxels through the transfer function table.
	ViewTransferFunction
)

func (m ViewMode) String() string {
	switch m {
	case ViewIsovalue:
		return "iso"
	case ViewTransferFunction:
		return "tf"
	}
	return fmt.Sprintf("ViewMode(%d)", int(m))
}

// Valid reports whether m is a known mode.
func (m ViewMode) Valid() bool {
	return m == ViewIsovalue || m == ViewTransferFunction
}

// ParseViewMode accepts "iso" or "tf".
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "iso", "isovalue":
		return ViewIsovalue, nil
	case "tf", "transfer-function":
		return ViewTransferFunction, nil
	}
	return 0, fmt.Errorf("unknown view mode %q, expected iso or tf", s)
}
