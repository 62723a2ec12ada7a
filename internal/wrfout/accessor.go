package wrfout

import (
	"fmt"
	"time"

	"github.com/rtm0/wrfxsect/internal/grid"
)

const (
	latVarName = "XLAT"
	lonVarName = "XLONG"
)

// Accessor resolves raw and derived variable names against a Store and
// returns them on mass points.
type Accessor struct {
	store Store
	grid  *grid.Grid
}

// NewAccessor builds an accessor over store, reading the horizontal
// coordinates from the first frame.
func NewAccessor(store Store) (*Accessor, error) {
	if store.NumFrames() == 0 {
		return nil, fmt.Errorf("%w: dataset has no frames", ErrFrameOutOfRange)
	}
	lat, err := store.Read(latVarName, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot read coordinates: %w", err)
	}
	lon, err := store.Read(lonVarName, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot read coordinates: %w", err)
	}
	g, err := grid.NewGrid(lat, lon)
	if err != nil {
		return nil, err
	}
	return &Accessor{store: store, grid: g}, nil
}

// Grid returns the horizontal mass grid.
func (a *Accessor) Grid() *grid.Grid {
	return a.grid
}

// NumFrames returns the number of frames in the underlying store.
func (a *Accessor) NumFrames() int {
	return a.store.NumFrames()
}

// Times returns the native timestamps in frame order.
func (a *Accessor) Times() []time.Time {
	return a.store.Times()
}

// Resolve tells how name is obtained. Computed names shadow stored ones.
func (a *Accessor) Resolve(name string) (Variable, error) {
	if name == MoistureFluxName {
		return Variable{Name: name, Kind: MoistureFlux, Vector: true}, nil
	}
	if d, ok := diagnostics[name]; ok {
		return Variable{Name: name, Kind: Diagnostic, Vector: d.vector != nil}, nil
	}
	if a.store.Has(name) {
		return Variable{Name: name, Kind: Raw}, nil
	}
	return Variable{}, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
}

// Fetch returns variable name at frame.
func (a *Accessor) Fetch(name string, frame int) (Quantity, error) {
	v, err := a.Resolve(name)
	if err != nil {
		return Quantity{}, err
	}
	return a.FetchVariable(v, frame)
}

// FetchVariable returns the resolved variable v at frame. Raw variables are
// destaggered onto mass points.
func (a *Accessor) FetchVariable(v Variable, frame int) (Quantity, error) {
	if frame < 0 || frame >= a.store.NumFrames() {
		return Quantity{}, fmt.Errorf("%w: %s frame %d of %d", ErrFrameOutOfRange, v.Name, frame, a.store.NumFrames())
	}
	switch v.Kind {
	case Raw:
		f, err := a.mass(v.Name, frame)
		if err != nil {
			return Quantity{}, err
		}
		return Quantity{Scalar: f}, nil
	case MoistureFlux:
		vf, err := a.moistureFlux(frame)
		if err != nil {
			return Quantity{}, err
		}
		return Quantity{Vector: &vf}, nil
	case Diagnostic:
		d, ok := diagnostics[v.Name]
		if !ok {
			return Quantity{}, fmt.Errorf("%w: %q", ErrVariableNotFound, v.Name)
		}
		if d.vector != nil {
			vf, err := d.vector(a, frame)
			if err != nil {
				return Quantity{}, err
			}
			return Quantity{Vector: &vf}, nil
		}
		f, err := d.scalar(a, frame)
		if err != nil {
			return Quantity{}, err
		}
		return Quantity{Scalar: f}, nil
	default:
		return Quantity{}, fmt.Errorf("%s: unknown variable kind %s", v.Name, v.Kind)
	}
}
