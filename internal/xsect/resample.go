package xsect

import (
	"fmt"
	"math"

	"github.com/rtm0/wrfxsect/internal/grid"
)

// Source provides the horizontal grid and the native vertical coordinate
// fields a cross-section is resampled against. *wrfout.Accessor implements
// it.
type Source interface {
	Grid() *grid.Grid
	// Pressure returns the model pressure at frame in hPa.
	Pressure(frame int) (*grid.Field, error)
	// Height returns the model height at frame in m.
	Height(frame int) (*grid.Field, error)
	// Terrain returns the static surface elevation in m.
	Terrain() (*grid.Field, error)
}

// Line is a cross-section line sampled on the model grid. Samples are evenly
// spaced in grid coordinates, both ends included, roughly one per grid cell.
type Line struct {
	Start, End grid.GeoPoint
	Points     []grid.GeoPoint

	xs, ys []float64
}

// Len returns the number of samples along l.
func (l *Line) Len() int {
	return len(l.xs)
}

// Columns returns the along-line positions 0..Len()-1.
func (l *Line) Columns() []int {
	cols := make([]int, l.Len())
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// Resampler interpolates fields onto cross-section lines.
type Resampler struct {
	src Source
}

// NewResampler returns a resampler over src.
func NewResampler(src Source) *Resampler {
	return &Resampler{src: src}
}

// Line samples the straight line from start to end on the model grid. The
// number of samples depends only on the grid and the end points.
func (r *Resampler) Line(start, end grid.GeoPoint) (*Line, error) {
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("%w: %v to %v", ErrMissingCoordinates, start, end)
	}
	if start == end {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLine, start)
	}
	g := r.src.Grid()
	x0, y0, err := g.XY(start)
	if err != nil {
		return nil, fmt.Errorf("start %w", err)
	}
	x1, y1, err := g.XY(end)
	if err != nil {
		return nil, fmt.Errorf("end %w", err)
	}

	n := max(int(math.Hypot(x1-x0, y1-y0))+1, 2)
	l := &Line{
		Start:  start,
		End:    end,
		Points: make([]grid.GeoPoint, n),
		xs:     make([]float64, n),
		ys:     make([]float64, n),
	}
	for i := range n {
		f := float64(i) / float64(n-1)
		l.xs[i] = x0 + f*(x1-x0)
		l.ys[i] = y0 + f*(y1-y0)
		l.Points[i] = g.LatLon(l.xs[i], l.ys[i])
	}
	return l, nil
}

// Vertical returns the native vertical coordinate field of kind at frame.
func (r *Resampler) Vertical(kind VerticalCoord, frame int) (*grid.Field, error) {
	switch kind {
	case Pressure:
		return r.src.Pressure(frame)
	case Height:
		return r.src.Height(frame)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerticalCoordinateKind, kind)
	}
}

// Resample interpolates f onto the line from start to end and onto levels of
// the vertical coordinate kind, taken from the same frame as f.
func (r *Resampler) Resample(f *grid.Field, start, end grid.GeoPoint, levels []float64, kind VerticalCoord) (*CrossSection, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerticalCoordinateKind, kind)
	}
	if len(levels) == 0 {
		return nil, ErrEmptyLevels
	}
	line, err := r.Line(start, end)
	if err != nil {
		return nil, err
	}
	vert, err := r.Vertical(kind, max(f.Frame, 0))
	if err != nil {
		return nil, err
	}
	return Slice(f, vert, line, levels, kind)
}

// Slice interpolates f along line horizontally and then onto levels using
// vert as the native vertical coordinate. Levels outside a native column
// are left missing.
func Slice(f, vert *grid.Field, line *Line, levels []float64, kind VerticalCoord) (*CrossSection, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerticalCoordinateKind, kind)
	}
	if len(levels) == 0 {
		return nil, ErrEmptyLevels
	}
	if !f.SameShape(vert) {
		return nil, fmt.Errorf("%w: %s %dx%dx%d on %s %dx%dx%d", grid.ErrShapeMismatch,
			f.Name, f.NZ, f.NY, f.NX, vert.Name, vert.NZ, vert.NY, vert.NX)
	}

	cs := &CrossSection{
		Name:        f.Name,
		Description: f.Description,
		Units:       f.Units,
		Frame:       f.Frame,
		Vertical:    kind,
		Columns:     line.Columns(),
		Points:      append([]grid.GeoPoint(nil), line.Points...),
		Levels:      append([]float64(nil), levels...),
		Values:      make([][]float64, len(levels)),
	}
	for l := range cs.Values {
		cs.Values[l] = make([]float64, line.Len())
	}
	for c := range line.Len() {
		zs := vert.Column(line.xs[c], line.ys[c])
		vs := f.Column(line.xs[c], line.ys[c])
		for l, target := range levels {
			cs.Values[l][c] = grid.Interp1D(zs, vs, target)
		}
	}
	return cs, nil
}

// TerrainProfile returns the surface elevation under the line from start to
// end, one value per cross-section column.
func (r *Resampler) TerrainProfile(start, end grid.GeoPoint) ([]float64, error) {
	line, err := r.Line(start, end)
	if err != nil {
		return nil, err
	}
	ter, err := r.src.Terrain()
	if err != nil {
		return nil, err
	}
	return Profile(ter, line), nil
}

// Profile samples the lowest level of f under every column of line.
func Profile(f *grid.Field, line *Line) []float64 {
	out := make([]float64, line.Len())
	for c := range out {
		out[c] = f.Bilinear(0, line.xs[c], line.ys[c])
	}
	return out
}
