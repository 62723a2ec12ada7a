package xsect

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/rtm0/wrfxsect/internal/grid"
)

// WarnOnce logs a warning the first time Warn is called and never again until
// Reset. It is safe for concurrent use.
type WarnOnce struct {
	logger *slog.Logger
	fired  atomic.Bool
}

// NewWarnOnce returns a latch that warns through logger.
func NewWarnOnce(logger *slog.Logger) *WarnOnce {
	return &WarnOnce{logger: logger}
}

// Warn logs msg unless a warning was already logged. It reports whether this
// call logged.
func (w *WarnOnce) Warn(msg string, args ...any) bool {
	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	if w.logger != nil {
		w.logger.Warn(msg, args...)
	}
	return true
}

// Fired reports whether the warning has been logged.
func (w *WarnOnce) Fired() bool {
	return w.fired.Load()
}

// Reset re-arms the latch.
func (w *WarnOnce) Reset() {
	w.fired.Store(false)
}

type direction int

const (
	alongU direction = iota
	alongV
	alongAzimuth
)

// Projector reduces horizontal vectors to their component along a
// cross-section line.
type Projector struct {
	warn *WarnOnce
}

// NewProjector returns a projector reporting the small-area approximation
// through warn.
func NewProjector(warn *WarnOnce) *Projector {
	return &Projector{warn: warn}
}

// CheckLine verifies that vectors can be projected on the line from start to
// end without logging anything.
func CheckLine(start, end grid.GeoPoint) error {
	_, _, err := lineDirection(start, end)
	return err
}

func lineDirection(start, end grid.GeoPoint) (direction, float64, error) {
	if !start.Valid() || !end.Valid() {
		return 0, 0, fmt.Errorf("%w: %v to %v", ErrMissingCoordinates, start, end)
	}
	dlat, dlon := end.Lat-start.Lat, end.Lon-start.Lon
	switch {
	case dlat == 0:
		return alongU, 0, nil
	case dlon == 0:
		return alongV, 0, nil
	case dlon < 0:
		return 0, 0, fmt.Errorf("%w: %v to %v", ErrInvalidLineDirection, start, end)
	}
	return alongAzimuth, math.Atan2(dlon, dlat), nil
}

func (p *Projector) direction(start, end grid.GeoPoint) (direction, float64, error) {
	d, az, err := lineDirection(start, end)
	if err == nil && d == alongAzimuth && p.warn != nil {
		p.warn.Warn("projection on the cross-section uses a planar azimuth and is only valid for a relatively small area",
			"start", start, "end", end)
	}
	return d, az, err
}

// Project returns the component of (u, v) along the line from start to end:
// u*sin(az) + v*cos(az) with az = atan2(Δlon, Δlat). An east-west line
// returns u and a north-south line returns v.
func (p *Projector) Project(u, v *grid.Field, start, end grid.GeoPoint) (*grid.Field, error) {
	d, az, err := p.direction(start, end)
	if err != nil {
		return nil, err
	}
	switch d {
	case alongU:
		return u.Clone(), nil
	case alongV:
		return v.Clone(), nil
	}
	sin, cos := math.Sin(az), math.Cos(az)
	out, err := grid.Combine(u, v, func(x, y float64) float64 { return x*sin + y*cos })
	if err != nil {
		return nil, err
	}
	out.Name = alongName(u.Name)
	return out, nil
}

// ProjectSection is Project on resampled cross-sections.
func (p *Projector) ProjectSection(u, v *CrossSection, start, end grid.GeoPoint) (*CrossSection, error) {
	d, az, err := p.direction(start, end)
	if err != nil {
		return nil, err
	}
	switch d {
	case alongU:
		return u.Clone(), nil
	case alongV:
		return v.Clone(), nil
	}
	if !u.SameShape(v) {
		return nil, fmt.Errorf("%w: %v vs %v", grid.ErrShapeMismatch, u, v)
	}
	sin, cos := math.Sin(az), math.Cos(az)
	out := u.Clone()
	out.Name = alongName(u.Name)
	for l, row := range out.Values {
		for c := range row {
			row[c] = u.Values[l][c]*sin + v.Values[l][c]*cos
		}
	}
	return out, nil
}

func alongName(name string) string {
	return name + "_along"
}
