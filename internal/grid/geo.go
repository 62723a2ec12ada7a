package grid

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutsideDomain is returned for a geographic point that does not fall
// inside the model's horizontal grid.
var ErrOutsideDomain = errors.New("point outside model domain")

// GeoPoint is a (latitude, longitude) pair in degrees.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Valid reports whether both coordinates are present and finite.
func (p GeoPoint) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lon, 0)
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.Lat, p.Lon)
}

// Grid is the curvilinear horizontal grid of the model: the latitude and
// longitude of every mass point, row-major [j*NX+i].
type Grid struct {
	NY, NX int
	Lat    []float64
	Lon    []float64
}

// NewGrid builds a grid from horizontal latitude and longitude fields.
func NewGrid(lat, lon *Field) (*Grid, error) {
	if !lat.SameShape(lon) {
		return nil, fmt.Errorf("%w: latitude %dx%d, longitude %dx%d", ErrShapeMismatch, lat.NY, lat.NX, lon.NY, lon.NX)
	}
	if lat.NY < 2 || lat.NX < 2 {
		return nil, fmt.Errorf("grid must be at least 2x2, got %dx%d", lat.NY, lat.NX)
	}
	return &Grid{
		NY:  lat.NY,
		NX:  lat.NX,
		Lat: append([]float64(nil), lat.Level(0)...),
		Lon: append([]float64(nil), lon.Level(0)...),
	}, nil
}

// LatLon returns the geographic position of fractional grid coordinate
// (x, y), x along west_east and y along south_north.
func (g *Grid) LatLon(x, y float64) GeoPoint {
	return GeoPoint{
		Lat: bilinear(g.Lat, g.NY, g.NX, x, y),
		Lon: bilinear(g.Lon, g.NY, g.NX, x, y),
	}
}

// XY returns the fractional grid coordinate of p.
func (g *Grid) XY(p GeoPoint) (x, y float64, err error) {
	if !p.Valid() {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutsideDomain, p)
	}
	ni, nj := g.nearest(p)
	for _, dj := range [2]int{-1, 0} {
		for _, di := range [2]int{-1, 0} {
			i0, j0 := ni+di, nj+dj
			if i0 < 0 || j0 < 0 || i0 > g.NX-2 || j0 > g.NY-2 {
				continue
			}
			if s, t, ok := g.invertCell(i0, j0, p); ok {
				return float64(i0) + s, float64(j0) + t, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %v", ErrOutsideDomain, p)
}

// nearest returns the grid node closest to p.
func (g *Grid) nearest(p GeoPoint) (int, int) {
	coslat := math.Cos(p.Lat * math.Pi / 180)
	best, bi, bj := math.Inf(1), 0, 0
	for j := range g.NY {
		for i := range g.NX {
			k := j*g.NX + i
			dlat := g.Lat[k] - p.Lat
			dlon := (g.Lon[k] - p.Lon) * coslat
			if d := dlat*dlat + dlon*dlon; d < best {
				best, bi, bj = d, i, j
			}
		}
	}
	return bi, bj
}

// invertCell solves the bilinear map of cell (i0, j0) for the local
// coordinates (s, t) in [0, 1]² that land on p.
func (g *Grid) invertCell(i0, j0 int, p GeoPoint) (float64, float64, bool) {
	const eps = 1e-9
	corner := func(v []float64, di, dj int) float64 { return v[(j0+dj)*g.NX+i0+di] }
	a00, a10, a01, a11 := corner(g.Lat, 0, 0), corner(g.Lat, 1, 0), corner(g.Lat, 0, 1), corner(g.Lat, 1, 1)
	o00, o10, o01, o11 := corner(g.Lon, 0, 0), corner(g.Lon, 1, 0), corner(g.Lon, 0, 1), corner(g.Lon, 1, 1)

	s, t := 0.5, 0.5
	for range 50 {
		lat := (1-s)*(1-t)*a00 + s*(1-t)*a10 + (1-s)*t*a01 + s*t*a11
		lon := (1-s)*(1-t)*o00 + s*(1-t)*o10 + (1-s)*t*o01 + s*t*o11
		rlat, rlon := lat-p.Lat, lon-p.Lon

		dLatS := (1-t)*(a10-a00) + t*(a11-a01)
		dLatT := (1-s)*(a01-a00) + s*(a11-a10)
		dLonS := (1-t)*(o10-o00) + t*(o11-o01)
		dLonT := (1-s)*(o01-o00) + s*(o11-o10)
		det := dLatS*dLonT - dLatT*dLonS
		if det == 0 || math.IsNaN(det) {
			return 0, 0, false
		}
		ds := (rlat*dLonT - dLatT*rlon) / det
		dt := (dLatS*rlon - rlat*dLonS) / det
		s, t = s-ds, t-dt
		if math.Abs(ds) < 1e-13 && math.Abs(dt) < 1e-13 {
			break
		}
	}
	if s < -eps || s > 1+eps || t < -eps || t > 1+eps {
		return 0, 0, false
	}
	return min(max(s, 0), 1), min(max(t, 0), 1), true
}
