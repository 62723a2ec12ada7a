package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// regularGrid returns a ny×nx grid starting at (lat0, lon0) with spacing d.
func regularGrid(t *testing.T, ny, nx int, lat0, lon0, d float64) *Grid {
	t.Helper()
	lat := NewField("XLAT", 1, ny, nx)
	lon := NewField("XLONG", 1, ny, nx)
	for j := range ny {
		for i := range nx {
			lat.Set(0, j, i, lat0+float64(j)*d)
			lon.Set(0, j, i, lon0+float64(i)*d)
		}
	}
	g, err := NewGrid(lat, lon)
	require.NoError(t, err)
	return g
}

func TestGridXYRoundTrip(t *testing.T) {
	g := regularGrid(t, 10, 12, 30, 100, 0.5)

	testCases := []struct {
		name string
		p    GeoPoint
		x, y float64
	}{
		{"origin", GeoPoint{30, 100}, 0, 0},
		{"node", GeoPoint{31, 101.5}, 3, 2},
		{"inside cell", GeoPoint{30.25, 100.75}, 1.5, 0.5},
		{"far corner", GeoPoint{34.5, 105.5}, 11, 9},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x, y, err := g.XY(tc.p)
			require.NoError(t, err)
			assert.InDelta(t, tc.x, x, 1e-9)
			assert.InDelta(t, tc.y, y, 1e-9)

			back := g.LatLon(x, y)
			assert.InDelta(t, tc.p.Lat, back.Lat, 1e-9)
			assert.InDelta(t, tc.p.Lon, back.Lon, 1e-9)
		})
	}
}

func TestGridXYOutsideDomain(t *testing.T) {
	g := regularGrid(t, 4, 4, 30, 100, 1)

	for _, p := range []GeoPoint{{29, 101}, {31, 104.5}, {math.NaN(), 101}} {
		_, _, err := g.XY(p)
		assert.ErrorIs(t, err, ErrOutsideDomain, "%v", p)
	}
}

func TestNewGridRejectsDegenerateShapes(t *testing.T) {
	_, err := NewGrid(NewField("XLAT", 1, 1, 5), NewField("XLONG", 1, 1, 5))
	assert.Error(t, err)

	_, err = NewGrid(NewField("XLAT", 1, 3, 3), NewField("XLONG", 1, 3, 4))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBilinear(t *testing.T) {
	f := NewField("f", 2, 2, 2)
	// f = 1 + x + 10y + 100k
	for k := range 2 {
		for j := range 2 {
			for i := range 2 {
				f.Set(k, j, i, 1+float64(i)+10*float64(j)+100*float64(k))
			}
		}
	}
	assert.InDelta(t, 6.5, f.Bilinear(0, 0.5, 0.5), 1e-12)
	assert.InDelta(t, 112, f.Bilinear(1, 1, 1), 1e-12)
	assert.InDeltaSlice(t, []float64{6.75, 106.75}, f.Column(0.75, 0.5), 1e-12)
}

func TestBilinearSkipsZeroWeightMissing(t *testing.T) {
	f := NewField("f", 1, 2, 2)
	f.Values = []float64{1, Missing, Missing, Missing}
	assert.Equal(t, 1.0, f.Bilinear(0, 0, 0))
	assert.True(t, IsMissing(f.Bilinear(0, 0.5, 0)))
}

func TestInterp1D(t *testing.T) {
	heights := []float64{100, 500, 1500}
	values := []float64{10, 20, 40}

	assert.Equal(t, 15.0, Interp1D(heights, values, 300))
	assert.Equal(t, 20.0, Interp1D(heights, values, 500))
	assert.Equal(t, 40.0, Interp1D(heights, values, 1500))
	assert.True(t, IsMissing(Interp1D(heights, values, 50)), "below the column")
	assert.True(t, IsMissing(Interp1D(heights, values, 1600)), "above the column")

	pressure := []float64{1000, 850, 500}
	assert.InDelta(t, 15.0, Interp1D(pressure, values, 925), 1e-12)
	assert.True(t, IsMissing(Interp1D(pressure, values, 1013)))
}

func TestInterp1DSkipsMissingCoordinates(t *testing.T) {
	zs := []float64{Missing, 200, 400}
	vs := []float64{1, 2, 4}
	assert.Equal(t, 3.0, Interp1D(zs, vs, 300))
	assert.True(t, IsMissing(Interp1D(zs, vs, 100)))
}

func TestCombineAndMagnitude(t *testing.T) {
	u := NewField("u", 1, 1, 2)
	v := NewField("v", 1, 1, 2)
	u.Values = []float64{3, 0}
	v.Values = []float64{4, -2}

	m, err := VectorField{U: u, V: v}.Magnitude()
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 2}, m.Values)

	_, err = Combine(u, NewField("w", 2, 1, 2), func(a, b float64) float64 { return a + b })
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCloneIsDeep(t *testing.T) {
	f := NewField("f", 1, 1, 3)
	c := f.Clone()
	c.Values[0] = 42
	assert.Equal(t, 0.0, f.Values[0])
}
