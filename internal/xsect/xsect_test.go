package xsect

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/wrfxsect/internal/grid"
)

const (
	nz = 4
	ny = 3
	nx = 5
)

// fakeSource is a regular 1° grid starting at (30N, 130E) whose pressure
// drops 100 hPa and whose height rises 1000 m per level.
type fakeSource struct {
	g *grid.Grid
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	lat := fill("XLAT", 1, func(_, j, _ int) float64 { return 30 + float64(j) })
	lon := fill("XLONG", 1, func(_, _, i int) float64 { return 130 + float64(i) })
	g, err := grid.NewGrid(lat, lon)
	require.NoError(t, err)
	return &fakeSource{g: g}
}

func fill(name string, levels int, fn func(k, j, i int) float64) *grid.Field {
	f := grid.NewField(name, levels, ny, nx)
	for k := range levels {
		for j := range ny {
			for i := range nx {
				f.Set(k, j, i, fn(k, j, i))
			}
		}
	}
	return f
}

func (s *fakeSource) Grid() *grid.Grid { return s.g }

func (s *fakeSource) Pressure(frame int) (*grid.Field, error) {
	f := fill("pressure", nz, func(k, _, _ int) float64 { return 1000 - 100*float64(k) })
	f.Frame = frame
	return f, nil
}

func (s *fakeSource) Height(frame int) (*grid.Field, error) {
	f := fill("z", nz, func(k, _, _ int) float64 { return 1000 * float64(k) })
	f.Frame = frame
	return f, nil
}

func (s *fakeSource) Terrain() (*grid.Field, error) {
	return fill("ter", 1, func(_, j, i int) float64 { return 100*float64(i) + 10*float64(j) }), nil
}

// linear is exact under bilinear and linear vertical interpolation.
func linear() *grid.Field {
	f := fill("T", nz, func(k, j, i int) float64 { return 10*float64(k) + float64(i) + 0.5*float64(j) })
	f.Frame = 0
	return f
}

var (
	west = grid.GeoPoint{Lat: 30, Lon: 130}
	east = grid.GeoPoint{Lat: 30, Lon: 134}
)

func TestLevels(t *testing.T) {
	tests := []struct {
		kind                  VerticalCoord
		bottom, top, interval float64
		want                  []float64
	}{
		{Pressure, 1000, 700, 50, []float64{1000, 950, 900, 850, 800, 750, 700}},
		{Pressure, 1000, 720, 100, []float64{1000, 900, 800}},
		{Height, 0, 1000, 300, []float64{0, 300, 600, 900}},
		{Height, 0, 0.3, 0.1, []float64{0, 0.1, 0.2, 0.30000000000000004}},
		{Height, 500, 500, 10, []float64{500}},
	}
	for _, tt := range tests {
		got, err := Levels(tt.kind, tt.bottom, tt.top, tt.interval)
		require.NoError(t, err)
		assert.InDeltaSlice(t, tt.want, got, 1e-9, "%s %v..%v/%v", tt.kind, tt.bottom, tt.top, tt.interval)
		assert.NoError(t, CheckLevels(tt.kind, got))
	}

	_, err := Levels(Pressure, 1000, 700, 0)
	assert.ErrorIs(t, err, ErrInvalidLevelStep)
	_, err = Levels(Height, 0, 1000, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidLevelStep)
	_, err = Levels(Pressure, 700, 1000, 50)
	assert.ErrorIs(t, err, ErrEmptyLevels)
	_, err = Levels(VerticalCoord(0), 0, 1000, 50)
	assert.ErrorIs(t, err, ErrInvalidVerticalCoordinateKind)
}

func TestCheckLevels(t *testing.T) {
	assert.ErrorIs(t, CheckLevels(Pressure, nil), ErrEmptyLevels)
	assert.ErrorIs(t, CheckLevels(Pressure, []float64{700, 800}), ErrNonMonotonicLevels)
	assert.ErrorIs(t, CheckLevels(Height, []float64{0, 100, 100}), ErrNonMonotonicLevels)
	assert.ErrorIs(t, CheckLevels(Height, []float64{0, math.NaN()}), ErrNonMonotonicLevels)
	assert.ErrorIs(t, CheckLevels(VerticalCoord(3), []float64{0}), ErrInvalidVerticalCoordinateKind)
}

func TestParseVerticalCoord(t *testing.T) {
	for s, want := range map[string]VerticalCoord{"pressure": Pressure, " Height": Height, "P": Pressure, "z": Height} {
		got, err := ParseVerticalCoord(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := ParseVerticalCoord("theta")
	assert.ErrorIs(t, err, ErrInvalidVerticalCoordinateKind)
	assert.Equal(t, "hPa", Pressure.Units())
	assert.Equal(t, "m", Height.Units())
}

func TestLine(t *testing.T) {
	r := NewResampler(newFakeSource(t))

	l, err := r.Line(west, east)
	require.NoError(t, err)
	require.Equal(t, 5, l.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, l.Columns())
	for i, p := range l.Points {
		assert.InDelta(t, 30, p.Lat, 1e-9)
		assert.InDelta(t, 130+float64(i), p.Lon, 1e-9)
	}

	// A diagonal across one and a half cells still keeps both ends.
	l, err = r.Line(grid.GeoPoint{Lat: 30.5, Lon: 130.5}, grid.GeoPoint{Lat: 31.5, Lon: 131.5})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.InDelta(t, 31.5, l.Points[1].Lat, 1e-9)

	_, err = r.Line(west, west)
	assert.ErrorIs(t, err, ErrInvalidLine)
	_, err = r.Line(grid.GeoPoint{Lat: math.NaN(), Lon: 130}, east)
	assert.ErrorIs(t, err, ErrMissingCoordinates)
	_, err = r.Line(west, grid.GeoPoint{Lat: 30, Lon: 150})
	assert.ErrorIs(t, err, grid.ErrOutsideDomain)
}

func TestResampleHeight(t *testing.T) {
	r := NewResampler(newFakeSource(t))

	cs, err := r.Resample(linear(), west, east, []float64{0, 500, 1500, 3000, 3500}, Height)
	require.NoError(t, err)
	assert.Equal(t, "T", cs.Name)
	assert.Equal(t, Height, cs.Vertical)
	assert.Equal(t, []float64{0, 500, 1500, 3000, 3500}, cs.Levels)
	require.Equal(t, 5, cs.NumColumns())
	require.Len(t, cs.Values, 5)

	for c := range cs.NumColumns() {
		assert.InDelta(t, float64(c), cs.At(c, 0), 1e-9)
		assert.InDelta(t, 5+float64(c), cs.At(c, 1), 1e-9)
		assert.InDelta(t, 15+float64(c), cs.At(c, 2), 1e-9)
		assert.InDelta(t, 30+float64(c), cs.At(c, 3), 1e-9)
		assert.True(t, grid.IsMissing(cs.At(c, 4)), "column %d above the model top", c)
	}
	assert.Equal(t, 5, cs.Missing())
}

func TestResamplePressure(t *testing.T) {
	r := NewResampler(newFakeSource(t))
	north := grid.GeoPoint{Lat: 32, Lon: 132}
	south := grid.GeoPoint{Lat: 30, Lon: 132}

	cs, err := r.Resample(linear(), south, north, []float64{1050, 950, 850, 750, 500}, Pressure)
	require.NoError(t, err)
	require.Equal(t, 3, cs.NumColumns())
	for c := range cs.NumColumns() {
		base := 2 + 0.5*float64(c)
		assert.True(t, grid.IsMissing(cs.At(c, 0)), "below the surface")
		assert.InDelta(t, base+5, cs.At(c, 1), 1e-9)
		assert.InDelta(t, base+15, cs.At(c, 2), 1e-9)
		assert.InDelta(t, base+25, cs.At(c, 3), 1e-9)
		assert.True(t, grid.IsMissing(cs.At(c, 4)), "above the model top")
	}
}

func TestResampleDeterministic(t *testing.T) {
	r := NewResampler(newFakeSource(t))
	f := linear()
	start, end := grid.GeoPoint{Lat: 30.2, Lon: 130.1}, grid.GeoPoint{Lat: 31.7, Lon: 133.9}
	levels := []float64{0, 700, 1400, 2100, 2800, 3500}

	a, err := r.Resample(f, start, end, levels, Height)
	require.NoError(t, err)
	b, err := r.Resample(f, start, end, levels, Height)
	require.NoError(t, err)

	require.True(t, a.SameShape(b))
	assert.Equal(t, a.Points, b.Points)
	for l := range a.Values {
		for c := range a.Values[l] {
			assert.Equal(t, math.Float64bits(a.At(c, l)), math.Float64bits(b.At(c, l)), "column %d level %d", c, l)
		}
	}
}

func TestResampleErrors(t *testing.T) {
	r := NewResampler(newFakeSource(t))
	f := linear()

	_, err := r.Resample(f, west, west, []float64{0}, Height)
	assert.ErrorIs(t, err, ErrInvalidLine)
	_, err = r.Resample(f, west, east, nil, Height)
	assert.ErrorIs(t, err, ErrEmptyLevels)
	_, err = r.Resample(f, west, east, []float64{0}, VerticalCoord(9))
	assert.ErrorIs(t, err, ErrInvalidVerticalCoordinateKind)

	flat := fill("HGT", 1, func(_, _, _ int) float64 { return 0 })
	_, err = r.Resample(flat, west, east, []float64{0}, Height)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestTerrainProfile(t *testing.T) {
	r := NewResampler(newFakeSource(t))
	start, end := grid.GeoPoint{Lat: 31, Lon: 130}, grid.GeoPoint{Lat: 31, Lon: 134}

	ter, err := r.TerrainProfile(start, end)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 110, 210, 310, 410}, ter, 1e-9)

	cs, err := r.Resample(linear(), start, end, []float64{0}, Height)
	require.NoError(t, err)
	assert.Len(t, ter, cs.NumColumns())

	_, err = r.TerrainProfile(start, start)
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func ExampleLevels() {
	levels, _ := Levels(Pressure, 1000, 850, 50)
	fmt.Println(levels)
	// Output: [1000 950 900 850]
}
