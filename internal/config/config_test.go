package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/wrfxsect/internal/grid"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

func TestLoad_DefaultValues(t *testing.T) {
	c, err := Load([]string{"--file", "wrfout_d01"})
	require.NoError(t, err)

	assert.Equal(t, "wrfout_d01", c.File)
	assert.Positive(t, c.Concurrency)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "", c.LogsDir)
	assert.Equal(t, Point{Lat: 33.7, Lon: 130.5}, c.Line.Start)
	assert.Equal(t, Point{Lat: 33.7, Lon: 131.1}, c.Line.End)
	assert.Equal(t, "height", c.Vertical.Coordinate)
	assert.Equal(t, 1500.0, c.Vertical.Top)
	assert.Equal(t, Slot{Variable: "th", Multiplier: 1}, c.Shade)
	assert.Equal(t, "rh", c.Contour.Variable)
	assert.Equal(t, "uvmet", c.Vector.Horizontal)
	assert.Equal(t, "wa", c.Vector.Vertical)
	assert.Equal(t, "./output", c.Output.Dir)
	assert.True(t, c.Output.NetCDF)
	assert.True(t, c.Output.Archive)
	assert.True(t, c.Output.Info)
	assert.Equal(t, "JST", c.Output.Timezone)
	assert.Equal(t, 9.0, c.Output.UTCOffsetHours)
	assert.False(t, c.Push)
	assert.Equal(t, "http://localhost:8428/write", c.VMInsertURL)
	assert.Equal(t, "wrf", c.MetricPrefix)
	assert.Equal(t, 500, c.RecsPerInsert)

	req, err := c.Request()
	require.NoError(t, err)
	assert.Equal(t, xsect.Height, req.Vertical)
	assert.Len(t, req.Levels, 151)
	assert.Equal(t, grid.GeoPoint{Lat: 33.7, Lon: 130.5}, req.Start)
	assert.Equal(t, 1.0, req.ShadeScale.Multiplier)
}

func TestLoad_WithConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `{
		"line": {"start": {"lat": 33, "lon": 130}, "end": {"lat": 34, "lon": 131}},
		"vertical": {"coordinate": "pressure", "bottom": 1000, "top": 500, "interval": 50},
		"shade": {"variable": "p", "multiplier": 0.01},
		"contour": {"variable": ""},
		"output": {"netcdf": false, "timezone": ""},
		"recsPerInsert": 100
	}`
	path := filepath.Join(dir, "wrfxsect.json")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	c, err := Load([]string{"-c", path, "--recsPerInsert", "250", "wrfout_d02"})
	require.NoError(t, err)

	assert.Equal(t, "wrfout_d02", c.File)
	assert.Equal(t, Point{Lat: 34, Lon: 131}, c.Line.End)
	assert.Equal(t, "p", c.Shade.Variable)
	assert.Equal(t, 0.01, c.Shade.Multiplier)
	assert.Equal(t, "", c.Contour.Variable)
	assert.False(t, c.Output.NetCDF)
	assert.True(t, c.Output.Archive)
	assert.Equal(t, "", c.Output.Timezone)
	assert.Equal(t, 250, c.RecsPerInsert, "flags override the file")

	req, err := c.Request()
	require.NoError(t, err)
	assert.Equal(t, xsect.Pressure, req.Vertical)
	assert.Equal(t, []float64{1000, 950, 900, 850, 800, 750, 700, 650, 600, 550, 500}, req.Levels)
	assert.Equal(t, "", req.Contour)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("WRFXSECT_FILE", "wrfout_env")
	t.Setenv("WRFXSECT_VERTICAL_INTERVAL", "100")

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "wrfout_env", c.File)
	assert.Equal(t, 100.0, c.Vertical.Interval)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = Load([]string{"--file", "f", "--vertical", "sigma"})
	assert.ErrorIs(t, err, xsect.ErrInvalidVerticalCoordinateKind)

	_, err = Load([]string{"--file", "f", "--concurrency", "0"})
	assert.ErrorContains(t, err, "concurrency")

	_, err = Load([]string{"-c", "/nonexistent/wrfxsect.json", "--file", "f"})
	assert.ErrorContains(t, err, "error reading config file")

	_, err = Load([]string{"--nope"})
	assert.Error(t, err)
}
