package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/rtm0/wrfxsect/internal/pipeline"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

// NetCDFExt is the extension of cross-section NetCDF files.
const NetCDFExt = ".nc"

const (
	timeDim   = "time"
	levelDim  = "level"
	columnDim = "column"
)

// ErrNoFrames is returned when there is nothing to write.
var ErrNoFrames = errors.New("no frames to write")

// attributes builds an ordered attribute map from key/value pairs, leaving
// out empty strings.
func attributes(kv ...any) (api.AttributeMap, error) {
	keys := make([]string, 0, len(kv)/2)
	vals := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := kv[i].(string)
		if s, ok := kv[i+1].(string); ok && s == "" {
			continue
		}
		keys = append(keys, k)
		vals[k] = kv[i+1]
	}
	return util.NewOrderedMap(keys, vals)
}

// WriteNetCDF writes frames to path. Every requested
// slot becomes a (time, level, column) variable next to the lat, lon and
// terrain of the columns; missing cells are NaN.
func WriteNetCDF(path string, meta Meta, frames []*pipeline.Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	if err := writeVars(cw, meta, frames); err != nil {
		cw.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return cw.Close()
}

func writeVars(cw *cdf.CDFWriter, meta Meta, frames []*pipeline.Frame) error {
	first := frames[0].Time
	global, err := attributes(
		"title", "vertical cross section",
		"source", meta.Source,
		"vertical_coordinate", meta.Vertical.String(),
		"start", meta.Start.String(),
		"end", meta.End.String(),
	)
	if err != nil {
		return err
	}
	if err := cw.AddGlobalAttrs(global); err != nil {
		return err
	}

	minutes := make([]float64, len(frames))
	for i, f := range frames {
		minutes[i] = f.Time.Sub(first).Minutes()
	}
	points := meta.Points
	lat := make([]float64, len(points))
	lon := make([]float64, len(points))
	cols := make([]int32, len(points))
	for i, p := range points {
		lat[i], lon[i], cols[i] = p.Lat, p.Lon, int32(i)
	}

	type variable struct {
		name  string
		value any
		dims  []string
		attrs []any
	}
	vars := []variable{
		{timeDim, minutes, []string{timeDim}, []any{"units", "minutes since " + first.UTC().Format(time.DateTime)}},
		{levelDim, append([]float64(nil), meta.Levels...), []string{levelDim}, []any{"units", meta.Vertical.Units(), "long_name", meta.Vertical.String()}},
		{columnDim, cols, []string{columnDim}, []any{"long_name", "along-line position"}},
		{"lat", lat, []string{columnDim}, []any{"units", "degree_north"}},
		{"lon", lon, []string{columnDim}, []any{"units", "degree_east"}},
		{"terrain", append([]float64(nil), frames[0].Terrain...), []string{columnDim}, []any{"units", "m", "long_name", "terrain height"}},
	}

	slots := []struct {
		name string
		get  func(*pipeline.Frame) *xsect.CrossSection
	}{
		{"shade", func(f *pipeline.Frame) *xsect.CrossSection { return f.Shade }},
		{"contour", func(f *pipeline.Frame) *xsect.CrossSection { return f.Contour }},
		{"along", func(f *pipeline.Frame) *xsect.CrossSection { return f.Along }},
		{"upward", func(f *pipeline.Frame) *xsect.CrossSection { return f.Upward }},
	}
	for _, slot := range slots {
		cs0 := slot.get(frames[0])
		if cs0 == nil {
			continue
		}
		values := make([][][]float64, len(frames))
		for i, f := range frames {
			cs := slot.get(f)
			if cs == nil || !cs.SameShape(cs0) {
				return fmt.Errorf("%s: frame %d does not match frame 0", slot.name, i)
			}
			values[i] = cs.Values
		}
		vars = append(vars, variable{slot.name, values, []string{timeDim, levelDim, columnDim}, []any{
			"variable", cs0.Name,
			"long_name", cs0.Description,
			"units", cs0.Units,
			"comment", "missing cells are NaN",
		}})
	}

	for _, v := range vars {
		attrs, err := attributes(v.attrs...)
		if err != nil {
			return err
		}
		if err := cw.AddVar(v.name, api.Variable{Values: v.value, Dimensions: v.dims, Attributes: attrs}); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}
