// Package wrfout reads WRF model output: the NetCDF dataset handle, the time
// axis, and the native and derived variables a cross-section is built from.
package wrfout

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/rtm0/wrfxsect/internal/grid"
)

var (
	// ErrVariableNotFound is returned for a name that is neither stored in
	// the dataset nor derivable from it.
	ErrVariableNotFound = errors.New("variable not found")
	// ErrFrameOutOfRange is returned for a frame index past the dataset.
	ErrFrameOutOfRange = errors.New("frame out of range")
)

const (
	timeDim        = "Time"
	wrfTimeLayout  = "2006-01-02_15:04:05"
	timesVarName   = "Times"
	xtimeVarName   = "XTIME"
	staggerAttr    = "stagger"
	descriptionAtt = "description"
	unitsAttr      = "units"
)

// Store is read-only access to a multi-timestep, multi-variable gridded
// model-output file.
type Store interface {
	// Times returns the native timestamps in frame order.
	Times() []time.Time
	// NumFrames returns the number of frames in the store.
	NumFrames() int
	// Has reports whether name is stored natively.
	Has(name string) bool
	// Read returns variable name at frame as stored, staggering included.
	Read(name string, frame int) (*grid.Field, error)
	Close()
}

// Dataset is a WRF output file opened for reading. It is safe for concurrent
// use; reads from the underlying file are serialized.
type Dataset struct {
	path  string
	nc    api.Group
	names []string
	times []time.Time

	mu   sync.Mutex
	vars map[string]api.VarGetter
}

// Open opens the WRF output file at path and reads its time axis.
func Open(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("wrfout %q: %w", path, err)
	}
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfout %q: %w", path, err)
	}
	d := &Dataset{
		path:  path,
		nc:    nc,
		names: nc.ListVariables(),
		vars:  make(map[string]api.VarGetter),
	}
	slices.Sort(d.names)
	if d.times, err = d.readTimes(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("wrfout %q: %w", path, err)
	}
	return d, nil
}

// Close closes the dataset.
func (d *Dataset) Close() {
	d.nc.Close()
}

// Path returns the file the dataset was opened from.
func (d *Dataset) Path() string {
	return d.path
}

// Times returns the native timestamps in frame order.
func (d *Dataset) Times() []time.Time {
	return append([]time.Time(nil), d.times...)
}

// NumFrames returns the number of frames in the dataset.
func (d *Dataset) NumFrames() int {
	return len(d.times)
}

// Variables returns the names of the stored variables, sorted.
func (d *Dataset) Variables() []string {
	return append([]string(nil), d.names...)
}

// Has reports whether name is stored in the file.
func (d *Dataset) Has(name string) bool {
	_, ok := slices.BinarySearch(d.names, name)
	return ok
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (d *Dataset) Summary() []any {
	s := []any{
		"path", d.path,
		"frames", len(d.times),
		"variables", len(d.names),
	}
	if len(d.times) > 0 {
		s = append(s,
			"first", d.times[0].Format(time.RFC3339),
			"last", d.times[len(d.times)-1].Format(time.RFC3339))
	}
	return s
}

// Read returns variable name at frame. Variables without a Time dimension
// are returned regardless of frame.
func (d *Dataset) Read(name string, frame int) (*grid.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return nil, err
	}
	dims := vg.Dimensions()
	timed := len(dims) > 0 && dims[0] == timeDim

	var v any
	if timed {
		if frame < 0 || frame >= len(d.times) {
			return nil, fmt.Errorf("%w: %s frame %d of %d", ErrFrameOutOfRange, name, frame, len(d.times))
		}
		v, err = vg.GetSlice(int64(frame), int64(frame)+1)
	} else {
		v, err = vg.Values()
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	values, shape, err := flatten(v)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if timed {
		shape = shape[1:]
	}
	f, err := fieldFromShape(name, shape, values)
	if err != nil {
		return nil, err
	}
	if timed {
		f.Frame = frame
	}
	attrs := vg.Attributes()
	f.Description = stringAttr(attrs, descriptionAtt)
	f.Units = stringAttr(attrs, unitsAttr)
	f.Stagger = strings.TrimSpace(stringAttr(attrs, staggerAttr))
	return f, nil
}

// VariableInfo describes a stored variable.
type VariableInfo struct {
	Name        string
	Dimensions  []string
	Units       string
	Description string
}

// Describe returns the metadata of the stored variable name.
func (d *Dataset) Describe(name string) (VariableInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vg, err := d.getter(name)
	if err != nil {
		return VariableInfo{}, err
	}
	attrs := vg.Attributes()
	return VariableInfo{
		Name:        name,
		Dimensions:  vg.Dimensions(),
		Units:       stringAttr(attrs, unitsAttr),
		Description: stringAttr(attrs, descriptionAtt),
	}, nil
}

// GlobalAttributes returns the file's global attributes as strings.
func (d *Dataset) GlobalAttributes() map[string]string {
	attrs := d.nc.Attributes()
	m := make(map[string]string)
	if attrs == nil {
		return m
	}
	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		m[k] = fmt.Sprint(v)
	}
	return m
}

func (d *Dataset) getter(name string) (api.VarGetter, error) {
	if vg, ok := d.vars[name]; ok {
		return vg, nil
	}
	if !d.Has(name) {
		return nil, fmt.Errorf("%w: %q in %s", ErrVariableNotFound, name, d.path)
	}
	vg, err := d.nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrVariableNotFound, name, err)
	}
	d.vars[name] = vg
	return vg, nil
}

func (d *Dataset) readTimes() ([]time.Time, error) {
	if d.Has(timesVarName) {
		vg, err := d.nc.GetVarGetter(timesVarName)
		if err != nil {
			return nil, err
		}
		v, err := vg.Values()
		if err != nil {
			return nil, err
		}
		return parseTimeStrings(v)
	}
	if d.Has(xtimeVarName) {
		vg, err := d.nc.GetVarGetter(xtimeVarName)
		if err != nil {
			return nil, err
		}
		v, err := vg.Values()
		if err != nil {
			return nil, err
		}
		offsets, _, err := flatten(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", xtimeVarName, err)
		}
		return parseOffsets(offsets, stringAttr(vg.Attributes(), unitsAttr))
	}
	return nil, fmt.Errorf("no %s or %s variable", timesVarName, xtimeVarName)
}

// fieldFromShape lays out values of the given shape (time stripped) as a
// Field: 3-D shapes are (z, y, x), 2-D are (y, x), 1-D are (x).
func fieldFromShape(name string, shape []int, values []float64) (*grid.Field, error) {
	f := &grid.Field{Name: name, Frame: grid.StaticFrame, NZ: 1, NY: 1, NX: 1, Values: values}
	switch len(shape) {
	case 0:
	case 1:
		f.NX = shape[0]
	case 2:
		f.NY, f.NX = shape[0], shape[1]
	case 3:
		f.NZ, f.NY, f.NX = shape[0], shape[1], shape[2]
	default:
		return nil, fmt.Errorf("%s: unsupported rank %d", name, len(shape))
	}
	if len(values) != f.NZ*f.NY*f.NX {
		return nil, fmt.Errorf("%s: %d values for shape %v", name, len(values), shape)
	}
	return f, nil
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}
