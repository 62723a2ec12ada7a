// Package grid holds the gridded model fields and the horizontal geometry of
// the model domain, together with the interpolation primitives used to sample
// them.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// Missing marks a value that could not be computed, e.g. a vertical target
// level outside the native column. It is never replaced by a number.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// ErrShapeMismatch is returned when two fields that must share a grid do not.
var ErrShapeMismatch = errors.New("field shapes do not match")

// StaticFrame is the Frame of fields with no time dependency.
const StaticFrame = -1

// Field is a physical variable over the model's native grid at one frame.
// Values are stored row-major: Values[(k*NY+j)*NX+i]. Horizontal-only fields
// have NZ == 1.
type Field struct {
	Name        string
	Description string
	Units       string
	Frame       int
	// Stagger names the staggered dimension on an Arakawa-C grid ("X", "Y"
	// or "Z"); empty for mass points.
	Stagger string

	NZ, NY, NX int
	Values     []float64
}

// NewField allocates a zero-valued field of the given shape.
func NewField(name string, nz, ny, nx int) *Field {
	return &Field{
		Name:   name,
		Frame:  StaticFrame,
		NZ:     nz,
		NY:     ny,
		NX:     nx,
		Values: make([]float64, nz*ny*nx),
	}
}

// Index returns the offset of (k, j, i) in Values.
func (f *Field) Index(k, j, i int) int {
	return (k*f.NY+j)*f.NX + i
}

// At returns the value at level k, row j, column i.
func (f *Field) At(k, j, i int) float64 {
	return f.Values[f.Index(k, j, i)]
}

// Set stores v at level k, row j, column i.
func (f *Field) Set(k, j, i int, v float64) {
	f.Values[f.Index(k, j, i)] = v
}

// Horizontal reports whether the field has a single level.
func (f *Field) Horizontal() bool {
	return f.NZ == 1
}

// Level returns the values of level k. The returned slice aliases Values.
func (f *Field) Level(k int) []float64 {
	n := f.NY * f.NX
	return f.Values[k*n : (k+1)*n]
}

// SameShape reports whether f and o have identical dimensions.
func (f *Field) SameShape(o *Field) bool {
	return f.NZ == o.NZ && f.NY == o.NY && f.NX == o.NX
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	c := *f
	c.Values = append([]float64(nil), f.Values...)
	return &c
}

// Map returns a new field with fn applied to every value of f. Metadata is
// copied from f.
func (f *Field) Map(fn func(float64) float64) *Field {
	c := f.Clone()
	for i, v := range c.Values {
		c.Values[i] = fn(v)
	}
	return c
}

// Combine applies fn elementwise over a and b, which must share a shape.
// Metadata of the result is copied from a.
func Combine(a, b *Field, fn func(x, y float64) float64) (*Field, error) {
	if !a.SameShape(b) {
		return nil, fmt.Errorf("%w: %s %dx%dx%d vs %s %dx%dx%d", ErrShapeMismatch,
			a.Name, a.NZ, a.NY, a.NX, b.Name, b.NZ, b.NY, b.NX)
	}
	c := a.Clone()
	for i := range c.Values {
		c.Values[i] = fn(a.Values[i], b.Values[i])
	}
	return c, nil
}

func (f *Field) String() string {
	return fmt.Sprintf("%s[%dx%dx%d] frame=%d", f.Name, f.NZ, f.NY, f.NX, f.Frame)
}

// VectorField pairs the eastward (U) and northward (V) components of a
// horizontal vector quantity on the same grid and frame.
type VectorField struct {
	U, V *Field
}

// Magnitude returns sqrt(u² + v²) elementwise.
func (vf VectorField) Magnitude() (*Field, error) {
	m, err := Combine(vf.U, vf.V, math.Hypot)
	if err != nil {
		return nil, err
	}
	m.Name = vf.U.Name + "_magnitude"
	return m, nil
}
