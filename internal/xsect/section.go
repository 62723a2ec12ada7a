package xsect

import (
	"fmt"

	"github.com/rtm0/wrfxsect/internal/grid"
)

// CrossSection is a field resampled onto a line and a set of vertical levels.
// It is not modified once produced.
type CrossSection struct {
	Name        string
	Description string
	Units       string
	Frame       int
	Vertical    VerticalCoord

	// Columns are the along-line positions 0..len(Points)-1.
	Columns []int
	// Points are the geographic positions of the columns.
	Points []grid.GeoPoint
	// Levels are the vertical levels the field was interpolated to.
	Levels []float64
	// Values are indexed [level][column]; grid.Missing where the level lies
	// outside the native column.
	Values [][]float64
}

// NumColumns returns the number of along-line samples.
func (cs *CrossSection) NumColumns() int {
	return len(cs.Columns)
}

// At returns the value at column c and level l.
func (cs *CrossSection) At(c, l int) float64 {
	return cs.Values[l][c]
}

// SameShape reports whether cs and o share columns and levels.
func (cs *CrossSection) SameShape(o *CrossSection) bool {
	if len(cs.Values) != len(o.Values) || len(cs.Columns) != len(o.Columns) {
		return false
	}
	for l := range cs.Values {
		if len(cs.Values[l]) != len(o.Values[l]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of cs.
func (cs *CrossSection) Clone() *CrossSection {
	c := *cs
	c.Columns = append([]int(nil), cs.Columns...)
	c.Points = append([]grid.GeoPoint(nil), cs.Points...)
	c.Levels = append([]float64(nil), cs.Levels...)
	c.Values = make([][]float64, len(cs.Values))
	for l, row := range cs.Values {
		c.Values[l] = append([]float64(nil), row...)
	}
	return &c
}

// Missing returns the number of missing cells.
func (cs *CrossSection) Missing() int {
	var n int
	for _, row := range cs.Values {
		for _, v := range row {
			if grid.IsMissing(v) {
				n++
			}
		}
	}
	return n
}

func (cs *CrossSection) String() string {
	return fmt.Sprintf("%s[%d columns x %d %s levels] frame=%d", cs.Name, len(cs.Columns), len(cs.Levels), cs.Vertical, cs.Frame)
}
