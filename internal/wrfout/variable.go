package wrfout

import (
	"fmt"
	"slices"

	"github.com/rtm0/wrfxsect/internal/grid"
)

// Kind tells how a variable is resolved against the dataset.
type Kind int

const (
	// Raw variables are read from the file as stored.
	Raw Kind = iota + 1
	// Diagnostic variables are computed from raw variables of one frame.
	Diagnostic
	// MoistureFlux is the water vapour flux vector, mixing ratio times wind.
	MoistureFlux
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Diagnostic:
		return "diagnostic"
	case MoistureFlux:
		return "moisture flux"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MoistureFluxName is the name the moisture flux vector is requested by.
const MoistureFluxName = "wv_flux"

// MoistureFluxScale converts the mixing ratio from kg/kg to g/kg before it
// is multiplied by the wind.
const MoistureFluxScale = 1000

// Variable is a variable name resolved against a dataset.
type Variable struct {
	Name   string
	Kind   Kind
	Vector bool
}

// Quantity is a fetched variable: exactly one of Scalar and Vector is set.
type Quantity struct {
	Scalar *grid.Field
	Vector *grid.VectorField
}

// IsVector reports whether q holds a vector quantity.
func (q Quantity) IsVector() bool {
	return q.Vector != nil
}

type diagnostic struct {
	scalar func(a *Accessor, frame int) (*grid.Field, error)
	vector func(a *Accessor, frame int) (grid.VectorField, error)
}

type metadata struct {
	description string
	units       string
}

var diagnosticMeta = map[string]metadata{
	"p":        {"pressure", "Pa"},
	"pressure": {"pressure", "hPa"},
	"z":        {"geopotential height", "m"},
	"ter":      {"terrain height", "m"},
	"th":       {"potential temperature", "K"},
	"tk":       {"temperature", "K"},
	"rh":       {"relative humidity", "%"},
	"ua":       {"destaggered u-wind component", "m s-1"},
	"va":       {"destaggered v-wind component", "m s-1"},
	"wa":       {"destaggered w-wind component", "m s-1"},
	"uvmet":    {"earth rotated u,v", "m s-1"},
}

var diagnostics = map[string]diagnostic{
	"p":        {scalar: (*Accessor).pressurePa},
	"pressure": {scalar: (*Accessor).Pressure},
	"z":        {scalar: (*Accessor).Height},
	"ter":      {scalar: func(a *Accessor, _ int) (*grid.Field, error) { return a.Terrain() }},
	"th":       {scalar: (*Accessor).theta},
	"tk":       {scalar: (*Accessor).temperature},
	"rh":       {scalar: (*Accessor).relativeHumidity},
	"ua":       {scalar: (*Accessor).ua},
	"va":       {scalar: (*Accessor).va},
	"wa":       {scalar: (*Accessor).wa},
	"uvmet":    {vector: (*Accessor).uvmet},
}

// Diagnostics returns the names of the computed variables, sorted, the
// moisture flux included.
func Diagnostics() []string {
	names := []string{MoistureFluxName}
	for name := range diagnostics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
