package wrfout

import (
	"fmt"
	"math"

	"github.com/rtm0/wrfxsect/internal/grid"
)

const (
	gravity  = 9.81     // m/s2
	p0       = 100000.0 // Pa, reference pressure for potential temperature
	kappa    = 0.2854   // Rd/cp
	theta0   = 300.0    // K, WRF base state potential temperature
	ezero    = 6.112    // hPa
	eslcon1  = 17.67
	eslcon2  = 29.65 // K
	celkel   = 273.15
	epsilon  = 0.622
	paPerHPa = 100.0
)

// destagger averages adjacent points along the staggered dimension of f so
// that it lands on mass points.
func destagger(f *grid.Field) (*grid.Field, error) {
	nz, ny, nx := f.NZ, f.NY, f.NX
	var dk, dj, di int
	switch f.Stagger {
	case "":
		return f, nil
	case "Z":
		nz, dk = nz-1, 1
	case "Y":
		ny, dj = ny-1, 1
	case "X":
		nx, di = nx-1, 1
	default:
		return nil, fmt.Errorf("%s: unknown stagger %q", f.Name, f.Stagger)
	}
	if nz < 1 || ny < 1 || nx < 1 {
		return nil, fmt.Errorf("%s: cannot destagger %q with shape %dx%dx%d", f.Name, f.Stagger, f.NZ, f.NY, f.NX)
	}
	out := grid.NewField(f.Name, nz, ny, nx)
	out.Description, out.Units, out.Frame = f.Description, f.Units, f.Frame
	for k := range nz {
		for j := range ny {
			for i := range nx {
				out.Set(k, j, i, 0.5*(f.At(k, j, i)+f.At(k+dk, j+dj, i+di)))
			}
		}
	}
	return out, nil
}

// mass reads name at frame and moves it onto mass points.
func (a *Accessor) mass(name string, frame int) (*grid.Field, error) {
	f, err := a.store.Read(name, frame)
	if err != nil {
		return nil, err
	}
	return destagger(f)
}

func (a *Accessor) sum(x, y string, frame int) (*grid.Field, error) {
	fx, err := a.mass(x, frame)
	if err != nil {
		return nil, err
	}
	fy, err := a.mass(y, frame)
	if err != nil {
		return nil, err
	}
	return grid.Combine(fx, fy, func(a, b float64) float64 { return a + b })
}

func tag(f *grid.Field, name string) *grid.Field {
	d := diagnosticMeta[name]
	f.Name, f.Description, f.Units = name, d.description, d.units
	return f
}

func (a *Accessor) pressurePa(frame int) (*grid.Field, error) {
	p, err := a.sum("P", "PB", frame)
	if err != nil {
		return nil, err
	}
	return tag(p, "p"), nil
}

// Pressure returns the full model pressure at frame in hPa.
func (a *Accessor) Pressure(frame int) (*grid.Field, error) {
	p, err := a.pressurePa(frame)
	if err != nil {
		return nil, err
	}
	return tag(p.Map(func(v float64) float64 { return v / paPerHPa }), "pressure"), nil
}

// Height returns the geopotential height at frame on mass levels.
func (a *Accessor) Height(frame int) (*grid.Field, error) {
	ph, err := a.store.Read("PH", frame)
	if err != nil {
		return nil, err
	}
	phb, err := a.store.Read("PHB", frame)
	if err != nil {
		return nil, err
	}
	geo, err := grid.Combine(ph, phb, func(x, y float64) float64 { return (x + y) / gravity })
	if err != nil {
		return nil, err
	}
	z, err := destagger(geo)
	if err != nil {
		return nil, err
	}
	return tag(z, "z"), nil
}

// Terrain returns the static surface elevation.
func (a *Accessor) Terrain() (*grid.Field, error) {
	ter, err := a.store.Read("HGT", 0)
	if err != nil {
		return nil, err
	}
	ter = tag(ter, "ter")
	ter.Frame = grid.StaticFrame
	return ter, nil
}

func (a *Accessor) theta(frame int) (*grid.Field, error) {
	t, err := a.mass("T", frame)
	if err != nil {
		return nil, err
	}
	return tag(t.Map(func(v float64) float64 { return v + theta0 }), "th"), nil
}

func (a *Accessor) temperature(frame int) (*grid.Field, error) {
	th, err := a.theta(frame)
	if err != nil {
		return nil, err
	}
	p, err := a.pressurePa(frame)
	if err != nil {
		return nil, err
	}
	tk, err := grid.Combine(th, p, func(th, p float64) float64 { return th * math.Pow(p/p0, kappa) })
	if err != nil {
		return nil, err
	}
	return tag(tk, "tk"), nil
}

func (a *Accessor) relativeHumidity(frame int) (*grid.Field, error) {
	tk, err := a.temperature(frame)
	if err != nil {
		return nil, err
	}
	p, err := a.pressurePa(frame)
	if err != nil {
		return nil, err
	}
	qv, err := a.mass("QVAPOR", frame)
	if err != nil {
		return nil, err
	}
	if !tk.SameShape(qv) {
		return nil, fmt.Errorf("%w: QVAPOR vs temperature", grid.ErrShapeMismatch)
	}
	rh := tk.Clone()
	for i, t := range tk.Values {
		es := ezero * math.Exp(eslcon1*(t-celkel)/(t-eslcon2))
		qvs := epsilon * es / (p.Values[i]/paPerHPa - (1-epsilon)*es)
		rh.Values[i] = 100 * max(min(qv.Values[i]/qvs, 1), 0)
	}
	return tag(rh, "rh"), nil
}

func (a *Accessor) ua(frame int) (*grid.Field, error) {
	u, err := a.mass("U", frame)
	if err != nil {
		return nil, err
	}
	return tag(u, "ua"), nil
}

func (a *Accessor) va(frame int) (*grid.Field, error) {
	v, err := a.mass("V", frame)
	if err != nil {
		return nil, err
	}
	return tag(v, "va"), nil
}

func (a *Accessor) wa(frame int) (*grid.Field, error) {
	w, err := a.mass("W", frame)
	if err != nil {
		return nil, err
	}
	return tag(w, "wa"), nil
}

// uvmet returns the earth-relative wind. Without COSALPHA/SINALPHA in the
// file the grid-relative wind is returned unrotated.
func (a *Accessor) uvmet(frame int) (grid.VectorField, error) {
	u, err := a.ua(frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	v, err := a.va(frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	if !u.SameShape(v) {
		return grid.VectorField{}, fmt.Errorf("%w: ua vs va", grid.ErrShapeMismatch)
	}
	ue, ve := u.Clone(), v.Clone()
	ue.Name, ve.Name = "uvmet_u", "uvmet_v"
	ue.Description, ve.Description = "earth rotated u", "earth rotated v"

	if !a.store.Has("COSALPHA") || !a.store.Has("SINALPHA") {
		return grid.VectorField{U: ue, V: ve}, nil
	}
	cosa, err := a.store.Read("COSALPHA", frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	sina, err := a.store.Read("SINALPHA", frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	if cosa.NY != u.NY || cosa.NX != u.NX || !cosa.SameShape(sina) {
		return grid.VectorField{}, fmt.Errorf("%w: rotation vs wind", grid.ErrShapeMismatch)
	}
	plane := u.NY * u.NX
	for idx := range u.Values {
		c, s := cosa.Values[idx%plane], sina.Values[idx%plane]
		ue.Values[idx] = u.Values[idx]*c - v.Values[idx]*s
		ve.Values[idx] = v.Values[idx]*c + u.Values[idx]*s
	}
	return grid.VectorField{U: ue, V: ve}, nil
}

// moistureFlux is the water vapour flux: mixing ratio in g/kg times the
// earth-relative wind.
func (a *Accessor) moistureFlux(frame int) (grid.VectorField, error) {
	wind, err := a.uvmet(frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	qv, err := a.mass("QVAPOR", frame)
	if err != nil {
		return grid.VectorField{}, err
	}
	flux := func(w *grid.Field, name string) (*grid.Field, error) {
		f, err := grid.Combine(qv, w, func(q, w float64) float64 { return q * MoistureFluxScale * w })
		if err != nil {
			return nil, err
		}
		f.Name, f.Description, f.Units = name, "water vapor flux", "g kg-1 m s-1"
		return f, nil
	}
	u, err := flux(wind.U, MoistureFluxName+"_u")
	if err != nil {
		return grid.VectorField{}, err
	}
	v, err := flux(wind.V, MoistureFluxName+"_v")
	if err != nil {
		return grid.VectorField{}, err
	}
	return grid.VectorField{U: u, V: v}, nil
}
