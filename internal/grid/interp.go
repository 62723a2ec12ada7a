package grid

import "math"

// cell returns the lower index of the interval containing x on an axis of n
// points, and the fractional offset into it.
func cell(x float64, n int) (int, float64) {
	if n < 2 {
		return 0, 0
	}
	i := int(math.Floor(x))
	i = min(max(i, 0), n-2)
	return i, x - float64(i)
}

// bilinear samples a row-major ny×nx plane at fractional (x, y). Corners with
// zero weight are not read, so an exact hit on a node ignores missing
// neighbours.
func bilinear(plane []float64, ny, nx int, x, y float64) float64 {
	i0, s := cell(x, nx)
	j0, t := cell(y, ny)
	corners := [4]struct {
		di, dj int
		w      float64
	}{
		{0, 0, (1 - s) * (1 - t)},
		{1, 0, s * (1 - t)},
		{0, 1, (1 - s) * t},
		{1, 1, s * t},
	}
	var v float64
	for _, c := range corners {
		if c.w == 0 {
			continue
		}
		v += c.w * plane[(j0+c.dj)*nx+i0+c.di]
	}
	return v
}

// Bilinear samples level k of f at fractional grid coordinate (x, y).
func (f *Field) Bilinear(k int, x, y float64) float64 {
	return bilinear(f.Level(k), f.NY, f.NX, x, y)
}

// Column samples every level of f at (x, y).
func (f *Field) Column(x, y float64) []float64 {
	col := make([]float64, f.NZ)
	for k := range f.NZ {
		col[k] = f.Bilinear(k, x, y)
	}
	return col
}

// Interp1D linearly interpolates the column (zs, vs) to target. zs may be
// increasing or decreasing; the first bracketing pair wins. A target outside
// the range of zs yields Missing.
func Interp1D(zs, vs []float64, target float64) float64 {
	if len(zs) == 1 && zs[0] == target {
		return vs[0]
	}
	for k := 0; k+1 < len(zs); k++ {
		z0, z1 := zs[k], zs[k+1]
		if math.IsNaN(z0) || math.IsNaN(z1) {
			continue
		}
		if target < min(z0, z1) || target > max(z0, z1) {
			continue
		}
		if z0 == z1 || target == z0 {
			return vs[k]
		}
		if target == z1 {
			return vs[k+1]
		}
		w := (target - z0) / (z1 - z0)
		return vs[k] + w*(vs[k+1]-vs[k])
	}
	return Missing
}
