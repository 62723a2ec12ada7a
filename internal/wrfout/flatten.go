package wrfout

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

// flatten converts the nested slices returned by the NetCDF reader into a
// flat row-major slice and its shape.
func flatten(v any) ([]float64, []int, error) {
	switch v := v.(type) {
	case float32:
		return []float64{float64(v)}, nil, nil
	case float64:
		return []float64{v}, nil, nil
	case []float32:
		vals, shape := flat1(v)
		return vals, shape, nil
	case [][]float32:
		vals, shape := flat2(v)
		return vals, shape, nil
	case [][][]float32:
		vals, shape := flat3(v)
		return vals, shape, nil
	case [][][][]float32:
		vals, shape := flat4(v)
		return vals, shape, nil
	case []float64:
		vals, shape := flat1(v)
		return vals, shape, nil
	case [][]float64:
		vals, shape := flat2(v)
		return vals, shape, nil
	case [][][]float64:
		vals, shape := flat3(v)
		return vals, shape, nil
	case [][][][]float64:
		vals, shape := flat4(v)
		return vals, shape, nil
	case []int32:
		vals, shape := flat1(v)
		return vals, shape, nil
	case [][]int32:
		vals, shape := flat2(v)
		return vals, shape, nil
	case [][][]int32:
		vals, shape := flat3(v)
		return vals, shape, nil
	case []int16:
		vals, shape := flat1(v)
		return vals, shape, nil
	case [][]int16:
		vals, shape := flat2(v)
		return vals, shape, nil
	case [][][]int16:
		vals, shape := flat3(v)
		return vals, shape, nil
	default:
		return nil, nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func flat1[T number](v []T) ([]float64, []int) {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out, []int{len(v)}
}

func flat2[T number](v [][]T) ([]float64, []int) {
	var out []float64
	inner := []int{0}
	for _, r := range v {
		vals, shape := flat1(r)
		out = append(out, vals...)
		inner = shape
	}
	return out, append([]int{len(v)}, inner...)
}

func flat3[T number](v [][][]T) ([]float64, []int) {
	var out []float64
	inner := []int{0, 0}
	for _, r := range v {
		vals, shape := flat2(r)
		out = append(out, vals...)
		inner = shape
	}
	return out, append([]int{len(v)}, inner...)
}

func flat4[T number](v [][][][]T) ([]float64, []int) {
	var out []float64
	inner := []int{0, 0, 0}
	for _, r := range v {
		vals, shape := flat3(r)
		out = append(out, vals...)
		inner = shape
	}
	return out, append([]int{len(v)}, inner...)
}
