package gain

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaskOf returns the observation mask of data: 1 where a value is present,
// 0 where it is NaN.
func MaskOf(data mat.Matrix) *mat.Dense {
	r, c := data.Dims()
	m := mat.NewDense(r, c, nil)
	m.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return 1
	}, data)
	return m
}

// fillMissing replaces NaN by zero in place.
func fillMissing(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return v
	}, x)
}

// blend returns m·a + (1−m)·b element-wise.
func blend(m, a, b mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, mv float64) float64 {
		return mv*a.At(i, j) + (1-mv)*b.At(i, j)
	}, m)
	return out
}

// hstack concatenates a and b column-wise.
func hstack(a, b mat.Matrix) *mat.Dense {
	r, ca := a.Dims()
	_, cb := b.Dims()
	out := mat.NewDense(r, ca+cb, nil)
	out.Slice(0, r, 0, ca).(*mat.Dense).Copy(a)
	out.Slice(0, r, ca, ca+cb).(*mat.Dense).Copy(b)
	return out
}

// gatherRows returns the rows of x listed in idx.
func gatherRows(x *mat.Dense, idx []int) *mat.Dense {
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		copy(out.RawRowView(k), x.RawRowView(i))
	}
	return out
}

func mean(x *mat.Dense) float64 {
	r, c := x.Dims()
	return mat.Sum(x) / float64(r*c)
}

// clipColumns clamps column j of x to [lo[j], hi[j]] in place.
func clipColumns(x *mat.Dense, lo, hi []float64) {
	x.Apply(func(_, j int, v float64) float64 {
		return math.Min(math.Max(v, lo[j]), hi[j])
	}, x)
}
