package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rounder は元データで整数値のみを取る列を記録し、補完結果のその列を丸める
type Rounder struct {
	// IntegerColumns[j] は列jの観測値がすべて整数の場合true
	IntegerColumns []bool
}

// NewRounder は元の（正規化前の）データから整数列を検出する。
// 観測値が一つもない列は連続値として扱う。
func NewRounder(original mat.Matrix) *Rounder {
	r, c := original.Dims()
	cols := make([]bool, c)
	for j := 0; j < c; j++ {
		observed := 0
		integer := true
		for i := 0; i < r && integer; i++ {
			v := original.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			observed++
			integer = v == math.Trunc(v)
		}
		cols[j] = integer && observed > 0
	}
	return &Rounder{IntegerColumns: cols}
}

// Apply は整数列を最近接の整数に丸める（X を直接書き換える）。
// 0.5 ちょうどは偶数側に丸める。
func (r *Rounder) Apply(X *mat.Dense) {
	rows, c := X.Dims()
	for j := 0; j < c && j < len(r.IntegerColumns); j++ {
		if !r.IntegerColumns[j] {
			continue
		}
		for i := 0; i < rows; i++ {
			X.Set(i, j, math.RoundToEven(X.At(i, j)))
		}
	}
}
