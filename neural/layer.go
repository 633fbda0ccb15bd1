// Package neural implements the small feed-forward networks used by the
// imputer: dense layers with ReLU or sigmoid activations, a forward pass that
// records what backpropagation needs, and an Adam optimizer.
package neural

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kiw9761/GAIN/core/parallel"
)

// Activation selects the element-wise nonlinearity of a layer.
type Activation int

const (
	ReLU Activation = iota
	Sigmoid
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// Dense is a fully connected layer computing act(x·W + b).
type Dense struct {
	W   *mat.Dense // in×out
	B   *mat.Dense // 1×out
	Act Activation
}

// NewDense returns a layer with Xavier-initialised weights and zero bias.
func NewDense(rng *rand.Rand, in, out int, act Activation) *Dense {
	return &Dense{
		W:   XavierInit(rng, in, out),
		B:   mat.NewDense(1, out, nil),
		Act: act,
	}
}

// XavierInit draws an in×out matrix from N(0, 1/sqrt(in/2)).
func XavierInit(rng *rand.Rand, in, out int) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(in)/2), Src: rng}
	data := make([]float64, in*out)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(in, out, data)
}

// affine returns x·W + b.
func (l *Dense) affine(x mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(x, l.W)
	bias := l.B.RawRowView(0)
	r, _ := z.Dims()
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return &z
}

// activate returns act(z).
func (l *Dense) activate(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	a := mat.NewDense(r, c, nil)
	f := reluElem
	if l.Act == Sigmoid {
		f = sigmoidElem
	}
	eachRow(r, c, func(i int) {
		src, dst := z.RawRowView(i), a.RawRowView(i)
		for j, v := range src {
			dst[j] = f(v)
		}
	})
	return a
}

// activationGrad returns dA ⊙ act'(z), using the cached output a.
func (l *Dense) activationGrad(dA, z, a *mat.Dense) *mat.Dense {
	r, c := dA.Dims()
	dZ := mat.NewDense(r, c, nil)
	eachRow(r, c, func(i int) {
		g, dst := dA.RawRowView(i), dZ.RawRowView(i)
		switch l.Act {
		case Sigmoid:
			out := a.RawRowView(i)
			for j := range dst {
				dst[j] = g[j] * out[j] * (1 - out[j])
			}
		default:
			pre := z.RawRowView(i)
			for j := range dst {
				if pre[j] > 0 {
					dst[j] = g[j]
				}
			}
		}
	})
	return dZ
}

func reluElem(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func sigmoidElem(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

// eachRow runs fn for every row, in parallel for large matrices. Rows are
// disjoint so the result does not depend on scheduling.
func eachRow(rows, cols int, fn func(i int)) {
	parallel.RowsIfLarge(rows, rows*cols, parallel.DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
