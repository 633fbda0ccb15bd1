package neural

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// Network is a stack of dense layers applied in order.
type Network struct {
	Layers []*Dense
}

// NewNetwork builds a network with len(sizes)-1 layers; layer i maps
// sizes[i] to sizes[i+1] and applies acts[i].
func NewNetwork(rng *rand.Rand, sizes []int, acts []Activation) *Network {
	if len(acts) != len(sizes)-1 {
		panic(fmt.Sprintf("neural: %d activations for %d layers", len(acts), len(sizes)-1))
	}
	n := &Network{Layers: make([]*Dense, len(acts))}
	for i, act := range acts {
		n.Layers[i] = NewDense(rng, sizes[i], sizes[i+1], act)
	}
	return n
}

// NewImputationNetwork returns the 2·dim → dim → dim → dim network shared by
// the generator and the discriminator: two ReLU hidden layers and a sigmoid
// output.
func NewImputationNetwork(rng *rand.Rand, dim int) *Network {
	return NewNetwork(rng, []int{2 * dim, dim, dim, dim}, []Activation{ReLU, ReLU, Sigmoid})
}

// InputDim returns the width the first layer expects.
func (n *Network) InputDim() int {
	r, _ := n.Layers[0].W.Dims()
	return r
}

// OutputDim returns the width of the last layer.
func (n *Network) OutputDim() int {
	_, c := n.Layers[len(n.Layers)-1].W.Dims()
	return c
}

// Trace records the per-layer values of one forward pass.
type Trace struct {
	Inputs  []*mat.Dense // input of layer i
	PreActs []*mat.Dense // x·W + b of layer i
	Outputs []*mat.Dense // activation of layer i
}

// Output returns the network output.
func (t *Trace) Output() *mat.Dense {
	return t.Outputs[len(t.Outputs)-1]
}

// Forward runs x through the network, keeping intermediates for Backward.
func (n *Network) Forward(x *mat.Dense) *Trace {
	tr := &Trace{
		Inputs:  make([]*mat.Dense, len(n.Layers)),
		PreActs: make([]*mat.Dense, len(n.Layers)),
		Outputs: make([]*mat.Dense, len(n.Layers)),
	}
	in := x
	for i, l := range n.Layers {
		z := l.affine(in)
		a := l.activate(z)
		tr.Inputs[i], tr.PreActs[i], tr.Outputs[i] = in, z, a
		in = a
	}
	return tr
}

// Predict is Forward without keeping the trace.
func (n *Network) Predict(x *mat.Dense) *mat.Dense {
	return n.Forward(x).Output()
}

// Gradients holds dLoss/dW and dLoss/dB for every layer.
type Gradients struct {
	W []*mat.Dense
	B []*mat.Dense
}

// Flatten lists gradients in Params order.
func (g Gradients) Flatten() []*mat.Dense {
	out := make([]*mat.Dense, 0, 2*len(g.W))
	for i := range g.W {
		out = append(out, g.W[i], g.B[i])
	}
	return out
}

// Backward propagates dOut, the gradient of the loss with respect to the
// network output, through a recorded forward pass. It returns the parameter
// gradients and the gradient with respect to the network input. The network
// itself is not modified.
func (n *Network) Backward(tr *Trace, dOut *mat.Dense) (Gradients, *mat.Dense) {
	g := Gradients{
		W: make([]*mat.Dense, len(n.Layers)),
		B: make([]*mat.Dense, len(n.Layers)),
	}
	dA := dOut
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := n.Layers[i]
		dZ := l.activationGrad(dA, tr.PreActs[i], tr.Outputs[i])

		var dW mat.Dense
		dW.Mul(tr.Inputs[i].T(), dZ)
		g.W[i] = &dW
		g.B[i] = columnSums(dZ)

		var dX mat.Dense
		dX.Mul(dZ, l.W.T())
		dA = &dX
	}
	return g, dA
}

func columnSums(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(1, c, nil)
	sums := out.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			sums[j] += v
		}
	}
	return out
}

// Params lists the trainable matrices as W0, B0, W1, B1, ...
func (n *Network) Params() []*mat.Dense {
	out := make([]*mat.Dense, 0, 2*len(n.Layers))
	for _, l := range n.Layers {
		out = append(out, l.W, l.B)
	}
	return out
}

// Snapshot copies the parameters into their persisted form.
func (n *Network) Snapshot() model.NetworkWeights {
	w := model.NetworkWeights{Layers: make([]model.LayerWeights, len(n.Layers))}
	for i, l := range n.Layers {
		w.Layers[i] = model.LayerWeights{
			Weights: model.TensorFromDense(l.W),
			Bias:    model.TensorFromDense(l.B),
		}
	}
	return w
}

// Restore overwrites the parameters in place from w. Shapes must match.
func (n *Network) Restore(w model.NetworkWeights) error {
	if len(w.Layers) != len(n.Layers) {
		return errors.NewInputShapeError(errPhaseRestore, []int{len(n.Layers)}, []int{len(w.Layers)})
	}
	for i, l := range n.Layers {
		if err := copyTensor(l.W, w.Layers[i].Weights); err != nil {
			return err
		}
		if err := copyTensor(l.B, w.Layers[i].Bias); err != nil {
			return err
		}
	}
	return nil
}

const errPhaseRestore = "restore"

func copyTensor(dst *mat.Dense, t model.Tensor) error {
	r, c := dst.Dims()
	if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
		return errors.NewInputShapeError(errPhaseRestore, []int{r, c}, []int{t.Rows, t.Cols})
	}
	for i := 0; i < r; i++ {
		copy(dst.RawRowView(i), t.Data[i*c:(i+1)*c])
	}
	return nil
}
