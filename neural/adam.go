package neural

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// Default Adam hyperparameters.
const (
	DefaultLearningRate = 0.001
	DefaultBeta1        = 0.9
	DefaultBeta2        = 0.999
	DefaultEpsilon      = 1e-8
)

// Adam keeps first and second moment estimates for one parameter set. An
// optimizer must only ever be stepped with the parameters it was created for.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t int
	m []*mat.Dense
	v []*mat.Dense
}

// NewAdam returns an optimizer with the default betas and epsilon.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        DefaultBeta1,
		Beta2:        DefaultBeta2,
		Epsilon:      DefaultEpsilon,
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.t
}

// Step applies one bias-corrected update to params in place.
func (a *Adam) Step(params, grads []*mat.Dense) error {
	if len(params) != len(grads) {
		return errors.NewDimensionError("Adam.Step", len(params), len(grads), 0)
	}
	if a.m == nil {
		a.m = make([]*mat.Dense, len(params))
		a.v = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Dims()
			a.m[i] = mat.NewDense(r, c, nil)
			a.v[i] = mat.NewDense(r, c, nil)
		}
	}
	if len(a.m) != len(params) {
		return errors.NewDimensionError("Adam.Step", len(a.m), len(params), 0)
	}

	for i, p := range params {
		r, c := p.Dims()
		if gr, gc := grads[i].Dims(); gr != r || gc != c {
			return errors.NewDimensionError("Adam.Step", r*c, gr*gc, 1)
		}
		if mr, mc := a.m[i].Dims(); mr != r || mc != c {
			return errors.NewDimensionError("Adam.Step", mr*mc, r*c, 1)
		}
	}

	a.t++
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))

	for i, p := range params {
		r, _ := p.Dims()
		m, v, g := a.m[i], a.v[i], grads[i]
		for row := 0; row < r; row++ {
			pr, mr, vr, gr := p.RawRowView(row), m.RawRowView(row), v.RawRowView(row), g.RawRowView(row)
			for j := range pr {
				mr[j] = a.Beta1*mr[j] + (1-a.Beta1)*gr[j]
				vr[j] = a.Beta2*vr[j] + (1-a.Beta2)*gr[j]*gr[j]
				pr[j] -= lr * mr[j] / (math.Sqrt(vr[j]) + a.Epsilon)
			}
		}
	}
	return nil
}

// State exports the step count and moments.
func (a *Adam) State() model.OptimizerState {
	s := model.OptimizerState{Step: a.t}
	for i := range a.m {
		s.M = append(s.M, model.TensorFromDense(a.m[i]))
		s.V = append(s.V, model.TensorFromDense(a.v[i]))
	}
	return s
}

// Restore replaces the optimizer state. params fixes the expected moment
// shapes; an empty state resets the optimizer.
func (a *Adam) Restore(s model.OptimizerState, params []*mat.Dense) error {
	if len(s.M) == 0 && len(s.V) == 0 {
		a.t, a.m, a.v = s.Step, nil, nil
		return nil
	}
	if len(s.M) != len(params) || len(s.V) != len(params) {
		return errors.NewInputShapeError(errPhaseRestore, []int{len(params)}, []int{len(s.M)})
	}
	m := make([]*mat.Dense, len(params))
	v := make([]*mat.Dense, len(params))
	for i, p := range params {
		r, c := p.Dims()
		m[i] = mat.NewDense(r, c, nil)
		v[i] = mat.NewDense(r, c, nil)
		if err := copyTensor(m[i], s.M[i]); err != nil {
			return err
		}
		if err := copyTensor(v[i], s.V[i]); err != nil {
			return err
		}
	}
	a.t, a.m, a.v = s.Step, m, v
	return nil
}
