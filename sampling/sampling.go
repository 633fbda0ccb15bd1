// Package sampling provides the random draws used by the imputer: Bernoulli
// masks, uniform noise, minibatch indices and discriminator hints.
//
// A Sampler owns its random source, so two samplers created with the same
// seed produce identical sequences.
package sampling

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kiw9761/GAIN/pkg/errors"
)

// Sampler draws random matrices and index sets from a single seeded source.
// It is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler seeded with seed.
func New(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Rand exposes the underlying source, e.g. for weight initialization.
func (s *Sampler) Rand() *rand.Rand {
	return s.rng
}

// Binary returns a rows×cols matrix whose entries are independently 1 with
// probability p and 0 otherwise.
func (s *Sampler) Binary(p float64, rows, cols int) (*mat.Dense, error) {
	if p < 0 || p > 1 {
		return nil, errors.NewValidationError("p", "must be in [0, 1]", p)
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.NewValueError("Sampler.Binary", fmt.Sprintf("invalid shape %dx%d", rows, cols))
	}
	b := distuv.Bernoulli{P: p, Src: s.rng}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = b.Rand()
	}
	return mat.NewDense(rows, cols, data), nil
}

// Uniform returns a rows×cols matrix of independent draws from [lo, hi).
func (s *Sampler) Uniform(lo, hi float64, rows, cols int) (*mat.Dense, error) {
	if !(lo < hi) {
		return nil, errors.NewValueError("Sampler.Uniform", fmt.Sprintf("empty range [%v, %v)", lo, hi))
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.NewValueError("Sampler.Uniform", fmt.Sprintf("invalid shape %dx%d", rows, cols))
	}
	u := distuv.Uniform{Min: lo, Max: hi, Src: s.rng}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = u.Rand()
	}
	return mat.NewDense(rows, cols, data), nil
}

// BatchIndex returns k distinct indices drawn without replacement from [0, n),
// taken as the prefix of a random permutation.
func (s *Sampler) BatchIndex(n, k int) ([]int, error) {
	if n <= 0 {
		return nil, errors.NewValueError("Sampler.BatchIndex", fmt.Sprintf("population size must be positive, got %d", n))
	}
	if k <= 0 || k > n {
		return nil, errors.NewValueError("Sampler.BatchIndex", fmt.Sprintf("batch size %d out of range [1, %d]", k, n))
	}
	return s.rng.Perm(n)[:k], nil
}

// Hint returns mask ⊙ B where B ~ Bernoulli(hintRate). A hint cell is 1 only
// where the mask is 1, so withheld or never-observed cells are always 0.
func (s *Sampler) Hint(mask mat.Matrix, hintRate float64) (*mat.Dense, error) {
	if !(hintRate > 0 && hintRate < 1) {
		return nil, errors.NewValidationError("hint_rate", "must be in (0, 1)", hintRate)
	}
	r, c := mask.Dims()
	b, err := s.Binary(hintRate, r, c)
	if err != nil {
		return nil, err
	}
	b.MulElem(b, mask)
	return b, nil
}
