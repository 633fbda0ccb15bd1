package gain

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/neural"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// batch is the per-iteration input of both networks.
type batch struct {
	x    *mat.Dense // normalized data, missing cells filled with noise
	m    *mat.Dense // mask
	h    *mat.Dense // hint
	obsM float64    // mean(m)
}

// sampleBatch draws minibatch rows, noise and hints. It reports false when
// the batch has no observed cell.
func (g *Imputer) sampleBatch(norm, mask *mat.Dense, size int) (*batch, bool, error) {
	n, d := norm.Dims()
	idx, err := g.sampler.BatchIndex(n, size)
	if err != nil {
		return nil, false, err
	}
	xb := gatherRows(norm, idx)
	mb := gatherRows(mask, idx)

	obsM := mean(mb)
	if obsM == 0 {
		return nil, false, nil
	}

	z, err := g.sampler.Uniform(0, noiseHigh, size, d)
	if err != nil {
		return nil, false, err
	}
	h, err := g.sampler.Hint(mb, g.cfg.HintRate)
	if err != nil {
		return nil, false, err
	}
	return &batch{x: blend(mb, xb, z), m: mb, h: h, obsM: obsM}, true, nil
}

// generation is the generator pass shared by both updates of one step.
type generation struct {
	trace  *neural.Trace
	sample *mat.Dense
	dInput *mat.Dense // [hatX, h]
}

func (g *Imputer) generate(b *batch) *generation {
	tr := g.generator.Forward(hstack(b.x, b.m))
	sample := tr.Output()
	return &generation{
		trace:  tr,
		sample: sample,
		dInput: hstack(blend(b.m, b.x, sample), b.h),
	}
}

// trainStep performs one discriminator update followed by one generator
// update on b. The generator step sees the discriminator after its update.
func (g *Imputer) trainStep(it int, b *batch) (Losses, error) {
	gen := g.generate(b)
	dLoss, err := g.discriminatorStep(it, b, gen)
	if err != nil {
		return Losses{D: dLoss}, err
	}
	losses, err := g.generatorStep(it, b, gen)
	losses.D = dLoss
	if err != nil {
		return losses, err
	}
	if err := errors.CheckScalar("discriminator_loss", losses.D, it); err != nil {
		return losses, err
	}
	if err := errors.CheckScalar("generator_loss", losses.G, it); err != nil {
		return losses, err
	}
	return losses, nil
}

// discriminatorGradients returns the binary cross-entropy of the
// discriminator against the mask and its gradient with respect to θ_D.
func (g *Imputer) discriminatorGradients(b *batch, gen *generation) (neural.Gradients, float64) {
	r, c := b.m.Dims()
	n := float64(r * c)

	tr := g.discriminator.Forward(gen.dInput)
	prob := tr.Output()
	dOut := mat.NewDense(r, c, nil)
	var loss float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m, p := b.m.At(i, j), prob.At(i, j)
			loss -= m*errors.GuardedLog(p, epsilon) + (1-m)*errors.GuardedLog(1-p, epsilon)
			dOut.Set(i, j, -(m/(p+epsilon)-(1-m)/(1-p+epsilon))/n)
		}
	}
	grads, _ := g.discriminator.Backward(tr, dOut)
	return grads, loss / n
}

// generatorGradients returns the generator losses and their gradient with
// respect to θ_G. The adversarial term goes through the current θ_D.
func (g *Imputer) generatorGradients(b *batch, gen *generation) (neural.Gradients, Losses) {
	var losses Losses
	r, c := b.m.Dims()
	n := float64(r * c)

	tr := g.discriminator.Forward(gen.dInput)
	prob := tr.Output()
	advOut := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m, p := b.m.At(i, j), prob.At(i, j)
			losses.GAdv -= (1 - m) * errors.GuardedLog(p, epsilon)
			advOut.Set(i, j, -(1-m)/(n*(p+epsilon)))
		}
	}
	losses.GAdv /= n
	_, dIn := g.discriminator.Backward(tr, advOut)

	gOut := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m, x, s := b.m.At(i, j), b.x.At(i, j), gen.sample.At(i, j)
			diff := m*x - m*s
			losses.MSE += diff * diff
			// hatX = m·x + (1−m)·G, so only missing cells carry the adversarial signal.
			adv := dIn.At(i, j) * (1 - m)
			rec := 2 * m * (s - x) / (n * b.obsM)
			gOut.Set(i, j, adv+g.cfg.Alpha*rec)
		}
	}
	losses.MSE = losses.MSE / n / b.obsM
	losses.G = losses.GAdv + g.cfg.Alpha*losses.MSE

	grads, _ := g.generator.Backward(gen.trace, gOut)
	return grads, losses
}

// discriminatorStep applies one Adam update to θ_D and returns D_loss
// before the update.
func (g *Imputer) discriminatorStep(it int, b *batch, gen *generation) (float64, error) {
	grads, loss := g.discriminatorGradients(b, gen)
	if err := g.dOpt.Step(g.discriminator.Params(), grads.Flatten()); err != nil {
		return loss, err
	}
	return loss, checkParams("discriminator_update", g.discriminator, it)
}

// generatorStep applies one Adam update to θ_G. Losses.D is left zero.
func (g *Imputer) generatorStep(it int, b *batch, gen *generation) (Losses, error) {
	grads, losses := g.generatorGradients(b, gen)
	if err := g.gOpt.Step(g.generator.Params(), grads.Flatten()); err != nil {
		return losses, err
	}
	return losses, checkParams("generator_update", g.generator, it)
}

func checkParams(op string, n *neural.Network, it int) error {
	for _, p := range n.Params() {
		r, c := p.Dims()
		if err := errors.CheckMatrix(op, p, r, c, it); err != nil {
			return err
		}
	}
	return nil
}
