// Package gain imputes missing values in tabular data with a Generative
// Adversarial Imputation Network.
//
// A generator proposes values for every cell from the observed data and the
// mask; a discriminator, helped by a partial hint of the mask, tries to tell
// observed cells from imputed ones. Training alternates one discriminator
// update and one generator update per minibatch for a fixed number of
// iterations.
//
//	imp, err := gain.New(gain.WithIterations(5000), gain.WithSeed(1))
//	if err != nil { ... }
//	out, err := imp.Impute(ctx, gain.Input{Data: data, OriginalDim: d})
package gain

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/neural"
	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/pkg/log"
	"github.com/kiw9761/GAIN/preprocessing"
	"github.com/kiw9761/GAIN/sampling"
)

// ModelStore persists network checkpoints keyed by dataset name.
type ModelStore = model.CheckpointStore

// Imputer trains the generator/discriminator pair and fills missing values.
// It is not safe for concurrent use.
type Imputer struct {
	cfg       Config
	store     ModelStore
	logger    log.Logger
	observers []Observer

	state   model.StateManager
	runID   string
	seed    uint64
	sampler *sampling.Sampler

	generator     *neural.Network
	discriminator *neural.Network
	gOpt          *neural.Adam
	dOpt          *neural.Adam

	scaler  *preprocessing.MinMaxScaler
	rounder *preprocessing.Rounder

	// iterations counts every iteration the networks have been through,
	// including those of a restored checkpoint.
	iterations int
}

// New returns an Imputer configured by opts on top of DefaultConfig.
func New(opts ...Option) (*Imputer, error) {
	g := &Imputer{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if g.store != nil && g.cfg.DataName == "" {
		return nil, errors.NewValidationError("data_name", "required when a model store is configured", g.cfg.DataName)
	}
	if g.logger == nil {
		g.logger = log.GetLoggerWithName("gain")
	}

	g.runID = uuid.NewString()
	g.seed = uint64(g.cfg.Seed)
	if g.cfg.Seed == RandomSeed {
		g.seed = rand.Uint64()
	}
	g.sampler = sampling.New(g.seed)
	g.logger = g.logger.With(log.ModelNameKey, "Imputer", log.RunIDKey, g.runID)
	return g, nil
}

// Config returns the effective configuration.
func (g *Imputer) Config() Config {
	return g.cfg
}

// RunID identifies this imputer in logs and checkpoints.
func (g *Imputer) RunID() string {
	return g.runID
}

// Iterations returns the total number of training iterations applied to the
// current parameters.
func (g *Imputer) Iterations() int {
	return g.iterations
}

// Fit trains both networks on data, whose missing cells are NaN.
//
// In predict mode a stored checkpoint for the data name, if any, is
// restored before training; in training mode the result is saved after the
// last iteration. Training always runs the configured number of iterations.
// A cancelled ctx stops training between iterations and nothing is saved.
func (g *Imputer) Fit(ctx context.Context, data mat.Matrix) (err error) {
	defer errors.Recover(&err, "Imputer.Fit")

	n, d := data.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("Imputer.Fit", "empty data", errors.ErrEmptyData)
	}
	start := time.Now()
	g.state.Reset()

	mask := MaskOf(data)
	norm, scaler, err := preprocessing.Normalize(data)
	if err != nil {
		return err
	}
	fillMissing(norm)
	g.scaler = scaler
	g.rounder = preprocessing.NewRounder(data)

	g.initNetworks(d)
	if err := g.maybeRestore(ctx, d); err != nil {
		return err
	}

	size := g.cfg.BatchSize
	if size > n {
		errors.Warn(errors.NewBatchSizeWarning(size, n))
		size = n
	}

	logger := g.logger.With(log.OperationKey, log.OperationFit)
	logger.Info("Training started",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.MissingRateKey, 1-mean(mask),
		log.BatchSizeKey, size,
		log.IterationsKey, g.cfg.Iterations,
		log.HintRateKey, g.cfg.HintRate,
		log.AlphaKey, g.cfg.Alpha,
		log.RandomSeedKey, g.seed,
	)

	var last Losses
	for it := 0; it < g.cfg.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Training cancelled", log.IterationKey, it)
			return err
		}

		b, ok, err := g.sampleBatch(norm, mask, size)
		if err != nil {
			return err
		}
		g.iterations++
		if !ok {
			errors.Warn(errors.NewDegenerateBatchWarning(it, size))
			for _, o := range g.observers {
				o.ObserveDegenerateBatch(it)
			}
			continue
		}

		last, err = g.trainStep(it, b)
		if err != nil {
			logger.Error("Training diverged", err, log.IterationKey, it)
			return err
		}
		for _, o := range g.observers {
			o.ObserveIteration(it, last)
		}
		if g.cfg.LogInterval > 0 && (it+1)%g.cfg.LogInterval == 0 {
			logger.Debug("Training progress",
				log.IterationKey, it+1,
				log.DiscriminatorLossKey, last.D,
				log.AdversarialLossKey, last.GAdv,
				log.MSELossKey, last.MSE,
				log.GeneratorLossKey, last.G,
			)
		}
	}

	g.state.SetDimensions(d, n)
	g.state.SetFitted()

	if !g.cfg.Predict && g.store != nil {
		if err := g.store.Save(ctx, g.cfg.DataName, g.checkpoint()); err != nil {
			return err
		}
		logger.Info("Checkpoint saved", log.StoreKey, g.cfg.DataName)
	}

	logger.Info("Training finished",
		log.IterationsKey, g.iterations,
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.DiscriminatorLossKey, last.D,
		log.GeneratorLossKey, last.G,
		log.MSELossKey, last.MSE,
	)
	return nil
}

func (g *Imputer) initNetworks(dim int) {
	rng := g.sampler.Rand()
	g.generator = neural.NewImputationNetwork(rng, dim)
	g.discriminator = neural.NewImputationNetwork(rng, dim)
	g.gOpt = neural.NewAdam(g.cfg.LearningRate)
	g.dOpt = neural.NewAdam(g.cfg.LearningRate)
	g.iterations = 0
}

// maybeRestore loads the stored checkpoint in predict mode. A missing
// checkpoint leaves the fresh initialization in place.
func (g *Imputer) maybeRestore(ctx context.Context, dim int) error {
	if !g.cfg.Predict || g.store == nil {
		return nil
	}
	logger := g.logger.With(log.PhaseKey, log.PhaseRestore, log.StoreKey, g.cfg.DataName)

	cp, err := g.store.Load(ctx, g.cfg.DataName)
	if errors.Is(err, errors.ErrCheckpointNotFound) {
		logger.Info("No checkpoint found, starting from a fresh model")
		return nil
	}
	if err != nil {
		return err
	}
	if cp.Dim != dim {
		return errors.NewInputShapeError(log.PhaseRestore, []int{cp.Dim}, []int{dim})
	}
	if err := g.restore(cp); err != nil {
		return err
	}
	logger.Info("Checkpoint restored", log.IterationsKey, cp.Iterations, "checkpoint_run_id", cp.RunID)
	return nil
}

// Transform fills the missing cells of data with one generator pass and
// returns the result in the original scale. Observed cells are returned
// unchanged and columns whose observed training values were all integers
// are rounded.
func (g *Imputer) Transform(data mat.Matrix) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "Imputer.Transform")

	if err := g.state.RequireFitted("Imputer", "Transform"); err != nil {
		return nil, err
	}
	n, d := data.Dims()
	if err := g.state.RequireFeatures("Imputer.Transform", d); err != nil {
		return nil, err
	}

	mask := MaskOf(data)
	norm, err := g.scaler.Transform(data)
	if err != nil {
		return nil, err
	}
	fillMissing(norm)

	z, err := g.sampler.Uniform(0, noiseHigh, n, d)
	if err != nil {
		return nil, err
	}
	xIn := blend(mask, norm, z)
	gFull := g.generator.Predict(hstack(xIn, mask))

	imputed, err := preprocessing.Renormalize(blend(mask, norm, gFull), g.scaler)
	if err != nil {
		return nil, err
	}
	// Constant columns are normalized with a unit range, so generated values
	// are clamped to the observed range of each column.
	clipColumns(imputed, g.scaler.DataMin, g.scaler.DataMax)

	// Observed cells are copied verbatim instead of relying on the
	// normalize/renormalize round trip.
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if v := data.At(i, j); !math.IsNaN(v) {
				imputed.Set(i, j, v)
			}
		}
	}
	g.rounder.Apply(imputed)

	g.logger.Debug("Imputation finished",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, n,
		log.FeaturesKey, d,
	)
	return imputed, nil
}
