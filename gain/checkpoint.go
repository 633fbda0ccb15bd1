package gain

import (
	"time"

	"github.com/kiw9761/GAIN/core/model"
)

// checkpoint captures both networks and their optimizers.
func (g *Imputer) checkpoint() *model.Checkpoint {
	return &model.Checkpoint{
		ModelType:              model.CheckpointModelType,
		Version:                model.CheckpointVersion,
		RunID:                  g.runID,
		Dim:                    g.generator.OutputDim(),
		Iterations:             g.iterations,
		CreatedAt:              time.Now().UTC(),
		Generator:              g.generator.Snapshot(),
		Discriminator:          g.discriminator.Snapshot(),
		GeneratorOptimizer:     g.gOpt.State(),
		DiscriminatorOptimizer: g.dOpt.State(),
		Hyperparameters: map[string]float64{
			"batch_size":    float64(g.cfg.BatchSize),
			"hint_rate":     g.cfg.HintRate,
			"alpha":         g.cfg.Alpha,
			"learning_rate": g.cfg.LearningRate,
		},
	}
}

// restore overwrites the freshly initialized networks with cp.
func (g *Imputer) restore(cp *model.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if err := g.generator.Restore(cp.Generator); err != nil {
		return err
	}
	if err := g.discriminator.Restore(cp.Discriminator); err != nil {
		return err
	}
	if err := g.gOpt.Restore(cp.GeneratorOptimizer, g.generator.Params()); err != nil {
		return err
	}
	if err := g.dOpt.Restore(cp.DiscriminatorOptimizer, g.discriminator.Params()); err != nil {
		return err
	}
	g.iterations = cp.Iterations
	return nil
}

// Checkpoint returns the current state of a fitted imputer.
func (g *Imputer) Checkpoint() (*model.Checkpoint, error) {
	if err := g.state.RequireFitted("Imputer", "Checkpoint"); err != nil {
		return nil, err
	}
	return g.checkpoint(), nil
}
