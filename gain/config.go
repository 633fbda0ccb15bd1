package gain

import (
	"github.com/kiw9761/GAIN/neural"
	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/pkg/log"
)

// Defaults match the reference command-line configuration.
const (
	DefaultBatchSize   = 128
	DefaultHintRate    = 0.9
	DefaultAlpha       = 100
	DefaultIterations  = 10000
	DefaultLogInterval = 1000

	// RandomSeed asks for a seed drawn from the runtime's entropy source.
	RandomSeed int64 = -1

	// noiseHigh is the upper bound of the uniform noise written into
	// missing cells of the generator input.
	noiseHigh = 0.01

	// epsilon guards every logarithm and division in the losses.
	epsilon = 1e-8
)

// Config holds the hyperparameters of one imputation run.
type Config struct {
	// DataName keys the checkpoint in the model store.
	DataName string `mapstructure:"data_name"`

	BatchSize  int     `mapstructure:"batch_size"`
	HintRate   float64 `mapstructure:"hint_rate"`
	Alpha      float64 `mapstructure:"alpha"`
	Iterations int     `mapstructure:"iterations"`

	// OneHot is the number of leading original columns that were one-hot
	// encoded and must be decoded after imputation.
	OneHot int `mapstructure:"onehot"`

	// Predict restores a stored checkpoint before training, when one
	// exists, and never saves. Otherwise training starts fresh and the
	// result is saved.
	Predict bool `mapstructure:"predict"`

	Seed         int64   `mapstructure:"seed"`
	LearningRate float64 `mapstructure:"learning_rate"`

	// LogInterval is the number of iterations between progress records;
	// zero disables them.
	LogInterval int `mapstructure:"log_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:    DefaultBatchSize,
		HintRate:     DefaultHintRate,
		Alpha:        DefaultAlpha,
		Iterations:   DefaultIterations,
		Seed:         RandomSeed,
		LearningRate: neural.DefaultLearningRate,
		LogInterval:  DefaultLogInterval,
	}
}

// Validate checks every field and returns the first violation.
func (c Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.NewValidationError("batch_size", "must be positive", c.BatchSize)
	case !(c.HintRate > 0 && c.HintRate < 1):
		return errors.NewValidationError("hint_rate", "must be in (0, 1)", c.HintRate)
	case c.Alpha < 0:
		return errors.NewValidationError("alpha", "must be non-negative", c.Alpha)
	case c.Iterations <= 0:
		return errors.NewValidationError("iterations", "must be positive", c.Iterations)
	case c.OneHot < 0:
		return errors.NewValidationError("onehot", "must be non-negative", c.OneHot)
	case !(c.LearningRate > 0):
		return errors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	case c.LogInterval < 0:
		return errors.NewValidationError("log_interval", "must be non-negative", c.LogInterval)
	case c.Seed < RandomSeed:
		return errors.NewValidationError("seed", "must be non-negative or -1 for a random seed", c.Seed)
	}
	return nil
}

// Option configures an Imputer.
type Option func(*Imputer)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(g *Imputer) { g.cfg = cfg }
}

// WithDataName sets the key under which checkpoints are stored.
func WithDataName(name string) Option {
	return func(g *Imputer) { g.cfg.DataName = name }
}

// WithBatchSize sets the minibatch row count.
func WithBatchSize(n int) Option {
	return func(g *Imputer) { g.cfg.BatchSize = n }
}

// WithHintRate sets the probability that a hint reveals an observed cell.
func WithHintRate(rate float64) Option {
	return func(g *Imputer) { g.cfg.HintRate = rate }
}

// WithAlpha sets the weight of the reconstruction loss.
func WithAlpha(alpha float64) Option {
	return func(g *Imputer) { g.cfg.Alpha = alpha }
}

// WithIterations sets the fixed number of training iterations.
func WithIterations(n int) Option {
	return func(g *Imputer) { g.cfg.Iterations = n }
}

// WithOneHot sets the number of leading categorical columns to decode.
func WithOneHot(n int) Option {
	return func(g *Imputer) { g.cfg.OneHot = n }
}

// WithPredict switches between predict (restore, no save) and training mode.
func WithPredict(predict bool) Option {
	return func(g *Imputer) { g.cfg.Predict = predict }
}

// WithSeed fixes the random seed; RandomSeed draws one.
func WithSeed(seed int64) Option {
	return func(g *Imputer) { g.cfg.Seed = seed }
}

// WithLearningRate sets the Adam learning rate of both networks.
func WithLearningRate(lr float64) Option {
	return func(g *Imputer) { g.cfg.LearningRate = lr }
}

// WithLogInterval sets how often progress is logged.
func WithLogInterval(n int) Option {
	return func(g *Imputer) { g.cfg.LogInterval = n }
}

// WithStore enables checkpoint persistence.
func WithStore(store ModelStore) Option {
	return func(g *Imputer) { g.store = store }
}

// WithLogger replaces the logger.
func WithLogger(logger log.Logger) Option {
	return func(g *Imputer) { g.logger = logger }
}

// WithObserver registers an observer of training progress.
func WithObserver(o Observer) Option {
	return func(g *Imputer) { g.observers = append(g.observers, o) }
}
