package gain

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/pkg/log"
	"github.com/kiw9761/GAIN/preprocessing"
	"github.com/kiw9761/GAIN/sampling"
	"github.com/kiw9761/GAIN/store"
)

// uniformWithMissing returns an n×d matrix of U[0,10) values where roughly
// missRate of the cells are NaN, plus the full matrix.
func uniformWithMissing(t *testing.T, n, d int, missRate float64, seed uint64) (*mat.Dense, *mat.Dense) {
	t.Helper()
	s := sampling.New(seed)
	full, err := s.Uniform(0, 10, n, d)
	require.NoError(t, err)
	keep, err := s.Binary(1-missRate, n, d)
	require.NoError(t, err)
	data := mat.DenseCopyOf(full)
	data.Apply(func(i, j int, v float64) float64 {
		if keep.At(i, j) == 0 {
			return math.NaN()
		}
		return v
	}, data)
	return data, full
}

type recorder struct {
	mu         sync.Mutex
	losses     []Losses
	degenerate []int
}

func (r *recorder) ObserveIteration(_ int, l Losses) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.losses = append(r.losses, l)
}

func (r *recorder) ObserveDegenerateBatch(it int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degenerate = append(r.degenerate, it)
}

func quietLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

func assertObservedPreserved(t *testing.T, data, out mat.Matrix) {
	t.Helper()
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := out.At(i, j)
			require.False(t, math.IsNaN(v), "cell (%d,%d) still missing", i, j)
			if orig := data.At(i, j); !math.IsNaN(orig) {
				require.Equal(t, orig, v, "observed cell (%d,%d) changed", i, j)
			}
		}
	}
}

func TestMaskOf(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{1, math.NaN(), 0, math.NaN(), -2, 3})
	m := MaskOf(data)
	assert.Equal(t, []float64{1, 0, 1, 0, 1, 1}, m.RawMatrix().Data)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"hint rate zero", func(c *Config) { c.HintRate = 0 }, "hint_rate"},
		{"hint rate one", func(c *Config) { c.HintRate = 1 }, "hint_rate"},
		{"alpha", func(c *Config) { c.Alpha = -1 }, "alpha"},
		{"iterations", func(c *Config) { c.Iterations = 0 }, "iterations"},
		{"onehot", func(c *Config) { c.OneHot = -1 }, "onehot"},
		{"learning rate", func(c *Config) { c.LearningRate = 0 }, "learning_rate"},
		{"log interval", func(c *Config) { c.LogInterval = -5 }, "log_interval"},
		{"seed", func(c *Config) { c.Seed = -2 }, "seed"},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			var verr *errors.ValidationError
			require.True(t, errors.As(cfg.Validate(), &verr))
			assert.Equal(t, tt.param, verr.ParamName)
		})
	}
}

func TestNewOptions(t *testing.T) {
	g, err := New(
		WithDataName("letter"),
		WithBatchSize(32),
		WithHintRate(0.5),
		WithAlpha(10),
		WithIterations(7),
		WithOneHot(2),
		WithPredict(true),
		WithSeed(3),
		WithLearningRate(0.01),
		WithLogInterval(0),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	cfg := g.Config()
	assert.Equal(t, Config{
		DataName: "letter", BatchSize: 32, HintRate: 0.5, Alpha: 10, Iterations: 7,
		OneHot: 2, Predict: true, Seed: 3, LearningRate: 0.01, LogInterval: 0,
	}, cfg)
	assert.NotEmpty(t, g.RunID())

	_, err = New(WithStore(store.NewMemoryStore()))
	assert.Error(t, err, "a store needs a data name")

	_, err = New(WithHintRate(2))
	assert.Error(t, err)
}

func TestImputeEndToEnd(t *testing.T) {
	data, _ := uniformWithMissing(t, 100, 4, 0.2, 11)

	rec := &recorder{}
	g, err := New(
		WithIterations(50),
		WithBatchSize(16),
		WithHintRate(0.9),
		WithAlpha(100),
		WithSeed(1),
		WithObserver(rec),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	out, err := g.Impute(context.Background(), Input{Data: data, OriginalDim: 4})
	require.NoError(t, err)

	r, c := out.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 4, c)
	assertObservedPreserved(t, data, out)
	assert.Equal(t, 50, g.Iterations())
	assert.Len(t, rec.losses, 50)

	for _, l := range rec.losses {
		assert.False(t, math.IsNaN(l.D) || math.IsInf(l.D, 0))
		assert.GreaterOrEqual(t, l.MSE, 0.0)
		assert.InDelta(t, l.GAdv+100*l.MSE, l.G, 1e-12)
	}

	// Imputed values stay inside the observed range of each column.
	for j := 0; j < 4; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < 100; i++ {
			if v := data.At(i, j); !math.IsNaN(v) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		for i := 0; i < 100; i++ {
			assert.GreaterOrEqual(t, out.At(i, j), lo)
			assert.LessOrEqual(t, out.At(i, j), hi)
		}
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	data, _ := uniformWithMissing(t, 60, 3, 0.3, 5)
	run := func() *mat.Dense {
		g, err := New(WithIterations(30), WithBatchSize(8), WithSeed(42), WithLogger(quietLogger()))
		require.NoError(t, err)
		out, err := g.Impute(context.Background(), Input{Data: data})
		require.NoError(t, err)
		return out
	}
	assert.True(t, mat.Equal(run(), run()))
}

func TestDegenerateColumn(t *testing.T) {
	data, _ := uniformWithMissing(t, 40, 3, 0.25, 9)
	for i := 0; i < 40; i++ {
		data.Set(i, 1, 5)
	}
	data.Set(3, 1, math.NaN())
	data.Set(17, 1, math.NaN())

	g, err := New(WithIterations(20), WithBatchSize(8), WithSeed(2), WithLogger(quietLogger()))
	require.NoError(t, err)
	out, err := g.Impute(context.Background(), Input{Data: data})
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		assert.Equal(t, 5.0, out.At(i, 1), "row %d", i)
	}
}

func TestIntegerColumnsAreRounded(t *testing.T) {
	data, _ := uniformWithMissing(t, 50, 2, 0.2, 13)
	for i := 0; i < 50; i++ {
		if v := data.At(i, 0); !math.IsNaN(v) {
			data.Set(i, 0, math.Floor(v))
		}
	}
	g, err := New(WithIterations(20), WithBatchSize(10), WithSeed(4), WithLogger(quietLogger()))
	require.NoError(t, err)
	out, err := g.Impute(context.Background(), Input{Data: data})
	require.NoError(t, err)

	nonInteger := 0
	for i := 0; i < 50; i++ {
		v := out.At(i, 0)
		assert.Equal(t, math.Round(v), v, "row %d", i)
		if w := out.At(i, 1); w != math.Trunc(w) {
			nonInteger++
		}
	}
	assert.Positive(t, nonInteger, "continuous column must not be rounded")
}

func TestBatchSizeClampedToSamples(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	data, _ := uniformWithMissing(t, 10, 2, 0.2, 3)
	rec := &recorder{}
	g, err := New(WithIterations(5), WithBatchSize(128), WithSeed(1), WithObserver(rec), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.Fit(context.Background(), data))

	require.NotEmpty(t, warnings)
	var bw *errors.BatchSizeWarning
	require.True(t, errors.As(warnings[0], &bw))
	assert.Equal(t, 10, bw.Used)
	assert.Len(t, rec.losses, 5)
}

func TestDegenerateBatchesAreSkipped(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	nan := math.NaN()
	data := mat.NewDense(4, 2, []float64{
		nan, nan,
		nan, nan,
		nan, nan,
		0.5, 2,
	})
	rec := &recorder{}
	g, err := New(WithIterations(40), WithBatchSize(1), WithSeed(8), WithObserver(rec), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.Fit(context.Background(), data))

	assert.NotEmpty(t, rec.degenerate)
	assert.NotEmpty(t, rec.losses)
	assert.Equal(t, 40, len(rec.losses)+len(rec.degenerate))
	assert.Equal(t, 40, g.Iterations())
	assert.Len(t, warnings, len(rec.degenerate))

	out, err := g.Transform(data)
	require.NoError(t, err)
	assertObservedPreserved(t, data, out)
}

func TestTrainingModeSavesCheckpoint(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	data, _ := uniformWithMissing(t, 30, 3, 0.2, 21)

	g, err := New(WithDataName("letter"), WithStore(ms), WithIterations(10), WithBatchSize(8), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.Fit(ctx, data))

	cp, err := ms.Load(ctx, "letter")
	require.NoError(t, err)
	assert.Equal(t, 3, cp.Dim)
	assert.Equal(t, 10, cp.Iterations)
	assert.Equal(t, g.RunID(), cp.RunID)
	assert.Equal(t, 10, cp.GeneratorOptimizer.Step)
	assert.Equal(t, 10, cp.DiscriminatorOptimizer.Step)

	own, err := g.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, own.Generator, cp.Generator)
}

func TestPredictModeRestoresAndDoesNotSave(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	data, _ := uniformWithMissing(t, 30, 3, 0.2, 22)

	trained, err := New(WithDataName("letter"), WithStore(ms), WithIterations(10), WithBatchSize(8), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, trained.Fit(ctx, data))

	logger, _ := log.NewTestLogger(log.LevelInfo)
	resumed, err := New(WithDataName("letter"), WithStore(ms), WithPredict(true), WithIterations(5), WithBatchSize(8), WithSeed(2), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, resumed.Fit(ctx, data))

	assert.Equal(t, 15, resumed.Iterations())
	assert.True(t, logger.ContainsMessage("Checkpoint restored"))
	cp, err := resumed.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, 15, cp.GeneratorOptimizer.Step)

	stored, err := ms.Load(ctx, "letter")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Iterations, "predict mode must not overwrite the checkpoint")
}

func TestPredictModeRestoreMatchesWeights(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	data, _ := uniformWithMissing(t, 20, 2, 0.2, 23)

	trained, err := New(WithDataName("k"), WithStore(ms), WithIterations(5), WithBatchSize(4), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, trained.Fit(ctx, data))
	cp, err := ms.Load(ctx, "k")
	require.NoError(t, err)

	resumed, err := New(WithDataName("k"), WithStore(ms), WithPredict(true), WithIterations(1), WithBatchSize(4), WithSeed(9), WithLogger(quietLogger()))
	require.NoError(t, err)
	resumed.initNetworks(2)
	require.NoError(t, resumed.maybeRestore(ctx, 2))
	assert.Equal(t, cp.Generator, resumed.generator.Snapshot())
	assert.Equal(t, cp.Discriminator, resumed.discriminator.Snapshot())
}

func TestPredictModeWithoutCheckpoint(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	data, _ := uniformWithMissing(t, 20, 2, 0.2, 24)

	logger, _ := log.NewTestLogger(log.LevelInfo)
	g, err := New(WithDataName("fresh"), WithStore(ms), WithPredict(true), WithIterations(3), WithBatchSize(4), WithSeed(1), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, g.Fit(ctx, data))

	assert.Equal(t, 3, g.Iterations())
	assert.True(t, logger.ContainsMessage("No checkpoint found"))
	assert.Empty(t, ms.Keys())
}

func TestRestoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	small, _ := uniformWithMissing(t, 20, 2, 0.2, 25)
	g, err := New(WithDataName("k"), WithStore(ms), WithIterations(2), WithBatchSize(4), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.Fit(ctx, small))

	wide, _ := uniformWithMissing(t, 20, 3, 0.2, 26)
	p, err := New(WithDataName("k"), WithStore(ms), WithPredict(true), WithIterations(2), WithBatchSize(4), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	err = p.Fit(ctx, wide)
	var shapeErr *errors.InputShapeError
	require.True(t, errors.As(err, &shapeErr), "got %v", err)
	assert.Equal(t, []int{2}, shapeErr.Expected)
	assert.Equal(t, []int{3}, shapeErr.Got)
}

func TestFitCancelled(t *testing.T) {
	ms := store.NewMemoryStore()
	data, _ := uniformWithMissing(t, 20, 2, 0.2, 27)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := New(WithDataName("k"), WithStore(ms), WithIterations(100), WithBatchSize(4), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	err = g.Fit(ctx, data)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ms.Keys())

	_, err = g.Transform(data)
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))
}

func TestFitRejectsEmptyData(t *testing.T) {
	g, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)
	err = g.Fit(context.Background(), &mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestTransformDimensionMismatch(t *testing.T) {
	data, _ := uniformWithMissing(t, 20, 2, 0.2, 28)
	g, err := New(WithIterations(2), WithBatchSize(4), WithSeed(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.Fit(context.Background(), data))

	_, err = g.Transform(mat.NewDense(3, 5, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestImputeWithOneHot(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	n := 60
	raw := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		raw.Set(i, 0, float64(rng.IntN(3)))
		raw.Set(i, 1, rng.Float64()*5)
		raw.Set(i, 2, rng.Float64())
	}
	enc := preprocessing.NewOneHotEncoder(1)
	encoded, err := enc.FitTransform(raw)
	require.NoError(t, err)
	encoded.Set(4, 1, math.NaN())
	encoded.Set(9, 4, math.NaN())

	g, err := New(WithIterations(10), WithBatchSize(16), WithOneHot(1), WithSeed(3), WithLogger(quietLogger()))
	require.NoError(t, err)
	out, err := g.Impute(context.Background(), Input{
		Data:         encoded,
		FeatureNames: []string{"cat", "x", "y"},
		Decoder:      enc,
		OriginalDim:  3,
	})
	require.NoError(t, err)

	r, c := out.Dims()
	assert.Equal(t, n, r)
	assert.Equal(t, 3, c)
	for i := 0; i < n; i++ {
		assert.Contains(t, []float64{0, 1, 2}, out.At(i, 0))
		if i != 9 {
			assert.Equal(t, raw.At(i, 2), out.At(i, 2))
		}
	}
}

func TestImputeRequiresDecoder(t *testing.T) {
	data, _ := uniformWithMissing(t, 10, 3, 0.1, 29)
	g, err := New(WithOneHot(1), WithLogger(quietLogger()))
	require.NoError(t, err)
	_, err = g.Impute(context.Background(), Input{Data: data})
	assert.Error(t, err)

	_, err = g.Impute(context.Background(), Input{Data: data, FeatureNames: []string{"a"}, Decoder: preprocessing.NewOneHotEncoder(1)})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestReverseEncode(t *testing.T) {
	enc := preprocessing.NewOneHotEncoder(1)
	require.NoError(t, enc.Fit(mat.NewDense(2, 2, []float64{7, 0, 9, 0})))

	imputed := mat.NewDense(2, 3, []float64{
		0.2, 0.8, 1.5,
		0.9, 0.1, 2.5,
	})
	out, err := ReverseEncode(imputed, enc, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 1.5, 7, 2.5}, out.RawMatrix().Data)

	_, err = ReverseEncode(imputed, enc, 1, 3)
	assert.Error(t, err)
	_, err = ReverseEncode(imputed, nil, 0, 3)
	assert.NoError(t, err)
	_, err = ReverseEncode(imputed, nil, 0, 2)
	assert.Error(t, err)
	_, err = ReverseEncode(imputed, enc, 2, 3)
	assert.Error(t, err)
}

func TestTrainingLogs(t *testing.T) {
	data, _ := uniformWithMissing(t, 20, 2, 0.2, 30)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	g, err := New(WithIterations(4), WithBatchSize(4), WithLogInterval(2), WithSeed(1), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, g.Fit(context.Background(), data))

	assert.True(t, logger.ContainsMessage("Training started"))
	assert.Equal(t, 2, logger.CountMessages("Training progress"))
	assert.True(t, logger.ContainsField(log.IterationsKey, float64(4)))
	assert.True(t, logger.ContainsField(log.RunIDKey, g.RunID()))
}
