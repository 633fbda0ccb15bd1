package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/pkg/errors"
)

var nan = math.NaN()

func TestMinMaxScalerIgnoresMissing(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		nan, 20,
		3, nan,
		5, 30,
	})

	norm, scaler, err := Normalize(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 10}, scaler.DataMin)
	assert.Equal(t, []float64{5, 30}, scaler.DataMax)
	assert.Equal(t, []float64{4, 20}, scaler.Scale)

	assert.InDelta(t, 0.0, norm.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, norm.At(2, 0), 1e-12)
	assert.InDelta(t, 1.0, norm.At(3, 1), 1e-12)
	assert.True(t, math.IsNaN(norm.At(1, 0)))
	assert.True(t, math.IsNaN(norm.At(2, 1)))
}

func TestMinMaxScalerObservedInUnitInterval(t *testing.T) {
	X := mat.NewDense(5, 3, []float64{
		-3, 0.5, 100,
		2, nan, 250,
		7, 0.25, nan,
		nan, 0.75, 175,
		0, 1, 130,
	})
	norm, _, err := Normalize(X)
	require.NoError(t, err)

	r, c := norm.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := norm.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestMinMaxScalerDegenerateColumns(t *testing.T) {
	tests := []struct {
		name      string
		column    []float64
		wantMin   float64
		wantScale float64
	}{
		{"constant", []float64{4, 4, nan, 4}, 4, 1},
		{"all missing", []float64{nan, nan, nan, nan}, 0, 1},
		{"single observed", []float64{nan, 9, nan, nan}, 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X := mat.NewDense(4, 1, tt.column)
			norm, scaler, err := Normalize(X)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, scaler.DataMin[0])
			assert.Equal(t, tt.wantScale, scaler.Scale[0])
			for i := 0; i < 4; i++ {
				v := norm.At(i, 0)
				if !math.IsNaN(v) {
					assert.Equal(t, 0.0, v)
				}
			}
		})
	}
}

func TestMinMaxScalerNarrowRange(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1e-10, nan, 5e-11})
	norm, scaler, err := Normalize(X)
	require.NoError(t, err)
	assert.Equal(t, 1e-10, scaler.Scale[0])
	assert.InDelta(t, 0, norm.At(0, 0), 1e-12)
	assert.InDelta(t, 1, norm.At(1, 0), 1e-12)
	assert.True(t, math.IsNaN(norm.At(2, 0)))
	assert.InDelta(t, 0.5, norm.At(3, 0), 1e-12)
}

func TestRenormalizeRoundTrip(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1.5, -2, 1e6,
		2.25, 8, 3e6,
		-7.125, 3, 2.5e6,
		0, 0, 1e6,
	})
	norm, scaler, err := Normalize(X)
	require.NoError(t, err)

	back, err := Renormalize(norm, scaler)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			want := X.At(i, j)
			assert.InDelta(t, want, back.At(i, j), 1e-9*math.Max(1, math.Abs(want)))
		}
	}
}

func TestMinMaxScalerErrors(t *testing.T) {
	scaler := NewMinMaxScaler()

	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))

	err = scaler.Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.InverseTransform(mat.NewDense(2, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
	assert.Equal(t, "MinMaxScaler(n_features=2)", scaler.String())
}

func TestRounder(t *testing.T) {
	original := mat.NewDense(4, 4, []float64{
		1, 0.5, 0, nan,
		2, 1.0, 1, nan,
		nan, 2, 1, nan,
		4, 3, 0, nan,
	})
	r := NewRounder(original)
	assert.Equal(t, []bool{true, false, true, false}, r.IntegerColumns)

	imputed := mat.NewDense(2, 4, []float64{
		2.6, 0.7, 0.4, 1.3,
		2.5, 1.2, 0.51, 2.7,
	})
	r.Apply(imputed)
	assert.Equal(t, []float64{3, 0.7, 0, 1.3}, imputed.RawRowView(0))
	assert.Equal(t, []float64{2, 1.2, 1, 2.7}, imputed.RawRowView(1))
}
