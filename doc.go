// Package gain is the root of a Go implementation of GAIN, a Generative
// Adversarial Imputation Network for filling missing values in numeric
// tabular data.
//
// A generator proposes a value for every cell from the observed values and
// the missingness mask. A discriminator, given a partial hint of the mask,
// tries to tell observed cells from imputed ones. The two are trained
// adversarially on minibatches, with an extra reconstruction loss that keeps
// the generator faithful to the observed cells.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "math"
//
//	    "github.com/kiw9761/GAIN/gain"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    nan := math.NaN()
//	    data := mat.NewDense(4, 2, []float64{
//	        1, 10,
//	        2, nan,
//	        nan, 30,
//	        4, 40,
//	    })
//
//	    imp, err := gain.New(gain.WithIterations(1000), gain.WithBatchSize(4), gain.WithSeed(1))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := imp.Impute(context.Background(), gain.Input{Data: data})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(out))
//	}
//
// # Packages
//
//   - gain: the imputer (training loop, finalization, checkpoint restore)
//   - neural: dense layers, forward/backward passes and the Adam optimizer
//   - sampling: seeded Bernoulli, uniform, batch and hint samplers
//   - preprocessing: NaN-aware min-max scaling, rounding, one-hot encoding
//   - store: checkpoint stores backed by files, memory, Redis or S3
//   - dataio: CSV loading and writing, synthetic missingness
//   - metrics: imputation RMSE, Prometheus training metrics, loss plots
//   - core/model: checkpoint format and shared interfaces
//   - core/parallel: row-parallel kernels
//   - pkg/errors, pkg/log: error types, warnings and structured logging
//
// The gain command in cmd/gain wraps all of this for CSV files.
package gain
