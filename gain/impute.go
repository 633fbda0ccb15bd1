package gain

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/pkg/log"
)

// CategoricalDecoder maps a one-hot block back to categorical values.
type CategoricalDecoder interface {
	// EncodedWidth is the number of leading encoded columns.
	EncodedWidth() int
	// NumCategorical is the number of columns Decode produces.
	NumCategorical() int
	// Decode turns an n×EncodedWidth block into n×NumCategorical values.
	Decode(block mat.Matrix) (*mat.Dense, error)
}

// Input bundles the data to impute with what is needed to restore its
// original layout.
type Input struct {
	// Data is n×d with NaN for missing cells, after any categorical encoding.
	Data mat.Matrix

	// FeatureNames are the original column names, if known.
	FeatureNames []string

	// Decoder reverses the categorical encoding; required when OneHot > 0.
	Decoder CategoricalDecoder

	// OriginalDim is the column count before encoding. Zero means Data's width.
	OriginalDim int
}

// Impute trains on in.Data, fills its missing cells and restores the
// original column layout.
func (g *Imputer) Impute(ctx context.Context, in Input) (*mat.Dense, error) {
	if in.Data == nil {
		return nil, errors.NewModelError("Imputer.Impute", "no data", errors.ErrEmptyData)
	}
	_, d := in.Data.Dims()
	oriDim := in.OriginalDim
	if oriDim == 0 {
		oriDim = d
	}
	if len(in.FeatureNames) > 0 && len(in.FeatureNames) != oriDim {
		return nil, errors.NewDimensionError("Imputer.Impute", oriDim, len(in.FeatureNames), 1)
	}
	if g.cfg.OneHot > 0 && in.Decoder == nil {
		return nil, errors.NewValidationError("onehot", "a decoder is required to reverse the encoding", g.cfg.OneHot)
	}

	if err := g.Fit(ctx, in.Data); err != nil {
		return nil, err
	}
	imputed, err := g.Transform(in.Data)
	if err != nil {
		return nil, err
	}
	out, err := ReverseEncode(imputed, in.Decoder, g.cfg.OneHot, oriDim)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Imputation complete",
		log.OperationKey, log.OperationImpute,
		log.FeaturesKey, oriDim,
		log.DataNameKey, g.cfg.DataName,
	)
	return out, nil
}

// ReverseEncode decodes the leading one-hot block of imputed when onehot > 0
// and checks that the result has oriDim columns in the original order.
func ReverseEncode(imputed *mat.Dense, decoder CategoricalDecoder, onehot, oriDim int) (*mat.Dense, error) {
	n, d := imputed.Dims()
	if onehot == 0 {
		if d != oriDim {
			return nil, errors.NewDimensionError("ReverseEncode", oriDim, d, 1)
		}
		return imputed, nil
	}
	if decoder == nil {
		return nil, errors.NewValidationError("decoder", "required when onehot > 0", nil)
	}
	if decoder.NumCategorical() != onehot {
		return nil, errors.NewValueError("ReverseEncode",
			fmt.Sprintf("decoder restores %d columns, onehot is %d", decoder.NumCategorical(), onehot))
	}
	w := decoder.EncodedWidth()
	if w > d {
		return nil, errors.NewDimensionError("ReverseEncode", w, d, 1)
	}

	decoded, err := decoder.Decode(imputed.Slice(0, n, 0, w))
	if err != nil {
		return nil, err
	}
	var out *mat.Dense
	if w == d {
		out = decoded
	} else {
		out = hstack(decoded, imputed.Slice(0, n, w, d))
	}
	if _, c := out.Dims(); c != oriDim {
		return nil, errors.NewDimensionError("ReverseEncode", oriDim, c, 1)
	}
	return out, nil
}
