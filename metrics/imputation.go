package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/preprocessing"
)

// ImputationRMSE は人工的に欠損させたセル（mask が 0 のセル）だけを対象に、
// 元データと補完結果の RMSE を計算する。
//
// 両行列は元データの列ごとの最小値・最大値で正規化してから比較するため、
// 値域の大きい列が結果を支配しない。欠損させたセルが無い場合は
// UndefinedMetricWarning を出して 0 を返す。
func ImputationRMSE(ori, imputed, mask mat.Matrix) (float64, error) {
	truth, pred, err := withheldCells("ImputationRMSE", ori, imputed, mask)
	if err != nil || truth == nil {
		return 0, err
	}
	return RMSE(truth, pred)
}

// ImputationMAE は ImputationRMSE と同じセルを対象に平均絶対誤差を計算する。
func ImputationMAE(ori, imputed, mask mat.Matrix) (float64, error) {
	truth, pred, err := withheldCells("ImputationMAE", ori, imputed, mask)
	if err != nil || truth == nil {
		return 0, err
	}
	return MAE(truth, pred)
}

// withheldCells は mask が 0 のセルを正規化済みの値で取り出す。
// 該当セルが無ければ警告を出して nil を返す。
func withheldCells(op string, ori, imputed, mask mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	r, c := ori.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if ir, ic := imputed.Dims(); ir != r || ic != c {
		if ir != r {
			return nil, nil, errors.NewDimensionError(op, r, ir, 0)
		}
		return nil, nil, errors.NewDimensionError(op, c, ic, 1)
	}
	if mr, mc := mask.Dims(); mr != r || mc != c {
		if mr != r {
			return nil, nil, errors.NewDimensionError(op, r, mr, 0)
		}
		return nil, nil, errors.NewDimensionError(op, c, mc, 1)
	}

	normOri, scaler, err := preprocessing.Normalize(ori)
	if err != nil {
		return nil, nil, err
	}
	normImp, err := scaler.Transform(imputed)
	if err != nil {
		return nil, nil, err
	}

	var truth, pred []float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mask.At(i, j) != 0 {
				continue
			}
			truth = append(truth, normOri.At(i, j))
			pred = append(pred, normImp.At(i, j))
		}
	}
	if len(truth) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(op, "no withheld cells", 0))
		return nil, nil, nil
	}
	for k, v := range pred {
		if math.IsNaN(v) || math.IsNaN(truth[k]) {
			return nil, nil, errors.NewValueError(op, "withheld cells must not be NaN in either matrix")
		}
	}
	return mat.NewVecDense(len(truth), truth), mat.NewVecDense(len(pred), pred), nil
}
