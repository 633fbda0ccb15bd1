package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// OneHotEncoder は先頭 NCategorical 列をOne-Hot表現に展開する。
// 残りの列はそのまま後ろに連結される。
type OneHotEncoder struct {
	model.StateManager

	// NCategorical はエンコード対象となる先頭列の数
	NCategorical int

	// Categories[j] は列jのカテゴリ値（昇順）
	Categories [][]float64
}

// NewOneHotEncoder は先頭 nCategorical 列を対象とするエンコーダを作成する
func NewOneHotEncoder(nCategorical int) *OneHotEncoder {
	return &OneHotEncoder{NCategorical: nCategorical}
}

// Fit は各カテゴリ列の値の集合を学習する。カテゴリ列に欠損があってはならない。
func (e *OneHotEncoder) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.NCategorical <= 0 || e.NCategorical > c {
		return errors.NewValidationError("onehot", fmt.Sprintf("must be in [1, %d]", c), e.NCategorical)
	}

	e.Categories = make([][]float64, e.NCategorical)
	for j := 0; j < e.NCategorical; j++ {
		seen := make(map[float64]struct{})
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				return errors.NewValueError("OneHotEncoder.Fit", fmt.Sprintf("categorical column %d has missing values", j))
			}
			seen[v] = struct{}{}
		}
		values := make([]float64, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Float64s(values)
		e.Categories[j] = values
	}

	e.SetDimensions(c, r)
	e.SetFitted()
	return nil
}

// EncodedWidth は展開後のOne-Hotブロックの列数
func (e *OneHotEncoder) EncodedWidth() int {
	w := 0
	for _, cats := range e.Categories {
		w += len(cats)
	}
	return w
}

// Transform は先頭カテゴリ列をOne-Hotブロックに置き換えた行列を返す
func (e *OneHotEncoder) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := e.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := e.RequireFeatures("OneHotEncoder.Transform", c); err != nil {
		return nil, err
	}

	width := e.EncodedWidth()
	out := mat.NewDense(r, width+c-e.NCategorical, nil)
	for i := 0; i < r; i++ {
		offset := 0
		for j, cats := range e.Categories {
			v := X.At(i, j)
			k := sort.SearchFloat64s(cats, v)
			if k == len(cats) || cats[k] != v {
				return nil, errors.NewValueError("OneHotEncoder.Transform", fmt.Sprintf("unknown category %v in column %d", v, j))
			}
			out.Set(i, offset+k, 1)
			offset += len(cats)
		}
		for j := e.NCategorical; j < c; j++ {
			out.Set(i, width+j-e.NCategorical, X.At(i, j))
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (e *OneHotEncoder) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// Decode はOne-Hotブロック（n × EncodedWidth）を各カテゴリ列の値に戻す。
// 各ブロック内で最大値をとる位置のカテゴリを選び、同値の場合は先頭を優先する。
func (e *OneHotEncoder) Decode(block mat.Matrix) (*mat.Dense, error) {
	if err := e.RequireFitted("OneHotEncoder", "Decode"); err != nil {
		return nil, err
	}
	r, c := block.Dims()
	if c != e.EncodedWidth() {
		return nil, errors.NewDimensionError("OneHotEncoder.Decode", e.EncodedWidth(), c, 1)
	}

	out := mat.NewDense(r, e.NCategorical, nil)
	for i := 0; i < r; i++ {
		offset := 0
		for j, cats := range e.Categories {
			best := 0
			for k := 1; k < len(cats); k++ {
				if block.At(i, offset+k) > block.At(i, offset+best) {
					best = k
				}
			}
			out.Set(i, j, cats[best])
			offset += len(cats)
		}
	}
	return out, nil
}

// NumCategorical はデコード後のカテゴリ列数
func (e *OneHotEncoder) NumCategorical() int {
	return e.NCategorical
}
