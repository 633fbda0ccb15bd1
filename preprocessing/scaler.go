// Package preprocessing は補完前後のデータ変換を提供する。
// 欠損値（NaN）を考慮したMin-Maxスケーリング、整数列の丸め、
// 先頭カテゴリ列のOne-Hotエンコード／デコードを含む。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// MinMaxScaler は欠損値を無視して各特徴量を[0,1]に正規化するスケーラー。
// NaNはそのまま通過する。
type MinMaxScaler struct {
	model.StateManager

	// DataMin は観測値の最小値
	DataMin []float64

	// DataMax は観測値の最大値
	DataMax []float64

	// Scale は max - min。定数列および観測値のない列では1
	Scale []float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewMinMaxScaler()
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit は観測値（NaN以外）から各特徴量の最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if math.IsInf(lo, 1) {
			// 観測値が一つもない列
			lo, hi = 0, 0
		}

		m.DataMin[j] = lo
		m.DataMax[j] = hi
		if hi == lo {
			// 定数特徴量の場合、スケールを1に設定
			m.Scale[j] = 1.0
		} else {
			m.Scale[j] = hi - lo
		}
	}

	m.SetDimensions(c, r)
	m.SetFitted()
	return nil
}

// Transform は学習済みの最小値・スケールでデータを正規化する
func (m *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.RequireFeatures("MinMaxScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - m.DataMin[j]) / m.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform は正規化されたデータを元の範囲に戻す（value*scale + min）
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.RequireFitted("MinMaxScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.RequireFeatures("MinMaxScaler.InverseTransform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*m.Scale[j] + m.DataMin[j]
	}, X)
	return result, nil
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return "MinMaxScaler(fitted=false)"
	}
	nFeatures, _ := m.GetDimensions()
	return fmt.Sprintf("MinMaxScaler(n_features=%d)", nFeatures)
}

// Normalize はdataを列ごとに[0,1]へ正規化し、正規化済みデータと
// 逆変換に必要なパラメータを返す。欠損値はNaNのまま残る。
func Normalize(data mat.Matrix) (*mat.Dense, *MinMaxScaler, error) {
	scaler := NewMinMaxScaler()
	norm, err := scaler.FitTransform(data)
	if err != nil {
		return nil, nil, err
	}
	return norm, scaler, nil
}

// Renormalize はNormalizeの逆変換
func Renormalize(norm mat.Matrix, scaler *MinMaxScaler) (*mat.Dense, error) {
	return scaler.InverseTransform(norm)
}
