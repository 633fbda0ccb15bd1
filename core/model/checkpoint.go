package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/pkg/errors"
)

const (
	// CheckpointModelType identifies checkpoints written by the imputer.
	CheckpointModelType = "GAIN"

	// CheckpointVersion is bumped whenever the layout of Checkpoint changes.
	CheckpointVersion = "1"

	// NetworkDepth is the number of dense layers in each network.
	NetworkDepth = 3
)

// Tensor はシリアライズ可能な行優先の行列
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// TensorFromDense copies m into a Tensor.
func TensorFromDense(m *mat.Dense) Tensor {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Tensor{Rows: r, Cols: c, Data: data}
}

// Dense returns a fresh matrix holding a copy of the tensor data.
func (t Tensor) Dense() *mat.Dense {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return mat.NewDense(t.Rows, t.Cols, data)
}

func (t Tensor) validate(name string) error {
	if t.Rows <= 0 || t.Cols <= 0 {
		return errors.NewValidationError(name, "tensor must have positive dimensions", fmt.Sprintf("%dx%d", t.Rows, t.Cols))
	}
	if len(t.Data) != t.Rows*t.Cols {
		return errors.NewValidationError(name, "data length does not match shape", len(t.Data))
	}
	return nil
}

// LayerWeights は1層分の重みとバイアス
type LayerWeights struct {
	Weights Tensor `json:"weights"`
	Bias    Tensor `json:"bias"`
}

// NetworkWeights はネットワーク全体のパラメータ（入力側から順）
type NetworkWeights struct {
	Layers []LayerWeights `json:"layers"`
}

// OptimizerState はAdamの状態。M, V はパラメータと同じ順序
// （層ごとに重み、バイアス）で並ぶ。
type OptimizerState struct {
	Step int      `json:"step"`
	M    []Tensor `json:"m,omitempty"`
	V    []Tensor `json:"v,omitempty"`
}

// Checkpoint is the persisted state of a trained imputer: the parameters of
// both networks and their optimizer state. Normalization parameters are not
// part of it; they are recomputed from the data being imputed.
type Checkpoint struct {
	ModelType  string    `json:"model_type"`
	Version    string    `json:"version"`
	RunID      string    `json:"run_id,omitempty"`
	Dim        int       `json:"dim"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`

	Generator              NetworkWeights `json:"generator"`
	Discriminator          NetworkWeights `json:"discriminator"`
	GeneratorOptimizer     OptimizerState `json:"generator_optimizer"`
	DiscriminatorOptimizer OptimizerState `json:"discriminator_optimizer"`

	Hyperparameters map[string]float64 `json:"hyperparameters,omitempty"`
}

// ToJSON はCheckpointをJSON形式にシリアライズ
func (c *Checkpoint) ToJSON() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.NewModelError("Checkpoint.ToJSON", "encode failed", err)
	}
	return data, nil
}

// FromJSON はJSON形式からCheckpointをデシリアライズし、検証する
func (c *Checkpoint) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, c); err != nil {
		return errors.NewModelError("Checkpoint.FromJSON", "decode failed", err)
	}
	return c.Validate()
}

// Validate はCheckpointの妥当性を検証
func (c *Checkpoint) Validate() error {
	if c.ModelType != CheckpointModelType {
		return errors.NewValidationError("model_type", "unexpected model type", c.ModelType)
	}
	if c.Version != CheckpointVersion {
		return errors.NewValidationError("version", "unsupported checkpoint version", c.Version)
	}
	if c.Dim <= 0 {
		return errors.NewValidationError("dim", "must be positive", c.Dim)
	}

	// 両ネットワークとも 2d -> d -> d -> d
	shapes := [][2]int{{2 * c.Dim, c.Dim}, {c.Dim, c.Dim}, {c.Dim, c.Dim}}
	nets := []struct {
		name string
		w    NetworkWeights
		opt  OptimizerState
	}{
		{"generator", c.Generator, c.GeneratorOptimizer},
		{"discriminator", c.Discriminator, c.DiscriminatorOptimizer},
	}
	for _, n := range nets {
		if len(n.w.Layers) != NetworkDepth {
			return errors.NewValidationError(n.name, "unexpected number of layers", len(n.w.Layers))
		}
		params := make([]Tensor, 0, 2*NetworkDepth)
		for i, l := range n.w.Layers {
			name := fmt.Sprintf("%s.layers[%d]", n.name, i)
			if err := l.Weights.validate(name + ".weights"); err != nil {
				return err
			}
			if err := l.Bias.validate(name + ".bias"); err != nil {
				return err
			}
			if l.Weights.Rows != shapes[i][0] || l.Weights.Cols != shapes[i][1] {
				return errors.NewInputShapeError("restore", shapes[i][:], []int{l.Weights.Rows, l.Weights.Cols})
			}
			if l.Bias.Rows != 1 || l.Bias.Cols != shapes[i][1] {
				return errors.NewInputShapeError("restore", []int{1, shapes[i][1]}, []int{l.Bias.Rows, l.Bias.Cols})
			}
			params = append(params, l.Weights, l.Bias)
		}
		if err := n.opt.validate(n.name+"_optimizer", params); err != nil {
			return err
		}
	}
	return nil
}

func (o OptimizerState) validate(name string, params []Tensor) error {
	if o.Step < 0 {
		return errors.NewValidationError(name+".step", "must be non-negative", o.Step)
	}
	if len(o.M) == 0 && len(o.V) == 0 {
		return nil
	}
	if len(o.M) != len(params) || len(o.V) != len(params) {
		return errors.NewValidationError(name, "moment count does not match parameters", len(o.M))
	}
	for i, p := range params {
		if o.M[i].Rows != p.Rows || o.M[i].Cols != p.Cols || o.V[i].Rows != p.Rows || o.V[i].Cols != p.Cols {
			return errors.NewValidationError(fmt.Sprintf("%s.moments[%d]", name, i), "shape does not match parameter", fmt.Sprintf("%dx%d", p.Rows, p.Cols))
		}
		if len(o.M[i].Data) != len(p.Data) || len(o.V[i].Data) != len(p.Data) {
			return errors.NewValidationError(fmt.Sprintf("%s.moments[%d]", name, i), "data length does not match shape", len(o.M[i].Data))
		}
	}
	return nil
}

// Summary returns a one-line description for CLI output.
func (c *Checkpoint) Summary() string {
	return fmt.Sprintf("%s v%s dim=%d iterations=%d run=%s created=%s",
		c.ModelType, c.Version, c.Dim, c.Iterations, c.RunID, c.CreatedAt.Format(time.RFC3339))
}
