// Package dataio reads and writes the CSV files consumed and produced by the
// imputation command, and introduces synthetic missingness for evaluation.
package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kiw9761/GAIN/gain"
	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/preprocessing"
	"github.com/kiw9761/GAIN/sampling"
)

// Dataset is a numeric table with NaN marking missing cells.
type Dataset struct {
	// Data holds the values after any one-hot encoding.
	Data *mat.Dense

	// FeatureNames is the CSV header, one name per original column.
	FeatureNames []string

	// Encoder expanded the leading categorical columns; nil when no
	// encoding was applied.
	Encoder *preprocessing.OneHotEncoder

	// OriginalDim is the column count of the file.
	OriginalDim int
}

// OneHot is the number of leading original columns that were encoded.
func (d *Dataset) OneHot() int {
	if d.Encoder == nil {
		return 0
	}
	return d.Encoder.NumCategorical()
}

// Input returns the imputation input for data, which must have the layout
// of d.Data.
func (d *Dataset) Input(data mat.Matrix) gain.Input {
	in := gain.Input{
		Data:         data,
		FeatureNames: d.FeatureNames,
		OriginalDim:  d.OriginalDim,
	}
	if d.Encoder != nil {
		in.Decoder = d.Encoder
	}
	return in
}

// ParseError reports a cell that is neither a number nor a missing marker.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %q: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsMissing reports whether a raw CSV cell denotes a missing value.
func IsMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NaN", "nan", "NA":
		return true
	}
	return false
}

// LoadCSV reads a CSV file with a header line. When onehot > 0 the leading
// onehot columns are one-hot encoded, unless one of them has missing cells,
// in which case encoding is skipped with a DataConversionWarning.
func LoadCSV(path string, onehot int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f, onehot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	return ds, nil
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, onehot int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = ','
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("ReadCSV", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	dim := len(header)
	if onehot < 0 || onehot > dim {
		return nil, errors.NewValidationError("onehot", fmt.Sprintf("must be in [0, %d]", dim), onehot)
	}

	var values []float64
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read record")
		}
		line, _ := reader.FieldPos(0)
		for j, cell := range record {
			if IsMissing(cell) {
				values = append(values, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, &ParseError{Line: line, Column: header[j], Value: cell, Err: err}
			}
			values = append(values, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.NewModelError("ReadCSV", "no records", errors.ErrEmptyData)
	}

	ds := &Dataset{
		Data:         mat.NewDense(rows, dim, values),
		FeatureNames: header,
		OriginalDim:  dim,
	}
	if onehot == 0 {
		return ds, nil
	}
	if hasMissing(ds.Data, onehot) {
		errors.Warn(errors.NewDataConversionWarning("categorical", "one-hot",
			"missing values in the categorical columns, skipping one-hot encoding"))
		return ds, nil
	}

	enc := preprocessing.NewOneHotEncoder(onehot)
	encoded, err := enc.FitTransform(ds.Data)
	if err != nil {
		return nil, err
	}
	ds.Data = encoded
	ds.Encoder = enc
	return ds, nil
}

func hasMissing(data mat.Matrix, cols int) bool {
	r, _ := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(data.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// Ablate hides each cell of data independently with probability missRate.
// It returns the data with hidden cells set to NaN and the mask, 1 where the
// cell was kept.
func Ablate(data mat.Matrix, missRate float64, sampler *sampling.Sampler) (*mat.Dense, *mat.Dense, error) {
	if missRate < 0 || missRate > 1 {
		return nil, nil, errors.NewValidationError("miss_rate", "must be in [0, 1]", missRate)
	}
	r, c := data.Dims()
	mask, err := sampler.Binary(1-missRate, r, c)
	if err != nil {
		return nil, nil, err
	}
	miss := mat.DenseCopyOf(data)
	miss.Apply(func(i, j int, v float64) float64 {
		if mask.At(i, j) == 0 {
			return math.NaN()
		}
		return v
	}, miss)
	return miss, mask, nil
}

// WriteCSV writes header and data to path, creating parent directories.
// NaN cells are written as empty fields.
func WriteCSV(path string, header []string, data mat.Matrix) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := Write(f, header, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write is WriteCSV over an arbitrary writer.
func Write(w io.Writer, header []string, data mat.Matrix) error {
	r, c := data.Dims()
	if len(header) != c {
		return errors.NewDimensionError("WriteCSV", c, len(header), 1)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := data.At(i, j)
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush csv")
}
