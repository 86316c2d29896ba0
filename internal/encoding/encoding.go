// Package encoding holds the numeric helpers shared by circuit construction
// and training: batch feature scaling, the bit-parity angle encoding, and the
// softmax over observable expectations.
package encoding

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const NumFeatures = 2

var (
	ErrEmptyBatch        = errors.New("empty batch")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Scale rescales each feature column independently to [-1, 1] by min-max
// scaling over the whole batch. This is a batch-level transform: adding or
// removing samples changes the encoding of every sample in the batch, so a
// prediction mesh must be scaled either jointly with the training data or as
// its own batch, never half-and-half. A constant column maps to 0.
func Scale(batch [][]float64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	cols := len(batch[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: samples carry no features", ErrDimensionMismatch)
	}
	for i, row := range batch {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: sample %d has %d features, want %d", ErrDimensionMismatch, i, len(row), cols)
		}
	}

	column := make([]float64, len(batch))
	mins := make([]float64, cols)
	maxs := make([]float64, cols)
	for c := 0; c < cols; c++ {
		for r, row := range batch {
			column[r] = row[c]
		}
		mins[c] = floats.Min(column)
		maxs[c] = floats.Max(column)
	}

	out := make([][]float64, len(batch))
	for r, row := range batch {
		scaled := make([]float64, cols)
		for c, v := range row {
			span := maxs[c] - mins[c]
			if span == 0 {
				scaled[c] = 0
				continue
			}
			scaled[c] = 2*(v-mins[c])/span - 1
		}
		out[r] = scaled
	}
	return out, nil
}

// ValidateSample checks that a scaled sample carries exactly NumFeatures
// features, all within [-1, 1].
func ValidateSample(x []float64) error {
	if len(x) != NumFeatures {
		return fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, len(x), NumFeatures)
	}
	for i, v := range x {
		if v < -1 || v > 1 {
			return fmt.Errorf("feature %d out of [-1, 1]: %f", i, v)
		}
	}
	return nil
}

// AngleY returns the RY encoding angle for qubit q: arcsin of the feature
// selected by qubit parity. Even qubits encode feature 0, odd qubits
// feature 1; qubits beyond 2 repeat the two features modulo 2.
func AngleY(x []float64, q int) float64 {
	return math.Asin(x[q%NumFeatures])
}

// AngleZ returns the RZ encoding angle for qubit q: arccos of the squared
// feature selected by qubit parity.
func AngleZ(x []float64, q int) float64 {
	f := x[q%NumFeatures]
	return math.Acos(f * f)
}

// Softmax returns the softmax of v. Entries are shifted by the maximum before
// exponentiation so large expectations cannot overflow.
func Softmax(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	shift := floats.Max(v)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Exp(x - shift)
	}
	total := floats.Sum(out)
	for i := range out {
		out[i] /= total
	}
	return out
}
