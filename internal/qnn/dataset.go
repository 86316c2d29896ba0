package qnn

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"qcl/internal/encoding"
)

// Blobs generates a synthetic three-class, two-feature training set: one
// Gaussian cluster per class, perClass samples each, with one-hot targets.
// The cluster centers roughly follow the petal spread of the iris classes.
func Blobs(rng *rand.Rand, perClass int) (features, targets [][]float64) {
	centers := [][2]float64{
		{1.4, 0.2},
		{4.3, 1.3},
		{5.6, 2.1},
	}
	const spread = 0.25
	for class, center := range centers {
		for i := 0; i < perClass; i++ {
			features = append(features, []float64{
				center[0] + spread*rng.NormFloat64(),
				center[1] + spread*rng.NormFloat64(),
			})
			row := make([]float64, len(centers))
			row[class] = 1
			targets = append(targets, row)
		}
	}
	return features, targets
}

// LoadCSV reads a headerless dataset of rows "feature0,feature1,label" where
// label is a class index in [0, numClasses). Targets come back one-hot.
func LoadCSV(path string, numClasses int) (features, targets [][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i, rec := range records {
		if len(rec) != encoding.NumFeatures+1 {
			return nil, nil, fmt.Errorf("row %d: got %d columns, want %d", i+1, len(rec), encoding.NumFeatures+1)
		}
		row := make([]float64, encoding.NumFeatures)
		for c := 0; c < encoding.NumFeatures; c++ {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+1, c+1, err)
			}
			row[c] = v
		}
		label, err := strconv.Atoi(rec[encoding.NumFeatures])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d label: %w", i+1, err)
		}
		if label < 0 || label >= numClasses {
			return nil, nil, fmt.Errorf("row %d label %d out of [0, %d)", i+1, label, numClasses)
		}
		target := make([]float64, numClasses)
		target[label] = 1
		features = append(features, row)
		targets = append(targets, target)
	}
	return features, targets, nil
}

// Labels converts a probability matrix to argmax class indices.
func Labels(probabilities [][]float64) []int {
	out := make([]int, len(probabilities))
	for i, row := range probabilities {
		best := 0
		for j, p := range row {
			if p > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// Accuracy is the fraction of argmax predictions matching one-hot targets.
func Accuracy(probabilities, targets [][]float64) float64 {
	if len(probabilities) == 0 {
		return 0
	}
	correct := 0
	for i, labels := 0, Labels(probabilities); i < len(labels); i++ {
		if targets[i][labels[i]] == 1 {
			correct++
		}
	}
	return float64(correct) / float64(len(probabilities))
}
