package qnn

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/diff/fd"

	"qcl/internal/optimize"
	"qcl/internal/quantum"
)

func newTestClassifier(t *testing.T, seed int64) *Classifier {
	t.Helper()
	c, err := New(Config{
		NumQubits:  4,
		Depth:      4,
		NumClasses: 3,
		Rand:       rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		t.Fatalf("new classifier failed: %v", err)
	}
	return c
}

var (
	testFeatures = [][]float64{
		{1.4, 0.2},
		{4.3, 1.3},
	}
	testTargets = [][]float64{
		{1, 0, 0},
		{0, 1, 0},
	}
)

func TestNewValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := []Config{
		{NumQubits: 1, Depth: 1, NumClasses: 1, Rand: rng},
		{NumQubits: 4, Depth: 0, NumClasses: 3, Rand: rng},
		{NumQubits: 4, Depth: 1, NumClasses: 5, Rand: rng},
		{NumQubits: 4, Depth: 1, NumClasses: 0, Rand: rng},
		{NumQubits: 4, Depth: 1, NumClasses: 3, Rand: nil},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, cfg)
		}
	}
}

func TestParameterCount(t *testing.T) {
	c := newTestClassifier(t, 1)
	if got := c.ParameterCount(); got != 48 {
		t.Fatalf("parameter count: got=%d want=48 (3 * depth * qubits)", got)
	}
	theta := c.Theta()
	for i, v := range theta {
		if v < 0 || v >= 2*math.Pi {
			t.Fatalf("initial angle %d out of [0, 2pi): %f", i, v)
		}
	}
}

func TestPredictRequiresCapturedInputs(t *testing.T) {
	c := newTestClassifier(t, 1)
	if _, err := c.Predict(c.Theta()); !errors.Is(err, ErrNoCapturedInputs) {
		t.Fatalf("expected no-captured-inputs error, got %v", err)
	}
}

func TestPredictReturnsDistributions(t *testing.T) {
	c := newTestClassifier(t, 2)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	pred, err := c.Predict(c.Theta())
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(pred) != len(testFeatures) {
		t.Fatalf("prediction rows: got=%d want=%d", len(pred), len(testFeatures))
	}
	for i, row := range pred {
		if len(row) != 3 {
			t.Fatalf("row %d classes: got=%d want=3", i, len(row))
		}
		total := 0.0
		for _, p := range row {
			if p < 0 {
				t.Fatalf("row %d has negative probability: %v", i, row)
			}
			total += p
		}
		if math.Abs(total-1) > 1e-12 {
			t.Fatalf("row %d probabilities sum to %f", i, total)
		}
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	c := newTestClassifier(t, 3)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	theta := c.Theta()
	first, err := c.Predict(theta)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	second, err := c.Predict(theta)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("prediction not deterministic at (%d,%d): %v vs %v", i, j, first[i][j], second[i][j])
			}
		}
	}
}

func TestCrossEntropyKnownValues(t *testing.T) {
	loss, err := crossEntropy([][]float64{{1, 0}}, [][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("cross entropy failed: %v", err)
	}
	if math.Abs(loss-math.Log(2)) > 1e-12 {
		t.Fatalf("cross entropy: got=%f want=%f", loss, math.Log(2))
	}
	// A perfect prediction clipped at the floor stays finite.
	loss, err = crossEntropy([][]float64{{1, 0}}, [][]float64{{0, 1}})
	if err != nil {
		t.Fatalf("cross entropy failed: %v", err)
	}
	if math.IsInf(loss, 0) || math.IsNaN(loss) {
		t.Fatalf("cross entropy must stay finite under clipping: %f", loss)
	}
	if _, err := crossEntropy([][]float64{{1, 0}}, nil); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestParameterShiftUsesExactOffsets(t *testing.T) {
	c := newTestClassifier(t, 4)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	theta := c.Theta()
	grads, err := c.PredictionGradients(theta[:0:0])
	if err == nil && len(grads) != 0 {
		t.Fatal("empty theta must yield empty gradients")
	}
	grads, err = c.PredictionGradients(theta)
	if err != nil {
		t.Fatalf("prediction gradients failed: %v", err)
	}
	if len(grads) != len(theta) {
		t.Fatalf("gradient count: got=%d want=%d", len(grads), len(theta))
	}
	// Shift evaluations must not disturb the committed vector.
	after := c.Theta()
	for i := range theta {
		if theta[i] != after[i] {
			t.Fatalf("theta mutated by gradient evaluation at %d", i)
		}
	}
}

func TestTrueGradientStepDoesNotIncreaseLoss(t *testing.T) {
	// 4 qubits, depth 4, 3 observables, two samples, one small step along the
	// true (numerical) gradient: the loss must not increase.
	c := newTestClassifier(t, 5)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	theta := c.Theta()
	loss := func(v []float64) float64 {
		l, err := c.Loss(v, testTargets)
		if err != nil {
			t.Fatalf("loss failed: %v", err)
		}
		return l
	}
	initial := loss(theta)

	grad := fd.Gradient(nil, loss, theta, &fd.Settings{Formula: fd.Central})
	const step = 1e-4
	next := make([]float64, len(theta))
	for i := range theta {
		next[i] = theta[i] - step*grad[i]
	}
	final := loss(next)
	if final > initial+1e-9 {
		t.Fatalf("loss increased along true gradient: initial=%f final=%f", initial, final)
	}
}

func TestLossGradientDescendsLoss(t *testing.T) {
	c := newTestClassifier(t, 6)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	theta := c.Theta()
	initial, err := c.Loss(theta, testTargets)
	if err != nil {
		t.Fatalf("loss failed: %v", err)
	}
	grad, err := c.LossGradient(theta, testTargets)
	if err != nil {
		t.Fatalf("loss gradient failed: %v", err)
	}

	const step = 1e-4
	next := make([]float64, len(theta))
	for i := range theta {
		next[i] = theta[i] - step*grad[i]
	}
	final, err := c.Loss(next, testTargets)
	if err != nil {
		t.Fatalf("loss failed: %v", err)
	}
	if final > initial+1e-9 {
		t.Fatalf("loss increased along parameter-shift gradient: initial=%f final=%f", initial, final)
	}
}

func TestFitEndToEnd(t *testing.T) {
	c := newTestClassifier(t, 7)
	var reported int
	res, err := c.Fit(context.Background(), testFeatures, testTargets, 5, &optimize.BFGS{}, func(iter int, theta []float64) {
		reported++
	})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if math.IsNaN(res.InitialLoss) || math.IsNaN(res.FinalLoss) {
		t.Fatalf("non-finite losses: %+v", res)
	}
	if res.FinalLoss > res.InitialLoss+1e-6 {
		t.Fatalf("fit increased loss: initial=%f final=%f", res.InitialLoss, res.FinalLoss)
	}
	if len(res.Theta) != 48 {
		t.Fatalf("fitted theta length: got=%d want=48", len(res.Theta))
	}
	if got := c.Theta(); got[0] != res.Theta[0] {
		t.Fatal("classifier theta not synchronized with fit result")
	}
	if reported == 0 && len(res.LossHistory) == 0 {
		t.Fatal("no iterations reported")
	}
}

func TestFitValidation(t *testing.T) {
	c := newTestClassifier(t, 8)
	ctx := context.Background()
	if _, err := c.Fit(ctx, testFeatures, testTargets[:1], 5, &optimize.BFGS{}, nil); err == nil {
		t.Fatal("expected sample/target mismatch error")
	}
	if _, err := c.Fit(ctx, testFeatures, [][]float64{{1, 0}, {0, 1}}, 5, &optimize.BFGS{}, nil); err == nil {
		t.Fatal("expected class-count mismatch error")
	}
	if _, err := c.Fit(ctx, testFeatures, testTargets, 0, &optimize.BFGS{}, nil); err == nil {
		t.Fatal("expected max-iterations error")
	}
	if _, err := c.Fit(ctx, testFeatures, testTargets, 5, nil, nil); err == nil {
		t.Fatal("expected minimizer error")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := c.Fit(cancelled, testFeatures, testTargets, 5, &optimize.BFGS{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestPredictBatchMatchesCapturedPredict(t *testing.T) {
	c := newTestClassifier(t, 9)
	if err := c.CaptureInputs(testFeatures); err != nil {
		t.Fatalf("capture inputs failed: %v", err)
	}
	theta := c.Theta()
	want, err := c.Predict(theta)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	got, err := c.PredictBatch(testFeatures)
	if err != nil {
		t.Fatalf("predict batch failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("row count: got=%d want=%d", len(got), len(want))
	}
	for i := range got {
		for j := range got[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("sample %d class %d: got=%v want=%v", i, j, got[i][j], want[i][j])
			}
		}
	}
	if c.InputCount() != len(testFeatures) {
		t.Fatalf("captured states disturbed: got=%d want=%d", c.InputCount(), len(testFeatures))
	}
}

func TestFitStopsAfterMidRunCancel(t *testing.T) {
	c := newTestClassifier(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := c.Fit(ctx, testFeatures, testTargets, 10, &optimize.BFGS{}, func(iter int, theta []float64) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error after mid-run cancel, got %v", err)
	}
}

func TestLadderControlsParameterCount(t *testing.T) {
	c, err := New(Config{
		NumQubits:  4,
		Depth:      4,
		NumClasses: 3,
		Ladder:     "y,z",
		Rand:       rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("new classifier failed: %v", err)
	}
	if got, want := c.ParameterCount(), 2*4*4; got != want {
		t.Fatalf("parameter count: got=%d want=%d", got, want)
	}
}

func TestLadderRejectsUnknownAxis(t *testing.T) {
	_, err := New(Config{
		NumQubits:  4,
		Depth:      1,
		NumClasses: 3,
		Ladder:     "x,w",
		Rand:       rand.New(rand.NewSource(1)),
	})
	if !errors.Is(err, quantum.ErrUnsupportedAxis) {
		t.Fatalf("expected unsupported axis error, got %v", err)
	}
}
