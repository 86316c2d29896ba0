// Package qnn trains a variational quantum circuit against a classification
// loss. The trainable block is a depth-D ladder of rotation gates interleaved
// with a fixed random time-evolution unitary; each class is read out as a
// softmaxed Pauli-Z expectation, and angles are fitted with the exact
// parameter-shift gradient driven through an external minimizer.
package qnn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"qcl/internal/circuit"
	"qcl/internal/encoding"
	"qcl/internal/optimize"
	"qcl/internal/quantum"
)

const (
	DefaultTimeStep = 0.77
	lossClip        = 1e-15
)

var ErrNoCapturedInputs = errors.New("no captured input states; call CaptureInputs first")

// DefaultLadder is the per-qubit rotation sequence of each trainable layer.
const DefaultLadder = "x,z,x"

type Config struct {
	NumQubits  int
	Depth      int
	NumClasses int
	TimeStep   float64
	// Ladder is a comma-separated list of rotation axes applied per qubit in
	// every layer, e.g. "x,z,x". Empty means DefaultLadder.
	Ladder string
	Rand   *rand.Rand
}

// Classifier is the training loop around a learning circuit. The flat theta
// vector it hands the minimizer is the single source of truth during a fit;
// the circuit's cached values follow it through explicit ApplyTheta commits.
type Classifier struct {
	cfg         Config
	encoder     *circuit.LearningCircuit
	output      *circuit.LearningCircuit
	observables []*quantum.Observable
	inputStates []*quantum.State
	theta       []float64
}

func New(cfg Config) (*Classifier, error) {
	if cfg.NumQubits < encoding.NumFeatures {
		return nil, fmt.Errorf("qubit count must be >= %d, got %d", encoding.NumFeatures, cfg.NumQubits)
	}
	if cfg.Depth <= 0 {
		return nil, fmt.Errorf("depth must be > 0, got %d", cfg.Depth)
	}
	if cfg.NumClasses <= 0 || cfg.NumClasses > cfg.NumQubits {
		return nil, fmt.Errorf("class count must be in [1, %d], got %d", cfg.NumQubits, cfg.NumClasses)
	}
	if cfg.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if cfg.TimeStep == 0 {
		cfg.TimeStep = DefaultTimeStep
	}

	c := &Classifier{cfg: cfg}
	for i := 0; i < cfg.NumClasses; i++ {
		c.observables = append(c.observables, quantum.NewZObservable(i))
	}
	if err := c.buildEncoder(); err != nil {
		return nil, err
	}
	if err := c.buildOutput(); err != nil {
		return nil, err
	}
	return c, nil
}

// buildEncoder wires one (RY, RZ) input-slot pair per qubit; the transforms
// read the scaled sample through the bit-parity encoding.
func (c *Classifier) buildEncoder() error {
	enc, err := circuit.New(c.cfg.NumQubits)
	if err != nil {
		return err
	}
	for q := 0; q < c.cfg.NumQubits; q++ {
		q := q
		if err := enc.AddInputRotation(quantum.AxisY, q, func(x []float64) float64 {
			return encoding.AngleY(x, q)
		}); err != nil {
			return err
		}
		if err := enc.AddInputRotation(quantum.AxisZ, q, func(x []float64) float64 {
			return encoding.AngleZ(x, q)
		}); err != nil {
			return err
		}
	}
	c.encoder = enc
	return nil
}

// buildOutput assembles the trainable block: per layer, the shared random
// time-evolution gate followed by the ladder rotations (RX, RZ, RX by
// default) on every qubit, angles drawn uniformly from [0, 2pi).
func (c *Classifier) buildOutput() error {
	ladder, err := parseLadder(c.cfg.Ladder)
	if err != nil {
		return err
	}
	out, err := circuit.New(c.cfg.NumQubits)
	if err != nil {
		return err
	}
	evol, err := quantum.NewTimeEvolutionGate(c.cfg.NumQubits, c.cfg.TimeStep, c.cfg.Rand)
	if err != nil {
		return err
	}
	for d := 0; d < c.cfg.Depth; d++ {
		out.AddGate(evol)
		for q := 0; q < c.cfg.NumQubits; q++ {
			for _, axis := range ladder {
				if _, err := out.AddParametricRotation(axis, q, 2*math.Pi*c.cfg.Rand.Float64()); err != nil {
					return err
				}
			}
		}
	}
	c.output = out
	c.theta = out.SnapshotTheta()
	return nil
}

func parseLadder(spec string) ([]quantum.Axis, error) {
	if spec == "" {
		spec = DefaultLadder
	}
	var ladder []quantum.Axis
	for _, tag := range strings.Split(spec, ",") {
		axis, err := quantum.ParseAxis(tag)
		if err != nil {
			return nil, fmt.Errorf("ladder %q: %w", spec, err)
		}
		ladder = append(ladder, axis)
	}
	return ladder, nil
}

// ParameterCount reports the number of trainable angles, one per ladder
// rotation per qubit per layer.
func (c *Classifier) ParameterCount() int {
	return c.output.LearningCount()
}

// Theta returns a copy of the current trainable vector.
func (c *Classifier) Theta() []float64 {
	return append([]float64(nil), c.theta...)
}

// SetTheta overwrites the trainable vector and commits it to the circuit.
func (c *Classifier) SetTheta(theta []float64) error {
	if err := c.output.ApplyTheta(theta); err != nil {
		return err
	}
	c.theta = append(c.theta[:0], theta...)
	return nil
}

// CaptureInputs scales the batch, encodes every sample through the input
// circuit, and stores the resulting states. Capturing is the expensive
// per-batch step; predictions afterwards only re-run the trainable block
// against copies of these states.
func (c *Classifier) CaptureInputs(batch [][]float64) error {
	scaled, err := encoding.Scale(batch)
	if err != nil {
		return err
	}
	states := make([]*quantum.State, len(scaled))
	for i, x := range scaled {
		if err := encoding.ValidateSample(x); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		st, err := c.encoder.Run(x)
		if err != nil {
			return err
		}
		states[i] = st
	}
	c.inputStates = states
	return nil
}

// InputCount reports the number of captured input states.
func (c *Classifier) InputCount() int {
	return len(c.inputStates)
}

// Predict commits theta and returns the class-probability matrix over the
// captured batch. Every sample is evaluated on an independent copy of its
// captured state, so repeated calls with the same theta are bit-identical.
func (c *Classifier) Predict(theta []float64) ([][]float64, error) {
	if len(c.inputStates) == 0 {
		return nil, ErrNoCapturedInputs
	}
	if err := c.SetTheta(theta); err != nil {
		return nil, err
	}
	out := make([][]float64, len(c.inputStates))
	expectations := make([]float64, len(c.observables))
	for i, captured := range c.inputStates {
		st := captured.Copy()
		c.output.ApplyTo(st)
		for j, obs := range c.observables {
			v, err := obs.ExpectationValue(st)
			if err != nil {
				return nil, err
			}
			expectations[j] = v
		}
		out[i] = encoding.Softmax(expectations)
	}
	return out, nil
}

// PredictBatch classifies a standalone batch with the currently committed
// theta, leaving any captured training states untouched. The batch is scaled
// on its own, so decision-surface meshes should already span the region of
// interest.
func (c *Classifier) PredictBatch(batch [][]float64) ([][]float64, error) {
	scaled, err := encoding.Scale(batch)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(scaled))
	expectations := make([]float64, len(c.observables))
	for i, x := range scaled {
		if err := encoding.ValidateSample(x); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		st, err := c.encoder.Run(x)
		if err != nil {
			return nil, err
		}
		c.output.ApplyTo(st)
		for j, obs := range c.observables {
			v, err := obs.ExpectationValue(st)
			if err != nil {
				return nil, err
			}
			expectations[j] = v
		}
		out[i] = encoding.Softmax(expectations)
	}
	return out, nil
}

// Loss is the multi-class cross-entropy between one-hot targets and the
// predicted probabilities, averaged over samples.
func (c *Classifier) Loss(theta []float64, targets [][]float64) (float64, error) {
	pred, err := c.Predict(theta)
	if err != nil {
		return 0, err
	}
	return crossEntropy(targets, pred)
}

// PredictionGradients evaluates the parameter-shift rule per trainable angle:
// dB/dtheta_k = (pred(theta_k + pi/2) - pred(theta_k - pi/2)) / 2. The shift
// is exact for rotation gates, not a finite-difference epsilon; each of the P
// angles costs two full forward passes over the captured batch.
func (c *Classifier) PredictionGradients(theta []float64) ([][][]float64, error) {
	grads := make([][][]float64, len(theta))
	shifted := append([]float64(nil), theta...)
	for k := range theta {
		shifted[k] = theta[k] + math.Pi/2
		plus, err := c.Predict(shifted)
		if err != nil {
			return nil, err
		}
		shifted[k] = theta[k] - math.Pi/2
		minus, err := c.Predict(shifted)
		if err != nil {
			return nil, err
		}
		shifted[k] = theta[k]

		grad := make([][]float64, len(plus))
		for i := range plus {
			row := make([]float64, len(plus[i]))
			for j := range plus[i] {
				row[j] = (plus[i][j] - minus[i][j]) / 2
			}
			grad[i] = row
		}
		grads[k] = grad
	}
	// The last Predict committed a shifted angle; restore the caller's vector.
	if err := c.SetTheta(theta); err != nil {
		return nil, err
	}
	return grads, nil
}

// LossGradient is the loss gradient over the flat theta vector:
// sum over samples and classes of (pred - target) * dB/dtheta_k.
func (c *Classifier) LossGradient(theta []float64, targets [][]float64) ([]float64, error) {
	pred, err := c.Predict(theta)
	if err != nil {
		return nil, err
	}
	if len(targets) != len(pred) {
		return nil, fmt.Errorf("%w: %d targets for %d samples", circuit.ErrDimensionMismatch, len(targets), len(pred))
	}
	shiftGrads, err := c.PredictionGradients(theta)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(theta))
	for k, grad := range shiftGrads {
		total := 0.0
		for i := range pred {
			for j := range pred[i] {
				total += (pred[i][j] - targets[i][j]) * grad[i][j]
			}
		}
		out[k] = total
	}
	return out, nil
}

type FitResult struct {
	InitialLoss float64
	FinalLoss   float64
	Theta       []float64
	Iterations  int
	LossHistory []float64
}

// Fit captures the batch once, then drives the minimizer with the
// cross-entropy objective and the parameter-shift gradient. The classifier's
// theta is left at the fitted vector.
func (c *Classifier) Fit(ctx context.Context, features, targets [][]float64, maxIterations int, minimizer optimize.Minimizer, report optimize.Callback) (FitResult, error) {
	if err := ctx.Err(); err != nil {
		return FitResult{}, err
	}
	if minimizer == nil {
		return FitResult{}, errors.New("minimizer is required")
	}
	if maxIterations <= 0 {
		return FitResult{}, errors.New("max iterations must be > 0")
	}
	if len(features) != len(targets) {
		return FitResult{}, fmt.Errorf("%w: %d samples with %d targets", circuit.ErrDimensionMismatch, len(features), len(targets))
	}
	for i, row := range targets {
		if len(row) != c.cfg.NumClasses {
			return FitResult{}, fmt.Errorf("%w: target %d has %d classes, want %d", circuit.ErrDimensionMismatch, i, len(row), c.cfg.NumClasses)
		}
	}
	if err := c.CaptureInputs(features); err != nil {
		return FitResult{}, err
	}

	initial, err := c.Loss(c.theta, targets)
	if err != nil {
		return FitResult{}, err
	}

	var history []float64
	objective := func(theta []float64) float64 {
		// A cancelled context poisons the objective so the minimizer winds
		// down instead of burning further circuit evaluations.
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		loss, err := c.Loss(theta, targets)
		if err != nil {
			return math.Inf(1)
		}
		return loss
	}
	gradient := func(theta []float64) []float64 {
		if ctx.Err() != nil {
			return make([]float64, len(theta))
		}
		grad, err := c.LossGradient(theta, targets)
		if err != nil {
			return make([]float64, len(theta))
		}
		return grad
	}
	callback := func(iter int, theta []float64) {
		loss := objective(theta)
		history = append(history, loss)
		if report != nil {
			report(iter, theta)
		}
	}

	res, err := minimizer.Minimize(objective, gradient, c.Theta(), maxIterations, callback)
	if cerr := ctx.Err(); cerr != nil {
		return FitResult{}, cerr
	}
	if err != nil {
		return FitResult{}, err
	}
	if err := c.SetTheta(res.X); err != nil {
		return FitResult{}, err
	}
	final, err := c.Loss(c.theta, targets)
	if err != nil {
		return FitResult{}, err
	}
	return FitResult{
		InitialLoss: initial,
		FinalLoss:   final,
		Theta:       c.Theta(),
		Iterations:  res.Iterations,
		LossHistory: history,
	}, nil
}

func crossEntropy(targets, pred [][]float64) (float64, error) {
	if len(targets) != len(pred) {
		return 0, fmt.Errorf("%w: %d targets for %d predictions", circuit.ErrDimensionMismatch, len(targets), len(pred))
	}
	if len(pred) == 0 {
		return 0, encoding.ErrEmptyBatch
	}
	total := 0.0
	for i := range pred {
		if len(targets[i]) != len(pred[i]) {
			return 0, fmt.Errorf("%w: row %d has %d targets for %d classes", circuit.ErrDimensionMismatch, i, len(targets[i]), len(pred[i]))
		}
		for j := range pred[i] {
			p := pred[i][j]
			if p < lossClip {
				p = lossClip
			}
			total -= targets[i][j] * math.Log(p)
		}
	}
	return total / float64(len(pred)), nil
}
