// Package optimize wraps the numerical minimizer the training loop drives.
// The circuit trainer only ever sees the Minimizer interface; the default
// implementation adapts gonum's quasi-Newton BFGS.
package optimize

import (
	"errors"
	"fmt"

	gopt "gonum.org/v1/gonum/optimize"
)

// Objective evaluates the scalar loss at a flat parameter vector.
type Objective func(theta []float64) float64

// GradientFunc evaluates the loss gradient at a flat parameter vector. The
// returned slice has the same length as theta.
type GradientFunc func(theta []float64) []float64

// Callback is invoked after each major iteration with the current vector.
type Callback func(iteration int, theta []float64)

type Result struct {
	X               []float64
	F               float64
	Iterations      int
	FuncEvaluations int
	Converged       bool
	Status          string
}

type Minimizer interface {
	Name() string
	Minimize(objective Objective, gradient GradientFunc, initial []float64, maxIterations int, callback Callback) (Result, error)
}

// NewMinimizer resolves a configured minimizer kind.
func NewMinimizer(kind string) (Minimizer, error) {
	switch kind {
	case "", "bfgs":
		return &BFGS{}, nil
	case "gd", "gradient-descent":
		return &GradientDescent{Step: 0.01}, nil
	default:
		return nil, fmt.Errorf("unsupported minimizer: %s", kind)
	}
}

// BFGS adapts gonum's BFGS method. A line-search failure near the optimum is
// reported through Converged=false and Status rather than an error, since
// the circuit gradient fed to it is exact per angle but not exact through the
// softmax composition.
type BFGS struct {
	GradientTolerance float64
}

func (b *BFGS) Name() string {
	return "bfgs"
}

func (b *BFGS) Minimize(objective Objective, gradient GradientFunc, initial []float64, maxIterations int, callback Callback) (Result, error) {
	if objective == nil {
		return Result{}, errors.New("objective is required")
	}
	if gradient == nil {
		return Result{}, errors.New("gradient is required")
	}
	if len(initial) == 0 {
		return Result{}, errors.New("initial vector is required")
	}
	if maxIterations <= 0 {
		return Result{}, errors.New("max iterations must be > 0")
	}

	problem := gopt.Problem{
		Func: func(x []float64) float64 {
			return objective(x)
		},
		Grad: func(dst, x []float64) {
			copy(dst, gradient(x))
		},
	}
	settings := &gopt.Settings{MajorIterations: maxIterations}
	if b.GradientTolerance > 0 {
		settings.GradientThreshold = b.GradientTolerance
	}
	if callback != nil {
		settings.Recorder = &callbackRecorder{callback: callback}
	}

	res, err := gopt.Minimize(problem, initial, settings, &gopt.BFGS{})
	if res == nil || len(res.X) == 0 {
		if err == nil {
			err = errors.New("minimizer returned no result")
		}
		return Result{}, err
	}
	out := Result{
		X:               append([]float64(nil), res.X...),
		F:               res.F,
		Iterations:      res.MajorIterations,
		FuncEvaluations: res.FuncEvaluations,
		Converged:       err == nil && res.Status != gopt.IterationLimit,
		Status:          res.Status.String(),
	}
	if err != nil {
		out.Status = err.Error()
	}
	return out, nil
}

type callbackRecorder struct {
	callback Callback
}

func (r *callbackRecorder) Init() error {
	return nil
}

func (r *callbackRecorder) Record(loc *gopt.Location, op gopt.Operation, stats *gopt.Stats) error {
	if op&gopt.MajorIteration != 0 {
		r.callback(stats.MajorIterations, loc.X)
	}
	return nil
}

// GradientDescent is a fixed-step fallback. With a small enough step along
// the true gradient the loss cannot increase, which makes it the reference
// method for monotonicity checks.
type GradientDescent struct {
	Step float64
}

func (g *GradientDescent) Name() string {
	return "gradient-descent"
}

func (g *GradientDescent) Minimize(objective Objective, gradient GradientFunc, initial []float64, maxIterations int, callback Callback) (Result, error) {
	if objective == nil {
		return Result{}, errors.New("objective is required")
	}
	if gradient == nil {
		return Result{}, errors.New("gradient is required")
	}
	if len(initial) == 0 {
		return Result{}, errors.New("initial vector is required")
	}
	if maxIterations <= 0 {
		return Result{}, errors.New("max iterations must be > 0")
	}
	if g.Step <= 0 {
		return Result{}, errors.New("step must be > 0")
	}

	x := append([]float64(nil), initial...)
	evals := 0
	for iter := 1; iter <= maxIterations; iter++ {
		grad := gradient(x)
		if len(grad) != len(x) {
			return Result{}, fmt.Errorf("gradient length %d, want %d", len(grad), len(x))
		}
		for i := range x {
			x[i] -= g.Step * grad[i]
		}
		if callback != nil {
			callback(iter, x)
		}
		evals++
	}
	return Result{
		X:               x,
		F:               objective(x),
		Iterations:      maxIterations,
		FuncEvaluations: evals + 1,
		Converged:       false,
		Status:          "IterationLimit",
	}, nil
}
