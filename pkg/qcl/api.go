// Package qcl is the public client for training and querying variational
// circuit classifiers. It wires the classifier, the minimizer, and the run
// store behind a small request/summary API so callers and the CLI share one
// code path.
package qcl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"qcl/internal/model"
	"qcl/internal/optimize"
	"qcl/internal/qnn"
	"qcl/internal/storage"
)

const defaultDBPath = "qcl.db"

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store
}

type TrainRequest struct {
	NumQubits       int
	Depth           int
	NumClasses      int
	TimeStep        float64
	Ladder          string
	Seed            int64
	MaxIterations   int
	SamplesPerClass int
	DataPath        string
	Minimizer       string

	// Report, when set, is called roughly ten times over the fit with the
	// current iteration and parameter vector.
	Report func(iteration int, theta []float64)
}

type TrainSummary struct {
	RunID       string
	Samples     int
	Parameters  int
	Iterations  int
	InitialLoss float64
	FinalLoss   float64
	Accuracy    float64
}

type PredictRequest struct {
	RunID    string
	DataPath string
	Features [][]float64
}

type PredictSummary struct {
	RunID         string
	Labels        []int
	Probabilities [][]float64
	Accuracy      *float64
}

type RunItem struct {
	RunID      string
	NumQubits  int
	Depth      int
	NumClasses int
	Seed       int64
	Samples    int
	FinalLoss  float64
	Accuracy   float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Train fits a fresh classifier and persists the run. The seed fixes the
// time-evolution couplings, the initial angles, and the synthetic dataset, so
// a run can be rebuilt for prediction from its stored record alone.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if req.NumQubits <= 0 {
		req.NumQubits = 4
	}
	if req.Depth <= 0 {
		req.Depth = 4
	}
	if req.NumClasses <= 0 {
		req.NumClasses = 3
	}
	if req.TimeStep == 0 {
		req.TimeStep = qnn.DefaultTimeStep
	}
	if req.Ladder == "" {
		req.Ladder = qnn.DefaultLadder
	}
	if req.MaxIterations <= 0 {
		req.MaxIterations = 30
	}
	if req.SamplesPerClass <= 0 {
		req.SamplesPerClass = 10
	}
	minimizer, err := optimize.NewMinimizer(req.Minimizer)
	if err != nil {
		return TrainSummary{}, err
	}

	classifier, err := qnn.New(qnn.Config{
		NumQubits:  req.NumQubits,
		Depth:      req.Depth,
		NumClasses: req.NumClasses,
		TimeStep:   req.TimeStep,
		Ladder:     req.Ladder,
		Rand:       rand.New(rand.NewSource(req.Seed)),
	})
	if err != nil {
		return TrainSummary{}, err
	}

	var features, targets [][]float64
	if req.DataPath != "" {
		features, targets, err = qnn.LoadCSV(req.DataPath, req.NumClasses)
		if err != nil {
			return TrainSummary{}, err
		}
	} else {
		features, targets = qnn.Blobs(rand.New(rand.NewSource(req.Seed+1000)), req.SamplesPerClass)
	}

	interval := req.MaxIterations / 10
	if interval < 1 {
		interval = 1
	}
	var report optimize.Callback
	if req.Report != nil {
		report = func(iteration int, theta []float64) {
			if iteration%interval == 0 {
				req.Report(iteration, theta)
			}
		}
	}

	result, err := classifier.Fit(ctx, features, targets, req.MaxIterations, minimizer, report)
	if err != nil {
		return TrainSummary{}, err
	}

	pred, err := classifier.Predict(result.Theta)
	if err != nil {
		return TrainSummary{}, err
	}
	accuracy := qnn.Accuracy(pred, targets)

	run := model.TrainingRun{
		ID:            uuid.NewString(),
		NumQubits:     req.NumQubits,
		Depth:         req.Depth,
		NumClasses:    req.NumClasses,
		TimeStep:      req.TimeStep,
		Ladder:        req.Ladder,
		Seed:          req.Seed,
		MaxIterations: req.MaxIterations,
		Samples:       len(features),
		InitialLoss:   result.InitialLoss,
		FinalLoss:     result.FinalLoss,
		Accuracy:      accuracy,
		Theta:         result.Theta,
	}
	storage.StampVersions(&run)
	if err := c.store.SaveRun(ctx, run); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveLossHistory(ctx, run.ID, result.LossHistory); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:       run.ID,
		Samples:     len(features),
		Parameters:  classifier.ParameterCount(),
		Iterations:  result.Iterations,
		InitialLoss: result.InitialLoss,
		FinalLoss:   result.FinalLoss,
		Accuracy:    accuracy,
	}, nil
}

// Predict rebuilds the circuit of a stored run, restores its fitted theta,
// and classifies the given features. When the features come from a labelled
// CSV the summary also reports accuracy against those labels.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (PredictSummary, error) {
	if req.RunID == "" {
		return PredictSummary{}, errors.New("run id is required")
	}
	run, ok, err := c.store.GetRun(ctx, req.RunID)
	if err != nil {
		return PredictSummary{}, err
	}
	if !ok {
		return PredictSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, req.RunID)
	}

	classifier, err := rebuildClassifier(run)
	if err != nil {
		return PredictSummary{}, err
	}

	features := req.Features
	var targets [][]float64
	if req.DataPath != "" {
		features, targets, err = qnn.LoadCSV(req.DataPath, run.NumClasses)
		if err != nil {
			return PredictSummary{}, err
		}
	}
	if len(features) == 0 {
		return PredictSummary{}, errors.New("no features to classify")
	}

	probabilities, err := classifier.PredictBatch(features)
	if err != nil {
		return PredictSummary{}, err
	}

	summary := PredictSummary{
		RunID:         run.ID,
		Labels:        qnn.Labels(probabilities),
		Probabilities: probabilities,
	}
	if targets != nil {
		accuracy := qnn.Accuracy(probabilities, targets)
		summary.Accuracy = &accuracy
	}
	return summary, nil
}

// Runs lists persisted runs, newest-ID-last, truncated to limit when > 0.
func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	items := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, RunItem{
			RunID:      run.ID,
			NumQubits:  run.NumQubits,
			Depth:      run.Depth,
			NumClasses: run.NumClasses,
			Seed:       run.Seed,
			Samples:    run.Samples,
			FinalLoss:  run.FinalLoss,
			Accuracy:   run.Accuracy,
		})
	}
	return items, nil
}

// Run fetches a single persisted run record.
func (c *Client) Run(ctx context.Context, runID string) (model.TrainingRun, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.TrainingRun{}, err
	}
	if !ok {
		return model.TrainingRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// LossHistory fetches the per-iteration loss trace of a run.
func (c *Client) LossHistory(ctx context.Context, runID string) ([]float64, error) {
	history, ok, err := c.store.GetLossHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return history, nil
}

func rebuildClassifier(run model.TrainingRun) (*qnn.Classifier, error) {
	classifier, err := qnn.New(qnn.Config{
		NumQubits:  run.NumQubits,
		Depth:      run.Depth,
		NumClasses: run.NumClasses,
		TimeStep:   run.TimeStep,
		Ladder:     run.Ladder,
		Rand:       rand.New(rand.NewSource(run.Seed)),
	})
	if err != nil {
		return nil, err
	}
	if err := classifier.SetTheta(run.Theta); err != nil {
		return nil, err
	}
	return classifier, nil
}
