package storage

import (
	"context"

	"qcl/internal/model"
)

// Store defines persistence operations for training runs and their loss
// trajectories.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.TrainingRun) error
	GetRun(ctx context.Context, id string) (model.TrainingRun, bool, error)
	ListRuns(ctx context.Context) ([]model.TrainingRun, error)
	DeleteRun(ctx context.Context, id string) error
	SaveLossHistory(ctx context.Context, runID string, history []float64) error
	GetLossHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
