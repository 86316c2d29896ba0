package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"qcl/internal/storage"
	qclapi "qcl/pkg/qcl"
)

const defaultDBPath = "qcl.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: qclctl <init|train|predict|runs|history> [flags]", msg)
}

func newClient(storeKind, dbPath string) (*qclapi.Client, error) {
	return qclapi.New(qclapi.Options{StoreKind: storeKind, DBPath: dbPath})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional train config JSON path")
	qubits := fs.Int("qubits", 4, "qubit count")
	depth := fs.Int("depth", 4, "circuit depth")
	classes := fs.Int("classes", 3, "class count (one readout qubit per class)")
	timeStep := fs.Float64("time-step", 0.77, "time-evolution step")
	ladder := fs.String("ladder", "x,z,x", "per-qubit rotation axes applied in every layer")
	seed := fs.Int64("seed", 1, "rng seed")
	maxIter := fs.Int("max-iter", 30, "optimizer iteration cap")
	samplesPerClass := fs.Int("samples-per-class", 10, "synthetic samples per class (ignored with -data)")
	dataPath := fs.String("data", "", "labelled csv path (f0,f1,label); empty uses the synthetic set")
	minimizerName := fs.String("minimizer", "bfgs", "minimizer: bfgs|gd")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultTrainRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = qclapi.TrainRequest{
			NumQubits:       *qubits,
			Depth:           *depth,
			NumClasses:      *classes,
			TimeStep:        *timeStep,
			Ladder:          *ladder,
			Seed:            *seed,
			MaxIterations:   *maxIter,
			SamplesPerClass: *samplesPerClass,
			DataPath:        *dataPath,
			Minimizer:       *minimizerName,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"qubits":            *qubits,
			"depth":             *depth,
			"classes":           *classes,
			"time-step":         *timeStep,
			"ladder":            *ladder,
			"seed":              *seed,
			"max-iter":          *maxIter,
			"samples-per-class": *samplesPerClass,
			"data":              *dataPath,
			"minimizer":         *minimizerName,
		})
	}
	req.Report = func(iteration int, theta []float64) {
		fmt.Printf("iteration=%d\n", iteration)
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	start := time.Now()
	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s samples=%s params=%s iterations=%d elapsed=%s\n",
		summary.RunID,
		humanize.Comma(int64(summary.Samples)),
		humanize.Comma(int64(summary.Parameters)),
		summary.Iterations,
		time.Since(start).Round(time.Millisecond))
	fmt.Printf("initial_loss=%.6f final_loss=%.6f accuracy=%.4f\n",
		summary.InitialLoss, summary.FinalLoss, summary.Accuracy)
	return nil
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run to load the fitted parameters from")
	dataPath := fs.String("data", "", "csv path (f0,f1,label) to classify")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("run-id is required")
	}
	if *dataPath == "" {
		return errors.New("data is required")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Predict(ctx, qclapi.PredictRequest{RunID: *runID, DataPath: *dataPath})
	if err != nil {
		return err
	}

	for i, label := range summary.Labels {
		fmt.Printf("sample=%d label=%d probabilities=%v\n", i, label, summary.Probabilities[i])
	}
	if summary.Accuracy != nil {
		fmt.Printf("accuracy=%.4f\n", *summary.Accuracy)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	items, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("run_id=%s qubits=%d depth=%d classes=%d seed=%d samples=%s final_loss=%.6f accuracy=%.4f\n",
			item.RunID, item.NumQubits, item.Depth, item.NumClasses, item.Seed,
			humanize.Comma(int64(item.Samples)), item.FinalLoss, item.Accuracy)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run to show the loss trace for")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("run-id is required")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	history, err := client.LossHistory(ctx, *runID)
	if err != nil {
		return err
	}
	for i, loss := range history {
		fmt.Printf("iteration=%d loss=%.6f\n", i+1, loss)
	}
	return nil
}
