package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train_config.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTrainRequestFromConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"num_qubits":        6,
		"depth":             3,
		"num_classes":       2,
		"time_step":         0.5,
		"ladder":            "y,z",
		"seed":              77,
		"max_iterations":    40,
		"samples_per_class": 8,
		"data_path":         "iris.csv",
		"minimizer":         "gd",
	})

	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}
	if req.NumQubits != 6 || req.Depth != 3 || req.NumClasses != 2 {
		t.Fatalf("unexpected shape fields: %+v", req)
	}
	if req.TimeStep != 0.5 || req.Seed != 77 || req.MaxIterations != 40 {
		t.Fatalf("unexpected numeric fields: %+v", req)
	}
	if req.Ladder != "y,z" {
		t.Fatalf("unexpected ladder: %+v", req)
	}
	if req.SamplesPerClass != 8 || req.DataPath != "iris.csv" || req.Minimizer != "gd" {
		t.Fatalf("unexpected data fields: %+v", req)
	}
}

func TestLoadTrainRequestIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"seed":    5,
		"unknown": "ignored",
	})

	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}
	if req.Seed != 5 || req.NumQubits != 0 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestLoadTrainRequestRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadTrainRequestFromConfig(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOverrideFromFlags(t *testing.T) {
	req, err := loadTrainRequestFromConfig(writeConfig(t, map[string]any{
		"num_qubits": 6,
		"seed":       77,
		"minimizer":  "gd",
	}))
	if err != nil {
		t.Fatalf("load train request: %v", err)
	}

	overrideFromFlags(&req, map[string]bool{"seed": true, "max-iter": true}, map[string]any{
		"seed":     int64(9),
		"max-iter": 12,
	})
	if req.Seed != 9 || req.MaxIterations != 12 {
		t.Fatalf("overrides not applied: %+v", req)
	}
	if req.NumQubits != 6 || req.Minimizer != "gd" {
		t.Fatalf("config values clobbered: %+v", req)
	}
}
