package qnn

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestBlobs(t *testing.T) {
	features, targets := Blobs(rand.New(rand.NewSource(1)), 10)
	if len(features) != 30 || len(targets) != 30 {
		t.Fatalf("blob counts: got=%d/%d want=30/30", len(features), len(targets))
	}
	for i, row := range features {
		if len(row) != 2 {
			t.Fatalf("sample %d feature count: got=%d want=2", i, len(row))
		}
		ones := 0
		for _, v := range targets[i] {
			if v == 1 {
				ones++
			} else if v != 0 {
				t.Fatalf("target %d not one-hot: %v", i, targets[i])
			}
		}
		if ones != 1 {
			t.Fatalf("target %d not one-hot: %v", i, targets[i])
		}
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "1.4,0.2,0\n4.3,1.3,1\n5.6,2.1,2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	features, targets, err := LoadCSV(path, 3)
	if err != nil {
		t.Fatalf("load csv failed: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("row count: got=%d want=3", len(features))
	}
	if features[1][0] != 4.3 || features[1][1] != 1.3 {
		t.Fatalf("row 2 features: got=%v", features[1])
	}
	if targets[2][2] != 1 || targets[2][0] != 0 {
		t.Fatalf("row 3 target: got=%v", targets[2])
	}
}

func TestLoadCSVErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("1.0,2.0,9\n"), 0o644); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}
	if _, _, err := LoadCSV(bad, 3); err == nil {
		t.Fatal("expected out-of-range label error")
	}

	if _, _, err := LoadCSV(filepath.Join(dir, "missing.csv"), 3); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestLabelsAndAccuracy(t *testing.T) {
	probs := [][]float64{
		{0.7, 0.2, 0.1},
		{0.1, 0.3, 0.6},
	}
	labels := Labels(probs)
	if labels[0] != 0 || labels[1] != 2 {
		t.Fatalf("labels: got=%v want=[0 2]", labels)
	}
	targets := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
	}
	if got := Accuracy(probs, targets); got != 0.5 {
		t.Fatalf("accuracy: got=%f want=0.5", got)
	}
}
