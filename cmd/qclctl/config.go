package main

import (
	"encoding/json"
	"fmt"
	"os"

	qclapi "qcl/pkg/qcl"
)

func loadTrainRequestFromConfig(path string) (qclapi.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return qclapi.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return qclapi.TrainRequest{}, err
	}

	var req qclapi.TrainRequest
	if v, ok := asInt(raw["num_qubits"]); ok {
		req.NumQubits = v
	}
	if v, ok := asInt(raw["depth"]); ok {
		req.Depth = v
	}
	if v, ok := asInt(raw["num_classes"]); ok {
		req.NumClasses = v
	}
	if v, ok := asFloat64(raw["time_step"]); ok {
		req.TimeStep = v
	}
	if v, ok := asString(raw["ladder"]); ok {
		req.Ladder = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["max_iterations"]); ok {
		req.MaxIterations = v
	}
	if v, ok := asInt(raw["samples_per_class"]); ok {
		req.SamplesPerClass = v
	}
	if v, ok := asString(raw["data_path"]); ok {
		req.DataPath = v
	}
	if v, ok := asString(raw["minimizer"]); ok {
		req.Minimizer = v
	}
	return req, nil
}

func loadOrDefaultTrainRequest(configPath string) (qclapi.TrainRequest, error) {
	if configPath == "" {
		return qclapi.TrainRequest{}, nil
	}
	req, err := loadTrainRequestFromConfig(configPath)
	if err != nil {
		return qclapi.TrainRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies explicitly set command-line flags on top of a
// config-file request.
func overrideFromFlags(req *qclapi.TrainRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "qubits":
			req.NumQubits = v.(int)
		case "depth":
			req.Depth = v.(int)
		case "classes":
			req.NumClasses = v.(int)
		case "time-step":
			req.TimeStep = v.(float64)
		case "ladder":
			req.Ladder = v.(string)
		case "seed":
			req.Seed = v.(int64)
		case "max-iter":
			req.MaxIterations = v.(int)
		case "samples-per-class":
			req.SamplesPerClass = v.(int)
		case "data":
			req.DataPath = v.(string)
		case "minimizer":
			req.Minimizer = v.(string)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
