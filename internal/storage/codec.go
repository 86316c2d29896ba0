package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"qcl/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(run model.TrainingRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.TrainingRun, error) {
	var run model.TrainingRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainingRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.TrainingRun{}, err
	}
	return run, nil
}

func checkVersion(rec model.VersionedRecord) error {
	if rec.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("%w: schema %d, want %d", ErrVersionMismatch, rec.SchemaVersion, CurrentSchemaVersion)
	}
	if rec.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: codec %d, want %d", ErrVersionMismatch, rec.CodecVersion, CurrentCodecVersion)
	}
	return nil
}

// StampVersions fills in the current schema and codec versions.
func StampVersions(run *model.TrainingRun) {
	run.SchemaVersion = CurrentSchemaVersion
	run.CodecVersion = CurrentCodecVersion
}
