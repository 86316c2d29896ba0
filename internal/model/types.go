package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TrainingRun is one completed fit: the circuit shape, the seed that fixes
// both the random Hamiltonian and the initial angles, and the fitted theta
// vector ordered by theta index.
type TrainingRun struct {
	VersionedRecord
	ID            string    `json:"id"`
	NumQubits     int       `json:"num_qubits"`
	Depth         int       `json:"depth"`
	NumClasses    int       `json:"num_classes"`
	TimeStep      float64   `json:"time_step"`
	Ladder        string    `json:"ladder"`
	Seed          int64     `json:"seed"`
	MaxIterations int       `json:"max_iterations"`
	Samples       int       `json:"samples"`
	InitialLoss   float64   `json:"initial_loss"`
	FinalLoss     float64   `json:"final_loss"`
	Accuracy      float64   `json:"accuracy"`
	Theta         []float64 `json:"theta"`
}
