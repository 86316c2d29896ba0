package circuit

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidReference  = errors.New("invalid companion reference")
)

// InputFunc computes a gate angle from the current data sample.
type InputFunc func(x []float64) float64

// CoupledInputFunc computes a gate angle from a companion learning
// parameter's current value and the data sample.
type CoupledInputFunc func(theta float64, x []float64) float64

// Role tags a parameter table row. A Both row is a single angle that is
// simultaneously trainable and recomputed from data, replacing the
// cross-referenced parallel lists this table descends from.
type Role int

const (
	RoleLearning Role = iota
	RoleInput
	RoleBoth
)

func (r Role) String() string {
	switch r {
	case RoleLearning:
		return "learning"
	case RoleInput:
		return "input"
	case RoleBoth:
		return "both"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

type slot struct {
	role       Role
	position   int
	thetaIndex int // -1 for input-only rows
	value      float64
	transform  InputFunc
	coupled    CoupledInputFunc
	companion  int // theta index read/written by a detached input row; -1 otherwise
}

// Binding is one resolved (parameter position, angle) pair to push into the
// underlying gate sequence.
type Binding struct {
	Position int
	Angle    float64
}

// Registry is the parameter table for a learning circuit. Rows are appended
// during construction and never removed or reordered; only cached values
// mutate afterwards. Theta indices are assigned contiguously in insertion
// order over the trainable rows.
//
// The cached values are derived state. Callers re-synchronize them through a
// two-phase protocol per execution: BindInputs first (Bind phase, may
// overwrite companion values from data), then ApplyTheta (Commit phase,
// overwrites trainable values with the optimizer's vector). Running Bind
// after Commit loses the committed value for coupled rows.
type Registry struct {
	slots    []slot
	learning []int // theta index -> slot table index
}

func NewRegistry() *Registry {
	return &Registry{}
}

// AddLearningSlot appends a trainable row and returns its theta index.
func (r *Registry) AddLearningSlot(position int, initial float64) int {
	idx := len(r.learning)
	r.slots = append(r.slots, slot{
		role:       RoleLearning,
		position:   position,
		thetaIndex: idx,
		value:      initial,
		companion:  -1,
	})
	r.learning = append(r.learning, len(r.slots)-1)
	return idx
}

// AddInputSlot appends a data-only row.
func (r *Registry) AddInputSlot(position int, fn InputFunc) {
	r.slots = append(r.slots, slot{
		role:       RoleInput,
		position:   position,
		thetaIndex: -1,
		transform:  fn,
		companion:  -1,
	})
}

// AddCoupledSlot appends a single row that is both trainable and
// data-dependent, returning its theta index. The angle aliasing is structural:
// there is exactly one value field for both roles.
func (r *Registry) AddCoupledSlot(position int, initial float64, fn CoupledInputFunc) int {
	idx := len(r.learning)
	r.slots = append(r.slots, slot{
		role:       RoleBoth,
		position:   position,
		thetaIndex: idx,
		value:      initial,
		coupled:    fn,
		companion:  -1,
	})
	r.learning = append(r.learning, len(r.slots)-1)
	return idx
}

// AddCompanionInputSlot appends an input row whose transform reads, and as a
// side effect overwrites, the named learning parameter's current value. The
// companion must already exist.
func (r *Registry) AddCompanionInputSlot(position int, fn CoupledInputFunc, companionTheta int) error {
	if companionTheta < 0 || companionTheta >= len(r.learning) {
		return fmt.Errorf("%w: theta index %d with %d learning parameters", ErrInvalidReference, companionTheta, len(r.learning))
	}
	r.slots = append(r.slots, slot{
		role:       RoleInput,
		position:   position,
		thetaIndex: -1,
		coupled:    fn,
		companion:  companionTheta,
	})
	return nil
}

// BindInputs resolves every input-bearing row against the data sample, in
// insertion order, and returns the bindings to push into the gate sequence.
// Companion and Both rows have their cached trainable value overwritten by
// the transform's output.
func (r *Registry) BindInputs(x []float64) []Binding {
	var bindings []Binding
	for i := range r.slots {
		s := &r.slots[i]
		var angle float64
		switch {
		case s.role == RoleInput && s.companion < 0 && s.transform != nil:
			angle = s.transform(x)
		case s.role == RoleInput && s.companion >= 0:
			companion := &r.slots[r.learning[s.companion]]
			angle = s.coupled(companion.value, x)
			companion.value = angle
		case s.role == RoleBoth:
			angle = s.coupled(s.value, x)
			s.value = angle
		default:
			continue
		}
		bindings = append(bindings, Binding{Position: s.position, Angle: angle})
	}
	return bindings
}

// ApplyTheta commits the flat trainable vector into the cached values and
// returns the bindings to push into the gate sequence.
func (r *Registry) ApplyTheta(theta []float64) ([]Binding, error) {
	if len(theta) != len(r.learning) {
		return nil, fmt.Errorf("%w: got %d values for %d learning parameters", ErrDimensionMismatch, len(theta), len(r.learning))
	}
	bindings := make([]Binding, len(r.learning))
	for idx, si := range r.learning {
		s := &r.slots[si]
		s.value = theta[idx]
		bindings[idx] = Binding{Position: s.position, Angle: theta[idx]}
	}
	return bindings, nil
}

// SnapshotTheta reads the cached trainable values in theta-index order.
func (r *Registry) SnapshotTheta() []float64 {
	theta := make([]float64, len(r.learning))
	for idx, si := range r.learning {
		theta[idx] = r.slots[si].value
	}
	return theta
}

func (r *Registry) LearningCount() int {
	return len(r.learning)
}

// LearningPositions reports the gate positions of purely trainable rows,
// excluding Both rows. Gradient routing selects only these.
func (r *Registry) LearningPositions() map[int]int {
	out := make(map[int]int)
	for _, si := range r.learning {
		s := r.slots[si]
		if s.role != RoleLearning {
			continue
		}
		out[s.thetaIndex] = s.position
	}
	return out
}
