package circuit

import (
	"fmt"

	"qcl/internal/quantum"
)

// LearningCircuit couples a parametric gate sequence with the parameter
// table that distinguishes trainable angles from data-bound ones. Gates are
// appended during construction; afterwards the structure is frozen and only
// angles change.
//
// Execution contract per sample: BindInputs (or Run, which binds for you)
// resolves data-dependent angles first; ApplyTheta afterwards commits the
// optimizer's trainable values. Committing before binding lets a coupled
// row's transform overwrite the committed value.
type LearningCircuit struct {
	nQubits  int
	circuit  *quantum.ParametricCircuit
	registry *Registry
}

func New(nQubits int) (*LearningCircuit, error) {
	pc, err := quantum.NewParametricCircuit(nQubits)
	if err != nil {
		return nil, err
	}
	return &LearningCircuit{
		nQubits:  nQubits,
		circuit:  pc,
		registry: NewRegistry(),
	}, nil
}

func (c *LearningCircuit) NumQubits() int {
	return c.nQubits
}

func (c *LearningCircuit) checkQubit(qubit int) error {
	if qubit < 0 || qubit >= c.nQubits {
		return fmt.Errorf("%w: %d", quantum.ErrQubitOutOfRange, qubit)
	}
	return nil
}

// AddGate appends an arbitrary fixed gate.
func (c *LearningCircuit) AddGate(g quantum.Gate) {
	c.circuit.AddGate(g)
}

// AddPauli appends a fixed X, Y or Z gate.
func (c *LearningCircuit) AddPauli(axis quantum.Axis, qubit int) error {
	if err := c.checkQubit(qubit); err != nil {
		return err
	}
	c.circuit.AddGate(&quantum.PauliGate{Axis: axis, Qubit: qubit})
	return nil
}

func (c *LearningCircuit) AddHadamard(qubit int) error {
	if err := c.checkQubit(qubit); err != nil {
		return err
	}
	c.circuit.AddGate(&quantum.HadamardGate{Qubit: qubit})
	return nil
}

func (c *LearningCircuit) AddCNOT(control, target int) error {
	if err := c.checkQubit(control); err != nil {
		return err
	}
	if err := c.checkQubit(target); err != nil {
		return err
	}
	c.circuit.AddGate(&quantum.CNOTGate{Control: control, Target: target})
	return nil
}

// AddRotation appends a fixed rotation gate with a constant angle. It is not
// tracked by the parameter table.
func (c *LearningCircuit) AddRotation(axis quantum.Axis, qubit int, angle float64) error {
	if err := c.checkQubit(qubit); err != nil {
		return err
	}
	c.circuit.AddGate(&quantum.RotationGate{Axis: axis, Qubit: qubit, Angle: angle})
	return nil
}

// AddParametricRotation appends a trainable rotation and returns its theta
// index.
func (c *LearningCircuit) AddParametricRotation(axis quantum.Axis, qubit int, initial float64) (int, error) {
	if err := c.checkQubit(qubit); err != nil {
		return 0, err
	}
	pos := c.circuit.AddRotation(axis, qubit, initial)
	return c.registry.AddLearningSlot(pos, initial), nil
}

// AddInputRotation appends a rotation whose angle is recomputed from the data
// sample on every bind. The gate is parametric underneath so the angle can be
// retargeted per execution.
func (c *LearningCircuit) AddInputRotation(axis quantum.Axis, qubit int, fn InputFunc) error {
	if err := c.checkQubit(qubit); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("input transform is required")
	}
	pos := c.circuit.AddRotation(axis, qubit, 0)
	c.registry.AddInputSlot(pos, fn)
	return nil
}

// AddCoupledRotation appends a rotation that is both trainable and
// data-dependent: each bind feeds the current trainable value through fn and
// the result becomes the new trainable value. Returns the theta index.
func (c *LearningCircuit) AddCoupledRotation(axis quantum.Axis, qubit int, initial float64, fn CoupledInputFunc) (int, error) {
	if err := c.checkQubit(qubit); err != nil {
		return 0, err
	}
	if fn == nil {
		return 0, fmt.Errorf("input transform is required")
	}
	pos := c.circuit.AddRotation(axis, qubit, initial)
	return c.registry.AddCoupledSlot(pos, initial, fn), nil
}

// BindInputs is the Bind phase: resolve data-dependent angles and push them
// into the gate sequence. Coupled rows have their trainable value overwritten
// here.
func (c *LearningCircuit) BindInputs(x []float64) error {
	for _, b := range c.registry.BindInputs(x) {
		if err := c.circuit.SetParameter(b.Position, b.Angle); err != nil {
			return err
		}
	}
	return nil
}

// ApplyTheta is the Commit phase: push the flat trainable vector into the
// gate sequence. Call after BindInputs within one execution, or a coupled
// row's bind will clobber the committed value.
func (c *LearningCircuit) ApplyTheta(theta []float64) error {
	bindings, err := c.registry.ApplyTheta(theta)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if err := c.circuit.SetParameter(b.Position, b.Angle); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotTheta reads the trainable values in theta-index order.
func (c *LearningCircuit) SnapshotTheta() []float64 {
	return c.registry.SnapshotTheta()
}

func (c *LearningCircuit) LearningCount() int {
	return c.registry.LearningCount()
}

// Run binds the data sample and applies the circuit to |0...0>.
func (c *LearningCircuit) Run(x []float64) (*quantum.State, error) {
	if err := c.BindInputs(x); err != nil {
		return nil, err
	}
	return c.circuit.Run()
}

// RunBound re-executes from |0...0> with the currently stored angles. Used
// when only trainable parameters changed and the sample did not.
func (c *LearningCircuit) RunBound() (*quantum.State, error) {
	return c.circuit.Run()
}

// ApplyTo applies the gate sequence to an existing state with the currently
// stored angles. The caller owns the copy discipline.
func (c *LearningCircuit) ApplyTo(s *quantum.State) {
	c.circuit.ApplyTo(s)
}

// Backprop binds the sample, computes the analytic per-position gradient of
// the observable's expectation, and routes it onto theta indices. Gradients
// land only on purely trainable rows; coupled rows are excluded from the
// trainable gradient.
func (c *LearningCircuit) Backprop(x []float64, obs *quantum.Observable) ([]float64, error) {
	if err := c.BindInputs(x); err != nil {
		return nil, err
	}
	grads, err := c.circuit.Backprop(obs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, c.registry.LearningCount())
	for thetaIdx, pos := range c.registry.LearningPositions() {
		out[thetaIdx] = grads[pos]
	}
	return out, nil
}
