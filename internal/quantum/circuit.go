package quantum

import (
	"errors"
	"fmt"
)

var ErrParameterOutOfRange = errors.New("parameter position out of range")

// ParametricCircuit is an ordered gate sequence over a fixed register.
// Rotation gates added through AddRotation are addressable by position and
// their angles can be read and retargeted after construction; every other
// gate is fixed. Application is deterministic and mutates the target state in
// place.
type ParametricCircuit struct {
	nQubits int
	gates   []Gate
	params  []*RotationGate
}

func NewParametricCircuit(nQubits int) (*ParametricCircuit, error) {
	if nQubits <= 0 {
		return nil, fmt.Errorf("qubit count must be > 0, got %d", nQubits)
	}
	return &ParametricCircuit{nQubits: nQubits}, nil
}

func (c *ParametricCircuit) NumQubits() int {
	return c.nQubits
}

// AddGate appends a fixed gate.
func (c *ParametricCircuit) AddGate(g Gate) {
	c.gates = append(c.gates, g)
}

// AddRotation appends a parametric rotation gate and returns its parameter
// position. Positions are assigned contiguously in insertion order.
func (c *ParametricCircuit) AddRotation(axis Axis, qubit int, angle float64) int {
	g := &RotationGate{Axis: axis, Qubit: qubit, Angle: angle}
	c.gates = append(c.gates, g)
	c.params = append(c.params, g)
	return len(c.params) - 1
}

func (c *ParametricCircuit) ParameterCount() int {
	return len(c.params)
}

func (c *ParametricCircuit) SetParameter(pos int, angle float64) error {
	if pos < 0 || pos >= len(c.params) {
		return fmt.Errorf("%w: %d", ErrParameterOutOfRange, pos)
	}
	c.params[pos].Angle = angle
	return nil
}

func (c *ParametricCircuit) Parameter(pos int) (float64, error) {
	if pos < 0 || pos >= len(c.params) {
		return 0, fmt.Errorf("%w: %d", ErrParameterOutOfRange, pos)
	}
	return c.params[pos].Angle, nil
}

// ApplyTo runs every gate in order against the given state.
func (c *ParametricCircuit) ApplyTo(s *State) {
	for _, g := range c.gates {
		g.Apply(s)
	}
}

// Run applies the circuit to a fresh |0...0> state.
func (c *ParametricCircuit) Run() (*State, error) {
	s, err := NewZeroState(c.nQubits)
	if err != nil {
		return nil, err
	}
	c.ApplyTo(s)
	return s, nil
}

// Backprop returns d<obs>/d(angle) for every parameter position using the
// adjoint-state method: a single forward pass, then one reverse sweep that
// un-applies each gate while accumulating 2*Re<lambda|dG/dangle|phi>.
func (c *ParametricCircuit) Backprop(obs *Observable) ([]float64, error) {
	if obs == nil {
		return nil, errors.New("observable is required")
	}
	if obs.Qubit < 0 || obs.Qubit >= c.nQubits {
		return nil, fmt.Errorf("%w: %d", ErrQubitOutOfRange, obs.Qubit)
	}

	phi, err := c.Run()
	if err != nil {
		return nil, err
	}
	lambda := phi.Copy()
	obs.applyTo(lambda)

	grads := make([]float64, len(c.params))
	pos := len(c.params)
	for k := len(c.gates) - 1; k >= 0; k-- {
		g := c.gates[k]
		g.ApplyInverse(phi)
		if rot, ok := g.(*RotationGate); ok && pos > 0 && c.params[pos-1] == rot {
			pos--
			mu := phi.Copy()
			rot.Apply(mu)
			rot.ApplyGenerator(mu)
			// dG/dangle = (-i/2) P G; fold the -i/2 into the overlap.
			overlap := lambda.InnerProduct(mu)
			grads[pos] = 2 * real(complex(0, -0.5)*overlap)
		}
		g.ApplyInverse(lambda)
	}
	return grads, nil
}
