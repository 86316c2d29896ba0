package quantum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

var ErrUnsupportedAxis = errors.New("unsupported rotation axis")

// Axis selects the generator of a single-qubit rotation gate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis decodes an axis tag from an untyped source such as a config file.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	case "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAxis, s)
}

// Gate is a unitary applied in place to a state vector.
type Gate interface {
	Apply(s *State)
	// ApplyInverse undoes Apply. Needed by the adjoint gradient pass.
	ApplyInverse(s *State)
}

// RotationGate is exp(-i angle/2 P) for Pauli generator P on one qubit. The
// angle is mutable so a parametric circuit can retarget it after construction.
type RotationGate struct {
	Axis  Axis
	Qubit int
	Angle float64
}

func (g *RotationGate) Apply(s *State) {
	applyRotation(s, g.Axis, g.Qubit, g.Angle)
}

func (g *RotationGate) ApplyInverse(s *State) {
	applyRotation(s, g.Axis, g.Qubit, -g.Angle)
}

// ApplyGenerator applies the Pauli generator P of this rotation to the state.
// Used by the adjoint pass: dG/dangle = (-i/2) P G.
func (g *RotationGate) ApplyGenerator(s *State) {
	switch g.Axis {
	case AxisX:
		applyX(s, g.Qubit)
	case AxisY:
		applyY(s, g.Qubit)
	case AxisZ:
		applyZ(s, g.Qubit)
	}
}

func applyRotation(s *State, axis Axis, qubit int, angle float64) {
	switch axis {
	case AxisX:
		applyRX(s, qubit, angle)
	case AxisY:
		applyRY(s, qubit, angle)
	case AxisZ:
		applyRZ(s, qubit, angle)
	}
}

// PauliGate is a fixed X, Y or Z gate. Self-inverse.
type PauliGate struct {
	Axis  Axis
	Qubit int
}

func (g *PauliGate) Apply(s *State) {
	switch g.Axis {
	case AxisX:
		applyX(s, g.Qubit)
	case AxisY:
		applyY(s, g.Qubit)
	case AxisZ:
		applyZ(s, g.Qubit)
	}
}

func (g *PauliGate) ApplyInverse(s *State) {
	g.Apply(s)
}

// HadamardGate is a fixed H gate. Self-inverse.
type HadamardGate struct {
	Qubit int
}

func (g *HadamardGate) Apply(s *State) {
	applyH(s, g.Qubit)
}

func (g *HadamardGate) ApplyInverse(s *State) {
	g.Apply(s)
}

// CNOTGate flips Target when Control is set. Self-inverse.
type CNOTGate struct {
	Control int
	Target  int
}

func (g *CNOTGate) Apply(s *State) {
	n := len(s.amps)
	cBit := 1 << g.Control
	tBit := 1 << g.Target
	for i := 0; i < n; i++ {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (g *CNOTGate) ApplyInverse(s *State) {
	g.Apply(s)
}

// DenseGate is an arbitrary unitary over the full register, stored row-major
// as a 2^n x 2^n matrix. Used for the time-evolution operator.
type DenseGate struct {
	Matrix [][]complex128
}

func (g *DenseGate) Apply(s *State) {
	dim := len(g.Matrix)
	next := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		var acc complex128
		row := g.Matrix[i]
		for j := 0; j < dim; j++ {
			acc += row[j] * s.amps[j]
		}
		next[i] = acc
	}
	s.amps = next
}

// ApplyInverse applies the conjugate transpose, the inverse for a unitary.
func (g *DenseGate) ApplyInverse(s *State) {
	dim := len(g.Matrix)
	next := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		var acc complex128
		for j := 0; j < dim; j++ {
			acc += cmplx.Conj(g.Matrix[j][i]) * s.amps[j]
		}
		next[i] = acc
	}
	s.amps = next
}

func applyH(s *State, q int) {
	factor := complex(1.0/math.Sqrt2, 0)
	n := len(s.amps)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = factor * (a + b)
			s.amps[j] = factor * (a - b)
		}
	}
}

func applyX(s *State, q int) {
	n := len(s.amps)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func applyY(s *State, q int) {
	n := len(s.amps)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = -1i*s.amps[j], 1i*s.amps[i]
		}
	}
}

func applyZ(s *State, q int) {
	n := len(s.amps)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.amps[i] = -s.amps[i]
		}
	}
}

func applyRX(s *State, q int, theta float64) {
	n := len(s.amps)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = c*a + js*b
			s.amps[j] = js*a + c*b
		}
	}
}

func applyRY(s *State, q int, theta float64) {
	n := len(s.amps)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = c*a - sn*b
			s.amps[j] = sn*a + c*b
		}
	}
}

func applyRZ(s *State, q int, theta float64) {
	n := len(s.amps)
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	conj := cmplx.Conj(phase)
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.amps[i] *= phase
		} else {
			s.amps[i] *= conj
		}
	}
}
