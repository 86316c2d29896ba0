package quantum

import (
	"errors"
	"fmt"
	"math/cmplx"
)

var ErrQubitOutOfRange = errors.New("qubit index out of range")

// State is a full state vector over n qubits. Basis index bit q holds the
// computational-basis state of qubit q. Gate application mutates the state in
// place; use Copy before applying a circuit when the original must survive.
type State struct {
	amps    []complex128
	nQubits int
}

// NewZeroState returns |0...0> over nQubits.
func NewZeroState(nQubits int) (*State, error) {
	if nQubits <= 0 {
		return nil, fmt.Errorf("qubit count must be > 0, got %d", nQubits)
	}
	amps := make([]complex128, 1<<nQubits)
	amps[0] = 1
	return &State{amps: amps, nQubits: nQubits}, nil
}

// Copy returns an independent deep copy.
func (s *State) Copy() *State {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	return &State{amps: amps, nQubits: s.nQubits}
}

func (s *State) NumQubits() int {
	return s.nQubits
}

// Amplitudes exposes the backing amplitude slice. Mutating it mutates the
// state.
func (s *State) Amplitudes() []complex128 {
	return s.amps
}

// Norm returns the squared 2-norm of the state, 1.0 for any valid state.
func (s *State) Norm() float64 {
	total := 0.0
	for _, a := range s.amps {
		total += real(a)*real(a) + imag(a)*imag(a)
	}
	return total
}

// Probability returns the probabilities of measuring qubit q as 0 and 1.
func (s *State) Probability(q int) (p0, p1 float64, err error) {
	if q < 0 || q >= s.nQubits {
		return 0, 0, fmt.Errorf("%w: %d", ErrQubitOutOfRange, q)
	}
	bit := 1 << q
	for i, a := range s.amps {
		p := real(a * cmplx.Conj(a))
		if i&bit == 0 {
			p0 += p
		} else {
			p1 += p
		}
	}
	return p0, p1, nil
}

// InnerProduct returns <s|other>.
func (s *State) InnerProduct(other *State) complex128 {
	var total complex128
	for i, a := range s.amps {
		total += cmplx.Conj(a) * other.amps[i]
	}
	return total
}
