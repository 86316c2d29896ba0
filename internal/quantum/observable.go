package quantum

import (
	"fmt"
	"math/cmplx"
)

// Observable measures coeff * Z on a single qubit. One observable per output
// class; expectation values feed the class-probability softmax.
type Observable struct {
	Qubit int
	Coeff float64
}

// NewZObservable returns the Pauli-Z observable on qubit q with coefficient 1.
func NewZObservable(q int) *Observable {
	return &Observable{Qubit: q, Coeff: 1}
}

// ExpectationValue returns <s| coeff*Z_q |s>.
func (o *Observable) ExpectationValue(s *State) (float64, error) {
	if o.Qubit < 0 || o.Qubit >= s.nQubits {
		return 0, fmt.Errorf("%w: %d", ErrQubitOutOfRange, o.Qubit)
	}
	bit := 1 << o.Qubit
	total := 0.0
	for i, a := range s.amps {
		p := real(a * cmplx.Conj(a))
		if i&bit == 0 {
			total += p
		} else {
			total -= p
		}
	}
	return o.Coeff * total, nil
}

// applyTo multiplies the state by the observable operator. Z is Hermitian, so
// this seeds the adjoint gradient pass with O|phi>.
func (o *Observable) applyTo(s *State) {
	applyZ(s, o.Qubit)
	if o.Coeff != 1 {
		c := complex(o.Coeff, 0)
		for i := range s.amps {
			s.amps[i] *= c
		}
	}
}
