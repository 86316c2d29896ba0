package quantum

import (
	"errors"
	"fmt"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var pauliXMat = mat.NewDense(2, 2, []float64{0, 1, 1, 0})
var pauliZMat = mat.NewDense(2, 2, []float64{1, 0, 0, -1})

// NewTimeEvolutionGate builds exp(-i * timeStep * H) for a random
// transverse-field Ising Hamiltonian
//
//	H = sum_i Jx_i X_i + sum_{i<j} J_ij Z_i Z_j
//
// with couplings drawn uniformly from [-1, 1). The Hamiltonian is real
// symmetric, so the operator comes out of a symmetric eigendecomposition:
// exp(-itH) = V exp(-it D) V^T.
func NewTimeEvolutionGate(nQubits int, timeStep float64, rng *rand.Rand) (*DenseGate, error) {
	if nQubits <= 0 {
		return nil, fmt.Errorf("qubit count must be > 0, got %d", nQubits)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}

	dim := 1 << nQubits
	ham := mat.NewDense(dim, dim, nil)
	var scaled mat.Dense
	for i := 0; i < nQubits; i++ {
		jx := -1 + 2*rng.Float64()
		scaled.Scale(jx, fullOperator(nQubits, map[int]*mat.Dense{i: pauliXMat}))
		ham.Add(ham, &scaled)
		for j := i + 1; j < nQubits; j++ {
			jij := -1 + 2*rng.Float64()
			scaled.Scale(jij, fullOperator(nQubits, map[int]*mat.Dense{i: pauliZMat, j: pauliZMat}))
			ham.Add(ham, &scaled)
		}
	}

	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, ham.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.New("hamiltonian eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	phases := make([]complex128, dim)
	for k, v := range vals {
		phases[k] = cmplx.Exp(complex(0, -timeStep*v))
	}

	matrix := make([][]complex128, dim)
	for i := 0; i < dim; i++ {
		row := make([]complex128, dim)
		for j := 0; j < dim; j++ {
			var acc complex128
			for k := 0; k < dim; k++ {
				acc += complex(vecs.At(i, k), 0) * phases[k] * complex(vecs.At(j, k), 0)
			}
			row[j] = acc
		}
		matrix[i] = row
	}
	return &DenseGate{Matrix: matrix}, nil
}

// fullOperator embeds single-qubit operators into the full register by
// Kronecker product, identity on every unnamed site. Qubit 0 is the least
// significant bit, so the product runs from the highest site down.
func fullOperator(nQubits int, sites map[int]*mat.Dense) *mat.Dense {
	identity := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	acc := mat.NewDense(1, 1, []float64{1})
	for q := nQubits - 1; q >= 0; q-- {
		op, ok := sites[q]
		if !ok {
			op = identity
		}
		acc = kron(acc, op)
	}
	return acc
}

func kron(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			v := a.At(i, j)
			if v == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, v*b.At(k, l))
				}
			}
		}
	}
	return out
}
