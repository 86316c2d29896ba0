package quantum

import (
	"math"
	"testing"
)

func TestParametricCircuitPositions(t *testing.T) {
	c, err := NewParametricCircuit(2)
	if err != nil {
		t.Fatalf("new circuit failed: %v", err)
	}
	if p := c.AddRotation(AxisX, 0, 0.1); p != 0 {
		t.Fatalf("first parameter position: got=%d want=0", p)
	}
	c.AddGate(&HadamardGate{Qubit: 1})
	if p := c.AddRotation(AxisZ, 1, 0.2); p != 1 {
		t.Fatalf("second parameter position: got=%d want=1", p)
	}
	if c.ParameterCount() != 2 {
		t.Fatalf("parameter count: got=%d want=2", c.ParameterCount())
	}
	if err := c.SetParameter(1, 0.9); err != nil {
		t.Fatalf("set parameter failed: %v", err)
	}
	got, err := c.Parameter(1)
	if err != nil {
		t.Fatalf("get parameter failed: %v", err)
	}
	if got != 0.9 {
		t.Fatalf("parameter value: got=%f want=0.9", got)
	}
	if err := c.SetParameter(2, 0); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestBackpropSingleRY(t *testing.T) {
	// <Z> of RY(theta)|0> is cos(theta); the gradient must be -sin(theta).
	theta := 0.6
	c, err := NewParametricCircuit(1)
	if err != nil {
		t.Fatalf("new circuit failed: %v", err)
	}
	c.AddRotation(AxisY, 0, theta)

	grads, err := c.Backprop(NewZObservable(0))
	if err != nil {
		t.Fatalf("backprop failed: %v", err)
	}
	if len(grads) != 1 {
		t.Fatalf("gradient length: got=%d want=1", len(grads))
	}
	if math.Abs(grads[0]-(-math.Sin(theta))) > 1e-9 {
		t.Fatalf("backprop gradient: got=%f want=%f", grads[0], -math.Sin(theta))
	}
}

func TestBackpropMatchesParameterShift(t *testing.T) {
	c, err := NewParametricCircuit(2)
	if err != nil {
		t.Fatalf("new circuit failed: %v", err)
	}
	c.AddGate(&HadamardGate{Qubit: 0})
	c.AddRotation(AxisX, 0, 0.3)
	c.AddRotation(AxisY, 1, -0.7)
	c.AddGate(&CNOTGate{Control: 0, Target: 1})
	c.AddRotation(AxisZ, 1, 1.1)

	obs := NewZObservable(1)
	analytic, err := c.Backprop(obs)
	if err != nil {
		t.Fatalf("backprop failed: %v", err)
	}

	expectation := func() float64 {
		s, err := c.Run()
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		v, err := obs.ExpectationValue(s)
		if err != nil {
			t.Fatalf("expectation failed: %v", err)
		}
		return v
	}

	for pos := 0; pos < c.ParameterCount(); pos++ {
		base, err := c.Parameter(pos)
		if err != nil {
			t.Fatalf("get parameter failed: %v", err)
		}
		if err := c.SetParameter(pos, base+math.Pi/2); err != nil {
			t.Fatalf("set parameter failed: %v", err)
		}
		plus := expectation()
		if err := c.SetParameter(pos, base-math.Pi/2); err != nil {
			t.Fatalf("set parameter failed: %v", err)
		}
		minus := expectation()
		if err := c.SetParameter(pos, base); err != nil {
			t.Fatalf("set parameter failed: %v", err)
		}

		shift := (plus - minus) / 2
		if math.Abs(shift-analytic[pos]) > 1e-9 {
			t.Fatalf("gradient mismatch at position %d: shift=%f analytic=%f", pos, shift, analytic[pos])
		}
	}
}

func TestBackpropIgnoresFixedRotations(t *testing.T) {
	c, err := NewParametricCircuit(1)
	if err != nil {
		t.Fatalf("new circuit failed: %v", err)
	}
	c.AddGate(&RotationGate{Axis: AxisY, Qubit: 0, Angle: 0.4})
	c.AddRotation(AxisY, 0, 0.2)

	grads, err := c.Backprop(NewZObservable(0))
	if err != nil {
		t.Fatalf("backprop failed: %v", err)
	}
	if len(grads) != 1 {
		t.Fatalf("gradient length: got=%d want=1", len(grads))
	}
	want := -math.Sin(0.6)
	if math.Abs(grads[0]-want) > 1e-9 {
		t.Fatalf("fixed rotation leaked into gradient: got=%f want=%f", grads[0], want)
	}
}
