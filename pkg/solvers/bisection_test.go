package solvers

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBisectionSolveValueIncreasing(t *testing.T) {
	solver := NewBisection(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(d("2")), nil
	}

	result, err := solver.SolveValue(f, d("100"), d("0"), d("1000"))
	if err != nil {
		t.Fatalf("SolveValue() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false, residual %s", result.Residual)
	}
	if result.Value.Sub(d("50")).Abs().GreaterThan(d("0.01")) {
		t.Errorf("Value = %s, expected ~50", result.Value)
	}
	if result.Iterations == 0 {
		t.Errorf("Iterations = 0, expected at least one halving")
	}
	if result.Method != MethodBisection {
		t.Errorf("Method = %s, expected %s", result.Method, MethodBisection)
	}
}

func TestBisectionSolveValueDecreasing(t *testing.T) {
	solver := NewBisection(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return d("1000").Sub(x), nil
	}

	result, err := solver.SolveValue(f, d("400"), d("0"), d("1000"))
	if err != nil {
		t.Fatalf("SolveValue() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false for decreasing function, residual %s", result.Residual)
	}
	if result.Value.Sub(d("600")).Abs().GreaterThan(d("0.01")) {
		t.Errorf("Value = %s, expected ~600", result.Value)
	}
}

func TestBisectionTargetOutsideInterval(t *testing.T) {
	solver := NewBisection(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x, nil
	}

	result, err := solver.SolveValue(f, d("100"), d("0"), d("10"))
	if err != nil {
		t.Fatalf("SolveValue() error = %v", err)
	}
	if result.Converged {
		t.Errorf("Converged = true for unreachable target, expected best-effort non-convergence")
	}
}

func TestBisectionInvalidInterval(t *testing.T) {
	solver := NewBisection(nil, nil)
	f := func(x decimal.Decimal) (decimal.Decimal, error) { return x, nil }

	if _, err := solver.SolveValue(f, d("1"), d("10"), d("0")); err == nil {
		t.Errorf("SolveValue() error = nil for inverted interval, expected error")
	}
	if _, err := solver.SolveValue(nil, d("1"), d("0"), d("10")); err == nil {
		t.Errorf("SolveValue(nil) error = nil, expected error")
	}
}

func TestSolveConditionFindsCrossing(t *testing.T) {
	solver := NewBisection(nil, nil)

	cond := func(x decimal.Decimal) (bool, error) {
		return x.GreaterThanOrEqual(d("42")), nil
	}

	result, err := solver.SolveCondition(cond, d("0"), d("1000"))
	if err != nil {
		t.Fatalf("SolveCondition() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false, interval width %s", result.Residual)
	}
	if result.Value.Sub(d("42")).Abs().GreaterThan(d("0.02")) {
		t.Errorf("Value = %s, expected ~42", result.Value)
	}
	// The reported value must satisfy the condition.
	satisfied, _ := cond(result.Value)
	if !satisfied {
		t.Errorf("Value %s does not satisfy the condition", result.Value)
	}
}

func TestSolveConditionAlreadyTrueAtMin(t *testing.T) {
	solver := NewBisection(nil, nil)

	cond := func(x decimal.Decimal) (bool, error) {
		return x.GreaterThanOrEqual(d("1")), nil
	}

	result, err := solver.SolveCondition(cond, d("5"), d("100"))
	if err != nil {
		t.Fatalf("SolveCondition() error = %v", err)
	}
	if !result.Converged {
		t.Errorf("Converged = false, expected immediate convergence")
	}
	if !result.Value.Equal(d("5")) {
		t.Errorf("Value = %s, expected the lower bound", result.Value)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, expected 0", result.Iterations)
	}
}

func TestSolveConditionNeverTrue(t *testing.T) {
	solver := NewBisection(nil, nil)

	cond := func(x decimal.Decimal) (bool, error) {
		return x.GreaterThanOrEqual(d("5000")), nil
	}

	result, err := solver.SolveCondition(cond, d("0"), d("1000"))
	if err != nil {
		t.Fatalf("SolveCondition() error = %v", err)
	}
	if result.Converged {
		t.Errorf("Converged = true for unreachable condition")
	}
}

func TestNewtonAndBisectionAgree(t *testing.T) {
	newton := NewNewtonRaphson(nil, nil)
	bisection := NewBisection(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(d("1.5")).Sub(d("30")), nil
	}
	target := d("600")

	newtonResult, err := newton.SolveForTarget(f, nil, target, d("100"))
	if err != nil {
		t.Fatalf("newton error = %v", err)
	}
	bisectionResult, err := bisection.SolveValue(f, target, d("0"), d("10000"))
	if err != nil {
		t.Fatalf("bisection error = %v", err)
	}
	if !newtonResult.Converged || !bisectionResult.Converged {
		t.Fatalf("both methods must converge: newton %v, bisection %v",
			newtonResult.Converged, bisectionResult.Converged)
	}

	// Both residual tolerances are 0.01, so the solved values agree within
	// the combined tolerance.
	diff := newtonResult.Value.Sub(bisectionResult.Value).Abs()
	if diff.GreaterThan(d("0.02")) {
		t.Errorf("methods disagree by %s: newton %s, bisection %s",
			diff, newtonResult.Value, bisectionResult.Value)
	}
}
