package solvers

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewtonRaphsonLinearRoot(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(d("0.5")).Sub(d("100")), nil
	}

	result, err := solver.SolveRoot(f, nil, d("1"))
	if err != nil {
		t.Fatalf("SolveRoot() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false after %d iterations, residual %s", result.Iterations, result.Residual)
	}
	if result.Value.Sub(d("200")).Abs().GreaterThan(d("0.05")) {
		t.Errorf("Value = %s, expected ~200", result.Value)
	}
	if result.Method != MethodNewtonRaphson {
		t.Errorf("Method = %s, expected %s", result.Method, MethodNewtonRaphson)
	}
	if len(result.Trace) != result.Iterations {
		t.Errorf("len(Trace) = %d, expected %d", len(result.Trace), result.Iterations)
	}
}

func TestNewtonRaphsonQuadratic(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(x).Sub(d("4")), nil
	}
	df := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(d("2")), nil
	}

	result, err := solver.SolveRoot(f, df, d("5"))
	if err != nil {
		t.Fatalf("SolveRoot() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false, residual %s", result.Residual)
	}
	if result.Value.Sub(d("2")).Abs().GreaterThan(d("0.01")) {
		t.Errorf("Value = %s, expected ~2", result.Value)
	}
}

func TestNewtonRaphsonSolveForTarget(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	// Per-share value of a pure common structure: exit / 1,000,000 shares.
	perShare := func(exit decimal.Decimal) (decimal.Decimal, error) {
		return exit.DivRound(d("1000000"), 28), nil
	}

	result, err := solver.SolveForTarget(perShare, nil, d("2.00"), d("1500000"))
	if err != nil {
		t.Fatalf("SolveForTarget() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false, residual %s", result.Residual)
	}
	if result.Value.Sub(d("2000000")).Abs().GreaterThan(d("10000")) {
		t.Errorf("Value = %s, expected within 10,000 of 2,000,000", result.Value)
	}
}

func TestNewtonRaphsonZeroDerivativePerturbs(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Sub(d("10")), nil
	}
	calls := 0
	df := func(x decimal.Decimal) (decimal.Decimal, error) {
		calls++
		if calls == 1 {
			return decimal.Zero, nil
		}
		return d("1"), nil
	}

	result, err := solver.SolveRoot(f, df, d("3"))
	if err != nil {
		t.Fatalf("SolveRoot() error = %v", err)
	}
	if !result.Converged {
		t.Fatalf("Converged = false after zero-derivative recovery, residual %s", result.Residual)
	}
	if result.Value.Sub(d("10")).Abs().GreaterThan(d("0.01")) {
		t.Errorf("Value = %s, expected ~10", result.Value)
	}
}

func TestNewtonRaphsonKeepsCandidatesPositive(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Sub(d("5")), nil
	}
	// A wrong-signed derivative drives the step away from the root; the
	// solver must halve rather than go non-positive.
	df := func(x decimal.Decimal) (decimal.Decimal, error) {
		return d("-1"), nil
	}

	result, err := solver.SolveRoot(f, df, d("2"))
	if err != nil {
		t.Fatalf("SolveRoot() error = %v", err)
	}
	if result.Converged {
		t.Fatalf("Converged = true, expected divergence with wrong-signed derivative")
	}
	for _, step := range result.Trace {
		if !step.Candidate.IsPositive() {
			t.Errorf("iteration %d candidate %s is non-positive", step.Number, step.Candidate)
		}
	}
}

func TestNewtonRaphsonClampsRunawaySteps(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	// Slope 1e-10 wants a 1e12 step toward the root; the clamp holds each
	// step to 1e9 so the budget runs out far from the root.
	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return x.Mul(d("0.0000000001")).Sub(d("100")), nil
	}
	df := func(x decimal.Decimal) (decimal.Decimal, error) {
		return d("0.0000000001"), nil
	}

	result, err := solver.SolveRoot(f, df, d("1"))
	if err != nil {
		t.Fatalf("SolveRoot() error = %v", err)
	}
	if result.Converged {
		t.Fatalf("Converged = true, expected exhaustion under step clamp")
	}
	if result.Iterations != solver.MaxIterations {
		t.Errorf("Iterations = %d, expected the full budget %d", result.Iterations, solver.MaxIterations)
	}
	for i := 1; i < len(result.Trace); i++ {
		step := result.Trace[i].Candidate.Sub(result.Trace[i-1].Candidate).Abs()
		if step.GreaterThan(d("1000000000").Add(d("0.01"))) {
			t.Errorf("step %d magnitude %s exceeds clamp", i, step)
		}
	}
}

func TestNewtonRaphsonPropagatesEvaluationErrors(t *testing.T) {
	solver := NewNewtonRaphson(nil, nil)

	f := func(x decimal.Decimal) (decimal.Decimal, error) {
		return decimal.Decimal{}, fmt.Errorf("evaluation blew up")
	}

	if _, err := solver.SolveRoot(f, nil, d("1")); err == nil {
		t.Errorf("SolveRoot() error = nil, expected propagated evaluation error")
	}
	if _, err := solver.SolveRoot(nil, nil, d("1")); err == nil {
		t.Errorf("SolveRoot(nil) error = nil, expected nil-function error")
	}
}
