// Package solvers provides the root-finding machinery for circular
// breakpoint dependencies: Newton-Raphson with numeric derivatives, bisection
// over values and boolean conditions, and an orchestrator that falls back
// from one method to the other.
//
// Solver failure is data, not control flow: a run that exhausts its iteration
// budget returns Converged false with its best approximation and full trace.
// Errors are reserved for broken evaluation functions.
package solvers

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

// Method and strategy names. The methods double as configuration values.
const (
	MethodNewtonRaphson = "newton_raphson"
	MethodBisection     = "binary_search"
	StrategyAuto        = "auto"
)

// ValueFunc evaluates the quantity being solved (typically cumulative value
// per common share) at a candidate exit value.
type ValueFunc func(exit decimal.Decimal) (decimal.Decimal, error)

// DerivativeFunc evaluates the closed-form derivative at a candidate exit
// value. Solvers fall back to a forward difference when none is supplied.
type DerivativeFunc func(exit decimal.Decimal) (decimal.Decimal, error)

// ConditionFunc evaluates a monotone predicate at a candidate exit value,
// such as "the options are in the money here".
type ConditionFunc func(exit decimal.Decimal) (bool, error)

// Iteration is one step of a solver trace.
type Iteration struct {
	Number    int             `json:"number"`
	Candidate decimal.Decimal `json:"candidate"`
	Residual  decimal.Decimal `json:"residual"`
}

// Result describes the outcome of a circular-dependency solve.
type Result struct {
	Value      decimal.Decimal `json:"value"`
	Iterations int             `json:"iterations"`
	Residual   decimal.Decimal `json:"residual"`
	Converged  bool            `json:"converged"`
	Method     string          `json:"method"`
	Trace      []Iteration     `json:"trace,omitempty"`
}

func defaultTolerance() decimal.Decimal {
	return decimal.RequireFromString(constants.DefaultSolverTolerance)
}

func minStep() decimal.Decimal {
	return decimal.RequireFromString(constants.MinSolverStep)
}

func maxStep() decimal.Decimal {
	return decimal.RequireFromString(constants.MaxSolverStep)
}
