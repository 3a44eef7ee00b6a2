package solvers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// NewtonRaphson iterates x_{n+1} = x_n − f(x_n)/f′(x_n) until the residual
// is within tolerance. Steps are clamped, zero derivatives perturb the
// candidate, and non-positive candidates halve back into the positive domain
// exit values live in.
type NewtonRaphson struct {
	logger        *zap.Logger
	ctx           *mathutil.Context
	Tolerance     decimal.Decimal
	MaxIterations int
	MinStep       decimal.Decimal
	MaxStep       decimal.Decimal
}

// NewNewtonRaphson constructs a solver with the default tolerance, iteration
// budget, and step clamps.
func NewNewtonRaphson(logger *zap.Logger, ctx *mathutil.Context) *NewtonRaphson {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	return &NewtonRaphson{
		logger:        logger,
		ctx:           ctx,
		Tolerance:     defaultTolerance(),
		MaxIterations: constants.DefaultNewtonMaxIterations,
		MinStep:       minStep(),
		MaxStep:       maxStep(),
	}
}

// SolveRoot finds x where f(x) = 0 starting from guess. A nil derivative
// falls back to a forward difference.
func (n *NewtonRaphson) SolveRoot(f ValueFunc, df DerivativeFunc, guess decimal.Decimal) (Result, error) {
	if f == nil {
		return Result{Method: MethodNewtonRaphson}, fmt.Errorf("value function cannot be nil")
	}
	if df == nil {
		df = n.forwardDifference(f)
	}

	result := Result{Method: MethodNewtonRaphson}
	x := guess
	if !x.IsPositive() {
		x = n.MinStep
	}

	for result.Iterations < n.MaxIterations {
		fx, err := f(x)
		if err != nil {
			return result, fmt.Errorf("evaluating candidate %s: %w", x, err)
		}
		result.Iterations++
		result.Value = x
		result.Residual = fx
		result.Trace = append(result.Trace, Iteration{
			Number:    result.Iterations,
			Candidate: x,
			Residual:  fx,
		})

		if fx.Abs().LessThanOrEqual(n.Tolerance) {
			result.Converged = true
			n.logger.Debug("converged",
				zap.String("op", "solvers.NewtonRaphson.SolveRoot"),
				zap.String("value", x.String()),
				zap.Int("iterations", result.Iterations),
			)
			return result, nil
		}

		dfx, err := df(x)
		if err != nil {
			return result, fmt.Errorf("differentiating at %s: %w", x, err)
		}
		if dfx.IsZero() {
			// Flat spot: nudge off it and try again.
			x = x.Add(n.MinStep)
			continue
		}

		step := n.ctx.SafeDiv(fx, dfx, decimal.Zero)
		step = clampStepMagnitude(step, n.MinStep, n.MaxStep)
		candidate := x.Sub(step)
		if !candidate.IsPositive() {
			// Exit values are positive; halve instead of overshooting below zero.
			candidate = x.DivRound(decimal.NewFromInt(2), n.ctx.Precision)
		}
		x = candidate
	}

	n.logger.Debug("iteration budget exhausted",
		zap.String("op", "solvers.NewtonRaphson.SolveRoot"),
		zap.String("bestValue", result.Value.String()),
		zap.String("residual", result.Residual.String()),
	)
	return result, nil
}

// SolveForTarget finds x where f(x) = target via the transform
// g(x) = f(x) − target.
func (n *NewtonRaphson) SolveForTarget(f ValueFunc, df DerivativeFunc, target, guess decimal.Decimal) (Result, error) {
	if f == nil {
		return Result{Method: MethodNewtonRaphson}, fmt.Errorf("value function cannot be nil")
	}
	shifted := func(x decimal.Decimal) (decimal.Decimal, error) {
		value, err := f(x)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return value.Sub(target), nil
	}
	// The shift is constant so the derivative passes through unchanged.
	return n.SolveRoot(shifted, df, guess)
}

func (n *NewtonRaphson) forwardDifference(f ValueFunc) DerivativeFunc {
	h := n.MinStep
	return func(x decimal.Decimal) (decimal.Decimal, error) {
		fx, err := f(x)
		if err != nil {
			return decimal.Decimal{}, err
		}
		fxh, err := f(x.Add(h))
		if err != nil {
			return decimal.Decimal{}, err
		}
		return n.ctx.SafeDiv(fxh.Sub(fx), h, decimal.Zero), nil
	}
}

func clampStepMagnitude(step, min, max decimal.Decimal) decimal.Decimal {
	magnitude := step.Abs()
	if magnitude.LessThan(min) {
		magnitude = min
	} else if magnitude.GreaterThan(max) {
		magnitude = max
	}
	if step.IsNegative() {
		return magnitude.Neg()
	}
	return magnitude
}
