package solvers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// Bisection halves an interval around a target value or a monotone
// condition crossing.
type Bisection struct {
	logger        *zap.Logger
	ctx           *mathutil.Context
	Tolerance     decimal.Decimal
	MaxIterations int
}

// NewBisection constructs a solver with the default tolerance and iteration
// budget.
func NewBisection(logger *zap.Logger, ctx *mathutil.Context) *Bisection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	return &Bisection{
		logger:        logger,
		ctx:           ctx,
		Tolerance:     defaultTolerance(),
		MaxIterations: constants.DefaultBisectionMaxIterations,
	}
}

// SolveValue finds x in [min, max] where the monotone f(x) = target. The
// search direction comes from comparing the endpoint values, so decreasing
// functions work without a flag.
func (b *Bisection) SolveValue(f ValueFunc, target, min, max decimal.Decimal) (Result, error) {
	result := Result{Method: MethodBisection}
	if f == nil {
		return result, fmt.Errorf("value function cannot be nil")
	}
	if min.GreaterThan(max) {
		return result, fmt.Errorf("invalid interval [%s, %s]", min, max)
	}

	lowerValue, err := f(min)
	if err != nil {
		return result, fmt.Errorf("evaluating lower bound %s: %w", min, err)
	}
	upperValue, err := f(max)
	if err != nil {
		return result, fmt.Errorf("evaluating upper bound %s: %w", max, err)
	}
	increasing := upperValue.GreaterThanOrEqual(lowerValue)

	lower := min
	upper := max
	two := decimal.NewFromInt(2)

	for result.Iterations < b.MaxIterations {
		mid := lower.Add(upper.Sub(lower).DivRound(two, b.ctx.Precision))
		value, err := f(mid)
		if err != nil {
			return result, fmt.Errorf("evaluating candidate %s: %w", mid, err)
		}
		residual := value.Sub(target)
		result.Iterations++
		result.Value = mid
		result.Residual = residual
		result.Trace = append(result.Trace, Iteration{
			Number:    result.Iterations,
			Candidate: mid,
			Residual:  residual,
		})

		if residual.Abs().LessThanOrEqual(b.Tolerance) {
			result.Converged = true
			b.logger.Debug("converged",
				zap.String("op", "solvers.Bisection.SolveValue"),
				zap.String("value", mid.String()),
				zap.Int("iterations", result.Iterations),
			)
			return result, nil
		}

		below := residual.IsNegative()
		if increasing == below {
			lower = mid
		} else {
			upper = mid
		}

		if upper.Sub(lower).LessThanOrEqual(b.Tolerance) {
			break
		}
	}

	b.logger.Debug("no convergence within interval",
		zap.String("op", "solvers.Bisection.SolveValue"),
		zap.String("bestValue", result.Value.String()),
		zap.String("residual", result.Residual.String()),
	)
	return result, nil
}

// SolveCondition finds the least x in [min, max] at which a monotone
// predicate becomes true. A condition already true at min returns min with
// zero iterations; one never true by max reports non-convergence at max.
func (b *Bisection) SolveCondition(cond ConditionFunc, min, max decimal.Decimal) (Result, error) {
	result := Result{Method: MethodBisection}
	if cond == nil {
		return result, fmt.Errorf("condition function cannot be nil")
	}
	if min.GreaterThan(max) {
		return result, fmt.Errorf("invalid interval [%s, %s]", min, max)
	}

	trueAtMin, err := cond(min)
	if err != nil {
		return result, fmt.Errorf("evaluating lower bound %s: %w", min, err)
	}
	if trueAtMin {
		result.Value = min
		result.Converged = true
		return result, nil
	}
	trueAtMax, err := cond(max)
	if err != nil {
		return result, fmt.Errorf("evaluating upper bound %s: %w", max, err)
	}
	if !trueAtMax {
		result.Value = max
		result.Residual = max.Sub(min)
		b.logger.Debug("condition never satisfied within interval",
			zap.String("op", "solvers.Bisection.SolveCondition"),
			zap.String("max", max.String()),
		)
		return result, nil
	}

	lower := min
	upper := max
	two := decimal.NewFromInt(2)

	for result.Iterations < b.MaxIterations && upper.Sub(lower).GreaterThan(b.Tolerance) {
		mid := lower.Add(upper.Sub(lower).DivRound(two, b.ctx.Precision))
		satisfied, err := cond(mid)
		if err != nil {
			return result, fmt.Errorf("evaluating candidate %s: %w", mid, err)
		}
		result.Iterations++
		result.Trace = append(result.Trace, Iteration{
			Number:    result.Iterations,
			Candidate: mid,
			Residual:  upper.Sub(lower),
		})
		if satisfied {
			upper = mid
		} else {
			lower = mid
		}
	}

	result.Value = upper
	result.Residual = upper.Sub(lower)
	result.Converged = result.Residual.LessThanOrEqual(b.Tolerance)
	return result, nil
}
