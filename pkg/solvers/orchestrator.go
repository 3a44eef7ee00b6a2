package solvers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// Orchestrator picks a solving strategy and handles fallback. The auto
// strategy runs Newton-Raphson first and retries with bisection over the
// caller's bounds when Newton fails to converge.
type Orchestrator struct {
	logger    *zap.Logger
	strategy  string
	newton    *NewtonRaphson
	bisection *Bisection
}

// NewOrchestrator constructs an orchestrator for the named strategy.
func NewOrchestrator(logger *zap.Logger, ctx *mathutil.Context, strategy string) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strategy {
	case MethodNewtonRaphson, MethodBisection, StrategyAuto:
	case "":
		strategy = StrategyAuto
	default:
		return nil, fmt.Errorf("unknown solver strategy %s", strategy)
	}
	return &Orchestrator{
		logger:    logger,
		strategy:  strategy,
		newton:    NewNewtonRaphson(logger, ctx),
		bisection: NewBisection(logger, ctx),
	}, nil
}

// Strategy returns the configured strategy name.
func (o *Orchestrator) Strategy() string {
	return o.strategy
}

// SolveForTarget finds the exit value where f equals target. guess seeds
// Newton-Raphson; [boundLower, boundUpper] brackets the bisection search.
// Every attempt is recorded on the trail.
func (o *Orchestrator) SolveForTarget(trail *audit.Trail, f ValueFunc, target, guess, boundLower, boundUpper decimal.Decimal) (Result, error) {
	switch o.strategy {
	case MethodNewtonRaphson:
		result, err := o.newton.SolveForTarget(f, nil, target, guess)
		o.record(trail, "newton_raphson solve", target, result, err)
		return result, err

	case MethodBisection:
		result, err := o.bisection.SolveValue(f, target, boundLower, boundUpper)
		o.record(trail, "binary_search solve", target, result, err)
		return result, err

	default:
		result, err := o.newton.SolveForTarget(f, nil, target, guess)
		o.record(trail, "newton_raphson attempt", target, result, err)
		if err == nil && result.Converged {
			return result, nil
		}
		o.logger.Debug("falling back to bisection",
			zap.String("op", "solvers.Orchestrator.SolveForTarget"),
			zap.String("target", target.String()),
			zap.Error(err),
		)
		fallback, fallbackErr := o.bisection.SolveValue(f, target, boundLower, boundUpper)
		o.record(trail, "binary_search fallback", target, fallback, fallbackErr)
		if fallbackErr != nil {
			return fallback, fallbackErr
		}
		return fallback, nil
	}
}

func (o *Orchestrator) record(trail *audit.Trail, attempt string, target decimal.Decimal, result Result, err error) {
	if trail == nil {
		return
	}
	data := map[string]string{
		"method":     result.Method,
		"target":     target.String(),
		"value":      result.Value.String(),
		"iterations": fmt.Sprintf("%d", result.Iterations),
		"residual":   result.Residual.String(),
		"converged":  fmt.Sprintf("%t", result.Converged),
	}
	if err != nil {
		data["error"] = err.Error()
		trail.Error(audit.CategorySolver, attempt+" failed", data)
		return
	}
	if !result.Converged {
		trail.Warning(audit.CategorySolver, attempt+" did not converge", data)
		return
	}
	trail.Info(audit.CategorySolver, attempt+" converged", data)
}
