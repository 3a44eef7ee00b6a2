package breakpoints

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/solvers"
)

// OptionSolution records how one strike group's exercise point was solved.
type OptionSolution struct {
	Strike       decimal.Decimal `json:"strike"`
	VestedShares decimal.Decimal `json:"vestedShares"`
	Result       solvers.Result  `json:"result"`
}

// AnalyzeOptionExercise solves the fixed point at which each option strike
// group exercises: options exercise once the cumulative value per common
// share reaches the strike, but that per-share value depends on the total
// participating shares, which depend on whether the options themselves are
// included. Groups are solved in ascending strike order; cheaper strikes are
// treated as already exercised when solving a more expensive one. Sub-cent
// strikes never produce a breakpoint because they exercise from the start of
// pro-rata distribution.
//
// Non-convergence is not fatal: the breakpoint is emitted at the solver's
// best approximation and the solution records Converged false.
func AnalyzeOptionExercise(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, steps []ConversionStep, orchestrator *solvers.Orchestrator, trail *audit.Trail) ([]Breakpoint, []OptionSolution, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	if orchestrator == nil {
		var err error
		orchestrator, err = solvers.NewOrchestrator(logger, ctx, solvers.StrategyAuto)
		if err != nil {
			return nil, nil, err
		}
	}

	groups := captable.StrikeGroups(snapshot)
	totalLP := snapshot.TotalLiquidationPreference()

	var results []Breakpoint
	var solutions []OptionSolution

	for i, group := range groups {
		if group.AlwaysExercised {
			continue
		}

		value := commonValueFunc(ctx, snapshot, steps, groups, i, totalLP)

		guess := totalLP.Add(group.Strike.Mul(group.VestedShares))
		boundLower := totalLP
		boundUpper := mathutil.Max(
			totalLP.Mul(decimal.NewFromInt(constants.FallbackBoundMultiple)),
			guess.Mul(decimal.NewFromInt(constants.FallbackBoundMultiple)),
		)

		result, err := orchestrator.SolveForTarget(trail, value, group.Strike, guess, boundLower, boundUpper)
		if err != nil {
			return nil, nil, fmt.Errorf("solving exercise point for strike %s: %w", group.Strike, err)
		}
		solutions = append(solutions, OptionSolution{
			Strike:       group.Strike,
			VestedShares: group.VestedShares,
			Result:       result,
		})

		decisions := decisionsAtExit(snapshot, steps, result.Value, ctx)
		for j := 0; j <= i; j++ {
			decisions.SetExercised(groups[j].Strike)
		}
		setAfter := CalculateParticipation(ctx, snapshot, decisions, nil)

		bp := Breakpoint{
			Type:                     TypeOptionExercise,
			RangeFrom:                result.Value,
			Participants:             setAfter.participants(ctx, decimal.Zero),
			TotalParticipatingShares: setAfter.TotalShares,
			PriorityKey:              TypeOptionExercise.PriorityKey(),
			Strike:                   group.Strike,
			Explanation: fmt.Sprintf("options at %s strike exercise at %s once common value per share reaches the strike",
				format.PerShare(group.Strike), format.Currency(result.Value)),
			Dependencies: []string{"all liquidation preferences satisfied"},
		}
		if !result.Converged {
			bp.Explanation += " (solver did not converge; best approximation)"
		}
		results = append(results, bp)

		if trail != nil {
			trail.Info(audit.CategoryBreakpoint, "option exercise point solved", map[string]string{
				"strike":     group.Strike.String(),
				"vested":     group.VestedShares.String(),
				"exitValue":  result.Value.String(),
				"method":     result.Method,
				"iterations": fmt.Sprintf("%d", result.Iterations),
				"converged":  fmt.Sprintf("%t", result.Converged),
			})
		}
		logger.Debug("option exercise breakpoint",
			zap.String("op", "breakpoints.AnalyzeOptionExercise"),
			zap.String("strike", group.Strike.String()),
			zap.String("exitValue", result.Value.String()),
			zap.Bool("converged", result.Converged),
		)
	}

	return results, solutions, nil
}

// commonValueFunc builds the evaluation function for one strike group: the
// cumulative value per common share at a candidate exit. The value accrues
// piecewise across the conversion steps, since each conversion enlarges the
// participating pool and dilutes every residual dollar above its indifference
// point. Every cheaper strike is treated as exercised, and the group under
// evaluation participates itself (the fixed point includes its own dilution).
func commonValueFunc(ctx *mathutil.Context, snapshot *captable.Snapshot, steps []ConversionStep, groups []captable.StrikeGroup, groupIndex int, totalLP decimal.Decimal) solvers.ValueFunc {
	return func(exit decimal.Decimal) (decimal.Decimal, error) {
		decisions := NewDecisions()
		for j := 0; j <= groupIndex; j++ {
			decisions.SetExercised(groups[j].Strike)
		}
		set := CalculateParticipation(ctx, snapshot, decisions, nil)
		if !set.TotalShares.IsPositive() {
			return decimal.Decimal{}, fmt.Errorf("no participating shares at candidate exit %s", exit)
		}

		// Below the pro-rata start nothing has accrued to common; report
		// the shortfall linearly so the solvers keep a slope to follow.
		if exit.LessThanOrEqual(totalLP) {
			return ctx.SafeDiv(exit.Sub(totalLP), set.TotalShares, decimal.Zero), nil
		}

		cumulative := decimal.Zero
		segmentStart := totalLP
		for _, step := range steps {
			if step.ExitValue.GreaterThanOrEqual(exit) {
				break
			}
			if step.ExitValue.GreaterThan(segmentStart) {
				cumulative = cumulative.Add(ctx.SafeDiv(step.ExitValue.Sub(segmentStart), set.TotalShares, decimal.Zero))
				segmentStart = step.ExitValue
			}
			decisions.SetConverted(step.Series)
			set = CalculateParticipation(ctx, snapshot, decisions, nil)
		}
		return cumulative.Add(ctx.SafeDiv(exit.Sub(segmentStart), set.TotalShares, decimal.Zero)), nil
	}
}

// decisionsAtExit returns the conversion decisions in effect at an exit
// value: a series has converted once the exit is at or past its indifference
// point.
func decisionsAtExit(snapshot *captable.Snapshot, steps []ConversionStep, exit decimal.Decimal, ctx *mathutil.Context) *Decisions {
	decisions := NewDecisions()
	for _, step := range steps {
		if exit.GreaterThanOrEqual(step.ExitValue) || ctx.Equal(exit, step.ExitValue) {
			decisions.SetConverted(step.Series)
		}
	}
	return decisions
}
