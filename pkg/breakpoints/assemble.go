package breakpoints

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/solvers"
)

// AnalysisResult is the assembled output of every breakpoint analyzer.
type AnalysisResult struct {
	Breakpoints     []Breakpoint     `json:"breakpoints"`
	ConversionSteps []ConversionStep `json:"conversionSteps,omitempty"`
	OptionSolutions []OptionSolution `json:"optionSolutions,omitempty"`
}

// Analyze runs the full breakpoint pipeline over a snapshot: liquidation
// preferences, pro-rata start, voluntary conversions, option exercises, and
// participation caps, assembled into one ordered sequence whose ranges tile
// the exit-value axis. The final breakpoint is always open-ended.
func Analyze(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, orchestrator *solvers.Orchestrator, trail *audit.Trail) (*AnalysisResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}

	lpBreakpoints, err := AnalyzeLiquidationPreference(logger, ctx, snapshot, trail)
	if err != nil {
		return nil, fmt.Errorf("liquidation preference analysis: %w", err)
	}

	conversions, steps, err := AnalyzeVoluntaryConversion(logger, ctx, snapshot, trail)
	if err != nil {
		return nil, fmt.Errorf("voluntary conversion analysis: %w", err)
	}

	options, solutions, err := AnalyzeOptionExercise(logger, ctx, snapshot, steps, orchestrator, trail)
	if err != nil {
		return nil, fmt.Errorf("option exercise analysis: %w", err)
	}

	finalDecisions := NewDecisions()
	for _, step := range steps {
		finalDecisions.SetConverted(step.Series)
	}
	for _, solution := range solutions {
		finalDecisions.SetExercised(solution.Strike)
	}
	caps, err := AnalyzeParticipationCaps(logger, ctx, snapshot, finalDecisions, trail)
	if err != nil {
		return nil, fmt.Errorf("participation cap analysis: %w", err)
	}

	proRata, err := proRataBreakpoint(ctx, snapshot, trail)
	if err != nil {
		return nil, err
	}

	assembled, err := assemble(ctx, snapshot, lpBreakpoints, proRata, conversions, options, caps, steps, solutions)
	if err != nil {
		return nil, err
	}

	if trail != nil {
		trail.Info(audit.CategoryBreakpoint, "breakpoint assembly complete", map[string]string{
			"total":       fmt.Sprintf("%d", len(assembled)),
			"liquidation": fmt.Sprintf("%d", len(lpBreakpoints)),
			"conversions": fmt.Sprintf("%d", len(conversions)),
			"options":     fmt.Sprintf("%d", len(options)),
			"caps":        fmt.Sprintf("%d", len(caps)),
		})
	}
	logger.Debug("breakpoint assembly complete",
		zap.String("op", "breakpoints.Analyze"),
		zap.Int("total", len(assembled)),
	)

	return &AnalysisResult{
		Breakpoints:     assembled,
		ConversionSteps: steps,
		OptionSolutions: solutions,
	}, nil
}

// proRataBreakpoint opens pro-rata distribution exactly where the preference
// stack ends. Participation at this point is common, participating preferred
// as-converted, and any sub-cent strike groups; nothing has converted or
// exercised yet.
func proRataBreakpoint(ctx *mathutil.Context, snapshot *captable.Snapshot, trail *audit.Trail) (Breakpoint, error) {
	totalLP := snapshot.TotalLiquidationPreference()
	set := CalculateParticipation(ctx, snapshot, NewDecisions(), nil)
	if !set.TotalShares.IsPositive() {
		return Breakpoint{}, fmt.Errorf("pro-rata distribution requires positive participating shares, got %s", set.TotalShares)
	}

	bp := Breakpoint{
		Type:                     TypeProRataDistribution,
		RangeFrom:                totalLP,
		Participants:             set.participants(ctx, decimal.Zero),
		TotalParticipatingShares: set.TotalShares,
		PriorityKey:              TypeProRataDistribution.PriorityKey(),
		Explanation: fmt.Sprintf("pro-rata distribution begins at %s once all liquidation preferences are satisfied, across %s shares",
			format.Currency(totalLP), format.Shares(set.TotalShares)),
	}
	if totalLP.IsPositive() {
		bp.Dependencies = []string{"all liquidation preferences satisfied"}
	}

	if trail != nil {
		trail.Info(audit.CategoryBreakpoint, "pro-rata distribution opens", map[string]string{
			"from":   totalLP.String(),
			"shares": set.TotalShares.String(),
		})
	}
	return bp, nil
}

// assemble merges analyzer outputs into one ordered sequence: sort by range
// start with the type priority key breaking ties, assign 1-based orders, link
// each bounded range to its successor, and recompute participation and
// section RVPS range by range as decisions take effect.
func assemble(ctx *mathutil.Context, snapshot *captable.Snapshot, lp []Breakpoint, proRata Breakpoint, conversions, options, caps []Breakpoint, steps []ConversionStep, solutions []OptionSolution) ([]Breakpoint, error) {
	distribution := make([]Breakpoint, 0, 1+len(conversions)+len(options)+len(caps))
	distribution = append(distribution, proRata)
	distribution = append(distribution, conversions...)
	distribution = append(distribution, options...)
	distribution = append(distribution, caps...)

	sort.SliceStable(distribution, func(i, j int) bool {
		if !distribution[i].RangeFrom.Equal(distribution[j].RangeFrom) {
			return distribution[i].RangeFrom.LessThan(distribution[j].RangeFrom)
		}
		return distribution[i].PriorityKey < distribution[j].PriorityKey
	})

	if distribution[0].Type != TypeProRataDistribution {
		return nil, fmt.Errorf("%s breakpoint at %s precedes the start of pro-rata distribution",
			distribution[0].Type, distribution[0].RangeFrom)
	}

	assembled := make([]Breakpoint, 0, len(lp)+len(distribution))
	assembled = append(assembled, lp...)
	assembled = append(assembled, distribution...)

	// Link ranges: each breakpoint runs to the start of its successor; the
	// last is open-ended.
	for i := range assembled {
		if i+1 < len(assembled) {
			next := assembled[i+1].RangeFrom
			assembled[i].RangeTo = &next
		} else {
			assembled[i].RangeTo = nil
		}
		assembled[i].Order = i + 1
	}

	// Recompute distribution participants range by range. Liquidation ranges
	// keep their analyzer participants; every range past the preference stack
	// reflects the decisions in effect at its start.
	for i := range assembled {
		bp := &assembled[i]
		if bp.Type == TypeLiquidationPreference {
			continue
		}

		decisions := decisionsAtExit(snapshot, steps, bp.RangeFrom, ctx)
		for _, solution := range solutions {
			if bp.RangeFrom.GreaterThanOrEqual(solution.Result.Value) || ctx.Equal(bp.RangeFrom, solution.Result.Value) {
				decisions.SetExercised(solution.Strike)
			}
		}
		capped := make(map[string]bool)
		for _, series := range snapshot.CappedSeries() {
			threshold, ok := captable.CapThreshold(ctx, series,
				CalculateParticipation(ctx, snapshot, decisions, nil).Fraction(ctx, series.Ref()),
				snapshot.TotalLiquidationPreference())
			if ok && (bp.RangeFrom.GreaterThanOrEqual(threshold) || ctx.Equal(bp.RangeFrom, threshold)) {
				capped[series.Name] = true
			}
		}

		set := CalculateParticipation(ctx, snapshot, decisions, capped)
		if !set.TotalShares.IsPositive() {
			return nil, fmt.Errorf("breakpoint %d at %s has no participating shares", bp.Order, bp.RangeFrom)
		}

		sectionRVPS := decimal.Zero
		if bp.RangeTo != nil {
			sectionRVPS = ctx.SafeDiv(bp.RangeTo.Sub(bp.RangeFrom), set.TotalShares, decimal.Zero)
		}
		bp.Participants = set.participants(ctx, sectionRVPS)
		bp.TotalParticipatingShares = set.TotalShares
	}

	return assembled, nil
}
