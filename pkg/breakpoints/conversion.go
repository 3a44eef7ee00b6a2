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
)

// ConversionStep records how one series' indifference point was derived.
type ConversionStep struct {
	StepNumber      int             `json:"stepNumber"`
	Series          string          `json:"series"`
	ClassRVPS       decimal.Decimal `json:"classRvps"`
	WaivedLP        decimal.Decimal `json:"waivedLp"`
	RemainingLP     decimal.Decimal `json:"remainingLp"`
	ProRataFraction decimal.Decimal `json:"proRataFraction"`
	ExitValue       decimal.Decimal `json:"exitValue"`
	ConvertedShares decimal.Decimal `json:"convertedShares"`
}

// AnalyzeVoluntaryConversion finds the exit value at which each
// non-participating series is indifferent between taking its preference and
// converting to common. Series convert in ascending class-RVPS order (lowest
// opportunity cost first), and each step accounts for the preference already
// waived by earlier converters: with remaining preference R and pro-rata
// fraction p after the conversion, the step's exit solves LP = (exit − R)·p.
// Participating series never convert voluntarily.
func AnalyzeVoluntaryConversion(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, trail *audit.Trail) ([]Breakpoint, []ConversionStep, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}

	candidates := snapshot.NonParticipatingSeries()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RVPS(ctx).LessThan(candidates[j].RVPS(ctx))
	})

	totalLP := snapshot.TotalLiquidationPreference()
	decisions := NewDecisions()
	waived := decimal.Zero

	var results []Breakpoint
	var steps []ConversionStep
	var priorNames []string

	for i, series := range candidates {
		remaining := totalLP.Sub(waived)

		decisions.SetConverted(series.Name)
		setAfter := CalculateParticipation(ctx, snapshot, decisions, nil)
		fraction := setAfter.Fraction(ctx, series.Ref())
		if !fraction.IsPositive() {
			return nil, nil, fmt.Errorf("conversion of %s has zero pro-rata fraction over %s participating shares",
				series.Name, setAfter.TotalShares)
		}

		lp := series.LiquidationPreference()
		exit := ctx.SafeDiv(lp, fraction, decimal.Zero).Add(remaining)

		step := ConversionStep{
			StepNumber:      i + 1,
			Series:          series.Name,
			ClassRVPS:       series.RVPS(ctx),
			WaivedLP:        waived,
			RemainingLP:     remaining,
			ProRataFraction: fraction,
			ExitValue:       exit,
			ConvertedShares: series.ConvertedShares(),
		}
		steps = append(steps, step)

		bp := Breakpoint{
			Type:                     TypeVoluntaryConversion,
			RangeFrom:                exit,
			Participants:             setAfter.participants(ctx, decimal.Zero),
			TotalParticipatingShares: setAfter.TotalShares,
			PriorityKey:              TypeVoluntaryConversion.PriorityKey(),
			StepNumber:               step.StepNumber,
			Series:                   series.Name,
			Explanation: fmt.Sprintf("%s converts at %s, waiving its %s preference for %s of pro-rata distribution",
				series.Name, format.Currency(exit), format.Currency(lp),
				format.Percent(ctx.Percentage(step.ConvertedShares, setAfter.TotalShares))),
		}
		bp.Dependencies = append(bp.Dependencies, "all liquidation preferences satisfied")
		for _, prior := range priorNames {
			bp.Dependencies = append(bp.Dependencies, fmt.Sprintf("%s converted", prior))
		}
		results = append(results, bp)

		if trail != nil {
			trail.Info(audit.CategoryBreakpoint, "voluntary conversion point solved", map[string]string{
				"series":      series.Name,
				"step":        fmt.Sprintf("%d", step.StepNumber),
				"classRvps":   step.ClassRVPS.String(),
				"waivedLp":    waived.String(),
				"remainingLp": remaining.String(),
				"fraction":    fraction.String(),
				"exitValue":   exit.String(),
			})
		}
		logger.Debug("conversion indifference point",
			zap.String("op", "breakpoints.AnalyzeVoluntaryConversion"),
			zap.String("series", series.Name),
			zap.Int("step", step.StepNumber),
			zap.String("exitValue", exit.String()),
		)

		waived = waived.Add(lp)
		priorNames = append(priorNames, series.Name)
	}

	return results, steps, nil
}
