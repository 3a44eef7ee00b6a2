package breakpoints

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// AnalyzeParticipationCaps emits a breakpoint per participating-with-cap
// series at the exit value where its total receipt reaches the cap. Past
// that point the series stops accruing, so the range beyond excludes it
// from participation. The threshold uses the participation implied by the
// final decision set. Series whose cap can never bind produce no breakpoint.
func AnalyzeParticipationCaps(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, decisions *Decisions, trail *audit.Trail) ([]Breakpoint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}

	totalLP := snapshot.TotalLiquidationPreference()
	var results []Breakpoint

	for _, series := range snapshot.CappedSeries() {
		fullSet := CalculateParticipation(ctx, snapshot, decisions, nil)
		fraction := fullSet.Fraction(ctx, series.Ref())

		threshold, ok := captable.CapThreshold(ctx, series, fraction, totalLP)
		if !ok {
			if trail != nil {
				trail.Info(audit.CategoryBreakpoint, "participation cap never binds", map[string]string{
					"series":   series.Name,
					"cap":      series.ParticipationCap.String(),
					"fraction": fraction.String(),
				})
			}
			logger.Debug("participation cap never binds",
				zap.String("op", "breakpoints.AnalyzeParticipationCaps"),
				zap.String("series", series.Name),
			)
			continue
		}

		cappedSet := CalculateParticipation(ctx, snapshot, decisions, map[string]bool{series.Name: true})
		bp := Breakpoint{
			Type:                     TypeParticipationCap,
			RangeFrom:                threshold,
			Participants:             cappedSet.participants(ctx, decimal.Zero),
			TotalParticipatingShares: cappedSet.TotalShares,
			PriorityKey:              TypeParticipationCap.PriorityKey(),
			Series:                   series.Name,
			Explanation: fmt.Sprintf("%s reaches its %s participation cap at %s and stops accruing",
				series.Name, format.Currency(series.ParticipationCap), format.Currency(threshold)),
			Dependencies: []string{
				"all liquidation preferences satisfied",
				fmt.Sprintf("%s participating at %s pro-rata", series.Name, format.Percent(ctx.Percentage(series.ConvertedShares(), fullSet.TotalShares))),
			},
		}
		results = append(results, bp)

		if trail != nil {
			trail.Info(audit.CategoryBreakpoint, "participation cap threshold computed", map[string]string{
				"series":    series.Name,
				"cap":       series.ParticipationCap.String(),
				"fraction":  fraction.String(),
				"threshold": threshold.String(),
			})
		}
		logger.Debug("participation cap breakpoint",
			zap.String("op", "breakpoints.AnalyzeParticipationCaps"),
			zap.String("series", series.Name),
			zap.String("threshold", threshold.String()),
		)
	}

	return results, nil
}
