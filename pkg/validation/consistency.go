package validation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/breakpoints"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// Consistency test names.
const (
	TestLPTiling            = "lp_ranges_tile_total_preference"
	TestProRataStart        = "pro_rata_starts_at_lp_end"
	TestRVPSMonotonic       = "cumulative_rvps_non_decreasing"
	TestConversionSequence  = "conversion_order_and_steps"
	TestParticipationFlags  = "participation_flags_consistent"
	TestBreakpointCounts    = "breakpoint_counts_match_structure"
	TestOpenEndedTerminator = "single_open_ended_terminator"
)

// ValidateConsistency runs the post-assembly battery over the complete
// ordered breakpoint sequence. It assumes the snapshot already passed
// structural validation.
func ValidateConsistency(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, bps []breakpoints.Breakpoint) Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}

	var report Report
	checkLPTiling(&report, ctx, snapshot, bps)
	checkProRataStart(&report, ctx, snapshot, bps)
	checkRVPSMonotonic(&report, bps)
	checkConversionSequence(&report, bps)
	checkParticipationFlags(&report, ctx, snapshot, bps)
	checkBreakpointCounts(&report, ctx, snapshot, bps)
	checkOpenEndedTerminator(&report, bps)

	for _, check := range report.Failed() {
		logger.Warn("consistency check failed",
			zap.String("op", "validation.ValidateConsistency"),
			zap.String("testName", check.TestName),
			zap.String("severity", check.Severity),
			zap.String("message", check.Message),
		)
	}
	return report
}

func checkLPTiling(report *Report, ctx *mathutil.Context, snapshot *captable.Snapshot, bps []breakpoints.Breakpoint) {
	totalLP := snapshot.TotalLiquidationPreference()
	expected := decimal.Zero
	var affected []string

	for _, bp := range bps {
		if bp.Type != breakpoints.TypeLiquidationPreference {
			continue
		}
		if !ctx.Equal(bp.RangeFrom, expected) {
			affected = append(affected, fmt.Sprintf("breakpoint %d starts at %s, expected %s", bp.Order, bp.RangeFrom, expected))
		}
		if bp.RangeTo == nil {
			affected = append(affected, fmt.Sprintf("breakpoint %d is open-ended inside the preference stack", bp.Order))
			continue
		}
		expected = *bp.RangeTo
	}
	if !ctx.Equal(expected, totalLP) {
		affected = append(affected, fmt.Sprintf("preference ranges end at %s, expected %s", expected, totalLP))
	}

	if len(affected) > 0 {
		report.add(TestLPTiling, false, SeverityError,
			fmt.Sprintf("liquidation ranges must tile [0, %s] with no gaps or overlaps", format.Currency(totalLP)), affected...)
		return
	}
	report.add(TestLPTiling, true, SeverityError,
		fmt.Sprintf("liquidation ranges tile [0, %s]", format.Currency(totalLP)))
}

func checkProRataStart(report *Report, ctx *mathutil.Context, snapshot *captable.Snapshot, bps []breakpoints.Breakpoint) {
	totalLP := snapshot.TotalLiquidationPreference()
	for _, bp := range bps {
		if bp.Type != breakpoints.TypeProRataDistribution {
			continue
		}
		if !ctx.Equal(bp.RangeFrom, totalLP) {
			report.add(TestProRataStart, false, SeverityError,
				fmt.Sprintf("pro-rata distribution starts at %s, expected %s", bp.RangeFrom, totalLP))
			return
		}
		report.add(TestProRataStart, true, SeverityError,
			fmt.Sprintf("pro-rata distribution starts exactly at %s", format.Currency(totalLP)))
		return
	}
	report.add(TestProRataStart, false, SeverityError, "no pro-rata distribution breakpoint present")
}

func checkRVPSMonotonic(report *Report, bps []breakpoints.Breakpoint) {
	previous := make(map[string]decimal.Decimal)
	var affected []string

	for _, bp := range bps {
		for _, participant := range bp.Participants {
			key := participant.Security.Key()
			if prior, seen := previous[key]; seen && participant.CumulativeRVPS.LessThan(prior) {
				affected = append(affected, fmt.Sprintf("%s drops from %s to %s at breakpoint %d",
					key, prior, participant.CumulativeRVPS, bp.Order))
			}
			previous[key] = participant.CumulativeRVPS
		}
	}

	if len(affected) > 0 {
		report.add(TestRVPSMonotonic, false, SeverityError,
			"cumulative RVPS must be non-decreasing per security across breakpoint order", affected...)
		return
	}
	report.add(TestRVPSMonotonic, true, SeverityError,
		fmt.Sprintf("cumulative RVPS non-decreasing across %d securities", len(previous)))
}

func checkConversionSequence(report *Report, bps []breakpoints.Breakpoint) {
	var affected []string
	lastExit := decimal.Zero
	expectedStep := 1
	seen := false

	for _, bp := range bps {
		if bp.Type != breakpoints.TypeVoluntaryConversion {
			continue
		}
		if seen && !bp.RangeFrom.GreaterThan(lastExit) {
			affected = append(affected, fmt.Sprintf("%s converts at %s, not above the prior conversion at %s",
				bp.Series, bp.RangeFrom, lastExit))
		}
		if bp.StepNumber != expectedStep {
			affected = append(affected, fmt.Sprintf("%s has step %d, expected %d", bp.Series, bp.StepNumber, expectedStep))
		}
		lastExit = bp.RangeFrom
		expectedStep++
		seen = true
	}

	if len(affected) > 0 {
		report.add(TestConversionSequence, false, SeverityError,
			"voluntary conversions must occur at strictly increasing exit values with sequential steps", affected...)
		return
	}
	report.add(TestConversionSequence, true, SeverityError,
		fmt.Sprintf("%d voluntary conversions in strictly increasing order", expectedStep-1))
}

// checkParticipationFlags verifies no security participates before its
// enabling decision: non-participating preferred appear only at or after
// their conversion breakpoint, option pools only at or after their exercise
// breakpoint (unless their strike is sub-cent).
func checkParticipationFlags(report *Report, ctx *mathutil.Context, snapshot *captable.Snapshot, bps []breakpoints.Breakpoint) {
	conversionAt := make(map[string]int)
	exerciseAt := make(map[string]int)
	for _, bp := range bps {
		switch bp.Type {
		case breakpoints.TypeVoluntaryConversion:
			conversionAt[bp.Series] = bp.Order
		case breakpoints.TypeOptionExercise:
			exerciseAt[string(breakpoints.StrikeKeyFor(bp.Strike))] = bp.Order
		}
	}

	alwaysExercised := make(map[string]bool)
	for _, group := range captable.StrikeGroups(snapshot) {
		if group.AlwaysExercised {
			alwaysExercised[string(breakpoints.StrikeKeyFor(group.Strike))] = true
		}
	}

	var affected []string
	for _, bp := range bps {
		if bp.Type == breakpoints.TypeLiquidationPreference {
			continue
		}
		for _, participant := range bp.Participants {
			switch participant.Security.Kind {
			case captable.KindPreferred:
				class := snapshot.FindPreferred(participant.Security.Name)
				if class == nil || class.IsParticipating() {
					continue
				}
				order, converts := conversionAt[class.Name]
				if !converts || bp.Order < order {
					affected = append(affected, fmt.Sprintf("%s participates at breakpoint %d before converting", class.Name, bp.Order))
				}
			case captable.KindOptionPool:
				key := string(breakpoints.StrikeKeyFor(participant.Security.Strike))
				if alwaysExercised[key] {
					continue
				}
				order, exercises := exerciseAt[key]
				if !exercises || bp.Order < order {
					affected = append(affected, fmt.Sprintf("options at strike %s participate at breakpoint %d before exercising",
						participant.Security.Strike, bp.Order))
				}
			}
		}
	}

	if len(affected) > 0 {
		report.add(TestParticipationFlags, false, SeverityError,
			"securities must not participate before their enabling decision", affected...)
		return
	}
	report.add(TestParticipationFlags, true, SeverityError, "participation flags consistent with decisions")
}

func checkBreakpointCounts(report *Report, ctx *mathutil.Context, snapshot *captable.Snapshot, bps []breakpoints.Breakpoint) {
	counts := make(map[breakpoints.Type]int)
	for _, bp := range bps {
		counts[bp.Type]++
	}

	expectedLP := len(captable.GroupBySeniority(snapshot))
	expectedConversions := len(snapshot.NonParticipatingSeries())
	expectedOptions := 0
	for _, group := range captable.StrikeGroups(snapshot) {
		if !group.AlwaysExercised {
			expectedOptions++
		}
	}
	expectedCaps := 0
	totalLP := snapshot.TotalLiquidationPreference()
	for _, series := range snapshot.CappedSeries() {
		fraction := ctx.ProRataShare(series.ConvertedShares(), snapshot.FullyDilutedShares())
		if _, ok := captable.CapThreshold(ctx, series, fraction, totalLP); ok {
			expectedCaps++
		}
	}

	var affected []string
	expect := func(t breakpoints.Type, expected int) {
		if counts[t] != expected {
			affected = append(affected, fmt.Sprintf("%s count %d, expected %d", t, counts[t], expected))
		}
	}
	expect(breakpoints.TypeLiquidationPreference, expectedLP)
	expect(breakpoints.TypeProRataDistribution, 1)
	expect(breakpoints.TypeVoluntaryConversion, expectedConversions)
	expect(breakpoints.TypeOptionExercise, expectedOptions)
	expect(breakpoints.TypeParticipationCap, expectedCaps)

	if len(affected) > 0 {
		report.add(TestBreakpointCounts, false, SeverityError,
			"breakpoint counts must match the snapshot's structure", affected...)
		return
	}
	report.add(TestBreakpointCounts, true, SeverityError,
		fmt.Sprintf("breakpoint counts match structure across %d breakpoints", len(bps)))
}

func checkOpenEndedTerminator(report *Report, bps []breakpoints.Breakpoint) {
	if len(bps) == 0 {
		report.add(TestOpenEndedTerminator, false, SeverityError, "no breakpoints produced")
		return
	}

	var affected []string
	for i, bp := range bps {
		openEnded := bp.RangeTo == nil
		last := i == len(bps)-1
		if openEnded && !last {
			affected = append(affected, fmt.Sprintf("breakpoint %d is open-ended but not last", bp.Order))
		}
		if last && !openEnded {
			affected = append(affected, fmt.Sprintf("final breakpoint %d is bounded", bp.Order))
		}
	}

	if len(affected) > 0 {
		report.add(TestOpenEndedTerminator, false, SeverityError,
			"exactly the final breakpoint must be open-ended", affected...)
		return
	}
	report.add(TestOpenEndedTerminator, true, SeverityError, "exactly the final breakpoint is open-ended")
}
