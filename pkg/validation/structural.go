package validation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
)

// Structural test names.
const (
	TestSeriesNames      = "series_names"
	TestPoolNames        = "option_pool_names"
	TestSeriesNumerics   = "series_numeric_constraints"
	TestCommonShares     = "common_shares"
	TestOptionNumerics   = "option_numeric_constraints"
	TestSenioritySpine   = "seniority_contiguity"
	TestParticipationCap = "participation_cap"
	TestPreferenceTypes  = "preference_types"
	TestSnapshotTotals   = "snapshot_totals"
)

// ValidateSnapshot runs the structural battery over a snapshot before any
// analysis. Every check is reported; any error-severity failure means the
// snapshot must not be analyzed.
func ValidateSnapshot(logger *zap.Logger, snapshot *captable.Snapshot) Report {
	if logger == nil {
		logger = zap.NewNop()
	}

	var report Report
	checkSeriesNames(&report, snapshot)
	checkPoolNames(&report, snapshot)
	checkSeriesNumerics(&report, snapshot)
	checkCommonShares(&report, snapshot)
	checkOptionNumerics(&report, snapshot)
	checkSeniorityContiguity(&report, snapshot)
	checkParticipationCaps(&report, snapshot)
	checkPreferenceTypes(&report, snapshot)
	recordSnapshotTotals(&report, snapshot)

	for _, check := range report.Failed() {
		logger.Warn("structural check failed",
			zap.String("op", "validation.ValidateSnapshot"),
			zap.String("testName", check.TestName),
			zap.String("severity", check.Severity),
			zap.String("message", check.Message),
		)
	}
	return report
}

func checkSeriesNames(report *Report, snapshot *captable.Snapshot) {
	seen := make(map[string]bool)
	var affected []string
	for i, class := range snapshot.Preferred {
		if class.Name == "" {
			affected = append(affected, fmt.Sprintf("preferred[%d]", i))
			continue
		}
		if seen[class.Name] {
			affected = append(affected, class.Name)
		}
		seen[class.Name] = true
	}
	if len(affected) > 0 {
		report.add(TestSeriesNames, false, SeverityError,
			"preferred series names must be present and unique", affected...)
		return
	}
	report.add(TestSeriesNames, true, SeverityError, "preferred series names present and unique")
}

func checkPoolNames(report *Report, snapshot *captable.Snapshot) {
	seen := make(map[string]bool)
	var affected []string
	for i, grant := range snapshot.Options {
		if grant.PoolName == "" {
			affected = append(affected, fmt.Sprintf("options[%d]", i))
			continue
		}
		if seen[grant.PoolName] {
			affected = append(affected, grant.PoolName)
		}
		seen[grant.PoolName] = true
	}
	if len(affected) > 0 {
		report.add(TestPoolNames, false, SeverityError,
			"option pool names must be present and unique", affected...)
		return
	}
	report.add(TestPoolNames, true, SeverityError, "option pool names present and unique")
}

func checkSeriesNumerics(report *Report, snapshot *captable.Snapshot) {
	var affected []string
	for _, class := range snapshot.Preferred {
		if !class.SharesOutstanding.IsPositive() {
			affected = append(affected, fmt.Sprintf("%s: shares outstanding %s must be positive", class.Name, class.SharesOutstanding))
		}
		if !class.PricePerShare.IsPositive() {
			affected = append(affected, fmt.Sprintf("%s: price per share %s must be positive", class.Name, class.PricePerShare))
		}
		if !class.LiquidationMultiple.IsPositive() {
			affected = append(affected, fmt.Sprintf("%s: liquidation multiple %s must be positive", class.Name, class.LiquidationMultiple))
		}
		if !class.ConversionRatio.IsPositive() {
			affected = append(affected, fmt.Sprintf("%s: conversion ratio %s must be positive", class.Name, class.ConversionRatio))
		}
		if class.SeniorityRank < 0 {
			affected = append(affected, fmt.Sprintf("%s: seniority rank %d must be non-negative", class.Name, class.SeniorityRank))
		}
	}
	if len(affected) > 0 {
		report.add(TestSeriesNumerics, false, SeverityError,
			"preferred series numeric constraints violated", affected...)
		return
	}
	report.add(TestSeriesNumerics, true, SeverityError, "preferred series numeric constraints satisfied")
}

func checkCommonShares(report *Report, snapshot *captable.Snapshot) {
	if snapshot.Common.SharesOutstanding.IsNegative() {
		report.add(TestCommonShares, false, SeverityError,
			fmt.Sprintf("common shares outstanding %s must be non-negative", snapshot.Common.SharesOutstanding))
		return
	}
	report.add(TestCommonShares, true, SeverityError, "common shares outstanding non-negative")
}

func checkOptionNumerics(report *Report, snapshot *captable.Snapshot) {
	var affected []string
	for _, grant := range snapshot.Options {
		if !grant.OptionCount.IsPositive() {
			affected = append(affected, fmt.Sprintf("%s: option count %s must be positive", grant.PoolName, grant.OptionCount))
		}
		if grant.StrikePrice.IsNegative() {
			affected = append(affected, fmt.Sprintf("%s: strike price %s must be non-negative", grant.PoolName, grant.StrikePrice))
		}
		if grant.VestedCount.IsNegative() {
			affected = append(affected, fmt.Sprintf("%s: vested count %s must be non-negative", grant.PoolName, grant.VestedCount))
		}
		if grant.VestedCount.GreaterThan(grant.OptionCount) {
			affected = append(affected, fmt.Sprintf("%s: vested count %s exceeds granted %s", grant.PoolName, grant.VestedCount, grant.OptionCount))
		}
	}
	if len(affected) > 0 {
		report.add(TestOptionNumerics, false, SeverityError,
			"option grant numeric constraints violated", affected...)
		return
	}
	report.add(TestOptionNumerics, true, SeverityError, "option grant numeric constraints satisfied")
}

func checkSeniorityContiguity(report *Report, snapshot *captable.Snapshot) {
	if len(snapshot.Preferred) == 0 {
		report.add(TestSenioritySpine, true, SeverityError, "no preferred series to rank")
		return
	}

	ranks := make(map[int]bool)
	for _, class := range snapshot.Preferred {
		if class.SeniorityRank >= 0 {
			ranks[class.SeniorityRank] = true
		}
	}
	var missing []string
	for rank := 0; rank < len(ranks); rank++ {
		if !ranks[rank] {
			missing = append(missing, fmt.Sprintf("rank %d", rank))
		}
	}
	if len(ranks) == 0 {
		missing = append(missing, "rank 0")
	}
	if len(missing) > 0 {
		report.add(TestSenioritySpine, false, SeverityError,
			"seniority ranks must be contiguous starting at 0", missing...)
		return
	}
	report.add(TestSenioritySpine, true, SeverityError, "seniority ranks contiguous from 0")
}

func checkParticipationCaps(report *Report, snapshot *captable.Snapshot) {
	var affected []string
	for _, class := range snapshot.Preferred {
		switch class.Preference {
		case captable.ParticipatingWithCap:
			if !class.ParticipationCap.IsPositive() {
				affected = append(affected, fmt.Sprintf("%s: participation cap required", class.Name))
			} else if class.ParticipationCap.LessThan(class.LiquidationPreference()) {
				affected = append(affected, fmt.Sprintf("%s: participation cap %s below liquidation preference %s",
					class.Name, class.ParticipationCap, class.LiquidationPreference()))
			}
		default:
			if class.ParticipationCap.IsPositive() {
				affected = append(affected, fmt.Sprintf("%s: participation cap set on %s series", class.Name, class.Preference))
			}
		}
	}
	if len(affected) > 0 {
		report.add(TestParticipationCap, false, SeverityError,
			"participation cap constraints violated", affected...)
		return
	}
	report.add(TestParticipationCap, true, SeverityError, "participation cap constraints satisfied")
}

func checkPreferenceTypes(report *Report, snapshot *captable.Snapshot) {
	var affected []string
	for _, class := range snapshot.Preferred {
		switch class.Preference {
		case captable.NonParticipating, captable.Participating, captable.ParticipatingWithCap:
		default:
			affected = append(affected, fmt.Sprintf("%s: unknown preference type %q", class.Name, class.Preference))
		}
	}
	if len(affected) > 0 {
		report.add(TestPreferenceTypes, false, SeverityError,
			"preference types must be one of non-participating, participating, participating-with-cap", affected...)
		return
	}
	report.add(TestPreferenceTypes, true, SeverityError, "preference types recognized")
}

func recordSnapshotTotals(report *Report, snapshot *captable.Snapshot) {
	totalLP := snapshot.TotalLiquidationPreference()
	fullyDiluted := snapshot.FullyDilutedShares()
	if totalLP.IsNegative() || fullyDiluted.LessThanOrEqual(decimal.Zero) {
		report.add(TestSnapshotTotals, false, SeverityWarning,
			fmt.Sprintf("snapshot has no participating capitalization: total LP %s, fully diluted shares %s",
				format.Currency(totalLP), format.Shares(fullyDiluted)))
		return
	}
	report.add(TestSnapshotTotals, true, SeverityInfo,
		fmt.Sprintf("total liquidation preference %s across %d series; %s fully diluted shares",
			format.Currency(totalLP), len(snapshot.Preferred), format.Shares(fullyDiluted)))
}
