// Package output provides utilities for formatting and displaying analysis results.
package output

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Eran5102/Valuation-sub004/internal/hybrid"
	"github.com/Eran5102/Valuation-sub004/internal/waterfall"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(analysis *waterfall.Analysis) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Waterfall analysis %s ---\n", analysis.RunID)
	if !analysis.Structural.Valid() {
		fmt.Printf("Blocked by structural validation:\n")
		for _, check := range analysis.Structural.Failed() {
			_, _ = p.Printf("  [%s] %s: %s\n", check.Severity, check.TestName, check.Message)
			for _, item := range check.AffectedItems {
				fmt.Printf("      - %s\n", item)
			}
		}
		return
	}

	fmt.Printf("Order | Type                   | Range From      | Range To        | Shares          | Explanation\n")
	fmt.Printf("_____ | ____                   | __________      | ________        | ______          | ___________\n")
	for _, bp := range analysis.Breakpoints {
		rangeTo := "open-ended"
		if bp.RangeTo != nil {
			rangeTo = format.Currency(*bp.RangeTo)
		}
		_, _ = p.Printf("%5d | %-22s | %15s | %15s | %15s | %s\n",
			bp.Order, bp.Type, format.Currency(bp.RangeFrom), rangeTo,
			format.Shares(bp.TotalParticipatingShares), bp.Explanation)
	}

	if failed := analysis.Consistency.Failed(); len(failed) > 0 {
		fmt.Printf("\nConsistency findings:\n")
		for _, check := range failed {
			_, _ = p.Printf("  [%s] %s: %s\n", check.Severity, check.TestName, check.Message)
		}
	}
}

// PrettyFormatHybrid outputs the hybrid valuation summary.
func PrettyFormatHybrid(result *hybrid.Result) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Hybrid valuation %s ---\n", result.RunID)
	fmt.Printf("Scenario             | Weight   | Enterprise Value  | Per Share   | Present Value\n")
	fmt.Printf("________             | ______   | ________________  | _________   | _____________\n")
	for _, outcome := range result.Outcomes {
		if outcome.Error != "" {
			_, _ = p.Printf("%-20s | %8s | failed: %s\n",
				outcome.Name, format.Percent(outcome.Weight.Mul(hundred())), outcome.Error)
			continue
		}
		_, _ = p.Printf("%-20s | %8s | %17s | %11s | %s\n",
			outcome.Name,
			format.Percent(outcome.Weight.Mul(hundred())),
			format.Currency(outcome.EnterpriseValue),
			format.PerShare(outcome.PerShareValue),
			format.PerShare(outcome.PresentValue),
		)
	}
	fmt.Printf("\nWeighted mean %s | std dev %s | p25 %s | p50 %s | p75 %s\n",
		format.PerShare(result.WeightedMean),
		format.PerShare(result.StdDev),
		format.PerShare(result.Percentile25),
		format.PerShare(result.Percentile50),
		format.PerShare(result.Percentile75),
	)
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	for _, errMsg := range result.Errors {
		fmt.Printf("error: %s\n", errMsg)
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(analysis *waterfall.Analysis) {
	fmt.Print(CsvString(analysis))
}

// CsvString renders the breakpoint table as CSV, one row per participant so
// the output maps directly onto downstream storage rows.
func CsvString(analysis *waterfall.Analysis) string {
	var builder strings.Builder
	builder.WriteString(`"order","type","rangeFrom","rangeTo","security","shares","sharePercent","sectionRvps","cumulativeRvps"` + "\n")

	for _, bp := range analysis.Breakpoints {
		rangeTo := ""
		if bp.RangeTo != nil {
			rangeTo = bp.RangeTo.StringFixed(2)
		}
		for _, participant := range bp.Participants {
			builder.WriteString(fmt.Sprintf(`"%d","%s","%s","%s","%s","%s","%s","%s","%s"`+"\n",
				bp.Order, bp.Type, bp.RangeFrom.StringFixed(2), rangeTo,
				participant.Security.Key(),
				participant.Shares.StringFixed(0),
				participant.SharePercent.StringFixed(4),
				participant.SectionRVPS.StringFixed(6),
				participant.CumulativeRVPS.StringFixed(6),
			))
		}
	}
	return builder.String()
}

// CsvStringHybrid renders scenario outcomes as CSV.
func CsvStringHybrid(result *hybrid.Result) string {
	var builder strings.Builder
	builder.WriteString(`"scenario","probability","weight","enterpriseValue","perShareValue","presentValue","weightedContribution","converged","error"` + "\n")
	for _, outcome := range result.Outcomes {
		builder.WriteString(fmt.Sprintf(`"%s","%s","%s","%s","%s","%s","%s","%t","%s"`+"\n",
			outcome.Name,
			outcome.Probability.String(),
			outcome.Weight.StringFixed(6),
			outcome.EnterpriseValue.StringFixed(2),
			outcome.PerShareValue.StringFixed(4),
			outcome.PresentValue.StringFixed(4),
			outcome.WeightedContribution.StringFixed(4),
			outcome.Valid,
			strings.ReplaceAll(outcome.Error, `"`, `""`),
		))
	}
	return builder.String()
}

func hundred() decimal.Decimal {
	return decimal.NewFromInt(100)
}
