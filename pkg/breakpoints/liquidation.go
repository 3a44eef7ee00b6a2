package breakpoints

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/format"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// AnalyzeLiquidationPreference produces one breakpoint per seniority rank in
// ascending rank order, tiling [0, totalLP]. Classes sharing a rank are pari
// passu: the rank's preferences and shares pool, and every class in the rank
// accrues the pooled section RVPS. The breakpoint count must equal the number
// of distinct ranks; a mismatch is a contract violation, not a data report.
func AnalyzeLiquidationPreference(logger *zap.Logger, ctx *mathutil.Context, snapshot *captable.Snapshot, trail *audit.Trail) ([]Breakpoint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}

	groups := captable.GroupBySeniority(snapshot)
	results := make([]Breakpoint, 0, len(groups))

	for _, group := range groups {
		rangeTo := group.CumulativeLPInclusive
		bp := Breakpoint{
			Type:                     TypeLiquidationPreference,
			RangeFrom:                group.CumulativeLPBefore,
			RangeTo:                  &rangeTo,
			TotalParticipatingShares: group.CombinedShares,
			PriorityKey:              TypeLiquidationPreference.PriorityKey(),
		}

		pariPassu := len(group.Classes) > 1
		names := make([]string, 0, len(group.Classes))
		for _, class := range group.Classes {
			sectionRVPS := ctx.SafeDiv(class.LiquidationPreference(), class.SharesOutstanding, decimal.Zero)
			if pariPassu {
				sectionRVPS = ctx.SafeDiv(group.CombinedLP, group.CombinedShares, decimal.Zero)
			}
			bp.Participants = append(bp.Participants, Participant{
				Security:     class.Ref(),
				Shares:       class.SharesOutstanding,
				SharePercent: ctx.Percentage(class.SharesOutstanding, group.CombinedShares),
				SectionRVPS:  sectionRVPS,
			})
			names = append(names, class.Name)
		}

		if pariPassu {
			bp.Explanation = fmt.Sprintf("seniority rank %d pari passu across %s: %s of combined liquidation preference",
				group.Rank, strings.Join(names, ", "), format.Currency(group.CombinedLP))
		} else {
			bp.Explanation = fmt.Sprintf("%s liquidation preference of %s at seniority rank %d",
				names[0], format.Currency(group.CombinedLP), group.Rank)
		}
		if group.Rank > 0 {
			bp.Dependencies = append(bp.Dependencies,
				fmt.Sprintf("seniority rank %d preferences satisfied", group.Rank-1))
		}

		if trail != nil {
			trail.Info(audit.CategoryBreakpoint, "liquidation preference range computed", map[string]string{
				"rank":   fmt.Sprintf("%d", group.Rank),
				"series": strings.Join(names, ", "),
				"from":   group.CumulativeLPBefore.String(),
				"to":     rangeTo.String(),
				"shares": group.CombinedShares.String(),
			})
		}
		logger.Debug("liquidation preference breakpoint",
			zap.String("op", "breakpoints.AnalyzeLiquidationPreference"),
			zap.Int("rank", group.Rank),
			zap.String("from", group.CumulativeLPBefore.String()),
			zap.String("to", rangeTo.String()),
		)

		results = append(results, bp)
	}

	distinctRanks := len(groups)
	if len(results) != distinctRanks {
		return nil, fmt.Errorf("liquidation breakpoint count %d does not match distinct seniority ranks %d",
			len(results), distinctRanks)
	}
	if len(results) > 0 {
		last := results[len(results)-1]
		if !ctx.Equal(*last.RangeTo, snapshot.TotalLiquidationPreference()) {
			return nil, fmt.Errorf("liquidation ranges end at %s, expected total preference %s",
				*last.RangeTo, snapshot.TotalLiquidationPreference())
		}
	}

	return results, nil
}
