package captable

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// SeniorityGroup is one rank of the preference stack. Classes sharing a rank
// are pari passu and pool their preferences and shares.
type SeniorityGroup struct {
	Rank                  int
	Classes               []PreferredClass
	CombinedLP            decimal.Decimal
	CombinedShares        decimal.Decimal
	CumulativeLPBefore    decimal.Decimal
	CumulativeLPInclusive decimal.Decimal
}

// GroupBySeniority returns seniority groups ordered ascending by rank with
// cumulative preference totals filled in. Rank 0 is the most senior and is
// paid first.
func GroupBySeniority(snapshot *Snapshot) []SeniorityGroup {
	byRank := make(map[int][]PreferredClass)
	for _, class := range snapshot.Preferred {
		byRank[class.SeniorityRank] = append(byRank[class.SeniorityRank], class)
	}

	ranks := make([]int, 0, len(byRank))
	for rank := range byRank {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	groups := make([]SeniorityGroup, 0, len(ranks))
	cumulative := decimal.Zero
	for _, rank := range ranks {
		group := SeniorityGroup{
			Rank:               rank,
			Classes:            byRank[rank],
			CombinedLP:         decimal.Zero,
			CombinedShares:     decimal.Zero,
			CumulativeLPBefore: cumulative,
		}
		for _, class := range group.Classes {
			group.CombinedLP = group.CombinedLP.Add(class.LiquidationPreference())
			group.CombinedShares = group.CombinedShares.Add(class.SharesOutstanding)
		}
		cumulative = cumulative.Add(group.CombinedLP)
		group.CumulativeLPInclusive = cumulative
		groups = append(groups, group)
	}
	return groups
}

// StrikeGroup pools option grants sharing a strike price.
type StrikeGroup struct {
	Strike          decimal.Decimal
	VestedShares    decimal.Decimal
	PoolNames       []string
	AlwaysExercised bool
}

// Ref returns the security ref shared by the group. Pools at the same strike
// are one economic actor, so the ref names the group rather than any single
// grant.
func (g StrikeGroup) Ref() SecurityRef {
	name := "Options"
	if len(g.PoolNames) == 1 {
		name = g.PoolNames[0]
	}
	return OptionPoolRef(name, g.Strike)
}

// StrikeGroups returns distinct option strikes ascending with pooled vested
// counts. Strikes below one cent are marked always-exercised: exercise is
// economically certain the moment any value reaches common, so they
// participate from the start of pro-rata distribution instead of producing
// an exercise breakpoint.
func StrikeGroups(snapshot *Snapshot) []StrikeGroup {
	deMinimis := decimal.RequireFromString(constants.DeMinimisStrike)

	byStrike := make(map[string]*StrikeGroup)
	var order []string
	for _, grant := range snapshot.Options {
		if grant.VestedCount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		key := grant.StrikePrice.String()
		group, ok := byStrike[key]
		if !ok {
			group = &StrikeGroup{
				Strike:          grant.StrikePrice,
				VestedShares:    decimal.Zero,
				AlwaysExercised: grant.StrikePrice.LessThan(deMinimis),
			}
			byStrike[key] = group
			order = append(order, key)
		}
		group.VestedShares = group.VestedShares.Add(grant.VestedCount)
		group.PoolNames = append(group.PoolNames, grant.PoolName)
	}

	groups := make([]StrikeGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byStrike[key])
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Strike.LessThan(groups[j].Strike)
	})
	return groups
}

// CapThreshold solves, in closed form, the exit value at which a
// participating-with-cap series' total receipt reaches its cap:
//
//	threshold = totalLP + (cap − LP) / proRataFraction
//
// The second return is false when no threshold exists: the cap is at or
// below the preference (the series never accrues past it) or the pro-rata
// fraction is zero.
func CapThreshold(ctx *mathutil.Context, series PreferredClass, proRataFraction, totalLP decimal.Decimal) (decimal.Decimal, bool) {
	lp := series.LiquidationPreference()
	excess := series.ParticipationCap.Sub(lp)
	if !ctx.IsPositive(excess) || !proRataFraction.IsPositive() {
		return decimal.Zero, false
	}
	return totalLP.Add(ctx.SafeDiv(excess, proRataFraction, decimal.Zero)), true
}
