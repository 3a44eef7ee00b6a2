package breakpoints

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// ParticipationEntry is one security's stake in pro-rata distribution.
type ParticipationEntry struct {
	Security captable.SecurityRef
	Shares   decimal.Decimal
}

// ParticipationSet is the resolved set of securities sharing a marginal
// dollar of exit value.
type ParticipationSet struct {
	Entries     []ParticipationEntry
	TotalShares decimal.Decimal
}

// Fraction returns a security's pro-rata fraction of the set.
func (s ParticipationSet) Fraction(ctx *mathutil.Context, ref captable.SecurityRef) decimal.Decimal {
	for _, entry := range s.Entries {
		if entry.Security.Equal(ref) {
			return ctx.ProRataShare(entry.Shares, s.TotalShares)
		}
	}
	return decimal.Zero
}

// Contains reports whether the security participates in the set.
func (s ParticipationSet) Contains(ref captable.SecurityRef) bool {
	for _, entry := range s.Entries {
		if entry.Security.Equal(ref) {
			return true
		}
	}
	return false
}

// CalculateParticipation resolves who shares pro-rata under the given
// decisions: common always; participating preferred always, as-converted;
// non-participating preferred only once converted; option strike groups only
// once exercised (sub-cent strikes count as exercised from the start).
// Series named in capped no longer accrue and are excluded.
func CalculateParticipation(ctx *mathutil.Context, snapshot *captable.Snapshot, decisions *Decisions, capped map[string]bool) ParticipationSet {
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	if decisions == nil {
		decisions = NewDecisions()
	}

	set := ParticipationSet{TotalShares: decimal.Zero}
	add := func(ref captable.SecurityRef, shares decimal.Decimal) {
		if !shares.IsPositive() {
			return
		}
		set.Entries = append(set.Entries, ParticipationEntry{Security: ref, Shares: shares})
		set.TotalShares = set.TotalShares.Add(shares)
	}

	add(captable.CommonRef(), snapshot.Common.SharesOutstanding)

	for _, class := range snapshot.Preferred {
		if capped[class.Name] {
			continue
		}
		switch {
		case class.IsParticipating():
			add(class.Ref(), class.ConvertedShares())
		case decisions.Converted(class.Name):
			add(class.Ref(), class.ConvertedShares())
		}
	}

	for _, group := range captable.StrikeGroups(snapshot) {
		if group.AlwaysExercised || decisions.Exercised(group.Strike) {
			add(group.Ref(), group.VestedShares)
		}
	}

	return set
}

// participants renders a participation set as breakpoint participants with
// per-security percentages and a shared section RVPS.
func (s ParticipationSet) participants(ctx *mathutil.Context, sectionRVPS decimal.Decimal) []Participant {
	result := make([]Participant, 0, len(s.Entries))
	for _, entry := range s.Entries {
		result = append(result, Participant{
			Security:     entry.Security,
			Shares:       entry.Shares,
			SharePercent: ctx.Percentage(entry.Shares, s.TotalShares),
			SectionRVPS:  sectionRVPS,
		})
	}
	return result
}
