// Package breakpoints derives the ordered value ranges at which securities
// start, stop, or change their participation in exit proceeds.
package breakpoints

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

// Type classifies a breakpoint by the event that creates it.
type Type string

const (
	TypeLiquidationPreference Type = "LIQUIDATION_PREFERENCE"
	TypeProRataDistribution   Type = "PRO_RATA_DISTRIBUTION"
	TypeVoluntaryConversion   Type = "VOLUNTARY_CONVERSION"
	TypeOptionExercise        Type = "OPTION_EXERCISE"
	TypeParticipationCap      Type = "PARTICIPATION_CAP"
)

// PriorityKey orders breakpoints that land on the same exit value: the
// preference stack pays out before distribution begins, conversions take
// effect before exercises, and caps apply last.
func (t Type) PriorityKey() int {
	switch t {
	case TypeLiquidationPreference:
		return 0
	case TypeProRataDistribution:
		return 1
	case TypeVoluntaryConversion:
		return 2
	case TypeOptionExercise:
		return 3
	case TypeParticipationCap:
		return 4
	}
	return 5
}

// Participant is one security's share of a breakpoint's range.
type Participant struct {
	Security       captable.SecurityRef `json:"security"`
	Shares         decimal.Decimal      `json:"shares"`
	SharePercent   decimal.Decimal      `json:"sharePercent"`
	SectionRVPS    decimal.Decimal      `json:"sectionRvps"`
	CumulativeRVPS decimal.Decimal      `json:"cumulativeRvps"`
}

// Breakpoint is one range of exit value with a fixed participant set.
// RangeTo is nil only on the final, open-ended breakpoint.
type Breakpoint struct {
	Type                     Type             `json:"type"`
	Order                    int              `json:"order"`
	RangeFrom                decimal.Decimal  `json:"rangeFrom"`
	RangeTo                  *decimal.Decimal `json:"rangeTo,omitempty"`
	Participants             []Participant    `json:"participants"`
	TotalParticipatingShares decimal.Decimal  `json:"totalParticipatingShares"`
	Explanation              string           `json:"explanation"`
	Dependencies             []string         `json:"dependencies,omitempty"`
	PriorityKey              int              `json:"priorityKey"`

	// Analyzer annotations consumed by assembly and consistency checks.
	StepNumber int             `json:"stepNumber,omitempty"`
	Series     string          `json:"series,omitempty"`
	Strike     decimal.Decimal `json:"strike,omitempty"`
}

// OpenEnded reports whether the breakpoint's range has no upper bound.
func (b *Breakpoint) OpenEnded() bool {
	return b.RangeTo == nil
}

// Width returns the size of a bounded range, or zero for an open-ended one.
func (b *Breakpoint) Width() decimal.Decimal {
	if b.RangeTo == nil {
		return decimal.Zero
	}
	return b.RangeTo.Sub(b.RangeFrom)
}

// FindParticipant returns the participant entry for a security, or nil.
func (b *Breakpoint) FindParticipant(ref captable.SecurityRef) *Participant {
	for i := range b.Participants {
		if b.Participants[i].Security.Equal(ref) {
			return &b.Participants[i]
		}
	}
	return nil
}

// StrikeKey is the canonical map key for an option strike. Numerically equal
// strikes share a key regardless of input spelling.
type StrikeKey string

// StrikeKeyFor derives the key for a strike price.
func StrikeKeyFor(strike decimal.Decimal) StrikeKey {
	return StrikeKey(strike.String())
}

// Decisions records which conversion and exercise elections are in effect.
// Keys are typed identities, never formatted labels.
type Decisions struct {
	converted map[string]bool
	exercised map[StrikeKey]bool
}

// NewDecisions returns an empty decision set.
func NewDecisions() *Decisions {
	return &Decisions{
		converted: make(map[string]bool),
		exercised: make(map[StrikeKey]bool),
	}
}

// SetConverted marks a preferred series as voluntarily converted.
func (d *Decisions) SetConverted(series string) {
	d.converted[series] = true
}

// Converted reports whether a series has converted.
func (d *Decisions) Converted(series string) bool {
	return d.converted[series]
}

// SetExercised marks the option group at a strike as exercised.
func (d *Decisions) SetExercised(strike decimal.Decimal) {
	d.exercised[StrikeKeyFor(strike)] = true
}

// Exercised reports whether the option group at a strike has exercised.
func (d *Decisions) Exercised(strike decimal.Decimal) bool {
	return d.exercised[StrikeKeyFor(strike)]
}

// Clone returns an independent copy of the decision set.
func (d *Decisions) Clone() *Decisions {
	clone := NewDecisions()
	for series, v := range d.converted {
		clone.converted[series] = v
	}
	for strike, v := range d.exercised {
		clone.exercised[strike] = v
	}
	return clone
}

// ConvertedCount returns how many series have converted.
func (d *Decisions) ConvertedCount() int {
	count := 0
	for _, v := range d.converted {
		if v {
			count++
		}
	}
	return count
}
