// Package captable provides the capitalization table model and query helpers.
package captable

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// PreferenceType identifies how a preferred class shares in exit proceeds
// after its liquidation preference is satisfied.
type PreferenceType string

const (
	// NonParticipating preferred takes its liquidation preference or converts
	// to common, never both.
	NonParticipating PreferenceType = "non-participating"

	// Participating preferred takes its liquidation preference and then
	// shares pro-rata as if converted.
	Participating PreferenceType = "participating"

	// ParticipatingWithCap participates like Participating up to a total
	// receipt ceiling.
	ParticipatingWithCap PreferenceType = "participating-with-cap"
)

// SecurityKind distinguishes the securities that can participate in a
// distribution range.
type SecurityKind string

const (
	KindPreferred  SecurityKind = "preferred"
	KindCommon     SecurityKind = "common"
	KindOptionPool SecurityKind = "option-pool"
)

// SecurityRef identifies a security. Option pools at the same strike share a
// ref so exercise decisions apply to the whole strike group. Refs are typed
// identity, never display labels.
type SecurityRef struct {
	Kind   SecurityKind
	Name   string
	Strike decimal.Decimal
}

// CommonRef returns the ref shared by all common stock.
func CommonRef() SecurityRef {
	return SecurityRef{Kind: KindCommon, Name: "Common"}
}

// PreferredRef returns the ref for a named preferred series.
func PreferredRef(name string) SecurityRef {
	return SecurityRef{Kind: KindPreferred, Name: name}
}

// OptionPoolRef returns the ref for an option strike group.
func OptionPoolRef(name string, strike decimal.Decimal) SecurityRef {
	return SecurityRef{Kind: KindOptionPool, Name: name, Strike: strike}
}

// Equal reports whether two refs identify the same security. Strikes are
// compared by numeric value so "2.0" and "2.00" name the same group.
func (r SecurityRef) Equal(other SecurityRef) bool {
	return r.Kind == other.Kind && r.Name == other.Name && r.Strike.Equal(other.Strike)
}

// Key returns a canonical map key for the ref.
func (r SecurityRef) Key() string {
	if r.Kind == KindOptionPool {
		return string(r.Kind) + "/" + r.Name + "/" + r.Strike.String()
	}
	return string(r.Kind) + "/" + r.Name
}

// PreferredClass is one series of preferred stock.
type PreferredClass struct {
	Name                string
	SharesOutstanding   decimal.Decimal
	PricePerShare       decimal.Decimal
	LiquidationMultiple decimal.Decimal
	SeniorityRank       int
	Preference          PreferenceType
	ParticipationCap    decimal.Decimal
	ConversionRatio     decimal.Decimal
}

// LiquidationPreference returns shares × price × multiple.
func (c PreferredClass) LiquidationPreference() decimal.Decimal {
	return c.SharesOutstanding.Mul(c.PricePerShare).Mul(c.LiquidationMultiple)
}

// ConvertedShares returns the common shares this class would hold after
// voluntary conversion.
func (c PreferredClass) ConvertedShares() decimal.Decimal {
	return c.SharesOutstanding.Mul(c.ConversionRatio)
}

// RVPS returns the class residual value per share, LP / shares outstanding.
// Classes with lower RVPS convert earlier because waiving their preference
// costs them the least.
func (c PreferredClass) RVPS(ctx *mathutil.Context) decimal.Decimal {
	return ctx.SafeDiv(c.LiquidationPreference(), c.SharesOutstanding, decimal.Zero)
}

// IsParticipating reports whether the class shares pro-rata without
// converting (with or without a cap).
func (c PreferredClass) IsParticipating() bool {
	return c.Preference == Participating || c.Preference == ParticipatingWithCap
}

// Ref returns the class's security ref.
func (c PreferredClass) Ref() SecurityRef {
	return PreferredRef(c.Name)
}

// CommonStock is the aggregate common position.
type CommonStock struct {
	SharesOutstanding decimal.Decimal
}

// OptionGrant is one option pool with a single strike.
type OptionGrant struct {
	PoolName    string
	OptionCount decimal.Decimal
	StrikePrice decimal.Decimal
	VestedCount decimal.Decimal
}

// Snapshot is an immutable capitalization table. Callers own the input;
// the engine clones before any what-if mutation.
type Snapshot struct {
	Preferred []PreferredClass
	Common    CommonStock
	Options   []OptionGrant
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Preferred: make([]PreferredClass, len(s.Preferred)),
		Common:    s.Common,
		Options:   make([]OptionGrant, len(s.Options)),
	}
	copy(clone.Preferred, s.Preferred)
	copy(clone.Options, s.Options)
	return clone
}

// FindPreferred returns the named series, or nil when absent.
func (s *Snapshot) FindPreferred(name string) *PreferredClass {
	for i := range s.Preferred {
		if s.Preferred[i].Name == name {
			return &s.Preferred[i]
		}
	}
	return nil
}

// TotalLiquidationPreference sums liquidation preferences across all series.
func (s *Snapshot) TotalLiquidationPreference() decimal.Decimal {
	total := decimal.Zero
	for _, class := range s.Preferred {
		total = total.Add(class.LiquidationPreference())
	}
	return total
}

// FullyDilutedShares returns common plus as-converted preferred plus all
// vested options.
func (s *Snapshot) FullyDilutedShares() decimal.Decimal {
	total := s.Common.SharesOutstanding
	for _, class := range s.Preferred {
		total = total.Add(class.ConvertedShares())
	}
	for _, grant := range s.Options {
		total = total.Add(grant.VestedCount)
	}
	return total
}

// NonParticipatingSeries returns the series that must convert to share
// pro-rata, in snapshot order.
func (s *Snapshot) NonParticipatingSeries() []PreferredClass {
	var series []PreferredClass
	for _, class := range s.Preferred {
		if class.Preference == NonParticipating {
			series = append(series, class)
		}
	}
	return series
}

// CappedSeries returns the participating-with-cap series in snapshot order.
func (s *Snapshot) CappedSeries() []PreferredClass {
	var series []PreferredClass
	for _, class := range s.Preferred {
		if class.Preference == ParticipatingWithCap {
			series = append(series, class)
		}
	}
	return series
}
