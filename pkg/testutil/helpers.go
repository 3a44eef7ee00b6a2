// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

// SnapshotBuilder assembles cap-table snapshots for tests without repeating
// decimal conversions at every call site.
type SnapshotBuilder struct {
	snapshot captable.Snapshot
}

// NewSnapshot starts a builder with the given common share count.
func NewSnapshot(commonShares float64) *SnapshotBuilder {
	return &SnapshotBuilder{
		snapshot: captable.Snapshot{
			Common: captable.CommonStock{
				SharesOutstanding: decimal.NewFromFloat(commonShares),
			},
		},
	}
}

// WithPreferred appends a preferred series with a 1x multiple and 1:1
// conversion ratio.
func (b *SnapshotBuilder) WithPreferred(name string, shares, price float64, rank int, preference captable.PreferenceType) *SnapshotBuilder {
	b.snapshot.Preferred = append(b.snapshot.Preferred, captable.PreferredClass{
		Name:                name,
		SharesOutstanding:   decimal.NewFromFloat(shares),
		PricePerShare:       decimal.NewFromFloat(price),
		LiquidationMultiple: decimal.NewFromInt(1),
		SeniorityRank:       rank,
		Preference:          preference,
		ConversionRatio:     decimal.NewFromInt(1),
	})
	return b
}

// WithCappedPreferred appends a participating-with-cap series. The cap is the
// total dollar receipt at which the series stops accruing.
func (b *SnapshotBuilder) WithCappedPreferred(name string, shares, price, cap float64, rank int) *SnapshotBuilder {
	b.snapshot.Preferred = append(b.snapshot.Preferred, captable.PreferredClass{
		Name:                name,
		SharesOutstanding:   decimal.NewFromFloat(shares),
		PricePerShare:       decimal.NewFromFloat(price),
		LiquidationMultiple: decimal.NewFromInt(1),
		SeniorityRank:       rank,
		Preference:          captable.ParticipatingWithCap,
		ParticipationCap:    decimal.NewFromFloat(cap),
		ConversionRatio:     decimal.NewFromInt(1),
	})
	return b
}

// WithMultiple overrides the liquidation multiple of the most recently added
// series.
func (b *SnapshotBuilder) WithMultiple(multiple float64) *SnapshotBuilder {
	if n := len(b.snapshot.Preferred); n > 0 {
		b.snapshot.Preferred[n-1].LiquidationMultiple = decimal.NewFromFloat(multiple)
	}
	return b
}

// WithConversionRatio overrides the conversion ratio of the most recently
// added series.
func (b *SnapshotBuilder) WithConversionRatio(ratio float64) *SnapshotBuilder {
	if n := len(b.snapshot.Preferred); n > 0 {
		b.snapshot.Preferred[n-1].ConversionRatio = decimal.NewFromFloat(ratio)
	}
	return b
}

// WithOptions appends a fully-vested option pool at the given strike.
func (b *SnapshotBuilder) WithOptions(pool string, count, strike float64) *SnapshotBuilder {
	b.snapshot.Options = append(b.snapshot.Options, captable.OptionGrant{
		PoolName:    pool,
		OptionCount: decimal.NewFromFloat(count),
		StrikePrice: decimal.NewFromFloat(strike),
		VestedCount: decimal.NewFromFloat(count),
	})
	return b
}

// WithPartiallyVestedOptions appends an option pool with vested < granted.
func (b *SnapshotBuilder) WithPartiallyVestedOptions(pool string, count, vested, strike float64) *SnapshotBuilder {
	b.snapshot.Options = append(b.snapshot.Options, captable.OptionGrant{
		PoolName:    pool,
		OptionCount: decimal.NewFromFloat(count),
		StrikePrice: decimal.NewFromFloat(strike),
		VestedCount: decimal.NewFromFloat(vested),
	})
	return b
}

// Build returns the assembled snapshot.
func (b *SnapshotBuilder) Build() *captable.Snapshot {
	return b.snapshot.Clone()
}

// SimpleSnapshot returns a two-series table used across packages: senior
// non-participating Series B over participating Series A over common.
func SimpleSnapshot() *captable.Snapshot {
	return NewSnapshot(1_000_000).
		WithPreferred("Series A", 500_000, 1.00, 1, captable.Participating).
		WithPreferred("Series B", 250_000, 4.00, 0, captable.NonParticipating).
		Build()
}
