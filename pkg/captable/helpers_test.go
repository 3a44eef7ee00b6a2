package captable

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

func TestGroupBySeniority(t *testing.T) {
	snapshot := &Snapshot{
		Preferred: []PreferredClass{
			{Name: "Series A", SharesOutstanding: d("1000000"), PricePerShare: d("1.00"), LiquidationMultiple: d("1"), SeniorityRank: 1, ConversionRatio: d("1")},
			{Name: "Series C", SharesOutstanding: d("500000"), PricePerShare: d("4.00"), LiquidationMultiple: d("1"), SeniorityRank: 0, ConversionRatio: d("1")},
			{Name: "Series B", SharesOutstanding: d("1000000"), PricePerShare: d("2.00"), LiquidationMultiple: d("1"), SeniorityRank: 1, ConversionRatio: d("1")},
		},
	}

	groups := GroupBySeniority(snapshot)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, expected 2 distinct ranks", len(groups))
	}

	// Rank 0 pays first.
	if groups[0].Rank != 0 {
		t.Errorf("groups[0].Rank = %d, expected 0", groups[0].Rank)
	}
	if !groups[0].CombinedLP.Equal(d("2000000")) {
		t.Errorf("rank 0 CombinedLP = %s, expected 2000000", groups[0].CombinedLP)
	}
	if !groups[0].CumulativeLPBefore.Equal(decimal.Zero) {
		t.Errorf("rank 0 CumulativeLPBefore = %s, expected 0", groups[0].CumulativeLPBefore)
	}

	// Rank 1 is pari passu between A and B: pooled LP and shares.
	if len(groups[1].Classes) != 2 {
		t.Fatalf("rank 1 has %d classes, expected 2 pari passu", len(groups[1].Classes))
	}
	if !groups[1].CombinedLP.Equal(d("3000000")) {
		t.Errorf("rank 1 CombinedLP = %s, expected 3000000", groups[1].CombinedLP)
	}
	if !groups[1].CombinedShares.Equal(d("2000000")) {
		t.Errorf("rank 1 CombinedShares = %s, expected 2000000", groups[1].CombinedShares)
	}
	if !groups[1].CumulativeLPBefore.Equal(d("2000000")) {
		t.Errorf("rank 1 CumulativeLPBefore = %s, expected 2000000", groups[1].CumulativeLPBefore)
	}
	if !groups[1].CumulativeLPInclusive.Equal(snapshot.TotalLiquidationPreference()) {
		t.Errorf("last group CumulativeLPInclusive = %s, expected total LP %s",
			groups[1].CumulativeLPInclusive, snapshot.TotalLiquidationPreference())
	}
}

func TestStrikeGroups(t *testing.T) {
	snapshot := &Snapshot{
		Options: []OptionGrant{
			{PoolName: "2022 Plan", OptionCount: d("300000"), StrikePrice: d("2.00"), VestedCount: d("250000")},
			{PoolName: "2018 Plan", OptionCount: d("100000"), StrikePrice: d("0.50"), VestedCount: d("100000")},
			{PoolName: "2020 Plan", OptionCount: d("200000"), StrikePrice: d("2.00"), VestedCount: d("150000")},
			{PoolName: "Founder grants", OptionCount: d("50000"), StrikePrice: d("0.001"), VestedCount: d("50000")},
			{PoolName: "Unvested pool", OptionCount: d("75000"), StrikePrice: d("3.00"), VestedCount: d("0")},
		},
	}

	groups := StrikeGroups(snapshot)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, expected 3 (unvested pool excluded)", len(groups))
	}

	// Ascending by strike.
	if !groups[0].Strike.Equal(d("0.001")) || !groups[1].Strike.Equal(d("0.50")) || !groups[2].Strike.Equal(d("2.00")) {
		t.Errorf("strikes not ascending: %s, %s, %s", groups[0].Strike, groups[1].Strike, groups[2].Strike)
	}

	// Sub-cent strike is exercised from the start of pro-rata distribution.
	if !groups[0].AlwaysExercised {
		t.Errorf("strike 0.001 not marked always-exercised")
	}
	if groups[1].AlwaysExercised || groups[2].AlwaysExercised {
		t.Errorf("strikes at or above one cent must not be always-exercised")
	}

	// Same-strike pools share one group.
	if !groups[2].VestedShares.Equal(d("400000")) {
		t.Errorf("pooled vested shares at 2.00 = %s, expected 400000", groups[2].VestedShares)
	}
	if len(groups[2].PoolNames) != 2 {
		t.Errorf("pooled group names = %v, expected both plans", groups[2].PoolNames)
	}
}

func TestCapThreshold(t *testing.T) {
	ctx := mathutil.NewContext()

	tests := []struct {
		name      string
		series    PreferredClass
		fraction  string
		totalLP   string
		expected  string
		hasResult bool
	}{
		{
			name: "Cap threshold closed form",
			series: PreferredClass{
				Name:                "Series A",
				SharesOutstanding:   d("1000000"),
				PricePerShare:       d("1.00"),
				LiquidationMultiple: d("1"),
				Preference:          ParticipatingWithCap,
				ParticipationCap:    d("3000000"),
			},
			fraction:  "0.20",
			totalLP:   "1000000",
			expected:  "11000000",
			hasResult: true,
		},
		{
			name: "Cap at preference never binds",
			series: PreferredClass{
				SharesOutstanding:   d("1000000"),
				PricePerShare:       d("1.00"),
				LiquidationMultiple: d("1"),
				Preference:          ParticipatingWithCap,
				ParticipationCap:    d("1000000"),
			},
			fraction:  "0.20",
			totalLP:   "1000000",
			hasResult: false,
		},
		{
			name: "Zero pro-rata fraction",
			series: PreferredClass{
				SharesOutstanding:   d("1000000"),
				PricePerShare:       d("1.00"),
				LiquidationMultiple: d("1"),
				Preference:          ParticipatingWithCap,
				ParticipationCap:    d("3000000"),
			},
			fraction:  "0",
			totalLP:   "1000000",
			hasResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, ok := CapThreshold(ctx, tt.series, d(tt.fraction), d(tt.totalLP))
			if ok != tt.hasResult {
				t.Fatalf("CapThreshold() ok = %v, expected %v", ok, tt.hasResult)
			}
			if tt.hasResult && !threshold.Equal(d(tt.expected)) {
				t.Errorf("CapThreshold() = %s, expected %s", threshold, tt.expected)
			}
		})
	}
}
