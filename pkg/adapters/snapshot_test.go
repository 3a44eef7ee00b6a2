package adapters

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/internal/config"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

func boolPtr(b bool) *bool { return &b }

func TestSnapshotFromConfig(t *testing.T) {
	capTable := config.CapTableConfig{
		Common: config.CommonConfig{SharesOutstanding: 1_000_000},
		Preferred: []config.PreferredSeriesConfig{
			{
				Name:                "Series A",
				SharesOutstanding:   500_000,
				PricePerShare:       1.25,
				LiquidationMultiple: 1,
				SeniorityRank:       0,
				PreferenceType:      "participating",
				ConversionRatio:     1,
			},
		},
		Options: []config.OptionGrantConfig{
			{PoolName: "Pool", OptionCount: 100_000, StrikePrice: 2.00, VestedCount: 80_000},
		},
	}

	snapshot, err := SnapshotFromConfig(capTable)
	if err != nil {
		t.Fatalf("SnapshotFromConfig() error = %v", err)
	}

	if !snapshot.Common.SharesOutstanding.Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("common shares = %s", snapshot.Common.SharesOutstanding)
	}
	seriesA := snapshot.FindPreferred("Series A")
	if seriesA == nil {
		t.Fatalf("Series A missing")
	}
	if seriesA.Preference != captable.Participating {
		t.Errorf("preference = %s, expected participating", seriesA.Preference)
	}
	if !seriesA.PricePerShare.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("price per share = %s, expected 1.25", seriesA.PricePerShare)
	}
	if len(snapshot.Options) != 1 || !snapshot.Options[0].VestedCount.Equal(decimal.NewFromInt(80_000)) {
		t.Errorf("options = %+v", snapshot.Options)
	}
}

func TestPreferenceTypeMapping(t *testing.T) {
	tests := []struct {
		name        string
		series      config.PreferredSeriesConfig
		expected    captable.PreferenceType
		expectError bool
	}{
		{
			name:     "explicit non-participating",
			series:   config.PreferredSeriesConfig{Name: "S", PreferenceType: "non-participating"},
			expected: captable.NonParticipating,
		},
		{
			name:     "explicit participating",
			series:   config.PreferredSeriesConfig{Name: "S", PreferenceType: "participating"},
			expected: captable.Participating,
		},
		{
			name:     "explicit participating with cap",
			series:   config.PreferredSeriesConfig{Name: "S", PreferenceType: "participating-with-cap"},
			expected: captable.ParticipatingWithCap,
		},
		{
			name:     "boolean fallback participating",
			series:   config.PreferredSeriesConfig{Name: "S", Participating: boolPtr(true)},
			expected: captable.Participating,
		},
		{
			name:     "boolean fallback with cap",
			series:   config.PreferredSeriesConfig{Name: "S", Participating: boolPtr(true), ParticipationCap: 500_000},
			expected: captable.ParticipatingWithCap,
		},
		{
			name:     "boolean fallback not participating",
			series:   config.PreferredSeriesConfig{Name: "S", Participating: boolPtr(false)},
			expected: captable.NonParticipating,
		},
		{
			name:     "no type information defaults to non-participating",
			series:   config.PreferredSeriesConfig{Name: "S"},
			expected: captable.NonParticipating,
		},
		{
			name:        "unknown type",
			series:      config.PreferredSeriesConfig{Name: "S", PreferenceType: "convertible"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := SnapshotFromConfig(config.CapTableConfig{
				Common:    config.CommonConfig{SharesOutstanding: 1},
				Preferred: []config.PreferredSeriesConfig{tt.series},
			})
			if tt.expectError {
				if err == nil {
					t.Fatalf("SnapshotFromConfig() error = nil, expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SnapshotFromConfig() error = %v", err)
			}
			if got := snapshot.Preferred[0].Preference; got != tt.expected {
				t.Errorf("preference = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestScenariosFromConfig(t *testing.T) {
	scenarios := ScenariosFromConfig(&config.HybridConfig{
		Scenarios: []config.ScenarioConfig{
			{Name: "IPO", Probability: 60, EnterpriseValue: 10_000_000, ExitDate: "2027-06", DiscountRate: 0.2},
			{Name: "Down round", Probability: 40, TargetFMV: 0.75},
		},
	})

	if len(scenarios) != 2 {
		t.Fatalf("scenario count = %d, expected 2", len(scenarios))
	}
	if scenarios[0].Name != "IPO" || !scenarios[0].EnterpriseValue.Equal(decimal.NewFromInt(10_000_000)) {
		t.Errorf("first scenario = %+v", scenarios[0])
	}
	if scenarios[0].ExitDate != "2027-06" {
		t.Errorf("exit date = %q", scenarios[0].ExitDate)
	}
	if !scenarios[1].TargetFMV.Equal(decimal.NewFromFloat(0.75)) {
		t.Errorf("targetFMV = %s", scenarios[1].TargetFMV)
	}

	if got := ScenariosFromConfig(nil); got != nil {
		t.Errorf("ScenariosFromConfig(nil) = %v, expected nil", got)
	}
}
