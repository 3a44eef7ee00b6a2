package output

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/internal/hybrid"
	"github.com/Eran5102/Valuation-sub004/internal/waterfall"
	"github.com/Eran5102/Valuation-sub004/pkg/breakpoints"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

func TestCsvString(t *testing.T) {
	rangeTo := decimal.NewFromInt(1_000_000)
	analysis := &waterfall.Analysis{
		Breakpoints: []breakpoints.Breakpoint{
			{
				Type:      breakpoints.TypeLiquidationPreference,
				Order:     1,
				RangeFrom: decimal.Zero,
				RangeTo:   &rangeTo,
				Participants: []breakpoints.Participant{
					{
						Security:       captable.PreferredRef("Series B"),
						Shares:         decimal.NewFromInt(250_000),
						SharePercent:   decimal.NewFromInt(100),
						SectionRVPS:    decimal.NewFromInt(4),
						CumulativeRVPS: decimal.NewFromInt(4),
					},
				},
			},
			{
				Type:      breakpoints.TypeProRataDistribution,
				Order:     2,
				RangeFrom: rangeTo,
				Participants: []breakpoints.Participant{
					{Security: captable.CommonRef(), Shares: decimal.NewFromInt(1_000_000)},
				},
			},
		},
	}

	csv := CsvString(analysis)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, expected header plus one row per participant", len(lines))
	}
	if !strings.Contains(lines[0], `"order","type","rangeFrom","rangeTo"`) {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"preferred/Series B"`) || !strings.Contains(lines[1], `"4.000000"`) {
		t.Errorf("first row = %s", lines[1])
	}
	// Open-ended ranges render an empty rangeTo.
	if !strings.Contains(lines[2], `"1000000.00","","common/Common"`) {
		t.Errorf("open-ended row = %s", lines[2])
	}
}

func TestCsvStringHybrid(t *testing.T) {
	result := &hybrid.Result{
		Outcomes: []hybrid.Outcome{
			{
				Name:                 "IPO",
				Probability:          decimal.NewFromInt(60),
				Weight:               decimal.NewFromFloat(0.6),
				EnterpriseValue:      decimal.NewFromInt(10_000_000),
				PerShareValue:        decimal.NewFromFloat(2.5),
				PresentValue:         decimal.NewFromFloat(2.1),
				WeightedContribution: decimal.NewFromFloat(1.26),
				Valid:                true,
			},
			{
				Name:  "Broken",
				Error: `solver said "no"`,
			},
		},
	}

	csv := CsvStringHybrid(result)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, expected header plus one row per outcome", len(lines))
	}
	if !strings.Contains(lines[1], `"IPO"`) || !strings.Contains(lines[1], `"true"`) {
		t.Errorf("outcome row = %s", lines[1])
	}
	// Embedded quotes are doubled per CSV convention.
	if !strings.Contains(lines[2], `solver said ""no""`) {
		t.Errorf("escaped error row = %s", lines[2])
	}
}
