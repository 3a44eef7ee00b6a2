package breakpoints

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/testutil"
)

func TestAnalyzeAssemblesOrderedSequence(t *testing.T) {
	snapshot := testutil.SimpleSnapshot()
	ctx := mathutil.NewContext()

	result, err := Analyze(zap.NewNop(), ctx, snapshot, nil, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	bps := result.Breakpoints

	expectedTypes := []Type{
		TypeLiquidationPreference,
		TypeLiquidationPreference,
		TypeProRataDistribution,
		TypeVoluntaryConversion,
	}
	if len(bps) != len(expectedTypes) {
		t.Fatalf("breakpoint count = %d, expected %d", len(bps), len(expectedTypes))
	}
	for i, bp := range bps {
		if bp.Type != expectedTypes[i] {
			t.Errorf("breakpoint %d type = %s, expected %s", i, bp.Type, expectedTypes[i])
		}
		if bp.Order != i+1 {
			t.Errorf("breakpoint %d order = %d, expected %d", i, bp.Order, i+1)
		}
	}

	// Ranges tile the axis: each bounded range ends where its successor
	// starts, and only the final range is open-ended.
	for i := 0; i < len(bps)-1; i++ {
		if bps[i].RangeTo == nil {
			t.Fatalf("breakpoint %d is open-ended but not last", bps[i].Order)
		}
		if !bps[i].RangeTo.Equal(bps[i+1].RangeFrom) {
			t.Errorf("breakpoint %d ends at %s but %d starts at %s",
				bps[i].Order, bps[i].RangeTo, bps[i+1].Order, bps[i+1].RangeFrom)
		}
	}
	if !bps[len(bps)-1].OpenEnded() {
		t.Errorf("final breakpoint must be open-ended")
	}

	// Pro-rata starts at total LP and runs to the conversion point.
	proRata := bps[2]
	if !proRata.RangeFrom.Equal(decimal.NewFromInt(1_500_000)) {
		t.Errorf("pro-rata starts at %s, expected 1500000", proRata.RangeFrom)
	}
	if proRata.RangeTo == nil || !ctx.Equal(*proRata.RangeTo, decimal.NewFromInt(8_500_000)) {
		t.Errorf("pro-rata ends at %v, expected 8500000", proRata.RangeTo)
	}
	// Section RVPS = 7,000,000 / 1,500,000 shares.
	expectedRVPS := ctx.SafeDiv(decimal.NewFromInt(7_000_000), decimal.NewFromInt(1_500_000), decimal.Zero)
	for _, participant := range proRata.Participants {
		if !ctx.Equal(participant.SectionRVPS, expectedRVPS) {
			t.Errorf("%s section RVPS = %s, expected %s",
				participant.Security.Key(), participant.SectionRVPS, expectedRVPS)
		}
	}

	// Past the conversion point Series B participates as-converted.
	final := bps[3]
	if final.FindParticipant(captable.PreferredRef("Series B")) == nil {
		t.Errorf("Series B missing from participation after its conversion point")
	}
	if !final.TotalParticipatingShares.Equal(decimal.NewFromInt(1_750_000)) {
		t.Errorf("final participating shares = %s, expected 1750000", final.TotalParticipatingShares)
	}
}

func TestAnalyzeCommonOnlyTable(t *testing.T) {
	snapshot := testutil.NewSnapshot(1_000_000).Build()

	result, err := Analyze(zap.NewNop(), mathutil.NewContext(), snapshot, nil, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.Breakpoints) != 1 {
		t.Fatalf("breakpoint count = %d, expected 1 (pro-rata from zero)", len(result.Breakpoints))
	}

	bp := result.Breakpoints[0]
	if bp.Type != TypeProRataDistribution || !bp.RangeFrom.IsZero() || !bp.OpenEnded() {
		t.Errorf("expected a single open-ended pro-rata breakpoint from 0, got %+v", bp)
	}
}

func TestAnalyzeEmptyTableFails(t *testing.T) {
	snapshot := &captable.Snapshot{}

	if _, err := Analyze(zap.NewNop(), mathutil.NewContext(), snapshot, nil, nil); err == nil {
		t.Errorf("Analyze() with no participating shares should error")
	}
}
