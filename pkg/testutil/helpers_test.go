package testutil

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

func TestSnapshotBuilder(t *testing.T) {
	snapshot := NewSnapshot(1_000_000).
		WithPreferred("Series A", 500_000, 1.00, 2, captable.Participating).
		WithPreferred("Series B", 250_000, 4.00, 1, captable.NonParticipating).
		WithMultiple(1.5).
		WithOptions("Pool", 100_000, 2.00).
		Build()

	if !snapshot.Common.SharesOutstanding.Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("common shares = %s, expected 1000000", snapshot.Common.SharesOutstanding)
	}
	if len(snapshot.Preferred) != 2 {
		t.Fatalf("preferred count = %d, expected 2", len(snapshot.Preferred))
	}

	seriesB := snapshot.FindPreferred("Series B")
	if seriesB == nil {
		t.Fatalf("Series B not found")
	}
	if !seriesB.LiquidationMultiple.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("Series B multiple = %s, expected 1.5 (WithMultiple applies to last series)", seriesB.LiquidationMultiple)
	}
	expectedLP := decimal.NewFromInt(1_500_000)
	if !seriesB.LiquidationPreference().Equal(expectedLP) {
		t.Errorf("Series B LP = %s, expected %s", seriesB.LiquidationPreference(), expectedLP)
	}

	if len(snapshot.Options) != 1 {
		t.Fatalf("option pools = %d, expected 1", len(snapshot.Options))
	}
	if !snapshot.Options[0].VestedCount.Equal(snapshot.Options[0].OptionCount) {
		t.Errorf("WithOptions should vest the full grant")
	}
}

func TestBuildReturnsClone(t *testing.T) {
	builder := NewSnapshot(100).WithPreferred("Series A", 50, 1.00, 1, captable.Participating)

	first := builder.Build()
	second := builder.Build()

	first.Preferred[0].SeniorityRank = 99
	if second.Preferred[0].SeniorityRank == 99 {
		t.Errorf("Build() snapshots should be independent copies")
	}
}

func TestSimpleSnapshot(t *testing.T) {
	snapshot := SimpleSnapshot()

	if !snapshot.TotalLiquidationPreference().Equal(decimal.NewFromInt(1_500_000)) {
		t.Errorf("total LP = %s, expected 1500000", snapshot.TotalLiquidationPreference())
	}
	if !snapshot.FullyDilutedShares().Equal(decimal.NewFromInt(1_750_000)) {
		t.Errorf("fully diluted = %s, expected 1750000", snapshot.FullyDilutedShares())
	}
}
