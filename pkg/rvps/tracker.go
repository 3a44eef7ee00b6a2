// Package rvps tracks cumulative redemption value per share across an
// ordered breakpoint sequence.
//
// The tracker replays assembled breakpoints in order, accumulating each
// participant's section RVPS into a running cumulative value. Cumulative RVPS
// is monotonically non-decreasing per security; a negative increment is a
// contract violation and aborts the replay.
package rvps

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/breakpoints"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
)

// HistoryRow is one step of a security's RVPS accumulation.
type HistoryRow struct {
	Order           int             `json:"order"`
	Increment       decimal.Decimal `json:"increment"`
	CumulativeAfter decimal.Decimal `json:"cumulativeAfter"`
}

// Tracker replays an ordered breakpoint sequence and answers point queries
// about per-security value accumulation. A Tracker is built once per analysis
// and is read-only after Replay.
type Tracker struct {
	logger      *zap.Logger
	ctx         *mathutil.Context
	breakpoints []breakpoints.Breakpoint
	histories   map[string][]HistoryRow
	cumulative  map[string]decimal.Decimal
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *zap.Logger, ctx *mathutil.Context) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	return &Tracker{
		logger:     logger,
		ctx:        ctx,
		histories:  make(map[string][]HistoryRow),
		cumulative: make(map[string]decimal.Decimal),
	}
}

// Replay accumulates section RVPS through the ordered breakpoints, writing
// each participant's cumulative RVPS back onto the breakpoint slice so the
// assembled output carries fully-populated participants.
func (t *Tracker) Replay(bps []breakpoints.Breakpoint, trail *audit.Trail) error {
	t.breakpoints = bps
	t.histories = make(map[string][]HistoryRow)
	t.cumulative = make(map[string]decimal.Decimal)

	for i := range bps {
		bp := &bps[i]
		for j := range bp.Participants {
			participant := &bp.Participants[j]
			key := participant.Security.Key()

			if participant.SectionRVPS.IsNegative() {
				return fmt.Errorf("security %s has negative section RVPS %s at breakpoint %d",
					key, participant.SectionRVPS, bp.Order)
			}

			cumulative := t.cumulative[key].Add(participant.SectionRVPS)
			t.cumulative[key] = cumulative
			participant.CumulativeRVPS = cumulative
			t.histories[key] = append(t.histories[key], HistoryRow{
				Order:           bp.Order,
				Increment:       participant.SectionRVPS,
				CumulativeAfter: cumulative,
			})
		}
	}

	if trail != nil {
		trail.Info(audit.CategoryRVPS, "cumulative RVPS replay complete", map[string]string{
			"breakpoints": fmt.Sprintf("%d", len(bps)),
			"securities":  fmt.Sprintf("%d", len(t.cumulative)),
		})
	}
	t.logger.Debug("cumulative RVPS replay complete",
		zap.String("op", "rvps.Tracker.Replay"),
		zap.Int("breakpoints", len(bps)),
		zap.Int("securities", len(t.cumulative)),
	)
	return nil
}

// History returns a security's accumulation rows in breakpoint order.
func (t *Tracker) History(ref captable.SecurityRef) []HistoryRow {
	return t.histories[ref.Key()]
}

// Histories returns every security's accumulation rows keyed by security.
func (t *Tracker) Histories() map[string][]HistoryRow {
	return t.histories
}

// IncrementAt returns the RVPS a security earns within the breakpoint at the
// given order, or zero when it does not participate there.
func (t *Tracker) IncrementAt(ref captable.SecurityRef, order int) decimal.Decimal {
	for _, row := range t.histories[ref.Key()] {
		if row.Order == order {
			return row.Increment
		}
	}
	return decimal.Zero
}

// CumulativeThrough returns a security's cumulative RVPS after the breakpoint
// at the given order.
func (t *Tracker) CumulativeThrough(ref captable.SecurityRef, order int) decimal.Decimal {
	cumulative := decimal.Zero
	for _, row := range t.histories[ref.Key()] {
		if row.Order > order {
			break
		}
		cumulative = row.CumulativeAfter
	}
	return cumulative
}

// FirstOrderReaching returns the earliest breakpoint order at which the
// security's cumulative RVPS reaches the threshold. The second return is
// false when the threshold is never reached within the bounded ranges.
func (t *Tracker) FirstOrderReaching(ref captable.SecurityRef, threshold decimal.Decimal) (int, bool) {
	for _, row := range t.histories[ref.Key()] {
		if row.CumulativeAfter.GreaterThanOrEqual(threshold) {
			return row.Order, true
		}
	}
	return 0, false
}

// ValueAt returns a security's cumulative RVPS at an arbitrary exit value by
// linear interpolation within the range containing it. Ranges fully below the
// exit contribute their whole section RVPS; the containing range contributes
// proportionally; the open-ended final range accrues at one dollar per
// participating share. This is what the circular-dependency solvers evaluate
// so candidate exits do not re-run the pipeline.
func (t *Tracker) ValueAt(ref captable.SecurityRef, exit decimal.Decimal) decimal.Decimal {
	cumulative := decimal.Zero
	for i := range t.breakpoints {
		bp := &t.breakpoints[i]
		participant := bp.FindParticipant(ref)
		if participant == nil {
			continue
		}
		if exit.LessThanOrEqual(bp.RangeFrom) {
			break
		}

		if bp.RangeTo != nil && exit.GreaterThanOrEqual(*bp.RangeTo) {
			cumulative = cumulative.Add(participant.SectionRVPS)
			continue
		}

		covered := exit.Sub(bp.RangeFrom)
		if bp.RangeTo != nil {
			width := bp.RangeTo.Sub(bp.RangeFrom)
			fraction := t.ctx.SafeDiv(covered, width, decimal.Zero)
			cumulative = cumulative.Add(participant.SectionRVPS.Mul(fraction))
		} else {
			cumulative = cumulative.Add(t.ctx.SafeDiv(covered, bp.TotalParticipatingShares, decimal.Zero))
		}
		break
	}
	return cumulative
}
