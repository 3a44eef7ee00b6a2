// Package waterfall orchestrates the single-snapshot analysis pipeline:
// structural validation, breakpoint analysis, cumulative RVPS tracking, and
// cross-breakpoint consistency validation.
package waterfall

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/breakpoints"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/rvps"
	"github.com/Eran5102/Valuation-sub004/pkg/solvers"
	"github.com/Eran5102/Valuation-sub004/pkg/validation"
)

// Analysis is the complete result of one waterfall run. When the snapshot
// fails structural validation, Structural carries the report, Valid is false,
// and every other field is empty; a blocked analysis is data, not an error.
type Analysis struct {
	RunID           uuid.UUID                   `json:"runId"`
	Valid           bool                        `json:"valid"`
	Breakpoints     []breakpoints.Breakpoint    `json:"breakpoints,omitempty"`
	ConversionSteps []breakpoints.ConversionStep `json:"conversionSteps,omitempty"`
	OptionSolutions []breakpoints.OptionSolution `json:"optionSolutions,omitempty"`
	Structural      validation.Report           `json:"structural"`
	Consistency     validation.Report           `json:"consistency"`
	Histories       map[string][]rvps.HistoryRow `json:"histories,omitempty"`
	Elapsed         time.Duration               `json:"elapsed"`

	Trail   *audit.Trail  `json:"-"`
	Tracker *rvps.Tracker `json:"-"`
}

// Engine runs waterfall analyses. Every run receives a cloned snapshot and
// fresh solver state, so a single Engine may serve many runs.
type Engine struct {
	logger   *zap.Logger
	ctx      *mathutil.Context
	strategy string
}

// NewEngine constructs an engine with the given solver strategy (empty means
// auto).
func NewEngine(logger *zap.Logger, ctx *mathutil.Context, strategy string) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	return &Engine{logger: logger, ctx: ctx, strategy: strategy}
}

// Run executes the full pipeline over the snapshot. Structural failure
// returns a report-only Analysis with Valid false and no error; errors are
// reserved for broken contracts inside the analyzers.
func (e *Engine) Run(snapshot *captable.Snapshot) (*Analysis, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}

	start := time.Now()
	snapshot = snapshot.Clone()
	trail := audit.NewTrail(e.logger)
	analysis := &Analysis{RunID: trail.RunID, Trail: trail}

	analysis.Structural = validation.ValidateSnapshot(e.logger, snapshot)
	if !analysis.Structural.Valid() {
		for _, check := range analysis.Structural.Failed() {
			trail.Error(audit.CategoryStructural, check.Message, map[string]string{
				"testName": check.TestName,
				"severity": check.Severity,
			})
		}
		analysis.Elapsed = time.Since(start)
		e.logger.Warn("analysis blocked by structural validation",
			zap.String("op", "waterfall.Engine.Run"),
			zap.String("runId", analysis.RunID.String()),
			zap.Int("failedChecks", len(analysis.Structural.Failed())),
		)
		return analysis, nil
	}
	trail.Info(audit.CategoryStructural, "structural validation passed", map[string]string{
		"checks": fmt.Sprintf("%d", len(analysis.Structural.Checks)),
	})

	orchestrator, err := solvers.NewOrchestrator(e.logger, e.ctx, e.strategy)
	if err != nil {
		return nil, err
	}

	result, err := breakpoints.Analyze(e.logger, e.ctx, snapshot, orchestrator, trail)
	if err != nil {
		return nil, fmt.Errorf("breakpoint analysis: %w", err)
	}
	analysis.Breakpoints = result.Breakpoints
	analysis.ConversionSteps = result.ConversionSteps
	analysis.OptionSolutions = result.OptionSolutions

	tracker := rvps.NewTracker(e.logger, e.ctx)
	if err := tracker.Replay(analysis.Breakpoints, trail); err != nil {
		return nil, fmt.Errorf("cumulative RVPS replay: %w", err)
	}
	analysis.Tracker = tracker
	analysis.Histories = tracker.Histories()

	analysis.Consistency = validation.ValidateConsistency(e.logger, e.ctx, snapshot, analysis.Breakpoints)
	for _, check := range analysis.Consistency.Failed() {
		trail.Record(check.Severity, audit.CategoryConsistency, check.Message, map[string]string{
			"testName": check.TestName,
		})
	}
	analysis.Valid = analysis.Consistency.Valid()
	analysis.Elapsed = time.Since(start)

	trail.Info(audit.CategorySummary, "waterfall analysis complete", map[string]string{
		"breakpoints": fmt.Sprintf("%d", len(analysis.Breakpoints)),
		"valid":       fmt.Sprintf("%t", analysis.Valid),
		"elapsed":     analysis.Elapsed.String(),
	})
	e.logger.Info("waterfall analysis complete",
		zap.String("op", "waterfall.Engine.Run"),
		zap.String("runId", analysis.RunID.String()),
		zap.Int("breakpoints", len(analysis.Breakpoints)),
		zap.Bool("valid", analysis.Valid),
		zap.Duration("elapsed", analysis.Elapsed),
	)
	return analysis, nil
}

// Backsolve finds the enterprise value at which the cumulative value per
// common share reaches the target. It runs the pipeline once and then solves
// against the tracker's point-in-time interpolation, so candidate exits never
// re-run the analyzers.
func (e *Engine) Backsolve(snapshot *captable.Snapshot, targetPerShare decimal.Decimal) (*Analysis, solvers.Result, error) {
	analysis, err := e.Run(snapshot)
	if err != nil {
		return nil, solvers.Result{}, err
	}
	if !analysis.Structural.Valid() {
		return analysis, solvers.Result{}, fmt.Errorf("snapshot failed structural validation")
	}

	orchestrator, err := solvers.NewOrchestrator(e.logger, e.ctx, e.strategy)
	if err != nil {
		return analysis, solvers.Result{}, err
	}

	value := analysis.Tracker.Evaluator(captable.CommonRef())

	totalLP := snapshot.TotalLiquidationPreference()
	guess := totalLP.Add(targetPerShare.Mul(snapshot.FullyDilutedShares()))
	boundUpper := mathutil.Max(
		totalLP.Mul(decimal.NewFromInt(constants.FallbackBoundMultiple)),
		guess.Mul(decimal.NewFromInt(constants.FallbackBoundMultiple)),
	)

	result, err := orchestrator.SolveForTarget(analysis.Trail, value, targetPerShare, guess, totalLP, boundUpper)
	if err != nil {
		return analysis, result, fmt.Errorf("backsolving enterprise value: %w", err)
	}
	return analysis, result, nil
}
