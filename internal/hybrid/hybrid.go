// Package hybrid implements probability-weighted valuation across named
// scenarios. Each scenario backsolves the enterprise value that achieves its
// target per-share value through the waterfall pipeline; outcomes are
// aggregated with probability-weighted statistics.
package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Eran5102/Valuation-sub004/internal/waterfall"
	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/datetime"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/solvers"
)

// Scenario is one probability-weighted outcome to evaluate. Either
// TargetFMV (a per-common-share value to backsolve) or EnterpriseValue (a
// direct exit value to allocate forward) must be positive. ExitDate and
// DiscountRate are optional; when present the scenario value is discounted to
// the valuation date with monthly compounding.
type Scenario struct {
	Name            string
	Probability     decimal.Decimal
	TargetFMV       decimal.Decimal
	EnterpriseValue decimal.Decimal
	ExitDate        string
	DiscountRate    decimal.Decimal
}

// Request carries the snapshot, scenarios, and global fallbacks for one
// hybrid valuation.
type Request struct {
	Snapshot       *captable.Snapshot
	Scenarios      []Scenario
	ValuationDate  string
	DiscountRate   decimal.Decimal
	SolverStrategy string
}

// Outcome is one scenario's evaluated result. A scenario that fails records
// Error, keeps zero values, and leaves Valid false without disturbing its
// siblings.
type Outcome struct {
	Name                 string          `json:"name"`
	Probability          decimal.Decimal `json:"probability"`
	Weight               decimal.Decimal `json:"weight"`
	EnterpriseValue      decimal.Decimal `json:"enterpriseValue"`
	PerShareValue        decimal.Decimal `json:"perShareValue"`
	PresentValue         decimal.Decimal `json:"presentValue"`
	WeightedContribution decimal.Decimal `json:"weightedContribution"`
	Solver               solvers.Result  `json:"solver"`
	Valid                bool            `json:"valid"`
	Error                string          `json:"error,omitempty"`
}

// Result aggregates every scenario outcome. Success requires all scenarios
// to produce valid allocations with no errors; partial failure is reported
// here, never raised.
type Result struct {
	RunID                  uuid.UUID       `json:"runId"`
	Success                bool            `json:"success"`
	WeightedMean           decimal.Decimal `json:"weightedMean"`
	Variance               decimal.Decimal `json:"variance"`
	StdDev                 decimal.Decimal `json:"stdDev"`
	CoefficientOfVariation decimal.Decimal `json:"coefficientOfVariation"`
	Percentile25           decimal.Decimal `json:"percentile25"`
	Percentile50           decimal.Decimal `json:"percentile50"`
	Percentile75           decimal.Decimal `json:"percentile75"`
	Outcomes               []Outcome       `json:"outcomes"`
	Warnings               []string        `json:"warnings,omitempty"`
	Errors                 []string        `json:"errors,omitempty"`
	Elapsed                time.Duration   `json:"elapsed"`

	Trail *audit.Trail `json:"-"`
}

// Orchestrator evaluates hybrid valuation requests. Scenarios run in
// parallel; each receives its own engine, cloned snapshot, and child audit
// trail.
type Orchestrator struct {
	logger *zap.Logger
	ctx    *mathutil.Context
}

// NewOrchestrator constructs a hybrid orchestrator.
func NewOrchestrator(logger *zap.Logger, ctx *mathutil.Context) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = mathutil.NewContext()
	}
	return &Orchestrator{logger: logger, ctx: ctx}
}

// NormalizeProbabilities validates scenario probabilities and converts them
// to weights summing to one. Sums within the tolerance window of 100% (on
// either the percent or the fraction scale) are accepted with a warning and
// rescaled; sums outside the window, and any negative probability, are
// rejected.
func NormalizeProbabilities(ctx *mathutil.Context, probabilities []decimal.Decimal) ([]decimal.Decimal, []string, error) {
	if len(probabilities) == 0 {
		return nil, nil, fmt.Errorf("at least one scenario probability is required")
	}

	sum := decimal.Zero
	for i, p := range probabilities {
		if p.IsNegative() {
			return nil, nil, fmt.Errorf("scenario %d has negative probability %s", i, p)
		}
		sum = sum.Add(p)
	}

	hundred := decimal.RequireFromString(constants.PercentageMultiplier)
	tolerance := decimal.RequireFromString(constants.ProbabilitySumTolerancePercent)
	one := decimal.NewFromInt(1)

	var target decimal.Decimal
	switch {
	case sum.Sub(hundred).Abs().LessThanOrEqual(tolerance):
		target = hundred
	case sum.Sub(one).Abs().LessThanOrEqual(tolerance.DivRound(hundred, ctx.Precision)):
		target = one
	default:
		return nil, nil, fmt.Errorf("scenario probabilities sum to %s, expected 100%% within ±%s%%", sum, tolerance)
	}

	var warnings []string
	if !sum.Equal(target) {
		warnings = append(warnings, fmt.Sprintf("scenario probabilities sum to %s; rescaled to %s", sum, target))
	}

	weights := make([]decimal.Decimal, len(probabilities))
	for i, p := range probabilities {
		weights[i] = ctx.SafeDiv(p, sum, decimal.Zero)
	}
	return weights, warnings, nil
}

// Run evaluates every scenario in parallel and aggregates the outcomes.
// Scenario-level failures (structural rejection, solver errors, panics from
// contract violations) are recorded on the result; Run itself returns an
// error only for an unusable request.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Snapshot == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	if len(req.Scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario is required")
	}

	start := time.Now()
	trail := audit.NewTrail(o.logger)
	result := &Result{RunID: trail.RunID, Trail: trail}

	probabilities := make([]decimal.Decimal, len(req.Scenarios))
	for i, scenario := range req.Scenarios {
		probabilities[i] = scenario.Probability
	}
	weights, warnings, err := NormalizeProbabilities(o.ctx, probabilities)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Elapsed = time.Since(start)
		trail.Error(audit.CategoryScenario, "probability validation failed", map[string]string{
			"error": err.Error(),
		})
		return result, nil
	}
	result.Warnings = append(result.Warnings, warnings...)
	for _, warning := range warnings {
		trail.Warning(audit.CategoryScenario, warning, nil)
	}

	outcomes := make([]Outcome, len(req.Scenarios))
	childTrails := make([]*audit.Trail, len(req.Scenarios))

	group, _ := errgroup.WithContext(ctx)
	for i := range req.Scenarios {
		i := i
		scenario := req.Scenarios[i]
		child := trail.Child()
		childTrails[i] = child
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome{
						Name:        scenario.Name,
						Probability: scenario.Probability,
						Weight:      weights[i],
						Error:       fmt.Sprintf("scenario panicked: %v", r),
					}
					child.Error(audit.CategoryScenario, "scenario computation panicked", map[string]string{
						"scenario": scenario.Name,
						"panic":    fmt.Sprintf("%v", r),
					})
				}
			}()
			outcomes[i] = o.evaluateScenario(req, scenario, weights[i], child)
			return nil
		})
	}
	// Goroutines never return errors; failures live in their outcomes.
	_ = group.Wait()

	for _, child := range childTrails {
		trail.Merge(child)
	}
	result.Outcomes = outcomes

	o.aggregate(result)
	result.Elapsed = time.Since(start)

	trail.Info(audit.CategorySummary, "hybrid valuation complete", map[string]string{
		"scenarios":    fmt.Sprintf("%d", len(outcomes)),
		"success":      fmt.Sprintf("%t", result.Success),
		"weightedMean": result.WeightedMean.String(),
	})
	o.logger.Info("hybrid valuation complete",
		zap.String("op", "hybrid.Orchestrator.Run"),
		zap.String("runId", result.RunID.String()),
		zap.Int("scenarios", len(outcomes)),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (o *Orchestrator) evaluateScenario(req Request, scenario Scenario, weight decimal.Decimal, trail *audit.Trail) Outcome {
	outcome := Outcome{
		Name:        scenario.Name,
		Probability: scenario.Probability,
		Weight:      weight,
	}

	engine := waterfall.NewEngine(o.logger, o.ctx, req.SolverStrategy)
	common := captable.CommonRef()

	switch {
	case scenario.EnterpriseValue.IsPositive():
		analysis, err := engine.Run(req.Snapshot)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		if !analysis.Structural.Valid() {
			outcome.Error = fmt.Sprintf("scenario %s: snapshot failed structural validation", scenario.Name)
			return outcome
		}
		trail.Merge(analysis.Trail)
		outcome.EnterpriseValue = scenario.EnterpriseValue
		outcome.PerShareValue = analysis.Tracker.ValueAt(common, scenario.EnterpriseValue)

	case scenario.TargetFMV.IsPositive():
		analysis, solved, err := engine.Backsolve(req.Snapshot, scenario.TargetFMV)
		if analysis != nil {
			trail.Merge(analysis.Trail)
		}
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Solver = solved
		if !solved.Converged {
			outcome.Error = fmt.Sprintf("scenario %s: backsolve did not converge after %d iterations", scenario.Name, solved.Iterations)
			return outcome
		}
		outcome.EnterpriseValue = solved.Value
		outcome.PerShareValue = scenario.TargetFMV

	default:
		outcome.Error = fmt.Sprintf("scenario %s: either targetFMV or enterpriseValue must be positive", scenario.Name)
		return outcome
	}

	factor, err := o.discountFactor(req, scenario)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.PresentValue = outcome.PerShareValue.Mul(factor)
	outcome.WeightedContribution = outcome.PresentValue.Mul(weight)
	outcome.Valid = true

	trail.Info(audit.CategoryScenario, "scenario evaluated", map[string]string{
		"scenario":        scenario.Name,
		"enterpriseValue": outcome.EnterpriseValue.String(),
		"perShareValue":   outcome.PerShareValue.String(),
		"presentValue":    outcome.PresentValue.String(),
		"weight":          weight.String(),
	})
	return outcome
}

// discountFactor returns 1/(1+r/12)^months for scenarios carrying an exit
// date, with scenario values falling back to request globals. Scenarios
// without dates or rates are worth face value.
func (o *Orchestrator) discountFactor(req Request, scenario Scenario) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)

	exitDate := scenario.ExitDate
	if exitDate == "" || req.ValuationDate == "" {
		return one, nil
	}
	rate := scenario.DiscountRate
	if rate.IsZero() {
		rate = req.DiscountRate
	}
	if rate.IsZero() {
		return one, nil
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("scenario %s: discount rate %s must be non-negative", scenario.Name, rate)
	}

	months, err := datetime.MonthsBetween(req.ValuationDate, exitDate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if months <= 0 {
		return one, nil
	}

	monthly := one.Add(rate.DivRound(decimal.NewFromInt(constants.MonthsPerYear), o.ctx.Precision))
	return o.ctx.SafeDiv(one, mathutil.PowInt(monthly, int64(months)), one), nil
}

func (o *Orchestrator) aggregate(result *Result) {
	values := make([]decimal.Decimal, 0, len(result.Outcomes))
	weights := make([]decimal.Decimal, 0, len(result.Outcomes))
	allValid := true

	for _, outcome := range result.Outcomes {
		if outcome.Error != "" {
			result.Errors = append(result.Errors, outcome.Error)
		}
		if !outcome.Valid {
			allValid = false
		}
		// Failed scenarios contribute zero value at their weight, keeping
		// the distribution over the full probability mass.
		values = append(values, outcome.PresentValue)
		weights = append(weights, outcome.Weight)
	}

	mean, err := o.ctx.WeightedAverage(values, weights)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Success = false
		return
	}
	result.WeightedMean = mean

	variance := decimal.Zero
	for i := range values {
		deviation := values[i].Sub(mean)
		variance = variance.Add(weights[i].Mul(deviation.Mul(deviation)))
	}
	result.Variance = variance
	if stddev, err := o.ctx.Sqrt(variance); err == nil {
		result.StdDev = stddev
		result.CoefficientOfVariation = o.ctx.SafeDiv(stddev, mean, decimal.Zero)
	}

	for _, p := range []struct {
		percentile int64
		target     *decimal.Decimal
	}{
		{25, &result.Percentile25},
		{50, &result.Percentile50},
		{75, &result.Percentile75},
	} {
		value, err := o.ctx.WeightedPercentile(values, weights, decimal.NewFromInt(p.percentile))
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		*p.target = value
	}

	result.Success = allValid && len(result.Errors) == 0
}
