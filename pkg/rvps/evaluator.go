package rvps

import (
	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/captable"
	"github.com/Eran5102/Valuation-sub004/pkg/solvers"
)

// Evaluator bridges a replayed tracker to the solvers' value interface:
// candidate exits are evaluated by interpolation against the assembled
// breakpoints instead of re-running the pipeline.
func (t *Tracker) Evaluator(ref captable.SecurityRef) solvers.ValueFunc {
	return func(exit decimal.Decimal) (decimal.Decimal, error) {
		return t.ValueAt(ref, exit), nil
	}
}

// Condition adapts the tracker to the bisection condition interface: true
// once the security's cumulative value per share reaches the threshold.
func (t *Tracker) Condition(ref captable.SecurityRef, threshold decimal.Decimal) solvers.ConditionFunc {
	return func(exit decimal.Decimal) (bool, error) {
		return t.ValueAt(ref, exit).GreaterThanOrEqual(threshold), nil
	}
}
