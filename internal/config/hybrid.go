package config

import (
	"fmt"
	"time"
)

// HybridConfig configures probability-weighted multi-scenario valuation.
type HybridConfig struct {
	ValuationDate string           `yaml:"valuationDate,omitempty"` // falls back to company.valuationDate
	DiscountRate  float64          `yaml:"discountRate,omitempty"`  // annual, e.g. 0.25
	Scenarios     []ScenarioConfig `yaml:"scenarios"`
}

// ScenarioConfig is one probability-weighted scenario. Exactly one of
// targetFMV (per-common-share value to backsolve) or enterpriseValue (direct
// exit value) should be positive.
type ScenarioConfig struct {
	Name            string  `yaml:"name"`
	Probability     float64 `yaml:"probability"`
	TargetFMV       float64 `yaml:"targetFMV,omitempty"`
	EnterpriseValue float64 `yaml:"enterpriseValue,omitempty"`
	ExitDate        string  `yaml:"exitDate,omitempty"` // YYYY-MM
	DiscountRate    float64 `yaml:"discountRate,omitempty"`
}

// Normalize fills the valuation date from the company section when absent.
func (h *HybridConfig) Normalize(companyValuationDate string) {
	if h.ValuationDate == "" {
		h.ValuationDate = companyValuationDate
	}
}

// Validate returns config-level warnings. Probability normalization proper
// happens in the hybrid orchestrator; these warnings catch obvious YAML
// mistakes.
func (h *HybridConfig) Validate() []string {
	var warnings []string

	if len(h.Scenarios) == 0 {
		warnings = append(warnings, "hybrid section has no scenarios")
	}

	sum := 0.0
	for _, scenario := range h.Scenarios {
		sum += scenario.Probability
		if scenario.Name == "" {
			warnings = append(warnings, "hybrid scenario has no name")
		}
		if scenario.TargetFMV > 0 && scenario.EnterpriseValue > 0 {
			warnings = append(warnings, fmt.Sprintf("scenario %s sets both targetFMV and enterpriseValue; enterpriseValue wins", scenario.Name))
		}
		if scenario.TargetFMV <= 0 && scenario.EnterpriseValue <= 0 {
			warnings = append(warnings, fmt.Sprintf("scenario %s sets neither targetFMV nor enterpriseValue", scenario.Name))
		}
		if scenario.ExitDate != "" {
			if _, err := time.Parse(DateTimeLayout, scenario.ExitDate); err != nil {
				warnings = append(warnings, fmt.Sprintf("scenario %s exitDate %q is not in %s format", scenario.Name, scenario.ExitDate, DateTimeLayout))
			}
		}
	}
	if len(h.Scenarios) > 0 && (sum < 95 || sum > 105) && (sum < 0.95 || sum > 1.05) {
		warnings = append(warnings, fmt.Sprintf("scenario probabilities sum to %g; the orchestrator will reject sums outside ±5%% of 100%%", sum))
	}
	return warnings
}
