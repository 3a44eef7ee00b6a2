package config

import (
	"fmt"
	"strings"
)

// CapTableConfig is the YAML form of a capitalization table. Numeric money
// and share fields are plain floats at this boundary; the adapters package
// converts them to decimals before any arithmetic.
type CapTableConfig struct {
	Preferred []PreferredSeriesConfig `yaml:"preferred,omitempty"`
	Common    CommonConfig            `yaml:"common"`
	Options   []OptionGrantConfig     `yaml:"options,omitempty"`
}

// PreferredSeriesConfig describes one preferred series. PreferenceType is
// the canonical field; the Participating boolean is a fallback for inputs
// that only record whether the series participates.
type PreferredSeriesConfig struct {
	Name                string  `yaml:"name"`
	SharesOutstanding   float64 `yaml:"sharesOutstanding"`
	PricePerShare       float64 `yaml:"pricePerShare"`
	LiquidationMultiple float64 `yaml:"liquidationMultiple,omitempty"`
	SeniorityRank       int     `yaml:"seniorityRank"`
	PreferenceType      string  `yaml:"preferenceType,omitempty"`
	Participating       *bool   `yaml:"participating,omitempty"`
	ParticipationCap    float64 `yaml:"participationCap,omitempty"`
	ConversionRatio     float64 `yaml:"conversionRatio,omitempty"`
	DividendsType       string  `yaml:"dividendsType,omitempty"`
}

// CommonConfig is the aggregate common position.
type CommonConfig struct {
	SharesOutstanding float64 `yaml:"sharesOutstanding"`
}

// OptionGrantConfig describes one option pool.
type OptionGrantConfig struct {
	PoolName    string  `yaml:"poolName"`
	OptionCount float64 `yaml:"optionCount"`
	StrikePrice float64 `yaml:"strikePrice"`
	VestedCount float64 `yaml:"vestedCount,omitempty"`
}

// Normalize applies defaults: liquidation multiple and conversion ratio
// default to 1, unvested grants default to fully vested, and dividends type
// strings are lowered for comparison.
func (c *CapTableConfig) Normalize() {
	for i := range c.Preferred {
		series := &c.Preferred[i]
		if series.LiquidationMultiple == 0 {
			series.LiquidationMultiple = 1
		}
		if series.ConversionRatio == 0 {
			series.ConversionRatio = 1
		}
		series.PreferenceType = strings.ToLower(strings.TrimSpace(series.PreferenceType))
		series.DividendsType = strings.ToLower(strings.TrimSpace(series.DividendsType))
	}
	for i := range c.Options {
		if c.Options[i].VestedCount == 0 {
			c.Options[i].VestedCount = c.Options[i].OptionCount
		}
	}
}

// Validate returns config-level warnings. Structural validation of the
// resulting snapshot is the authoritative gate; these warnings catch YAML
// mistakes early with friendlier context.
func (c *CapTableConfig) Validate() []string {
	var warnings []string

	for _, series := range c.Preferred {
		if series.PreferenceType == "" && series.Participating == nil {
			warnings = append(warnings, fmt.Sprintf("series %s has neither preferenceType nor participating; defaulting to non-participating", series.Name))
		}
		if series.ParticipationCap > 0 && series.PreferenceType != "participating-with-cap" {
			warnings = append(warnings, fmt.Sprintf("series %s sets participationCap but preferenceType is %q", series.Name, series.PreferenceType))
		}
		switch series.DividendsType {
		case "", "none", "cumulative", "non-cumulative":
		default:
			warnings = append(warnings, fmt.Sprintf("series %s has unrecognized dividendsType %q", series.Name, series.DividendsType))
		}
	}
	for _, grant := range c.Options {
		if grant.VestedCount > grant.OptionCount {
			warnings = append(warnings, fmt.Sprintf("option pool %s has vestedCount %g above optionCount %g", grant.PoolName, grant.VestedCount, grant.OptionCount))
		}
	}
	return warnings
}
