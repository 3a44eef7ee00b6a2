// Package adapters provides adapter implementations between different package interfaces.
package adapters

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/internal/config"
	"github.com/Eran5102/Valuation-sub004/internal/hybrid"
	"github.com/Eran5102/Valuation-sub004/pkg/captable"
)

// SnapshotFromConfig maps the YAML cap-table form onto the domain snapshot:
// preference-type strings become enums (with the participation boolean as a
// fallback for inputs that never recorded a type), and every float becomes a
// decimal before any arithmetic touches it. Unknown preference types are
// construction errors; the structural validator never sees them.
func SnapshotFromConfig(capTable config.CapTableConfig) (*captable.Snapshot, error) {
	snapshot := &captable.Snapshot{
		Common: captable.CommonStock{
			SharesOutstanding: decimal.NewFromFloat(capTable.Common.SharesOutstanding),
		},
	}

	for _, series := range capTable.Preferred {
		preference, err := preferenceTypeFromConfig(series)
		if err != nil {
			return nil, err
		}
		snapshot.Preferred = append(snapshot.Preferred, captable.PreferredClass{
			Name:                series.Name,
			SharesOutstanding:   decimal.NewFromFloat(series.SharesOutstanding),
			PricePerShare:       decimal.NewFromFloat(series.PricePerShare),
			LiquidationMultiple: decimal.NewFromFloat(series.LiquidationMultiple),
			SeniorityRank:       series.SeniorityRank,
			Preference:          preference,
			ParticipationCap:    decimal.NewFromFloat(series.ParticipationCap),
			ConversionRatio:     decimal.NewFromFloat(series.ConversionRatio),
		})
	}

	for _, grant := range capTable.Options {
		snapshot.Options = append(snapshot.Options, captable.OptionGrant{
			PoolName:    grant.PoolName,
			OptionCount: decimal.NewFromFloat(grant.OptionCount),
			StrikePrice: decimal.NewFromFloat(grant.StrikePrice),
			VestedCount: decimal.NewFromFloat(grant.VestedCount),
		})
	}

	return snapshot, nil
}

func preferenceTypeFromConfig(series config.PreferredSeriesConfig) (captable.PreferenceType, error) {
	switch series.PreferenceType {
	case string(captable.NonParticipating):
		return captable.NonParticipating, nil
	case string(captable.Participating):
		return captable.Participating, nil
	case string(captable.ParticipatingWithCap):
		return captable.ParticipatingWithCap, nil
	case "":
		// Participation boolean fallback for sources that predate typed
		// preference records.
		if series.Participating != nil && *series.Participating {
			if series.ParticipationCap > 0 {
				return captable.ParticipatingWithCap, nil
			}
			return captable.Participating, nil
		}
		return captable.NonParticipating, nil
	default:
		return "", fmt.Errorf("series %s has unknown preference type %q", series.Name, series.PreferenceType)
	}
}

// ScenariosFromConfig maps the hybrid YAML section onto orchestrator
// scenarios.
func ScenariosFromConfig(hybridConfig *config.HybridConfig) []hybrid.Scenario {
	if hybridConfig == nil {
		return nil
	}

	scenarios := make([]hybrid.Scenario, 0, len(hybridConfig.Scenarios))
	for _, scenario := range hybridConfig.Scenarios {
		scenarios = append(scenarios, hybrid.Scenario{
			Name:            scenario.Name,
			Probability:     decimal.NewFromFloat(scenario.Probability),
			TargetFMV:       decimal.NewFromFloat(scenario.TargetFMV),
			EnterpriseValue: decimal.NewFromFloat(scenario.EnterpriseValue),
			ExitDate:        scenario.ExitDate,
			DiscountRate:    decimal.NewFromFloat(scenario.DiscountRate),
		})
	}
	return scenarios
}
