// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds all configuration for capwaterfall.
type Configuration struct {
	Company  CompanyConfig  `yaml:"company,omitempty"`
	CapTable CapTableConfig `yaml:"capTable"`
	Solver   SolverConfig   `yaml:"solver,omitempty"`
	Hybrid   *HybridConfig  `yaml:"hybrid,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Audit    AuditConfig    `yaml:"audit,omitempty"`
}

// CompanyConfig identifies the company and valuation date for a run.
type CompanyConfig struct {
	Name          string `yaml:"name,omitempty"`
	ValuationDate string `yaml:"valuationDate,omitempty"` // YYYY-MM
}

// SolverConfig tunes the circular-dependency solvers.
type SolverConfig struct {
	Strategy      string  `yaml:"strategy,omitempty"` // newton_raphson, binary_search, auto
	Tolerance     float64 `yaml:"tolerance,omitempty"`
	MaxIterations int     `yaml:"maxIterations,omitempty"`
	Precision     int     `yaml:"precision,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// AuditConfig controls audit-trail export.
type AuditConfig struct {
	Format string `yaml:"format,omitempty"` // text, json, markdown, csv
	File   string `yaml:"file,omitempty"`   // optional export path
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	return &configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from an
// in-memory reader, as used by the HTTP API.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	return &configuration, nil
}

// Normalize applies defaults across every section.
func (c *Configuration) Normalize() {
	c.CapTable.Normalize()
	if c.Hybrid != nil {
		c.Hybrid.Normalize(c.Company.ValuationDate)
	}
	if c.Solver.Strategy == "" {
		c.Solver.Strategy = "auto"
	}
}

// Validate performs general validation of the configuration and returns
// warnings. Hard failures surface later as structural validation errors; the
// warnings here catch config-level mistakes before any analysis runs.
func (c *Configuration) Validate() []string {
	var warnings []string

	if len(c.CapTable.Preferred) == 0 {
		warnings = append(warnings, "cap table has no preferred series; analysis reduces to common and options only")
	}
	if c.CapTable.Common.SharesOutstanding <= 0 {
		warnings = append(warnings, "cap table has no common shares outstanding")
	}
	if c.Company.ValuationDate != "" {
		if _, err := time.Parse(DateTimeLayout, c.Company.ValuationDate); err != nil {
			warnings = append(warnings, fmt.Sprintf("company valuationDate %q is not in %s format", c.Company.ValuationDate, DateTimeLayout))
		}
	}

	warnings = append(warnings, c.CapTable.Validate()...)
	if c.Hybrid != nil {
		warnings = append(warnings, c.Hybrid.Validate()...)
	}
	return warnings
}
