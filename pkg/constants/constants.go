// Package constants provides shared constants for the capwaterfall application.
package constants

// DateTimeLayout is the month format expected in config files and is also the
// output date format for valuation and exit dates.
const DateTimeLayout = "2006-01"

// Decimal arithmetic constants
const (
	// DivisionPrecision is the number of decimal digits carried through
	// division and root operations.
	DivisionPrecision = 28

	// CurrencyScale is the number of decimal places used when rounding
	// monetary amounts for display and comparison.
	CurrencyScale = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = "0.01"

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = "100"
)

// Solver constants
const (
	// DefaultSolverTolerance is the residual magnitude below which a solver
	// run counts as converged.
	DefaultSolverTolerance = "0.01"

	// DefaultNewtonMaxIterations bounds Newton-Raphson iteration.
	DefaultNewtonMaxIterations = 50

	// DefaultBisectionMaxIterations bounds bisection iteration.
	DefaultBisectionMaxIterations = 100

	// MinSolverStep is the smallest step Newton-Raphson will take.
	MinSolverStep = "0.001"

	// MaxSolverStep clamps runaway Newton-Raphson steps.
	MaxSolverStep = "1000000000"

	// FallbackBoundMultiple sizes the default bisection interval
	// [totalLP, totalLP*FallbackBoundMultiple] when Newton-Raphson fails.
	FallbackBoundMultiple = 10
)

// Breakpoint analysis constants
const (
	// DeMinimisStrike is the strike price at or below which an option pool is
	// treated as exercised from the start of pro-rata distribution rather
	// than producing its own exercise breakpoint.
	DeMinimisStrike = "0.01"
)

// Hybrid scenario constants
const (
	// ProbabilitySumTolerancePercent is how far from 100% scenario
	// probabilities may sum while still being accepted (with a warning and
	// rescale). Sums outside this window are rejected.
	ProbabilitySumTolerancePercent = "5"

	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Audit export format constants
const (
	AuditFormatText     = "text"
	AuditFormatJSON     = "json"
	AuditFormatMarkdown = "markdown"
	AuditFormatCSV      = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
