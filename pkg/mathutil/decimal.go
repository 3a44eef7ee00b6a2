// Package mathutil provides high-precision decimal arithmetic utilities.
// All monetary and share quantities in the application are decimal.Decimal;
// float64 is never used for money or shares.
package mathutil

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

// Context carries the precision and tolerance settings for decimal
// calculations. It replaces any package-global decimal configuration: every
// component receives a Context explicitly and performs division and root
// operations at Context.Precision.
type Context struct {
	// Precision is the number of decimal digits carried through division
	// and root operations.
	Precision int32

	// Tolerance is the magnitude below which two values are considered
	// equal (one cent by default).
	Tolerance decimal.Decimal
}

// NewContext returns a Context with the application defaults: 28-digit
// division precision and a one-cent comparison tolerance.
func NewContext() *Context {
	return &Context{
		Precision: constants.DivisionPrecision,
		Tolerance: decimal.RequireFromString(constants.CurrencyTolerance),
	}
}

// NewContextWith returns a Context with explicit precision and tolerance.
// Non-positive precision falls back to the default.
func NewContextWith(precision int32, tolerance decimal.Decimal) *Context {
	if precision <= 0 {
		precision = constants.DivisionPrecision
	}
	if tolerance.IsNegative() {
		tolerance = tolerance.Abs()
	}
	return &Context{Precision: precision, Tolerance: tolerance}
}

// SafeDiv divides num by den at context precision, returning fallback when
// the divisor is zero instead of panicking.
func (c *Context) SafeDiv(num, den, fallback decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return fallback
	}
	return num.DivRound(den, c.Precision)
}

// ProRataShare returns part/total as a fraction, or zero when total is zero.
func (c *Context) ProRataShare(part, total decimal.Decimal) decimal.Decimal {
	return c.SafeDiv(part, total, decimal.Zero)
}

// Percentage returns what percentage value is of total, or zero when total
// is zero.
func (c *Context) Percentage(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.DivRound(total, c.Precision).Mul(decimal.RequireFromString(constants.PercentageMultiplier))
}

// Equal reports whether a and b are within the context tolerance of each
// other.
func (c *Context) Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(c.Tolerance)
}

// IsZero reports whether d is effectively zero (within tolerance).
func (c *Context) IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(c.Tolerance)
}

// IsPositive reports whether d is positive beyond tolerance.
func (c *Context) IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(c.Tolerance)
}

// IsNegative reports whether d is negative beyond tolerance.
func (c *Context) IsNegative(d decimal.Decimal) bool {
	return d.LessThan(c.Tolerance.Neg())
}

// WithinTolerance reports whether a and b are within the specified tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance.Abs())
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Clamp bounds d to the interval [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Sum adds a slice of decimals.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Round rounds a value to currency scale (two decimals, half away from
// zero). Used for making logical comparisons and display values.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(constants.CurrencyScale)
}

// WeightedAverage computes sum(values[i]*weights[i]) / sum(weights).
// It returns an error when the slices differ in length or the weights sum
// to zero.
func (c *Context) WeightedAverage(values, weights []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) != len(weights) {
		return decimal.Zero, fmt.Errorf("weighted average requires equal lengths, got %d values and %d weights", len(values), len(weights))
	}
	weightedSum := decimal.Zero
	weightTotal := decimal.Zero
	for i := range values {
		weightedSum = weightedSum.Add(values[i].Mul(weights[i]))
		weightTotal = weightTotal.Add(weights[i])
	}
	if weightTotal.IsZero() {
		return decimal.Zero, fmt.Errorf("weighted average requires non-zero total weight")
	}
	return weightedSum.DivRound(weightTotal, c.Precision), nil
}

// WeightedPercentile returns the percentile (0-100) of values under the
// given weights using the cumulative lower-bound method: the smallest value
// whose cumulative weight reaches percentile/100 of the total weight.
// The values must be supplied with their weights aligned by index; they do
// not need to be sorted.
func (c *Context) WeightedPercentile(values, weights []decimal.Decimal, percentile decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("weighted percentile requires at least one value")
	}
	if len(values) != len(weights) {
		return decimal.Zero, fmt.Errorf("weighted percentile requires equal lengths, got %d values and %d weights", len(values), len(weights))
	}
	if percentile.IsNegative() || percentile.GreaterThan(decimal.RequireFromString(constants.PercentageMultiplier)) {
		return decimal.Zero, fmt.Errorf("percentile must be between 0 and 100, got %s", percentile)
	}

	type pair struct {
		value  decimal.Decimal
		weight decimal.Decimal
	}
	pairs := make([]pair, len(values))
	for i := range values {
		if weights[i].IsNegative() {
			return decimal.Zero, fmt.Errorf("weights must be non-negative, got %s", weights[i])
		}
		pairs[i] = pair{value: values[i], weight: weights[i]}
	}
	// Insertion sort by value; the inputs are small scenario sets.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].value.LessThan(pairs[j-1].value); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	totalWeight := decimal.Zero
	for _, p := range pairs {
		totalWeight = totalWeight.Add(p.weight)
	}
	if totalWeight.IsZero() {
		return decimal.Zero, fmt.Errorf("weighted percentile requires non-zero total weight")
	}

	target := totalWeight.Mul(percentile).DivRound(decimal.RequireFromString(constants.PercentageMultiplier), c.Precision)
	cumulative := decimal.Zero
	for _, p := range pairs {
		cumulative = cumulative.Add(p.weight)
		if cumulative.GreaterThanOrEqual(target) {
			return p.value, nil
		}
	}
	return pairs[len(pairs)-1].value, nil
}

// Sqrt computes the square root of d by Newton iteration at context
// precision. Negative inputs return an error.
func (c *Context) Sqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("square root of negative value %s", d)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}

	// Work a few digits beyond the context precision so the final rounding
	// is stable.
	working := c.Precision + 4
	two := decimal.NewFromInt(2)
	guess := d.DivRound(two, working)
	if guess.IsZero() {
		guess = d
	}
	limit := decimal.New(1, -working)

	for i := 0; i < 100; i++ {
		next := guess.Add(d.DivRound(guess, working)).DivRound(two, working)
		if next.Sub(guess).Abs().LessThanOrEqual(limit) {
			guess = next
			break
		}
		guess = next
	}
	return guess.Round(c.Precision), nil
}

// PowInt raises base to a non-negative integer exponent.
func PowInt(base decimal.Decimal, exp int64) decimal.Decimal {
	if exp <= 0 {
		return decimal.NewFromInt(1)
	}
	return base.Pow(decimal.NewFromInt(exp))
}
