// internal/rules/compare.go
package rules

import (
	"math"
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

/*
 * Value comparison for attribute checks.
 *
 * Numeric attributes compare within a unit tolerance chosen by the
 * attribute name suffix: _pt uses the point tolerance, _cm the centimeter
 * tolerance, everything else (line spacing multipliers) the float
 * tolerance. Booleans and enum strings compare exactly.
 */

// epsilon absorbs float noise from twip conversions at the tolerance edge.
const epsilon = 1e-9

// WithinTolerance reports whether actual is within tol of expected.
func WithinTolerance(expected, actual, tol float64) bool {
	return math.Abs(expected-actual) <= tol+epsilon
}

// ToleranceFor returns the tolerance that applies to attribute name.
func ToleranceFor(name string, tol types.Tolerances) float64 {
	switch {
	case strings.HasSuffix(name, "_pt"):
		return tol.Points
	case strings.HasSuffix(name, "_cm"):
		return tol.Centimeters
	default:
		return tol.Float
	}
}
