// Package tax maps VAT rates to UN/CEFACT 5305 tax category codes as used in
// Peppol BIS Billing 3.0 documents.
package tax

// Category codes from the UNCL5305 subset accepted by Peppol.
const (
	CategoryStandard = "S"  // standard rate
	CategoryZero     = "Z"  // zero rated goods
	CategoryExempt   = "E"  // exempt from tax
	CategoryReduced  = "AA" // lower rate
)

// zeroEpsilon treats rates at or below this value as zero, so float noise
// from upstream computations never produces a bogus reduced-rate code.
const zeroEpsilon = 0.0001

// Category derives the tax category code for a VAT rate (percentage, e.g. 21
// for 21%) and an exemption flag. Exemption wins over the rate. Rates below
// the Belgian standard 21% all map to the lower-rate bucket.
func Category(rate float64, exempt bool) string {
	if exempt {
		return CategoryExempt
	}
	if rate <= zeroEpsilon {
		return CategoryZero
	}
	if rate < 21 {
		return CategoryReduced
	}
	return CategoryStandard
}
