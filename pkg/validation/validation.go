// Package validation implements the three-layer transcript validation
// pipeline and the confidence-scoring decision engine.
//
// Layer 1 checks the shape of extracted data, layer 2 checks it against
// the caller's expectation, layer 3 cross-references external reference
// data (authoritative dates, previously stored content). All layers are
// pure; only the decision engine joins their results.
package validation

import "time"

// Config carries the tunable thresholds of all three layers.
type Config struct {
	// MinWordCount is the lower bound for a full transcript. Shorter
	// content is likely a preview page.
	MinWordCount int
	// MinFiscalYear bounds the plausible fiscal-year range from below;
	// the upper bound is always currentYear+1.
	MinFiscalYear int
	// FuzzyThreshold is the minimum Levenshtein ratio for a company-name
	// fuzzy match.
	FuzzyThreshold float64
	// NearDupThreshold is the Jaccard similarity at which a stored record
	// counts as a near-duplicate.
	NearDupThreshold float64
	// DateTolerance is the window around the expected date inside which a
	// call date cross-references cleanly.
	DateTolerance time.Duration
	// RequireExactDate escalates out-of-tolerance dates from minor to major.
	RequireExactDate bool
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinWordCount:     1000,
		MinFiscalYear:    2000,
		FuzzyThreshold:   0.7,
		NearDupThreshold: 0.8,
		DateTolerance:    24 * time.Hour,
		RequireExactDate: false,
	}
}
