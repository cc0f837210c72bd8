// Package fuzzy implements approximate matching of company names, tickers
// and fiscal quarters between extracted and expected transcript data.
package fuzzy

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MatchType classifies how a company name comparison succeeded.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchFuzzy    MatchType = "fuzzy"
	MatchNone     MatchType = "none"
)

// legalSuffixes are common corporate suffixes stripped before comparison,
// so "Apple" matches "Apple Inc.".
var legalSuffixes = []string{
	"incorporated", "corporation", "company", "holdings", "technologies",
	"enterprises", "international", "industries", "limited", "group",
	"inc", "corp", "ltd", "llc", "plc", "co", "sa", "nv", "ag",
}

var (
	nonAlnum     = regexp.MustCompile(`[^a-z0-9 ]+`)
	multiSpace   = regexp.MustCompile(`\s+`)
	tickerShape  = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)
	quarterToken = regexp.MustCompile(`(?i)\bQ([1-4])\b`)
)

// NormalizeCompanyName lowercases and strips punctuation and extra spaces.
func NormalizeCompanyName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnum.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripLegalSuffixes removes trailing corporate suffixes from a normalized
// name. Repeats so "ABC Holdings Inc" reduces to "abc".
func StripLegalSuffixes(normalized string) string {
	words := strings.Fields(normalized)
	for len(words) > 1 {
		last := words[len(words)-1]
		stripped := false
		for _, suffix := range legalSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(words, " ")
}

// Ratio returns a 0..1 similarity from Levenshtein edit distance.
// 1 means identical, 0 means nothing in common.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// MatchCompanyName compares two company names after normalization and
// suffix stripping. The returned score is 1 for exact, the length ratio of
// the shorter to the longer string for containment, and the Levenshtein
// ratio for fuzzy matches at or above threshold.
func MatchCompanyName(extracted, expected string, threshold float64) (MatchType, float64) {
	a := StripLegalSuffixes(NormalizeCompanyName(extracted))
	b := StripLegalSuffixes(NormalizeCompanyName(expected))
	if a == "" || b == "" {
		return MatchNone, 0
	}
	if a == b {
		return MatchExact, 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return MatchContains, float64(shorter) / float64(longer)
	}
	if r := Ratio(a, b); r >= threshold {
		return MatchFuzzy, r
	}
	return MatchNone, 0
}

// MatchTicker compares tickers case-insensitively. Exact match only.
func MatchTicker(extracted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(extracted), strings.TrimSpace(expected))
}

// IsTickerShaped reports whether s looks like a 1-5 letter ticker with an
// optional class suffix like BRK.B.
func IsTickerShaped(s string) bool {
	return tickerShape.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// NormalizeQuarter extracts a canonical "Q1".."Q4" token from s, or ""
// when no recognizable quarter is present.
func NormalizeQuarter(s string) string {
	m := quarterToken.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return "Q" + m[1]
}

// MatchQuarter reports whether both strings carry the same quarter token.
func MatchQuarter(extracted, expected string) bool {
	a := NormalizeQuarter(extracted)
	b := NormalizeQuarter(expected)
	return a != "" && a == b
}

// QuarterNumber returns 1..4 for a recognizable quarter string, 0 otherwise.
func QuarterNumber(s string) int {
	switch NormalizeQuarter(s) {
	case "Q1":
		return 1
	case "Q2":
		return 2
	case "Q3":
		return 3
	case "Q4":
		return 4
	}
	return 0
}
