package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fuzzy"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// earningsVocabulary is the fixed keyword list used to sanity-check that
// the content reads like an earnings call.
var earningsVocabulary = []string{
	"revenue", "earnings", "guidance", "margin", "outlook", "quarter",
	"fiscal", "growth", "operating income", "cash flow", "eps",
	"year-over-year", "forecast", "shareholders", "dividend",
}

// executiveKeywords signal prepared remarks by named officers.
var executiveKeywords = []string{
	"chief executive officer", "chief financial officer", "ceo", "cfo",
	"president", "chief operating officer",
}

// qaKeywords signal the analyst question-and-answer section.
var qaKeywords = []string{
	"question-and-answer", "q&a", "analyst", "your line is open",
	"next question",
}

// Layer2 validates extracted data against the caller-supplied expectation.
// It tolerates a single major discrepancy: passed means zero critical
// errors and at most one major error.
func Layer2(data *transcript.Extracted, expected *transcript.Expected, cfg Config) transcript.Result {
	res := transcript.Result{Metadata: map[string]string{"layer": "semantic"}}

	res.Check("company_name_match")
	matchType, score := fuzzy.MatchCompanyName(data.CompanyName, expected.CompanyName, cfg.FuzzyThreshold)
	res.Metadata["companyMatchType"] = string(matchType)
	res.Metadata["companyMatchScore"] = fmt.Sprintf("%.2f", score)
	if matchType == fuzzy.MatchNone {
		res.AddError("companyName", expected.CompanyName, data.CompanyName,
			transcript.SeverityMajor,
			fmt.Sprintf("company name does not match expectation (best ratio below %.2f)", cfg.FuzzyThreshold))
	}

	res.Check("ticker_match")
	if !fuzzy.MatchTicker(data.Ticker, expected.Ticker) {
		res.AddError("ticker", expected.Ticker, data.Ticker,
			transcript.SeverityMajor, "ticker does not match expectation")
	}

	res.Check("quarter_match")
	if !fuzzy.MatchQuarter(data.Quarter, expected.Quarter) {
		res.AddError("quarter", expected.Quarter, data.Quarter,
			transcript.SeverityMajor, "quarter does not match expectation")
	}

	res.Check("fiscal_year_match")
	if expected.FiscalYear != 0 && data.FiscalYear != expected.FiscalYear {
		diff := data.FiscalYear - expected.FiscalYear
		if diff == 1 || diff == -1 {
			// Fiscal-year-offset companies legitimately report one year off
			// the calendar; warn, never correct.
			res.AddWarning("fiscalYear",
				fmt.Sprintf("fiscal year %d is one off expected %d, possibly a non-calendar fiscal year", data.FiscalYear, expected.FiscalYear),
				transcript.WarnLevelWarning)
		} else {
			res.AddError("fiscalYear", strconv.Itoa(expected.FiscalYear), strconv.Itoa(data.FiscalYear),
				transcript.SeverityMajor, "fiscal year differs from expectation by more than one")
		}
	}

	res.Check("date_plausibility")
	if callDate, err := dates.Parse(data.CallDate); err == nil {
		q := fuzzy.QuarterNumber(expected.Quarter)
		if q == 0 {
			q = fuzzy.QuarterNumber(data.Quarter)
		}
		year := expected.FiscalYear
		if year == 0 {
			year = data.FiscalYear
		}
		if q != 0 && year != 0 && !dates.PlausibleCallDate(q, year, callDate) {
			res.AddError("callDate",
				fmt.Sprintf("call in reporting window of Q%d FY%d", q, year),
				callDate.Format("2006-01-02"),
				transcript.SeverityMajor,
				"call date falls outside the plausible reporting window for the quarter")
		}
	}

	res.Check("content_keywords")
	checkVocabulary(&res, data.Content)

	res.Check("title_consistency")
	if data.Title != "" && expected.Ticker != "" &&
		!strings.Contains(strings.ToUpper(data.Title), strings.ToUpper(expected.Ticker)) {
		res.AddWarning("title", "title does not mention the expected ticker", transcript.WarnLevelWarning)
	}

	res.Check("participant_quality")
	if n := len(data.Participants); n > 0 && n < 2 {
		res.AddWarning("participants", "fewer than two participants extracted", transcript.WarnLevelInfo)
	}

	criticals := res.CountBySeverity(transcript.SeverityCritical)
	majors := res.CountBySeverity(transcript.SeverityMajor)
	res.Passed = criticals == 0 && majors <= 1
	return res
}

// checkVocabulary counts earnings-vocabulary hits in the content. A low
// hit ratio suggests the page is not actually a transcript.
func checkVocabulary(res *transcript.Result, content string) {
	lower := strings.ToLower(content)

	hits := 0
	for _, kw := range earningsVocabulary {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(earningsVocabulary))
	res.Metadata["vocabularyHitRatio"] = fmt.Sprintf("%.2f", ratio)

	switch {
	case ratio < 0.3:
		res.AddError("content",
			">= 30% earnings vocabulary", fmt.Sprintf("%.0f%%", ratio*100),
			transcript.SeverityMajor, "content may not be an earnings-call transcript")
	case ratio < 0.5:
		res.AddWarning("content", "earnings vocabulary coverage is low", transcript.WarnLevelWarning)
	}

	if !containsAny(lower, executiveKeywords) {
		res.AddWarning("content", "no executive-title keywords found", transcript.WarnLevelWarning)
	}
	if !containsAny(lower, qaKeywords) {
		res.AddWarning("content", "no Q&A or analyst keywords found", transcript.WarnLevelWarning)
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
