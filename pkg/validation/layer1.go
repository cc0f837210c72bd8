package validation

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fuzzy"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// Layer1 validates the shape of extracted data independent of any
// expectation. Passes when no critical error is present.
func Layer1(data *transcript.Extracted, cfg Config) transcript.Result {
	res := transcript.Result{Metadata: map[string]string{"layer": "extraction"}}

	res.Check("content_present")
	if data.Content == "" {
		res.AddError("content", "non-empty transcript text", "",
			transcript.SeverityCritical, "no content was extracted")
	}

	res.Check("word_count")
	if data.WordCount < cfg.MinWordCount {
		res.AddError("wordCount",
			fmt.Sprintf(">= %d", cfg.MinWordCount),
			strconv.Itoa(data.WordCount),
			transcript.SeverityCritical,
			"content too short for a full transcript, likely a preview")
	}

	res.Check("company_name_present")
	if data.CompanyName == "" {
		res.AddError("companyName", "non-empty", "",
			transcript.SeverityCritical, "company name missing")
	}

	res.Check("quarter_token")
	if fuzzy.NormalizeQuarter(data.Quarter) == "" {
		res.AddError("quarter", "Q1-Q4", data.Quarter,
			transcript.SeverityCritical, "quarter is not a recognizable Q1-Q4 token")
	}

	res.Check("fiscal_year_range")
	maxYear := time.Now().Year() + 1
	if data.FiscalYear == 0 {
		res.AddError("fiscalYear", fmt.Sprintf("%d-%d", cfg.MinFiscalYear, maxYear), "",
			transcript.SeverityCritical, "fiscal year missing")
	} else if data.FiscalYear < cfg.MinFiscalYear || data.FiscalYear > maxYear {
		res.AddError("fiscalYear",
			fmt.Sprintf("%d-%d", cfg.MinFiscalYear, maxYear),
			strconv.Itoa(data.FiscalYear),
			transcript.SeverityCritical, "fiscal year out of plausible range")
	}

	res.Check("ticker_shape")
	if data.Ticker == "" {
		res.AddError("ticker", "1-5 letter symbol", "",
			transcript.SeverityMajor, "ticker missing")
	} else if !fuzzy.IsTickerShaped(data.Ticker) {
		res.AddError("ticker", "1-5 letters with optional .X suffix", data.Ticker,
			transcript.SeverityMajor, "ticker does not match expected pattern")
	}

	res.Check("call_date_parseable")
	if data.CallDate == "" {
		res.AddError("callDate", "parseable date", "",
			transcript.SeverityMajor, "call date missing")
	} else if _, err := dates.Parse(data.CallDate); err != nil {
		res.AddError("callDate", "parseable date", data.CallDate,
			transcript.SeverityMajor, "call date could not be parsed")
	}

	res.Check("participants_present")
	if len(data.Participants) == 0 {
		res.AddError("participants", ">= 2 participants", "0",
			transcript.SeverityMinor, "no call participants extracted")
	} else if len(data.Participants) < 2 {
		res.AddWarning("participants",
			"only one participant extracted, expected at least two",
			transcript.WarnLevelWarning)
	}

	res.Check("title_present")
	if data.Title == "" {
		res.AddError("title", "non-empty", "",
			transcript.SeverityMinor, "page title missing")
	}

	res.Check("source_url_valid")
	if u, err := url.Parse(data.SourceURL); err != nil || u.Host == "" {
		res.AddError("sourceUrl", "absolute URL", data.SourceURL,
			transcript.SeverityMinor, "source URL malformed")
	}

	res.Check("extraction_timestamp")
	if data.ExtractedAt.IsZero() {
		res.AddError("extractedAt", "non-zero timestamp", "",
			transcript.SeverityMinor, "extraction timestamp missing")
	}

	res.Check("raw_html_retained")
	if data.RawHTML == "" {
		res.AddWarning("rawHtml",
			"raw HTML not retained, forensic verification unavailable",
			transcript.WarnLevelWarning)
	}

	res.Passed = res.CountBySeverity(transcript.SeverityCritical) == 0
	return res
}
