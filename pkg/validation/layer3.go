package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/hashing"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// StoredRecord is the dedup-relevant slice of a previously persisted
// transcript for the same event.
type StoredRecord struct {
	ID          string
	ContentHash string
	Fingerprint []string
}

// ReferenceData is the external reference material layer 3 validates
// against. All fields are optional; see CanSkipCrossReference.
type ReferenceData struct {
	EventID      string
	ExpectedDate *time.Time
	Records      []StoredRecord
}

// CanSkipCrossReference reports whether no reference data exists at all,
// in which case layer 3 is skipped. Used for first-time ingestion of a new
// event where nothing exists to cross-reference against.
func CanSkipCrossReference(ref *ReferenceData) bool {
	return ref == nil || (ref.EventID == "" && ref.ExpectedDate == nil && len(ref.Records) == 0)
}

// SkippedCrossReference returns the trivially-passing result used when
// layer 3 is skipped.
func SkippedCrossReference() transcript.Result {
	res := transcript.Result{
		Passed:   true,
		Metadata: map[string]string{"layer": "crossref", "skipped": "true"},
	}
	res.Check("cross_reference_skipped")
	res.AddWarning("crossReference",
		"no reference data available, cross-reference validation skipped",
		transcript.WarnLevelInfo)
	return res
}

// Layer3 cross-references extracted data against external reference data:
// the authoritative expected date and previously stored content for the
// same event. Exact duplicates are critical; near-duplicates are major.
func Layer3(data *transcript.Extracted, ref *ReferenceData, cfg Config) transcript.Result {
	if CanSkipCrossReference(ref) {
		return SkippedCrossReference()
	}

	res := transcript.Result{Metadata: map[string]string{"layer": "crossref"}}

	res.Check("date_cross_reference")
	if ref.ExpectedDate != nil {
		checkDate(&res, data.CallDate, *ref.ExpectedDate, cfg)
	}

	contentHash := hashing.ContentHash(data.Content)
	res.Metadata["contentHash"] = contentHash

	res.Check("exact_duplicate")
	for _, rec := range ref.Records {
		if rec.ContentHash != "" && rec.ContentHash == contentHash {
			res.AddError("content", "previously unseen content", rec.ID,
				transcript.SeverityCritical,
				fmt.Sprintf("exact duplicate of stored record %s", rec.ID))
			break
		}
	}

	res.Check("near_duplicate")
	checkNearDuplicate(&res, data.Content, ref.Records, cfg)

	res.Check("ticker_in_source_url")
	if data.Ticker != "" && data.SourceURL != "" &&
		!strings.Contains(strings.ToLower(data.SourceURL), strings.ToLower(data.Ticker)) {
		res.AddWarning("sourceUrl", "source URL does not mention the extracted ticker", transcript.WarnLevelWarning)
	}

	res.Check("source_path_shape")
	if u, err := url.Parse(data.SourceURL); err == nil {
		if !strings.Contains(strings.ToLower(u.Path), "transcript") {
			res.AddWarning("sourceUrl", "source URL path does not look like a transcript page", transcript.WarnLevelWarning)
		}
	}

	res.Passed = res.CountBySeverity(transcript.SeverityCritical) == 0
	return res
}

// checkDate compares the extracted call date to the authoritative date
// within the configured tolerance window.
func checkDate(res *transcript.Result, callDate string, expected time.Time, cfg Config) {
	parsed, err := dates.Parse(callDate)
	if err != nil {
		res.AddWarning("callDate", "extracted call date unparseable, date cross-reference skipped", transcript.WarnLevelWarning)
		return
	}

	if !dates.WithinTolerance(parsed, expected, cfg.DateTolerance) {
		sev := transcript.SeverityMinor
		if cfg.RequireExactDate {
			sev = transcript.SeverityMajor
		}
		res.AddError("callDate",
			expected.Format("2006-01-02"),
			parsed.Format("2006-01-02"),
			sev,
			fmt.Sprintf("call date differs from the authoritative date by more than %s", cfg.DateTolerance))
		return
	}

	// Within tolerance but past half the window is worth noting.
	diff := parsed.Sub(expected)
	if diff < 0 {
		diff = -diff
	}
	if diff > cfg.DateTolerance/2 {
		res.AddWarning("callDate",
			fmt.Sprintf("call date within tolerance but %s from the expected date", diff),
			transcript.WarnLevelInfo)
	}
}

// checkNearDuplicate fingerprints the content and scans stored
// fingerprints for the closest prior record.
func checkNearDuplicate(res *transcript.Result, content string, records []StoredRecord, cfg Config) {
	var withFP []StoredRecord
	stored := make([][]string, 0, len(records))
	for _, rec := range records {
		if len(rec.Fingerprint) > 0 {
			withFP = append(withFP, rec)
			stored = append(stored, rec.Fingerprint)
		}
	}
	if len(stored) == 0 {
		return
	}

	fp := hashing.GenerateFingerprint(content, hashing.DefaultShingleSize, hashing.DefaultNumHashes)
	best, found := hashing.CheckNearDuplicate(fp, stored)
	if !found {
		return
	}
	res.Metadata["nearDupBestSimilarity"] = fmt.Sprintf("%.3f", best.Similarity)

	closest := withFP[best.Index]
	switch {
	case best.Similarity >= cfg.NearDupThreshold:
		res.AddError("content",
			fmt.Sprintf("similarity below %.2f", cfg.NearDupThreshold),
			fmt.Sprintf("%.3f", best.Similarity),
			transcript.SeverityMajor,
			fmt.Sprintf("near-duplicate of stored record %s (similarity %.3f)", closest.ID, best.Similarity))
	case best.Similarity > 0.5:
		res.AddWarning("content",
			fmt.Sprintf("moderately similar to stored record %s (similarity %.3f)", closest.ID, best.Similarity),
			transcript.WarnLevelWarning)
	}
}
