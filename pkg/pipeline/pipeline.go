// Package pipeline wires fetcher, parser, validation, decision engine,
// audit logger and the document store into one ingestion run.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/audit"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fetcher"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/hashing"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/parser"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/storage"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/validation"
)

// Store is the document-store capability the pipeline needs. Implemented
// by *storage.DB; nil disables cross-reference data and persistence.
type Store interface {
	ReferenceForEvent(ctx context.Context, eventID string, expectedDate *time.Time) (*validation.ReferenceData, error)
	SaveRecord(ctx context.Context, rec *storage.Record) (int64, error)
	UpdateEventDate(ctx context.Context, company, eventID string, upd storage.DateUpdate) error
}

// Request describes one ingestion attempt.
type Request struct {
	URL          string
	Expected     transcript.Expected
	EventID      string
	ExpectedDate *time.Time
	// Save persists the record when the decision is approve. Without it
	// the run is a dry run: validate and audit only.
	Save bool
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Scrape       *transcript.ScrapeResult
	Data         *transcript.Extracted
	Combined     *transcript.CombinedResult
	Entry        *audit.Entry
	Saved        bool
	TranscriptID int64
}

// Runner executes the ingestion pipeline. One Runner per logical
// pipeline; the fetcher's rate limiter and the audit logger serialize the
// shared resources internally.
type Runner struct {
	Fetcher *fetcher.Fetcher
	Store   Store
	Auditor *audit.Logger
	VCfg    validation.Config
}

// Run executes fetch, parse, validate, decide, audit and persist for one
// request. Terminal failures still produce an audit entry; the returned
// error is non-nil only when the pipeline could not complete.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	entry := audit.NewEntry(req.URL)
	entry.Expected = &req.Expected
	outcome := &Outcome{Entry: entry}

	scrape := r.Fetcher.FetchPage(ctx, req.URL)
	outcome.Scrape = scrape
	entry.RawHTMLHash = scrape.RawHTMLHash

	if !scrape.Success {
		msg := strings.Join(scrape.Errors, "; ")
		entry.AttachFetchError(msg, scrape.RetryCount)
		r.logEntry(entry)
		return outcome, fmt.Errorf("fetch failed: %s", msg)
	}

	data, parseErrs := parser.Parse(scrape.RawHTML, req.URL)
	if len(parseErrs) > 0 {
		msgs := make([]string, len(parseErrs))
		for i, err := range parseErrs {
			msgs[i] = err.Error()
		}
		entry.Error = &audit.EntryError{Type: "parse_failure", Message: strings.Join(msgs, "; ")}
		r.logEntry(entry)
		return outcome, fmt.Errorf("parse failed: %s", msgs[0])
	}
	outcome.Data = data
	scrape.Data = data
	entry.SetExtraction(data, hashing.ContentHash(data.Content))

	l1 := validation.Layer1(data, r.VCfg)
	l2 := validation.Layer2(data, &req.Expected, r.VCfg)
	l3 := r.crossReference(ctx, data, req)

	combined := validation.Decide(l1, l2, l3)
	outcome.Combined = combined
	entry.SetValidation(combined)

	if req.Save && combined.AutoDecision == transcript.DecisionApprove {
		r.persist(ctx, req, data, combined, entry, outcome)
	} else if req.Save {
		utils.Log.Infof("Not persisting: decision is %s", combined.AutoDecision)
	}

	r.logEntry(entry)
	return outcome, nil
}

// crossReference loads layer-3 reference data from the store, degrading
// to the skipped result when none exists or the store is unavailable.
func (r *Runner) crossReference(ctx context.Context, data *transcript.Extracted, req Request) transcript.Result {
	if r.Store == nil || req.EventID == "" {
		if req.ExpectedDate != nil {
			return validation.Layer3(data, &validation.ReferenceData{ExpectedDate: req.ExpectedDate}, r.VCfg)
		}
		return validation.SkippedCrossReference()
	}
	ref, err := r.Store.ReferenceForEvent(ctx, req.EventID, req.ExpectedDate)
	if err != nil {
		utils.Log.Warnf("Could not load reference data for %s: %v", req.EventID, err)
		res := validation.SkippedCrossReference()
		res.AddWarning("crossReference", "reference data unavailable: "+err.Error(), transcript.WarnLevelWarning)
		return res
	}
	return validation.Layer3(data, ref, r.VCfg)
}

// persist saves the record and the verified event date. A save failure
// downgrades the persistence flag and is attached to the audit entry
// without discarding the validation result. Issued at most once per run.
func (r *Runner) persist(ctx context.Context, req Request, data *transcript.Extracted, combined *transcript.CombinedResult, entry *audit.Entry, outcome *Outcome) {
	if r.Store == nil {
		entry.AttachSaveError(fmt.Errorf("no document store configured"), 0)
		return
	}

	rec := &storage.Record{
		EventID:     req.EventID,
		CompanyName: data.CompanyName,
		Ticker:      data.Ticker,
		Quarter:     data.Quarter,
		FiscalYear:  data.FiscalYear,
		CallDate:    data.CallDate,
		Title:       data.Title,
		WordCount:   data.WordCount,
		SourceURL:   data.SourceURL,
		Content:     data.Content,
		ContentHash: entry.ContentHash,
		RawHTMLHash: entry.RawHTMLHash,
		Confidence:  combined.Confidence,
		AuditID:     entry.AuditID,
	}
	if rec.EventID == "" {
		rec.EventID = defaultEventID(data)
	}

	id, err := r.Store.SaveRecord(ctx, rec)
	if err != nil {
		utils.Log.Errorf("Persisting transcript failed: %v", err)
		entry.AttachSaveError(err, 0)
		return
	}
	outcome.Saved = true
	outcome.TranscriptID = id
	entry.TranscriptID = strconv.FormatInt(id, 10)
	entry.Decision.SavedToDB = true
	entry.Decision.VerificationStatus = "auto_approved"

	if callDate, derr := dates.Parse(data.CallDate); derr == nil {
		upd := storage.DateUpdate{
			Date:       callDate,
			Source:     data.SourceURL,
			Verified:   true,
			Confidence: combined.Confidence,
		}
		if uerr := r.Store.UpdateEventDate(ctx, data.CompanyName, rec.EventID, upd); uerr != nil {
			utils.Log.Warnf("Updating event date failed: %v", uerr)
		}
	}
}

func (r *Runner) logEntry(entry *audit.Entry) {
	if r.Auditor == nil {
		return
	}
	if err := r.Auditor.Log(entry); err != nil {
		utils.Log.Errorf("Writing audit entry %s failed: %v", entry.AuditID, err)
	}
}

// defaultEventID derives a stable event identity when the caller supplied
// none, e.g. "AAPL-Q3-2025".
func defaultEventID(data *transcript.Extracted) string {
	return fmt.Sprintf("%s-%s-%d", strings.ToUpper(data.Ticker), data.Quarter, data.FiscalYear)
}
