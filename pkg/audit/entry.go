// Package audit builds and persists the append-only forensic record of
// every ingestion attempt, and aggregates summary statistics over it.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// Version stamps recorded in every entry's metadata.
const (
	PipelineVersion  = "2.1.0"
	ValidatorVersion = "3"
)

// ExtractionSnapshot is the persisted subset of extracted data. Full
// content and raw HTML never enter the audit trail, only their hashes.
type ExtractionSnapshot struct {
	CompanyName      string `json:"companyName"`
	Ticker           string `json:"ticker"`
	Quarter          string `json:"quarter"`
	FiscalYear       int    `json:"fiscalYear"`
	CallDate         string `json:"callDate"`
	Title            string `json:"title"`
	WordCount        int    `json:"wordCount"`
	ParticipantCount int    `json:"participantCount"`
}

// ValidationSnapshot summarizes the combined validation outcome.
type ValidationSnapshot struct {
	Layer1Passed  bool                         `json:"layer1Passed"`
	Layer2Passed  bool                         `json:"layer2Passed"`
	Layer3Passed  bool                         `json:"layer3Passed"`
	Confidence    int                          `json:"confidence"`
	CriticalCount int                          `json:"criticalCount"`
	MajorCount    int                          `json:"majorCount"`
	MinorCount    int                          `json:"minorCount"`
	Errors        []transcript.ValidationError `json:"errors,omitempty"`
}

// DecisionSnapshot records what the decision engine concluded and what
// actually happened to the record.
type DecisionSnapshot struct {
	AutoDecision       transcript.Decision `json:"autoDecision"`
	Reasons            []string            `json:"reasons,omitempty"`
	SavedToDB          bool                `json:"savedToDb"`
	VerificationStatus string              `json:"verificationStatus,omitempty"`
}

// HumanReview is the only legal post-construction amendment besides a
// save error.
type HumanReview struct {
	ReviewedAt time.Time           `json:"reviewedAt"`
	ReviewedBy string              `json:"reviewedBy"`
	Decision   transcript.Decision `json:"decision"`
	Notes      string              `json:"notes,omitempty"`
}

// EntryError captures a terminal failure attached to the entry.
type EntryError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Stack      string `json:"stack,omitempty"`
	RetryCount int    `json:"retryCount,omitempty"`
}

// Entry is one immutable audit record, created exactly once per ingestion
// attempt and appended to the durable log.
type Entry struct {
	AuditID      string `json:"auditId"`
	TranscriptID string `json:"transcriptId,omitempty"`

	ScrapedAt   time.Time `json:"scrapedAt"`
	ValidatedAt time.Time `json:"validatedAt,omitempty"`
	DecidedAt   time.Time `json:"decidedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	SourceURL   string `json:"sourceUrl"`
	SourceTitle string `json:"sourceTitle,omitempty"`

	RawHTMLHash string `json:"rawHtmlHash,omitempty"`
	ContentHash string `json:"contentHash,omitempty"`
	RawHTMLSize int    `json:"rawHtmlSize,omitempty"`

	Extraction *ExtractionSnapshot  `json:"extraction,omitempty"`
	Expected   *transcript.Expected `json:"expected,omitempty"`
	Validation *ValidationSnapshot  `json:"validation,omitempty"`
	Decision   *DecisionSnapshot    `json:"decision,omitempty"`

	HumanReview *HumanReview `json:"humanReview,omitempty"`
	Error       *EntryError  `json:"error,omitempty"`

	Metadata map[string]string `json:"metadata"`
}

// NewEntry constructs an entry with a fresh audit ID and version stamps.
func NewEntry(sourceURL string) *Entry {
	now := time.Now().UTC()
	return &Entry{
		AuditID:   uuid.NewString(),
		SourceURL: sourceURL,
		ScrapedAt: now,
		CreatedAt: now,
		Metadata: map[string]string{
			"pipelineVersion":  PipelineVersion,
			"validatorVersion": ValidatorVersion,
		},
	}
}

// SetExtraction fills the extraction snapshot and content fingerprints.
func (e *Entry) SetExtraction(data *transcript.Extracted, contentHash string) {
	e.Extraction = &ExtractionSnapshot{
		CompanyName:      data.CompanyName,
		Ticker:           data.Ticker,
		Quarter:          data.Quarter,
		FiscalYear:       data.FiscalYear,
		CallDate:         data.CallDate,
		Title:            data.Title,
		WordCount:        data.WordCount,
		ParticipantCount: len(data.Participants),
	}
	e.SourceTitle = data.SourceTitle
	e.ContentHash = contentHash
	e.RawHTMLSize = len(data.RawHTML)
}

// SetValidation fills the validation and decision snapshots.
func (e *Entry) SetValidation(combined *transcript.CombinedResult) {
	now := time.Now().UTC()
	e.ValidatedAt = now
	e.DecidedAt = now

	errs := combined.AllErrors()
	snap := &ValidationSnapshot{
		Layer1Passed: combined.Layer1.Passed,
		Layer2Passed: combined.Layer2.Passed,
		Layer3Passed: combined.Layer3.Passed,
		Confidence:   combined.Confidence,
		Errors:       errs,
	}
	for _, err := range errs {
		switch err.Severity {
		case transcript.SeverityCritical:
			snap.CriticalCount++
		case transcript.SeverityMajor:
			snap.MajorCount++
		case transcript.SeverityMinor:
			snap.MinorCount++
		}
	}
	e.Validation = snap
	e.Decision = &DecisionSnapshot{
		AutoDecision: combined.AutoDecision,
		Reasons:      combined.Reasons,
	}
}

// AttachReview records a human review amendment. Legal only before the
// entry is durably logged.
func (e *Entry) AttachReview(reviewedBy string, decision transcript.Decision, notes string) {
	e.HumanReview = &HumanReview{
		ReviewedAt: time.Now().UTC(),
		ReviewedBy: reviewedBy,
		Decision:   decision,
		Notes:      notes,
	}
}

// AttachSaveError records a persistence failure without discarding the
// computed validation result.
func (e *Entry) AttachSaveError(err error, retryCount int) {
	e.Error = &EntryError{
		Type:       "save_failure",
		Message:    err.Error(),
		RetryCount: retryCount,
	}
	if e.Decision != nil {
		e.Decision.SavedToDB = false
	}
}

// AttachFetchError records a scrape failure on an entry with no extraction.
func (e *Entry) AttachFetchError(msg string, retryCount int) {
	e.Error = &EntryError{
		Type:       "fetch_failure",
		Message:    msg,
		RetryCount: retryCount,
	}
}
