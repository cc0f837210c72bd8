// Package transcript holds the data model shared by the fetch, parse,
// validation and audit stages of the ingestion pipeline.
package transcript

import "time"

// Severity classifies validation errors.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// WarnLevel classifies validation warnings. Warnings never affect decisions.
type WarnLevel string

const (
	WarnLevelWarning WarnLevel = "warning"
	WarnLevelInfo    WarnLevel = "info"
)

// Decision is the automatic outcome of the decision engine.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReview  Decision = "review"
	DecisionReject  Decision = "reject"
)

// Extracted is the structured record produced by one fetch+parse attempt.
// It is immutable once built; only derived hashes and selected fields are
// ever persisted.
type Extracted struct {
	CompanyName  string        `json:"companyName"`
	Ticker       string        `json:"ticker"`
	Quarter      string        `json:"quarter"`
	FiscalYear   int           `json:"fiscalYear"`
	CallDate     string        `json:"callDate"`
	CallTime     string        `json:"callTime,omitempty"`
	Content      string        `json:"-"`
	Participants []Participant `json:"participants,omitempty"`
	Title        string        `json:"title"`
	WordCount    int           `json:"wordCount"`
	SourceURL    string        `json:"sourceUrl"`
	SourceTitle  string        `json:"sourceTitle,omitempty"`
	RawHTML      string        `json:"-"`
	ExtractedAt  time.Time     `json:"extractedAt"`
}

// Participant is a single named speaker on the call.
type Participant struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Expected carries the caller-supplied expectation from an external event
// registry, against which extracted data is validated.
type Expected struct {
	CompanyName  string     `json:"companyName"`
	Ticker       string     `json:"ticker"`
	Quarter      string     `json:"quarter"`
	FiscalYear   int        `json:"fiscalYear"`
	ExpectedDate *time.Time `json:"expectedDate,omitempty"`
}

// ValidationError describes a single failed check.
type ValidationError struct {
	Field    string   `json:"field"`
	Expected string   `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationWarning describes a non-blocking finding.
type ValidationWarning struct {
	Field    string    `json:"field"`
	Message  string    `json:"message"`
	Severity WarnLevel `json:"severity"`
}

// Result is the outcome of one validation layer.
type Result struct {
	Passed          bool                `json:"passed"`
	Errors          []ValidationError   `json:"errors"`
	Warnings        []ValidationWarning `json:"warnings"`
	ChecksPerformed []string            `json:"checksPerformed"`
	Metadata        map[string]string   `json:"metadata,omitempty"`
}

// AddError appends a failed check to the result.
func (r *Result) AddError(field, expected, actual string, sev Severity, msg string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:    field,
		Expected: expected,
		Actual:   actual,
		Severity: sev,
		Message:  msg,
	})
}

// AddWarning appends a non-blocking finding to the result.
func (r *Result) AddWarning(field, msg string, level WarnLevel) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: msg, Severity: level})
}

// Check records that a named check ran, for auditability.
func (r *Result) Check(name string) {
	r.ChecksPerformed = append(r.ChecksPerformed, name)
}

// CountBySeverity returns how many errors of the given severity are present.
func (r *Result) CountBySeverity(sev Severity) int {
	n := 0
	for _, e := range r.Errors {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// CombinedResult joins the three validation layers with the decision
// engine's verdict.
type CombinedResult struct {
	Layer1       Result   `json:"layer1"`
	Layer2       Result   `json:"layer2"`
	Layer3       Result   `json:"layer3"`
	Confidence   int      `json:"confidence"`
	AutoDecision Decision `json:"autoDecision"`
	Reasons      []string `json:"reasons"`
}

// AllErrors flattens the errors of all three layers, in layer order.
func (c *CombinedResult) AllErrors() []ValidationError {
	out := make([]ValidationError, 0, len(c.Layer1.Errors)+len(c.Layer2.Errors)+len(c.Layer3.Errors))
	out = append(out, c.Layer1.Errors...)
	out = append(out, c.Layer2.Errors...)
	out = append(out, c.Layer3.Errors...)
	return out
}

// Timing captures wall-clock bounds of one fetch invocation.
type Timing struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	DurationMS  int64     `json:"durationMs"`
}

// ScrapeResult is the transient outcome of one fetch invocation.
type ScrapeResult struct {
	Success     bool       `json:"success"`
	Data        *Extracted `json:"data,omitempty"`
	RawHTML     string     `json:"-"`
	RawHTMLHash string     `json:"rawHtmlHash,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	Timing      Timing     `json:"timing"`
	RetryCount  int        `json:"retryCount"`
}
