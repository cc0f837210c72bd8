package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/audit"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/fetcher"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/storage"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/validation"
)

// fakeSession serves canned pages.
type fakeSession struct {
	pages map[string]string
}

func (s *fakeSession) Launch() error { return nil }
func (s *fakeSession) Close() error  { return nil }

func (s *fakeSession) Navigate(ctx context.Context, pageURL string, timeout time.Duration) (string, string, error) {
	body, ok := s.pages[pageURL]
	if !ok {
		return "", "", fmt.Errorf("no route for %s", pageURL)
	}
	return body, pageURL, nil
}

func (s *fakeSession) Cookies(u *url.URL) []*http.Cookie       { return nil }
func (s *fakeSession) SetCookies(u *url.URL, c []*http.Cookie) {}

// fakeStore records calls and can be told to fail saves.
type fakeStore struct {
	ref        *validation.ReferenceData
	saved      []*storage.Record
	dates      []storage.DateUpdate
	saveErr    error
	nextRecord int64
}

func (s *fakeStore) ReferenceForEvent(ctx context.Context, eventID string, expectedDate *time.Time) (*validation.ReferenceData, error) {
	if s.ref != nil {
		return s.ref, nil
	}
	return &validation.ReferenceData{}, nil
}

func (s *fakeStore) SaveRecord(ctx context.Context, rec *storage.Record) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.saved = append(s.saved, rec)
	s.nextRecord++
	return s.nextRecord, nil
}

func (s *fakeStore) UpdateEventDate(ctx context.Context, company, eventID string, upd storage.DateUpdate) error {
	s.dates = append(s.dates, upd)
	return nil
}

func transcriptPage(words int) string {
	sentence := "Revenue and earnings beat guidance this quarter as operating income, cash flow and eps all grew, margin expanded, and the outlook for fiscal growth improved for shareholders with the dividend unchanged, said the chief executive officer before the question-and-answer session where an analyst asked about the forecast. "
	var body strings.Builder
	for len(strings.Fields(body.String())) < words {
		body.WriteString(sentence)
	}
	return fmt.Sprintf(`<html>
<head><title>Example Corp (EXMP) Q3 2025 Earnings Call Transcript | The Motley Fool</title></head>
<body>
<h1>Example Corp (EXMP) Q3 2025 Earnings Call Transcript</h1>
<time datetime="2025-10-21T21:00:00Z">Oct 21, 2025</time>
<h2>Call Participants</h2>
<ul>
<li>Jane Smith -- Chief Executive Officer</li>
<li>John Doe -- Chief Financial Officer</li>
</ul>
<div class="article-body">%s</div>
</body></html>`, body.String())
}

func testRunner(t *testing.T, session fetcher.Session, store Store) *Runner {
	t.Helper()
	auditor, err := audit.NewLogger(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	cfg := validation.DefaultConfig()
	cfg.MinWordCount = 100

	return &Runner{
		Fetcher: fetcher.New(fetcher.Config{
			SourceDomain:      "fool.com",
			RequestsPerMinute: 1000,
			DailyLimit:        1000,
			RetryDelay:        time.Millisecond,
		}, session),
		Store:   store,
		Auditor: auditor,
		VCfg:    cfg,
	}
}

func sampleRequest(save bool) Request {
	return Request{
		URL: "https://www.fool.com/earnings/call-transcripts/2025/10/21/example-corp-exmp-q3-2025-earnings-call-transcript/",
		Expected: transcript.Expected{
			CompanyName: "Example Corp",
			Ticker:      "EXMP",
			Quarter:     "Q3",
			FiscalYear:  2025,
		},
		EventID: "EXMP-Q3-2025",
		Save:    save,
	}
}

func TestRunDryRunApproves(t *testing.T) {
	session := &fakeSession{pages: map[string]string{sampleRequest(false).URL: transcriptPage(300)}}
	store := &fakeStore{}
	r := testRunner(t, session, store)

	outcome, err := r.Run(context.Background(), sampleRequest(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Combined.AutoDecision != transcript.DecisionApprove {
		t.Fatalf("decision = %s, want approve (reasons %v)",
			outcome.Combined.AutoDecision, outcome.Combined.Reasons)
	}
	if outcome.Saved || len(store.saved) != 0 {
		t.Fatalf("dry run must not persist")
	}
	if outcome.Entry.Validation == nil || outcome.Entry.Decision == nil {
		t.Fatalf("audit entry missing validation/decision snapshots")
	}
	if hist := r.Auditor.History(); len(hist) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(hist))
	}
}

func TestRunSavePersistsApprovedRecord(t *testing.T) {
	req := sampleRequest(true)
	session := &fakeSession{pages: map[string]string{req.URL: transcriptPage(300)}}
	store := &fakeStore{}
	r := testRunner(t, session, store)

	outcome, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Saved || outcome.TranscriptID == 0 {
		t.Fatalf("approved run with Save must persist, outcome %+v", outcome)
	}
	if len(store.saved) != 1 {
		t.Fatalf("SaveRecord calls = %d, want 1", len(store.saved))
	}
	rec := store.saved[0]
	if rec.EventID != "EXMP-Q3-2025" || rec.Ticker != "EXMP" {
		t.Fatalf("record fields = %+v", rec)
	}
	if rec.ContentHash == "" {
		t.Fatalf("record must carry the content hash")
	}
	if !outcome.Entry.Decision.SavedToDB || outcome.Entry.Decision.VerificationStatus != "auto_approved" {
		t.Fatalf("audit decision snapshot = %+v", outcome.Entry.Decision)
	}
	if len(store.dates) != 1 || !store.dates[0].Verified {
		t.Fatalf("verified event date not recorded: %+v", store.dates)
	}
}

func TestRunSaveErrorDowngrades(t *testing.T) {
	req := sampleRequest(true)
	session := &fakeSession{pages: map[string]string{req.URL: transcriptPage(300)}}
	store := &fakeStore{saveErr: fmt.Errorf("disk full")}
	r := testRunner(t, session, store)

	outcome, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("a save failure must not fail the run: %v", err)
	}
	if outcome.Saved {
		t.Fatalf("outcome must not claim persistence after a save error")
	}
	if outcome.Entry.Error == nil || outcome.Entry.Error.Type != "save_failure" {
		t.Fatalf("audit entry error = %+v, want save_failure", outcome.Entry.Error)
	}
	if outcome.Entry.Decision.SavedToDB {
		t.Fatalf("SavedToDB must be false after a save error")
	}
}

func TestRunReviewDecisionIsNotPersisted(t *testing.T) {
	req := sampleRequest(true)
	req.Expected.Ticker = "WRNG" // one major discrepancy lands in the review band
	session := &fakeSession{pages: map[string]string{req.URL: transcriptPage(300)}}
	store := &fakeStore{}
	r := testRunner(t, session, store)

	outcome, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Combined.AutoDecision != transcript.DecisionReview {
		t.Fatalf("decision = %s, want review", outcome.Combined.AutoDecision)
	}
	if outcome.Saved || len(store.saved) != 0 {
		t.Fatalf("review decisions must never be auto-persisted")
	}
}

func TestRunFetchFailureIsAudited(t *testing.T) {
	req := sampleRequest(false)
	session := &fakeSession{pages: map[string]string{}} // every navigation fails
	r := testRunner(t, session, &fakeStore{})

	outcome, err := r.Run(context.Background(), req)
	if err == nil {
		t.Fatalf("fetch failure must surface as an error")
	}
	if outcome.Entry.Error == nil || outcome.Entry.Error.Type != "fetch_failure" {
		t.Fatalf("audit entry error = %+v, want fetch_failure", outcome.Entry.Error)
	}
	if hist := r.Auditor.History(); len(hist) != 1 {
		t.Fatalf("failed fetch must still be audited, got %d entries", len(hist))
	}
}

func TestRunParseFailureIsAudited(t *testing.T) {
	req := sampleRequest(false)
	session := &fakeSession{pages: map[string]string{
		req.URL: `<html><head><title>Example Corp (EXMP) Q3 2025 Earnings Call Transcript</title></head>
<body><h1>Example Corp (EXMP) Q3 2025 Earnings Call Transcript</h1>
<div class="article-body">Too short.</div></body></html>`,
	}}
	r := testRunner(t, session, &fakeStore{})

	outcome, err := r.Run(context.Background(), req)
	if err == nil {
		t.Fatalf("parse failure must surface as an error")
	}
	if outcome.Entry.Error == nil || outcome.Entry.Error.Type != "parse_failure" {
		t.Fatalf("audit entry error = %+v, want parse_failure", outcome.Entry.Error)
	}
	if outcome.Data != nil {
		t.Fatalf("no partial extraction on parse failure")
	}
}

func TestRunRejectsExactDuplicate(t *testing.T) {
	req := sampleRequest(true)
	page := transcriptPage(300)
	session := &fakeSession{pages: map[string]string{req.URL: page}}
	r := testRunner(t, session, &fakeStore{})

	first, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	store := &fakeStore{ref: &validation.ReferenceData{
		EventID: req.EventID,
		Records: []validation.StoredRecord{{
			ID:          "1",
			ContentHash: first.Entry.ContentHash,
		}},
	}}
	r2 := testRunner(t, session, store)
	second, err := r2.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Combined.AutoDecision != transcript.DecisionReject {
		t.Fatalf("exact duplicate decision = %s, want reject", second.Combined.AutoDecision)
	}
	if second.Saved || len(store.saved) != 0 {
		t.Fatalf("rejected duplicate must not be persisted")
	}
}

func TestDefaultEventID(t *testing.T) {
	data := &transcript.Extracted{Ticker: "aapl", Quarter: "Q3", FiscalYear: 2025}
	if got := defaultEventID(data); got != "AAPL-Q3-2025" {
		t.Fatalf("defaultEventID = %q", got)
	}
}
