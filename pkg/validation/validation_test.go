package validation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/hashing"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// callContent builds earnings-flavored body text long enough to clear the
// word-count floor.
func callContent(words int) string {
	sentence := "Revenue and earnings beat guidance this quarter as operating income, cash flow and eps all grew, margin expanded, and the outlook for fiscal growth improved for shareholders with the dividend unchanged, said the chief executive officer before the question-and-answer session where an analyst asked about the forecast. "
	var b strings.Builder
	for len(strings.Fields(b.String())) < words {
		b.WriteString(sentence)
	}
	return b.String()
}

func validExtracted() *transcript.Extracted {
	content := callContent(1200)
	return &transcript.Extracted{
		CompanyName: "Example Corp",
		Ticker:      "EXMP",
		Quarter:     "Q3",
		FiscalYear:  2025,
		CallDate:    "2025-10-21",
		Content:     content,
		WordCount:   len(strings.Fields(content)),
		Participants: []transcript.Participant{
			{Name: "Jane Smith", Role: "Chief Executive Officer"},
			{Name: "John Doe", Role: "Chief Financial Officer"},
		},
		Title:       "Example Corp (EXMP) Q3 2025 Earnings Call Transcript",
		SourceURL:   "https://www.fool.com/earnings/call-transcripts/2025/10/21/example-corp-exmp-q3-2025-earnings-call-transcript/",
		RawHTML:     "<html>raw</html>",
		ExtractedAt: time.Now().UTC(),
	}
}

func expectation() *transcript.Expected {
	return &transcript.Expected{
		CompanyName: "Example Corporation",
		Ticker:      "EXMP",
		Quarter:     "Q3",
		FiscalYear:  2025,
	}
}

func TestLayer1Passes(t *testing.T) {
	res := Layer1(validExtracted(), DefaultConfig())
	if !res.Passed {
		t.Fatalf("clean extraction should pass layer 1: %+v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
}

func TestLayer1ShortContentIsCritical(t *testing.T) {
	data := validExtracted()
	data.Content = callContent(500)
	data.WordCount = len(strings.Fields(data.Content))

	res := Layer1(data, DefaultConfig())
	if res.Passed {
		t.Fatalf("short content must fail layer 1")
	}
	var found bool
	for _, e := range res.Errors {
		if e.Field == "wordCount" && e.Severity == transcript.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a critical wordCount error, got %+v", res.Errors)
	}
}

func TestLayer1MajorsDoNotFail(t *testing.T) {
	data := validExtracted()
	data.Ticker = "not-a-ticker"
	data.CallDate = "sometime last week maybe"

	res := Layer1(data, DefaultConfig())
	if !res.Passed {
		t.Fatalf("major errors alone must not fail layer 1: %+v", res.Errors)
	}
	if got := res.CountBySeverity(transcript.SeverityMajor); got != 2 {
		t.Fatalf("major count = %d, want 2", got)
	}
}

func TestLayer1MissingFieldsAreCritical(t *testing.T) {
	data := validExtracted()
	data.CompanyName = ""
	data.Quarter = "third quarter"
	data.FiscalYear = 0

	res := Layer1(data, DefaultConfig())
	if res.Passed {
		t.Fatalf("missing identity fields must fail layer 1")
	}
	if got := res.CountBySeverity(transcript.SeverityCritical); got != 3 {
		t.Fatalf("critical count = %d, want 3: %+v", got, res.Errors)
	}
}

func TestLayer2Passes(t *testing.T) {
	res := Layer2(validExtracted(), expectation(), DefaultConfig())
	if !res.Passed {
		t.Fatalf("matching expectation should pass layer 2: %+v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
}

func TestLayer2ToleratesOneMajor(t *testing.T) {
	data := validExtracted()
	data.Ticker = "WRNG"

	res := Layer2(data, expectation(), DefaultConfig())
	if !res.Passed {
		t.Fatalf("a single major discrepancy should still pass: %+v", res.Errors)
	}

	data.Quarter = "Q1"
	res = Layer2(data, expectation(), DefaultConfig())
	if res.Passed {
		t.Fatalf("two major discrepancies must fail layer 2")
	}
}

func TestLayer2FiscalYearOffsetWarnsOnly(t *testing.T) {
	data := validExtracted()
	data.FiscalYear = 2026

	res := Layer2(data, expectation(), DefaultConfig())
	for _, e := range res.Errors {
		if e.Field == "fiscalYear" {
			t.Fatalf("one-off fiscal year must warn, not error: %+v", e)
		}
	}
	var warned bool
	for _, w := range res.Warnings {
		if w.Field == "fiscalYear" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a fiscal-year warning, got %+v", res.Warnings)
	}
}

func TestLayer2ImplausibleDate(t *testing.T) {
	data := validExtracted()
	data.CallDate = "2025-04-02" // Q3 calls do not happen in April.

	res := Layer2(data, expectation(), DefaultConfig())
	var found bool
	for _, e := range res.Errors {
		if e.Field == "callDate" && e.Severity == transcript.SeverityMajor {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a major callDate error, got %+v", res.Errors)
	}
}

func TestLayer2VocabularyCheck(t *testing.T) {
	data := validExtracted()
	data.Content = strings.Repeat("the weather in spring is lovely and the birds sing loudly every day ", 200)
	data.WordCount = len(strings.Fields(data.Content))

	res := Layer2(data, expectation(), DefaultConfig())
	var found bool
	for _, e := range res.Errors {
		if e.Field == "content" && e.Severity == transcript.SeverityMajor {
			found = true
		}
	}
	if !found {
		t.Fatalf("off-topic content should raise a major vocabulary error, got %+v", res.Errors)
	}
}

func TestLayer3SkipsWithoutReferenceData(t *testing.T) {
	res := Layer3(validExtracted(), nil, DefaultConfig())
	if !res.Passed {
		t.Fatalf("skipped cross-reference must pass")
	}
	if res.Metadata["skipped"] != "true" {
		t.Fatalf("skip not recorded in metadata: %v", res.Metadata)
	}

	empty := &ReferenceData{}
	if !CanSkipCrossReference(empty) {
		t.Fatalf("empty reference data should be skippable")
	}
}

func TestLayer3ExactDuplicateIsCritical(t *testing.T) {
	data := validExtracted()
	ref := &ReferenceData{
		EventID: "EXMP-Q3-2025",
		Records: []StoredRecord{{
			ID:          "17",
			ContentHash: hashing.ContentHash(data.Content),
		}},
	}

	res := Layer3(data, ref, DefaultConfig())
	if res.Passed {
		t.Fatalf("exact duplicate must fail layer 3")
	}
	if got := res.CountBySeverity(transcript.SeverityCritical); got != 1 {
		t.Fatalf("critical count = %d, want 1: %+v", got, res.Errors)
	}
}

// uniqueWords builds non-repeating text so the shingle fingerprint is
// dense. Layer 3 never looks at vocabulary, only at similarity.
func uniqueWords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "segment%d ", i)
	}
	return b.String()
}

func TestLayer3NearDuplicateIsMajor(t *testing.T) {
	data := validExtracted()
	data.Content = uniqueWords(1200)
	variant := data.Content + " one extra closing sentence was appended to this later rescrape of the call"
	ref := &ReferenceData{
		EventID: "EXMP-Q3-2025",
		Records: []StoredRecord{{
			ID:          "17",
			ContentHash: hashing.ContentHash(variant),
			Fingerprint: hashing.GenerateFingerprint(variant, hashing.DefaultShingleSize, hashing.DefaultNumHashes),
		}},
	}

	res := Layer3(data, ref, DefaultConfig())
	if !res.Passed {
		t.Fatalf("near duplicate is major, layer 3 should still pass: %+v", res.Errors)
	}
	if got := res.CountBySeverity(transcript.SeverityMajor); got != 1 {
		t.Fatalf("major count = %d, want 1: %+v", got, res.Errors)
	}
}

func TestLayer3DateTolerance(t *testing.T) {
	data := validExtracted()
	expected := time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC) // two days off

	cfg := DefaultConfig()
	ref := &ReferenceData{EventID: "EXMP-Q3-2025", ExpectedDate: &expected}
	res := Layer3(data, ref, cfg)
	if got := res.CountBySeverity(transcript.SeverityMinor); got != 1 {
		t.Fatalf("out-of-tolerance date should be minor by default, got %+v", res.Errors)
	}

	cfg.RequireExactDate = true
	res = Layer3(data, ref, cfg)
	if got := res.CountBySeverity(transcript.SeverityMajor); got != 1 {
		t.Fatalf("strict mode should escalate the date mismatch to major, got %+v", res.Errors)
	}
}

func TestScoreAndDecide(t *testing.T) {
	mk := func(crit, major, minor int) transcript.Result {
		var r transcript.Result
		for i := 0; i < crit; i++ {
			r.AddError("f", "", "", transcript.SeverityCritical, "critical")
		}
		for i := 0; i < major; i++ {
			r.AddError("f", "", "", transcript.SeverityMajor, "major")
		}
		for i := 0; i < minor; i++ {
			r.AddError("f", "", "", transcript.SeverityMinor, "minor")
		}
		r.Passed = crit == 0
		return r
	}

	tests := []struct {
		name         string
		l1, l2, l3   transcript.Result
		wantScore    int
		wantDecision transcript.Decision
	}{
		{"clean approves", mk(0, 0, 0), mk(0, 0, 0), mk(0, 0, 0), 100, transcript.DecisionApprove},
		{"one minor approves", mk(0, 0, 1), mk(0, 0, 0), mk(0, 0, 0), 95, transcript.DecisionApprove},
		{"one major reviews", mk(0, 1, 0), mk(0, 0, 0), mk(0, 0, 0), 85, transcript.DecisionReview},
		{"two majors reviews", mk(0, 1, 0), mk(0, 1, 0), mk(0, 0, 0), 70, transcript.DecisionReview},
		{"critical plus minor rejects", mk(1, 0, 1), mk(0, 0, 0), mk(0, 0, 0), 45, transcript.DecisionReject},
		{"critical alone rejects despite score", mk(1, 0, 0), mk(0, 0, 0), mk(0, 0, 0), 50, transcript.DecisionReject},
		{"score clamps at zero", mk(1, 0, 0), mk(1, 0, 0), mk(1, 0, 0), 0, transcript.DecisionReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combined := Decide(tt.l1, tt.l2, tt.l3)
			if combined.Confidence != tt.wantScore {
				t.Fatalf("confidence = %d, want %d", combined.Confidence, tt.wantScore)
			}
			if combined.AutoDecision != tt.wantDecision {
				t.Fatalf("decision = %s, want %s (reasons %v)", combined.AutoDecision, tt.wantDecision, combined.Reasons)
			}
			if len(combined.Reasons) == 0 {
				t.Fatalf("decision must carry reasons")
			}
		})
	}
}
