package audit

import (
	"sort"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// ErrorFrequency is one row of the most-frequent-errors table.
type ErrorFrequency struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Summary aggregates the audit trail over an optional date range.
type Summary struct {
	TotalAttempts      int `json:"totalAttempts"`
	SuccessfulAttempts int `json:"successfulAttempts"`
	FailedAttempts     int `json:"failedAttempts"`

	Approved int `json:"approved"`
	Review   int `json:"review"`
	Rejected int `json:"rejected"`

	Layer1PassRate float64 `json:"layer1PassRate"`
	Layer2PassRate float64 `json:"layer2PassRate"`
	Layer3PassRate float64 `json:"layer3PassRate"`

	AverageConfidence float64 `json:"averageConfidence"`

	CriticalErrors int `json:"criticalErrors"`
	MajorErrors    int `json:"majorErrors"`
	MinorErrors    int `json:"minorErrors"`

	TopErrors []ErrorFrequency `json:"topErrors,omitempty"`

	ReviewPending  int `json:"reviewPending"`
	ReviewVerified int `json:"reviewVerified"`
	ReviewRejected int `json:"reviewRejected"`
}

// GenerateSummary computes summary statistics from the durable on-disk
// log, filtered to the optional [start, end] range.
func (l *Logger) GenerateSummary(start, end *time.Time) (*Summary, error) {
	entries, err := l.readAll(start, end)
	if err != nil {
		return nil, err
	}
	return summarize(entries), nil
}

func summarize(entries []*Entry) *Summary {
	s := &Summary{}
	errorCounts := make(map[string]int)
	validated := 0
	l1, l2, l3 := 0, 0, 0
	confidenceSum := 0

	for _, e := range entries {
		s.TotalAttempts++
		if e.Error != nil && e.Validation == nil {
			s.FailedAttempts++
		} else {
			s.SuccessfulAttempts++
		}

		if e.Decision != nil {
			switch e.Decision.AutoDecision {
			case transcript.DecisionApprove:
				s.Approved++
			case transcript.DecisionReview:
				s.Review++
				if e.HumanReview == nil {
					s.ReviewPending++
				}
			case transcript.DecisionReject:
				s.Rejected++
			}
		}

		if e.HumanReview != nil {
			switch e.HumanReview.Decision {
			case transcript.DecisionApprove:
				s.ReviewVerified++
			case transcript.DecisionReject:
				s.ReviewRejected++
			}
		}

		if e.Validation != nil {
			validated++
			confidenceSum += e.Validation.Confidence
			if e.Validation.Layer1Passed {
				l1++
			}
			if e.Validation.Layer2Passed {
				l2++
			}
			if e.Validation.Layer3Passed {
				l3++
			}
			s.CriticalErrors += e.Validation.CriticalCount
			s.MajorErrors += e.Validation.MajorCount
			s.MinorErrors += e.Validation.MinorCount
			for _, ve := range e.Validation.Errors {
				errorCounts[ve.Message]++
			}
		}
	}

	if validated > 0 {
		s.Layer1PassRate = float64(l1) / float64(validated)
		s.Layer2PassRate = float64(l2) / float64(validated)
		s.Layer3PassRate = float64(l3) / float64(validated)
		s.AverageConfidence = float64(confidenceSum) / float64(validated)
	}

	s.TopErrors = topErrors(errorCounts, 10)
	return s
}

func topErrors(counts map[string]int, n int) []ErrorFrequency {
	freqs := make([]ErrorFrequency, 0, len(counts))
	for msg, count := range counts {
		freqs = append(freqs, ErrorFrequency{Message: msg, Count: count})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Message < freqs[j].Message
	})
	if len(freqs) > n {
		freqs = freqs[:n]
	}
	return freqs
}
