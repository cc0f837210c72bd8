package validation

import (
	"fmt"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

// Penalty weights and decision thresholds. The numeric score never
// overrides a critical failure.
const (
	criticalPenalty = 50
	majorPenalty    = 15
	minorPenalty    = 5

	approveThreshold = 90
	reviewThreshold  = 70
)

// Score computes the 0-100 confidence over the three layer results and
// reports whether any critical error is present.
func Score(l1, l2, l3 transcript.Result) (int, bool) {
	score := 100
	hasCritical := false
	for _, res := range []transcript.Result{l1, l2, l3} {
		for _, e := range res.Errors {
			switch e.Severity {
			case transcript.SeverityCritical:
				score -= criticalPenalty
				hasCritical = true
			case transcript.SeverityMajor:
				score -= majorPenalty
			case transcript.SeverityMinor:
				score -= minorPenalty
			}
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, hasCritical
}

// Decide joins the three layer results into the combined result with the
// automatic decision. Any critical error forces a reject regardless of
// the numeric score.
func Decide(l1, l2, l3 transcript.Result) *transcript.CombinedResult {
	score, hasCritical := Score(l1, l2, l3)

	combined := &transcript.CombinedResult{
		Layer1:     l1,
		Layer2:     l2,
		Layer3:     l3,
		Confidence: score,
	}

	for i, res := range []transcript.Result{l1, l2, l3} {
		if !res.Passed {
			combined.Reasons = append(combined.Reasons,
				fmt.Sprintf("layer %d (%s) failed with %d error(s)", i+1, res.Metadata["layer"], len(res.Errors)))
		}
	}

	switch {
	case hasCritical:
		combined.AutoDecision = transcript.DecisionReject
		combined.Reasons = append(combined.Reasons,
			"critical validation failure forces rejection regardless of score")
	case score >= approveThreshold:
		combined.AutoDecision = transcript.DecisionApprove
		combined.Reasons = append(combined.Reasons,
			fmt.Sprintf("confidence %d >= approve threshold %d", score, approveThreshold))
	case score >= reviewThreshold:
		combined.AutoDecision = transcript.DecisionReview
		combined.Reasons = append(combined.Reasons,
			fmt.Sprintf("confidence %d in review band [%d,%d)", score, reviewThreshold, approveThreshold))
	default:
		combined.AutoDecision = transcript.DecisionReject
		combined.Reasons = append(combined.Reasons,
			fmt.Sprintf("confidence %d below review threshold %d", score, reviewThreshold))
	}

	return combined
}
