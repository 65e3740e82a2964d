package errors

import "fmt"

// IssueKind classifies a non-fatal finding raised while scoring a creative
type IssueKind string

const (
	KindInsufficientCoverage IssueKind = "insufficient_signal_coverage"
	KindBudgetExhausted      IssueKind = "budget_exhausted"
	KindMalformedUpstream    IssueKind = "malformed_upstream_output"
	KindSanityRangeViolation IssueKind = "sanity_range_violation"
	KindContradiction        IssueKind = "contradiction_detected"
	KindDuplicateSignal      IssueKind = "duplicate_signal"
	KindLayerUnavailable     IssueKind = "layer_unavailable"
	KindLowDifferentiation   IssueKind = "low_differentiation"
)

// Issue is a warning that degrades confidence but never aborts a run.
// Fatal conditions are reported as *AppError instead.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// NewIssue formats an issue message
func NewIssue(kind IssueKind, format string, args ...interface{}) Issue {
	return Issue{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (i Issue) String() string {
	return i.Message
}

// Messages flattens issues into their rendered warning strings
func Messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Message)
	}
	return out
}

// Filter returns the issues of the given kind
func Filter(issues []Issue, kind IssueKind) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}
