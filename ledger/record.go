// Package ledger keeps the per-judge record of aggregator outcomes that
// decides which problems still need a virtual submission.
package ledger

// NoRecentSubmissions is the aggregator error that means the judge has no
// submission to mirror. It will not change on retry, so it is terminal.
const NoRecentSubmissions = "No recent submissions found"

// Record is the decoded aggregator response for one problem. Fields other
// than success and error are kept as returned.
type Record map[string]any

// Success reports whether the aggregator accepted the submission.
func (r Record) Success() bool {
	v, _ := r["success"].(bool)
	return v
}

// Message returns the aggregator's error text, if any.
func (r Record) Message() string {
	v, _ := r["error"].(string)
	return v
}

// Terminal reports whether the outcome must never be retried.
func (r Record) Terminal() bool {
	return r.Success() || r.Message() == NoRecentSubmissions
}
