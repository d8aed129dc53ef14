package airtable

import (
	"fmt"
	"strings"
)

// Status classifies a record after a sync pass.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

var statusOrder = []Status{StatusUpdated, StatusUnchanged, StatusFailed}

// UpdateResult aggregates the outcomes of a batch update.
type UpdateResult struct {
	outcomes map[Status][]RecordOutcome
}

// NewUpdateResult returns an empty result.
func NewUpdateResult() *UpdateResult {
	return &UpdateResult{outcomes: make(map[Status][]RecordOutcome)}
}

// Add records one outcome.
func (u *UpdateResult) Add(o RecordOutcome) {
	u.outcomes[o.Status] = append(u.outcomes[o.Status], o)
}

// Merge appends every outcome of other.
func (u *UpdateResult) Merge(other *UpdateResult) {
	if other == nil {
		return
	}
	for _, status := range statusOrder {
		u.outcomes[status] = append(u.outcomes[status], other.outcomes[status]...)
	}
}

// Updated returns the records whose changes were committed.
func (u *UpdateResult) Updated() []RecordOutcome { return u.outcomes[StatusUpdated] }

// Unchanged returns the records that needed no write.
func (u *UpdateResult) Unchanged() []RecordOutcome { return u.outcomes[StatusUnchanged] }

// Failed returns the records whose commit was rejected or mismatched.
func (u *UpdateResult) Failed() []RecordOutcome { return u.outcomes[StatusFailed] }

// Len returns the number of outcomes.
func (u *UpdateResult) Len() int {
	n := 0
	for _, list := range u.outcomes {
		n += len(list)
	}
	return n
}

// Summary counts the non-empty states, e.g. "updated: 1, unchanged: 2".
func (u *UpdateResult) Summary() string {
	var parts []string
	for _, status := range statusOrder {
		if n := len(u.outcomes[status]); n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", status, n))
		}
	}
	return strings.Join(parts, ", ")
}

func (u *UpdateResult) String() string {
	return u.Summary()
}

// ErrorReport lists the error of every failed record; "" when none failed.
func (u *UpdateResult) ErrorReport() string {
	failed := u.Failed()
	if len(failed) == 0 {
		return ""
	}
	lines := make([]string, len(failed))
	for i, o := range failed {
		lines[i] = "  " + o.Err.Error()
	}
	return "failed record(s): \n" + strings.Join(lines, "\n")
}

// Updates renders the old -> new diff of every updated record.
func (u *UpdateResult) Updates() string {
	var blocks []string
	for _, o := range u.Updated() {
		lines := []string{fmt.Sprintf("  Record - id:%s issue_number:%d ", o.RecordID, o.IssueNumber)}
		for _, ch := range o.Changes {
			lines = append(lines, fmt.Sprintf("    %s: %v -> %v", ch.Field, ch.Old, ch.New))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n")
}
