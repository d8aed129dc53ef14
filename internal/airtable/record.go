package airtable

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/domain"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// Field names every synced table must have.
const (
	FieldTitle       = "Title"
	FieldIssueLink   = "Issue Link"
	FieldIssueNumber = "Issue Number"
)

// RequiredFields are checked against the table schema before a sync.
var RequiredFields = []string{FieldTitle, FieldIssueLink, FieldIssueNumber}

// RecordData is a row as the Airtable API sends it.
type RecordData struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// WriteIntent is the set of field writes staged on one record.
type WriteIntent struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Empty reports whether nothing is staged.
func (w WriteIntent) Empty() bool {
	return len(w.Fields) == 0
}

// FieldChange is a committed write.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// RecordOutcome is the adjudication of one record after a batch commit.
type RecordOutcome struct {
	RecordID    string
	IssueNumber int
	Status      Status
	Changes     []FieldChange
	Err         error
}

// Record is an Airtable row: a snapshot of its remote fields plus the writes
// staged against it.
type Record struct {
	id      string
	fields  map[string]any
	changes *Changeset
	logger  *zap.Logger
}

// NewRecord wraps a row returned by the API.
func NewRecord(data RecordData, logger *zap.Logger) *Record {
	fields := make(map[string]any, len(data.Fields))
	for k, v := range data.Fields {
		fields[k] = v
	}
	return &Record{
		id:      data.ID,
		fields:  fields,
		changes: NewChangeset(),
		logger:  logging.OrNop(logger),
	}
}

// ID returns the Airtable record id.
func (r *Record) ID() string { return r.id }

// Field returns the snapshot value of a field.
func (r *Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Fields returns a copy of the snapshot.
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Changes exposes the staged writes.
func (r *Record) Changes() *Changeset { return r.changes }

// Title returns the Title field, or "" when it is not text.
func (r *Record) Title() string {
	s, _ := r.fields[FieldTitle].(string)
	return s
}

// IssueLink returns the Issue Link field.
func (r *Record) IssueLink() string {
	s, _ := r.fields[FieldIssueLink].(string)
	return s
}

// IssueNumber returns the GitHub issue number the row tracks.
func (r *Record) IssueNumber() (int, error) {
	switch v := r.fields[FieldIssueNumber].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("record %s: invalid %s %q: %w", r.id, FieldIssueNumber, v, err)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("record %s: %s is empty", r.id, FieldIssueNumber)
	default:
		return 0, fmt.Errorf("record %s: invalid %s %v", r.id, FieldIssueNumber, v)
	}
}

// RepoName returns the path segment preceding "/issues/" in the issue link:
// "https://github.com/acme/widgets/issues/42" gives "widgets".
func (r *Record) RepoName() (string, error) {
	return RepoNameFromLink(r.IssueLink())
}

// RepoNameFromLink extracts the repository name from an issue URL.
func RepoNameFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidIssueLink, link)
	}
	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "issues" && i > 0 && parts[i-1] != "" {
			return parts[i-1], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidIssueLink, link)
}

// SetFields stages every field whose coerced value differs from the snapshot
// and returns the record's complete write intent.
func (r *Record) SetFields(fields map[string]any) WriteIntent {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.setField(name, fields[name])
	}
	return r.Intent()
}

func (r *Record) setField(name string, value any) {
	value = coerce(value)
	current, exists := r.fields[name]

	if exists && valuesEqual(current, value) {
		r.changes.Drop(name)
		return
	}

	logging.Debug(r.logger, fmt.Sprintf("record %s field '%s': %v -> %v", r.id, name, current, value))

	if exists && current != nil && reflect.TypeOf(current) != reflect.TypeOf(value) {
		r.logger.Warn(fmt.Sprintf("field type mismatch: %s - %v (%T) != %T", name, current, current, value))
		return
	}

	r.changes.Stage(name, value)
}

// coerce converts a source value to what the Airtable API stores: dates
// become "YYYY-MM-DD" strings and integers become JSON numbers.
func coerce(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(domain.DateLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(domain.DateLayout)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}

// Intent returns the outstanding writes of the record.
func (r *Record) Intent() WriteIntent {
	return WriteIntent{ID: r.id, Fields: r.changes.Values()}
}

// Commit adjudicates the record against its acknowledgment from a batch update.
func (r *Record) Commit(ack RecordData) RecordOutcome {
	number, _ := r.IssueNumber()
	outcome := RecordOutcome{RecordID: r.id, IssueNumber: number}

	if ack.ID != r.id {
		outcome.Status = StatusFailed
		outcome.Err = &IdentityMismatchError{Expected: r.id, Actual: ack.ID}
		return outcome
	}

	committed, mismatches := r.changes.Reconcile(ack.Fields)
	for _, ch := range committed {
		outcome.Changes = append(outcome.Changes, FieldChange{Field: ch.Field, Old: r.fields[ch.Field], New: ch.Value})
		r.fields[ch.Field] = ch.Value
	}

	switch {
	case len(mismatches) > 0:
		outcome.Status = StatusFailed
		outcome.Err = &FieldMismatchError{RecordID: r.id, Mismatches: mismatches}
	case r.changes.Len() > 0:
		outcome.Status = StatusFailed
		outcome.Err = &MissingFieldsError{RecordID: r.id, Fields: r.changes.Fields()}
	case len(outcome.Changes) > 0:
		outcome.Status = StatusUpdated
	default:
		outcome.Status = StatusUnchanged
	}
	return outcome
}

// String renders "number repo title | 'fields'" with long bodies shortened.
func (r *Record) String() string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		value := r.fields[name]
		if s, ok := value.(string); ok && name == "Body" {
			if len(s) > 40 {
				s = s[:40]
			}
			parts[i] = fmt.Sprintf("%s: %s...", name, s)
			continue
		}
		parts[i] = fmt.Sprintf("%s: %v", name, value)
	}

	number, _ := r.IssueNumber()
	repo, _ := r.RepoName()
	title := r.Title()
	if len(title) > 16 {
		title = title[:16]
	}
	return fmt.Sprintf("%5d %s %s | '%s'", number, repo, title, strings.Join(parts, ", "))
}
