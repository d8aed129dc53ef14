package airtable

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIssueLink is returned when an issue link has no "/issues/" segment.
var ErrInvalidIssueLink = errors.New("invalid issue link format")

// IdentityMismatchError is returned when an acknowledgment belongs to another record.
type IdentityMismatchError struct {
	Expected string
	Actual   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("record ID mismatch: %s != %s", e.Actual, e.Expected)
}

// FieldMismatch is a staged field the acknowledgment reported with another value.
type FieldMismatch struct {
	Field    string
	Expected any
	Actual   any
}

func (m FieldMismatch) String() string {
	return fmt.Sprintf("%s: %v != %v", m.Field, m.Expected, m.Actual)
}

// FieldMismatchError lists every staged field whose write was not confirmed as sent.
type FieldMismatchError struct {
	RecordID   string
	Mismatches []FieldMismatch
}

func (e *FieldMismatchError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("failed to update fields: %s.", strings.Join(parts, ", "))
}

// MissingFieldsError lists staged fields the acknowledgment left out.
type MissingFieldsError struct {
	RecordID string
	Fields   []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("failed to update fields: %s.", strings.Join(e.Fields, ", "))
}

// RecordNotFoundError is returned for an acknowledged row that is not loaded.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %s not found", e.ID)
}

// UnacknowledgedError is returned for a row that was sent but not echoed back.
type UnacknowledgedError struct {
	ID string
}

func (e *UnacknowledgedError) Error() string {
	return fmt.Sprintf("record %s not acknowledged", e.ID)
}
