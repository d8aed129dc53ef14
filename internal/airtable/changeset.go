package airtable

import (
	"sort"

	"github.com/google/go-cmp/cmp"
)

// ChangeState is the lifecycle of a staged field write.
type ChangeState int

const (
	// Pending changes are staged and not yet confirmed.
	Pending ChangeState = iota
	// Committed changes were echoed back with the staged value.
	Committed
	// Rejected changes were echoed back with another value. They stay in the
	// changeset and are sent again with the next intent.
	Rejected
)

func (s ChangeState) String() string {
	switch s {
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// PendingChange is one staged field write.
type PendingChange struct {
	Field string
	Value any
	State ChangeState
}

// Changeset holds the staged writes of a record.
type Changeset struct {
	changes map[string]*PendingChange
}

// NewChangeset returns an empty changeset.
func NewChangeset() *Changeset {
	return &Changeset{changes: make(map[string]*PendingChange)}
}

// Stage adds or replaces the write of field.
func (c *Changeset) Stage(field string, value any) {
	c.changes[field] = &PendingChange{Field: field, Value: value, State: Pending}
}

// Drop forgets the write of field.
func (c *Changeset) Drop(field string) {
	delete(c.changes, field)
}

// Get returns the staged change of field.
func (c *Changeset) Get(field string) (PendingChange, bool) {
	ch, ok := c.changes[field]
	if !ok {
		return PendingChange{}, false
	}
	return *ch, true
}

// Len returns the number of outstanding changes.
func (c *Changeset) Len() int {
	return len(c.changes)
}

// Fields returns the outstanding field names, sorted.
func (c *Changeset) Fields() []string {
	names := make([]string, 0, len(c.changes))
	for name := range c.changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns field -> staged value for every outstanding change.
func (c *Changeset) Values() map[string]any {
	values := make(map[string]any, len(c.changes))
	for name, ch := range c.changes {
		values[name] = ch.Value
	}
	return values
}

// Reconcile compares every outstanding change with the acknowledged fields.
// Equal values are marked Committed and leave the changeset; unequal values
// are marked Rejected and reported; fields absent from ack stay Pending.
func (c *Changeset) Reconcile(ack map[string]any) (committed []PendingChange, mismatches []FieldMismatch) {
	for _, name := range c.Fields() {
		ch := c.changes[name]
		actual, ok := ack[name]
		if !ok {
			continue
		}
		if valuesEqual(ch.Value, actual) {
			ch.State = Committed
			committed = append(committed, *ch)
			delete(c.changes, name)
			continue
		}
		ch.State = Rejected
		mismatches = append(mismatches, FieldMismatch{Field: name, Expected: ch.Value, Actual: actual})
	}
	return committed, mismatches
}

func valuesEqual(a, b any) bool {
	return cmp.Equal(a, b)
}
