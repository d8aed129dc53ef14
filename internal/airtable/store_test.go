package airtable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a test double for API.
type fakeAPI struct {
	rows        []RecordData
	schema      *Schema
	schemaCalls int
	updateFunc  func(intents []WriteIntent) ([]RecordData, error)
}

func (f *fakeAPI) ListRecords(context.Context) ([]RecordData, error) {
	return f.rows, nil
}

func (f *fakeAPI) FetchSchema(context.Context) (*Schema, error) {
	f.schemaCalls++
	return f.schema, nil
}

func (f *fakeAPI) UpdateRecords(_ context.Context, intents []WriteIntent) ([]RecordData, error) {
	return f.updateFunc(intents)
}

func row(id, link string, number float64) RecordData {
	return RecordData{ID: id, Fields: map[string]any{
		FieldTitle: "Issue " + id, FieldIssueLink: link, FieldIssueNumber: number,
	}}
}

func echo(intents []WriteIntent) ([]RecordData, error) {
	out := make([]RecordData, len(intents))
	for i, in := range intents {
		out[i] = RecordData{ID: in.ID, Fields: in.Fields}
	}
	return out, nil
}

func TestStore_RecordsInRepo(t *testing.T) {
	store := NewStore(&fakeAPI{rows: []RecordData{
		row("rec1", "https://github.com/acme/widgets/issues/1", 1),
		row("rec2", "https://github.com/acme/gadgets/issues/2", 2),
		row("rec3", "https://github.com/acme/widgets/issues/3", 3),
	}}, nil)
	require.NoError(t, store.Load(context.Background()))

	records, err := store.RecordsInRepo("widgets")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID())
	assert.Equal(t, "rec3", records[1].ID())
	assert.NotNil(t, store.RecordByID("rec2"))
	assert.Nil(t, store.RecordByID("rec9"))
}

func TestStore_RecordsInRepo_InvalidLink(t *testing.T) {
	store := NewStore(&fakeAPI{rows: []RecordData{row("rec1", "https://example.com/nothing", 1)}}, nil)
	require.NoError(t, store.Load(context.Background()))

	_, err := store.RecordsInRepo("widgets")

	assert.ErrorIs(t, err, ErrInvalidIssueLink)
}

func TestStore_SchemaIsCached(t *testing.T) {
	fake := &fakeAPI{schema: NewSchema("tbl", "Issues", []SchemaField{{Name: "Title"}})}
	store := NewStore(fake, nil)

	for i := 0; i < 3; i++ {
		schema, err := store.Schema(context.Background())
		require.NoError(t, err)
		assert.True(t, schema.Has("Title"))
	}
	assert.Equal(t, 1, fake.schemaCalls)
}

// TestStore_Commit follows AAA (Arrange, Act, Assert) pattern.
func TestStore_Commit(t *testing.T) {
	// Arrange
	fake := &fakeAPI{
		rows: []RecordData{
			row("rec1", "https://github.com/acme/widgets/issues/1", 1),
			row("rec2", "https://github.com/acme/widgets/issues/2", 2),
		},
		updateFunc: func(intents []WriteIntent) ([]RecordData, error) {
			acks, _ := echo(intents)
			// rec2 is dropped, a stranger row is echoed
			return []RecordData{acks[0], {ID: "recX", Fields: map[string]any{}}}, nil
		},
	}
	store := NewStore(fake, nil)
	require.NoError(t, store.Load(context.Background()))
	intents := []WriteIntent{
		store.RecordByID("rec1").SetFields(map[string]any{"Priority": "High"}),
		store.RecordByID("rec2").SetFields(map[string]any{"Priority": "Low"}),
	}

	// Act
	result, err := store.Commit(context.Background(), intents)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "updated: 1, failed: 2", result.Summary())
	assert.Contains(t, result.ErrorReport(), "record recX not found")
	assert.Contains(t, result.ErrorReport(), "record rec2 not acknowledged")

	var unacked *UnacknowledgedError
	for _, o := range result.Failed() {
		if errors.As(o.Err, &unacked) {
			assert.Equal(t, 2, o.IssueNumber)
		}
	}
	require.NotNil(t, unacked)
}

func TestStore_CommitTransportError(t *testing.T) {
	fake := &fakeAPI{updateFunc: func([]WriteIntent) ([]RecordData, error) {
		return nil, errors.New("connection reset")
	}}
	store := NewStore(fake, nil)

	_, err := store.Commit(context.Background(), []WriteIntent{{ID: "rec1", Fields: map[string]any{"A": "b"}}})

	assert.EqualError(t, err, "connection reset")
}

func TestStore_CommitNothing(t *testing.T) {
	store := NewStore(&fakeAPI{}, nil)

	result, err := store.Commit(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}
