package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongkairen/airtable-sync/internal/api"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(api.ClientConfig{BaseURL: srv.URL, Token: "pat-test"},
		Table{BaseID: "appBase", TableID: "tblIssues", ViewName: "Grid view"}, srv.Client(), nil)
}

func TestListRecords_FollowsOffset(t *testing.T) {
	// Arrange
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/appBase/tblIssues", r.URL.Path)
		assert.Equal(t, "Grid view", r.URL.Query().Get("view"))
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		offsets = append(offsets, r.URL.Query().Get("offset"))

		if r.URL.Query().Get("offset") == "" {
			_, _ = w.Write([]byte(`{"records": [{"id": "rec1", "fields": {"Title": "A"}}], "offset": "itr1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"records": [{"id": "rec2", "fields": {"Title": "B"}}]}`))
	}))
	defer srv.Close()

	// Act
	records, err := newTestClient(srv).ListRecords(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"", "itr1"}, offsets)
	require.Len(t, records, 2)
	assert.Equal(t, "rec2", records[1].ID)
	assert.Equal(t, "B", records[1].Fields["Title"])
}

func TestFetchSchema_MatchesByIDOrName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/meta/bases/appBase/tables", r.URL.Path)
		_, _ = w.Write([]byte(`{"tables": [
			{"id": "tblOther", "name": "Other", "fields": []},
			{"id": "tblXYZ", "name": "tblIssues", "fields": [
				{"id": "fld1", "name": "Title", "type": "singleLineText"},
				{"id": "fld2", "name": "Priority", "type": "singleSelect"}
			]}
		]}`))
	}))
	defer srv.Close()

	schema, err := newTestClient(srv).FetchSchema(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "tblXYZ", schema.TableID)
	assert.True(t, schema.Has("Priority"))
	assert.Equal(t, "singleSelect", schema.Type("Priority"))
	assert.Equal(t, []string{"Priority", "Title"}, schema.Names())
	assert.Equal(t, []string{"Issue Link"}, schema.Missing("Title", "Issue Link"))
}

func TestUpdateRecords_ChunksAtTen(t *testing.T) {
	// Arrange
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var req updateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Records))

		resp := updateResponse{}
		for _, rec := range req.Records {
			resp.Records = append(resp.Records, RecordData{ID: rec.ID, Fields: rec.Fields})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	intents := make([]WriteIntent, 23)
	for i := range intents {
		intents[i] = WriteIntent{ID: fmt.Sprintf("rec%d", i), Fields: map[string]any{"Priority": "High"}}
	}

	// Act
	acked, err := newTestClient(srv).UpdateRecords(context.Background(), intents)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, batchSizes)
	assert.Len(t, acked, 23)
}

func TestUpdateRecords_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": {"type": "INVALID_VALUE_FOR_COLUMN"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).UpdateRecords(context.Background(), []WriteIntent{{ID: "rec1", Fields: map[string]any{"X": 1}}})

	require.Error(t, err)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "INVALID_VALUE_FOR_COLUMN")
}
