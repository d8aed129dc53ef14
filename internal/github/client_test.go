package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/domain"
)

// graphQLServer answers every POST /graphql with the body returned by respond.
func graphQLServer(t *testing.T, respond func(req graphQLRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(api.ClientConfig{BaseURL: srv.URL, Token: "test-token"},
		Repo{Owner: "acme", Name: "widgets", Project: "Roadmap"}, srv.Client(), nil)
}

func itemNode(number int, issueType, priority string) string {
	return fmt.Sprintf(`{
		"id": "item-%d",
		"fieldValues": {"nodes": [
			{},
			{"name": %q, "field": {"name": "Issue Type"}},
			{"name": %q, "field": {"name": "Priority"}},
			{"text": "Epic %d", "field": {"name": "Title"}}
		]},
		"content": {"title": "ignored", "url": "https://github.com/acme/widgets/issues/%d", "body": "body"}
	}`, number, issueType, priority, number, number)
}

func TestFetchProjectID(t *testing.T) {
	srv := graphQLServer(t, func(req graphQLRequest) string {
		assert.Equal(t, projectsQuery, req.Query)
		assert.Equal(t, "acme", req.Variables["owner"])
		assert.Equal(t, "widgets", req.Variables["name"])
		return `{"data": {"repository": {"projectsV2": {"nodes": [
			{"id": "PVT_other", "title": "Other"},
			{"id": "PVT_roadmap", "title": "Roadmap"}
		]}}}}`
	})

	id, err := newTestClient(srv).FetchProjectID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "PVT_roadmap", id)
}

func TestFetchProjectID_NotFound(t *testing.T) {
	srv := graphQLServer(t, func(graphQLRequest) string {
		return `{"data": {"repository": {"projectsV2": {"nodes": [{"id": "PVT_other", "title": "Other"}]}}}}`
	})

	_, err := newTestClient(srv).FetchProjectID(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch project ID for project: Roadmap")
}

// TestFetchEpicIssues_Paginates follows AAA (Arrange, Act, Assert) pattern.
func TestFetchEpicIssues_Paginates(t *testing.T) {
	// Arrange
	var cursors []any
	srv := graphQLServer(t, func(req graphQLRequest) string {
		assert.Equal(t, "PVT_roadmap", req.Variables["projectId"])
		assert.EqualValues(t, 2, req.Variables["first"])
		cursors = append(cursors, req.Variables["after"])

		if req.Variables["after"] == nil {
			return fmt.Sprintf(`{"data": {"node": {"items": {
				"nodes": [%s, %s],
				"pageInfo": {"hasNextPage": true, "endCursor": "c1"}
			}}}}`, itemNode(1, "🚀 Epic", "High"), itemNode(2, "Task", "Low"))
		}
		return fmt.Sprintf(`{"data": {"node": {"items": {
			"nodes": [%s, {"id": "draft", "fieldValues": {"nodes": []}, "content": {}}],
			"pageInfo": {"hasNextPage": false, "endCursor": "c2"}
		}}}}`, itemNode(3, "Epic", "Medium"))
	})
	client := newTestClient(srv)
	client.SetPageSize(2)

	// Act
	epics, err := client.FetchEpicIssues(context.Background(), "PVT_roadmap")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "c1"}, cursors)
	require.Len(t, epics, 2)
	assert.Equal(t, 1, epics[0].Number())
	assert.Equal(t, 3, epics[1].Number())
	assert.Equal(t, "Epic 1", epics[0].Title, "a Title project field overrides the issue title")

	priority, ok := epics[1].Field("priority")
	require.True(t, ok)
	assert.Equal(t, "Medium", priority.Value())
}

func TestFetchEpicIssues_GraphQLErrorsAbort(t *testing.T) {
	calls := 0
	srv := graphQLServer(t, func(graphQLRequest) string {
		calls++
		return `{"data": null, "errors": [{"type": "FORBIDDEN", "message": "Resource not accessible"}]}`
	})

	_, err := newTestClient(srv).FetchEpicIssues(context.Background(), "PVT_roadmap")

	require.Error(t, err)
	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, "FORBIDDEN", gqlErr.Errors[0].Type)
	assert.Contains(t, err.Error(), "Resource not accessible")
	assert.Equal(t, 1, calls)
}

func TestFetchIssue_LoadsFirstProjectItem(t *testing.T) {
	srv := graphQLServer(t, func(req graphQLRequest) string {
		assert.Equal(t, issueQuery, req.Query)
		assert.EqualValues(t, 7, req.Variables["number"])
		return `{"data": {"repository": {"issue": {
			"title": "Widget epic",
			"url": "https://github.com/acme/widgets/issues/7",
			"body": "Details",
			"projectItems": {"nodes": [{"fieldValues": {"nodes": [
				{"duration": 14, "startDate": "2024-01-08", "title": "Sprint 3", "field": {"name": "Iteration"}},
				{"number": 5, "field": {"name": "Estimate"}},
				{"date": "2024-03-01", "field": {"name": "Engineering Start Date"}},
				{"date": "not-a-date", "field": {"name": "End Date"}},
				{"unexpected": true, "field": {"name": "Mystery"}}
			]}}]}
		}}}}`
	})

	issue, err := newTestClient(srv).FetchIssue(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number())
	assert.Equal(t, "Widget epic", issue.Title)

	iteration, _ := issue.Field("iteration")
	assert.Equal(t, "Sprint 3(2024-01-08 - 14)", iteration.Value())
	estimate, _ := issue.Field("estimate")
	assert.Equal(t, float64(5), estimate.Value())
	start, _ := issue.Field("engineering_start_date")
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start.Value())

	_, hasEnd := issue.Field("end_date")
	assert.False(t, hasEnd, "unparsable dates are dropped")
	_, hasMystery := issue.Field("mystery")
	assert.False(t, hasMystery, "unknown shapes are dropped")
}

func TestFetchIssue_NotFound(t *testing.T) {
	srv := graphQLServer(t, func(graphQLRequest) string {
		return `{"data": {"repository": {"issue": null}}}`
	})

	_, err := newTestClient(srv).FetchIssue(context.Background(), 404)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue 404 not found in acme/widgets")
}

func TestDo_ReturnsErrorsWithoutFailing(t *testing.T) {
	srv := graphQLServer(t, func(graphQLRequest) string {
		return `{"data": {"repository": null}, "errors": [{"type": "NOT_FOUND", "message": "Could not resolve"}]}`
	})

	resp, err := newTestClient(srv).Do(context.Background(), RepoProbeQuery, nil)

	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Type)
}

func TestParseFieldValue_KeyOrder(t *testing.T) {
	tests := []struct {
		name string
		node map[string]any
		want domain.FieldValue
	}{
		{"text wins", map[string]any{"text": "hello", "name": "ignored"}, domain.TextValue("hello")},
		{"iteration before name", map[string]any{"duration": float64(7), "startDate": "2024-02-01", "title": "S1"},
			domain.IterationValue("S1", "2024-02-01", 7)},
		{"number", map[string]any{"number": 2.5}, domain.NumberValue(2.5)},
		{"single select", map[string]any{"name": "High"}, domain.SingleSelectValue("High")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFieldValue(tt.node, nil)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListWorkflowRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/actions/workflows/123/runs", r.URL.Path)
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"total_count": 1, "workflow_runs": [{
			"id": 99, "run_number": 46, "event": "schedule", "status": "completed",
			"conclusion": "success",
			"run_started_at": "2024-10-18T21:43:46Z", "updated_at": "2024-10-18T21:44:17Z"
		}]}`))
	}))
	defer srv.Close()

	runs, err := newTestClient(srv).ListWorkflowRuns(context.Background(), "123", 0)

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(99), runs[0].ID)
	assert.Equal(t, 46, runs[0].Number)
	assert.True(t, runs[0].IsCompleted())
	assert.Equal(t, 31*time.Second, runs[0].Duration())
}

func TestGistRoundTrip(t *testing.T) {
	var patched string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gists/g1", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"files": {"run_history.csv": {"content": "line"}}}`))
		case http.MethodPatch:
			var body gist
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			patched = body.Files["run_history.csv"].Content
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()
	client := newTestClient(srv)

	content, err := client.GetGistFile(context.Background(), "g1", "run_history.csv")
	require.NoError(t, err)
	assert.Equal(t, "line", content)

	_, err = client.GetGistFile(context.Background(), "g1", "missing.csv")
	assert.True(t, err != nil && strings.Contains(err.Error(), "missing.csv not found"))

	require.NoError(t, client.UpdateGistFile(context.Background(), "g1", "run_history.csv", "new"))
	assert.Equal(t, "new", patched)
}
