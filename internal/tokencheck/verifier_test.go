package tokencheck

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/github"
)

// fakeGraphQL answers the repository probe and the project probe.
type fakeGraphQL struct {
	repo     *github.Response
	project  *github.Response
	projects []github.Project
	err      error
	vars     []map[string]any
}

func (f *fakeGraphQL) Do(_ context.Context, query string, variables map[string]any) (*github.Response, error) {
	f.vars = append(f.vars, variables)
	if f.err != nil {
		return nil, f.err
	}
	if query == github.RepoProbeQuery {
		return f.repo, nil
	}
	return f.project, nil
}

func (f *fakeGraphQL) ListProjects(context.Context) ([]github.Project, error) {
	return f.projects, f.err
}

func data(s string) *github.Response {
	return &github.Response{Data: json.RawMessage(s)}
}

func TestVerify_Valid(t *testing.T) {
	client := &fakeGraphQL{
		repo:    data(`{"repository":{"id":"R_1","name":"repo"}}`),
		project: data(`{"node":{"id":"PVT_1","title":"Roadmap"}}`),
	}
	v, err := NewVerifier(client, "octo/repo", "PVT_1", nil)
	require.NoError(t, err)

	report, err := v.Verify(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Equal(t, "✅ Project\n✅ Repo", report.String())
	assert.Equal(t, []map[string]any{
		{"owner": "octo", "name": "repo"},
		{"id": "PVT_1"},
	}, client.vars)
}

func TestVerify_Hints(t *testing.T) {
	tests := []struct {
		name    string
		repo    *github.Response
		project *github.Response
		want    string
	}{
		{
			name: "project forbidden",
			repo: data(`{"repository":{"id":"R_1"}}`),
			project: &github.Response{
				Data:   json.RawMessage(`{"node":null}`),
				Errors: []github.ErrorEntry{{Type: "FORBIDDEN", Message: "Resource not accessible by personal access token"}},
			},
			want: "❌ Project\n  - Resource not accessible by personal access token\n" +
				"    💡Check token access scope contains `projects` and the project is selected.\n✅ Repo",
		},
		{
			name: "repo not found",
			repo: &github.Response{Errors: []github.ErrorEntry{
				{Type: "NOT_FOUND", Message: "Could not resolve to a Repository with the name 'octo/repo'."},
			}},
			project: data(`{"node":{"id":"PVT_1"}}`),
			want: "✅ Project\n❌ Repo\n  - Could not resolve to a Repository with the name 'octo/repo'.\n" +
				"    💡Check token has repository read accesses.",
		},
		{
			name:    "node missing",
			repo:    data(`{"repository":{"id":"R_1"}}`),
			project: data(`{"node":null}`),
			want:    "❌ Project\n  - data.node not found\n    💡Check token has access to the project.\n✅ Repo",
		},
		{
			name:    "repository without id has no repo hint",
			repo:    data(`{"repository":{"name":"repo"}}`),
			project: nil,
			want: "❌ Project\n  - response not found\n    💡Check token has access to the project.\n" +
				"❌ Repo\n  - unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(&fakeGraphQL{repo: tt.repo, project: tt.project}, "octo/repo", "PVT_1", nil)
			require.NoError(t, err)

			report, err := v.Verify(context.Background())

			require.NoError(t, err)
			assert.False(t, report.Valid())
			assert.Equal(t, tt.want, report.String())
		})
	}
}

func TestVerify_TransportError(t *testing.T) {
	v, err := NewVerifier(&fakeGraphQL{err: errors.New("connection refused")}, "octo/repo", "PVT_1", nil)
	require.NoError(t, err)

	_, err = v.Verify(context.Background())

	assert.EqualError(t, err, "connection refused")
}

func TestNewVerifier_InvalidRepo(t *testing.T) {
	for _, name := range []string{"repo", "/repo", "octo/"} {
		_, err := NewVerifier(&fakeGraphQL{}, name, "PVT_1", nil)
		assert.Error(t, err, name)
	}
}

func TestQueryProjectID(t *testing.T) {
	client := &fakeGraphQL{projects: []github.Project{{ID: "PVT_1", Title: "Ads"}, {ID: "PVT_2", Title: "Roadmap"}}}
	v, err := NewVerifier(client, "octo/repo", "", nil)
	require.NoError(t, err)

	id, err := v.QueryProjectID(context.Background(), "Roadmap")
	require.NoError(t, err)
	assert.Equal(t, "PVT_2", id)

	id, err = v.QueryProjectID(context.Background(), "Missing")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestChecklist_ContainsRows(t *testing.T) {
	report := &Report{Checks: []Check{
		{Name: "Project"},
		{Name: "Repo", Errors: []CheckError{{Type: "NOT_FOUND", Message: "missing", Hint: "look again"}}},
	}}

	out := report.Checklist()

	assert.Contains(t, out, "Project")
	assert.Contains(t, out, "  - missing")
	assert.Contains(t, out, "look again")
}

func TestVerify_WithGitHubClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if strings.Contains(string(body), "repository(") {
			_, _ = w.Write([]byte(`{"data":{"repository":{"id":"R_1","name":"repo"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"node":null},"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a node with the global id of 'PVT_x'"}]}`))
	}))
	defer server.Close()

	client := github.NewClient(api.ClientConfig{BaseURL: server.URL, Token: "secret"},
		github.Repo{Owner: "octo", Name: "repo"}, server.Client(), nil)
	v, err := NewVerifier(client, "octo/repo", "PVT_x", nil)
	require.NoError(t, err)

	report, err := v.Verify(context.Background())

	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.True(t, report.Checks[1].Passed())
	assert.Equal(t, "Check token resource owner is the same as the repo owner.", report.Checks[0].Errors[0].Hint)
}
