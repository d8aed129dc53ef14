// Package tokencheck diagnoses whether a GitHub token can read the repository
// and the project the sync is configured for.
package tokencheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/github"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// ErrorTypeInvalidResponse is used when the response itself does not answer the probe.
const ErrorTypeInvalidResponse = "INVALID_RESPONSE"

const (
	rowProject = "Project"
	rowRepo    = "Repo"
)

var projectHints = map[string]string{
	ErrorTypeInvalidResponse: "Check token has access to the project.",
	"FORBIDDEN":              "Check token access scope contains `projects` and the project is selected.",
	"NOT_FOUND":              "Check token resource owner is the same as the repo owner.",
}

var repoHints = map[string]string{
	"NOT_FOUND": "Check token has repository read accesses.",
}

// GraphQL posts raw GraphQL queries. *github.Client implements it.
type GraphQL interface {
	Do(ctx context.Context, query string, variables map[string]any) (*github.Response, error)
	ListProjects(ctx context.Context) ([]github.Project, error)
}

// CheckError is one problem found by a probe.
type CheckError struct {
	Type    string
	Message string
	Hint    string
}

// Check is one row of the checklist.
type Check struct {
	Name   string
	Errors []CheckError
}

// Passed reports whether the probe found nothing wrong.
func (c Check) Passed() bool {
	return len(c.Errors) == 0
}

// Report holds the checks in display order: project, then repository.
type Report struct {
	Checks []Check
}

// Valid reports whether every check passed.
func (r *Report) Valid() bool {
	for _, c := range r.Checks {
		if !c.Passed() {
			return false
		}
	}
	return true
}

// String renders the checklist without styling.
func (r *Report) String() string {
	return r.render(func(passed bool, s string) string { return s })
}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle = lipgloss.NewStyle().Faint(true)
)

// Checklist renders the report for a terminal.
func (r *Report) Checklist() string {
	return r.render(func(passed bool, s string) string {
		switch {
		case strings.HasPrefix(s, "  -"):
			return s
		case strings.HasPrefix(s, "    "):
			return hintStyle.Render(s)
		case passed:
			return passStyle.Render(s)
		default:
			return failStyle.Render(s)
		}
	})
}

func (r *Report) render(style func(passed bool, s string) string) string {
	var rows []string
	for _, c := range r.Checks {
		mark := "❌"
		if c.Passed() {
			mark = "✅"
		}
		rows = append(rows, style(c.Passed(), mark+" "+c.Name))
		for _, e := range c.Errors {
			row := "  - " + e.Message
			if e.Hint != "" {
				row += "\n" + style(c.Passed(), "    💡"+e.Hint)
			}
			rows = append(rows, style(c.Passed(), row))
		}
	}
	return strings.Join(rows, "\n")
}

// Verifier probes the repository and the project with a token.
type Verifier struct {
	client    GraphQL
	owner     string
	repo      string
	projectID string
	logger    *zap.Logger
}

// NewVerifier creates a verifier for repoName ("owner/name") and a project node id.
func NewVerifier(client GraphQL, repoName, projectID string, logger *zap.Logger) (*Verifier, error) {
	owner, repo, ok := strings.Cut(repoName, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q: expected owner/name", repoName)
	}
	return &Verifier{
		client:    client,
		owner:     owner,
		repo:      repo,
		projectID: projectID,
		logger:    logging.OrNop(logger),
	}, nil
}

// Verify runs both probes. Transport failures are returned as errors; any
// other problem becomes a row entry of the report.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	repoErrors, err := v.probe(ctx, github.RepoProbeQuery,
		map[string]any{"owner": v.owner, "name": v.repo}, "repository")
	if err != nil {
		return nil, err
	}
	projectErrors, err := v.probe(ctx, github.ProjectProbeQuery,
		map[string]any{"id": v.projectID}, "node")
	if err != nil {
		return nil, err
	}

	report := &Report{Checks: []Check{
		{Name: rowProject, Errors: withHints(projectErrors, projectHints)},
		{Name: rowRepo, Errors: withHints(repoErrors, repoHints)},
	}}
	logging.Verbose(v.logger, fmt.Sprintf("token check: valid=%t", report.Valid()))
	return report, nil
}

// probe posts query and inspects data.<key>.id.
func (v *Verifier) probe(ctx context.Context, query string, variables map[string]any, key string) ([]CheckError, error) {
	resp, err := v.client.Do(ctx, query, variables)
	if err != nil {
		return nil, err
	}
	logging.Debug(v.logger, fmt.Sprintf("token check %s: data=%s errors=%v", key, resp.Data, resp.Errors))
	return inspect(resp, key), nil
}

func inspect(resp *github.Response, key string) []CheckError {
	if resp == nil {
		return []CheckError{{Type: ErrorTypeInvalidResponse, Message: "response not found"}}
	}
	if len(resp.Errors) > 0 {
		out := make([]CheckError, len(resp.Errors))
		for i, e := range resp.Errors {
			out[i] = CheckError{Type: e.Type, Message: e.Message}
		}
		return out
	}

	var data map[string]map[string]any
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return []CheckError{{Type: ErrorTypeInvalidResponse, Message: "response not found"}}
		}
	}
	node := data[key]
	if len(node) == 0 {
		return []CheckError{{Type: ErrorTypeInvalidResponse, Message: "data." + key + " not found"}}
	}
	if id, _ := node["id"].(string); id != "" {
		return nil
	}
	return []CheckError{{Type: ErrorTypeInvalidResponse, Message: "unknown error"}}
}

func withHints(errs []CheckError, hints map[string]string) []CheckError {
	for i := range errs {
		errs[i].Hint = hints[errs[i].Type]
	}
	return errs
}

// QueryProjectID returns the id of the repository project titled name, or ""
// when no project has that title.
func (v *Verifier) QueryProjectID(ctx context.Context, name string) (string, error) {
	projects, err := v.client.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		if p.Title == name {
			return p.ID, nil
		}
	}
	return "", nil
}
