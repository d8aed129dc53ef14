// Package github reads issues and their Project (v2) fields over GraphQL and
// talks to the Actions and Gist REST endpoints used by the run history tool.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/domain"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// DefaultPageSize is the number of project items requested per page.
const DefaultPageSize = 50

// Repo names the repository and the project the client reads.
type Repo struct {
	Owner string
	Name  string
	// Project is the project title; only needed for FetchProjectID.
	Project string
	// EpicField is the single-select field that marks epics.
	EpicField string
}

// FullName returns "owner/name".
func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// Client talks to the GitHub GraphQL and REST APIs.
type Client struct {
	*api.BaseClient
	repo     Repo
	pageSize int
	logger   *zap.Logger
}

// NewClient creates a new GitHub client.
func NewClient(config api.ClientConfig, repo Repo, httpClient api.HTTPClient, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.github.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if repo.EpicField == "" {
		repo.EpicField = domain.DefaultEpicField
	}

	base := api.NewBaseClient(config, httpClient)
	base.Headers["Accept"] = "application/vnd.github+json"
	base.Headers["X-GitHub-Api-Version"] = "2022-11-28"

	return &Client{
		BaseClient: base,
		repo:       repo,
		pageSize:   DefaultPageSize,
		logger:     logging.OrNop(logger),
	}
}

// Repo returns the repository the client was created for.
func (c *Client) Repo() Repo {
	return c.repo
}

// SetPageSize overrides DefaultPageSize.
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// ErrorEntry is one element of a GraphQL "errors" array.
type ErrorEntry struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Response is a GraphQL response before its data is decoded.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors"`
}

// GraphQLError is returned when a response carries errors.
type GraphQLError struct {
	Errors []ErrorEntry
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, entry := range e.Errors {
		if entry.Type != "" {
			msgs[i] = entry.Type + ": " + entry.Message
		} else {
			msgs[i] = entry.Message
		}
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Do posts a GraphQL query and returns the response as is, errors included.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	var resp Response
	req := graphQLRequest{Query: query, Variables: variables}
	if err := c.DoJSON(ctx, http.MethodPost, c.BaseURL+"/graphql", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query posts a GraphQL query and decodes its data into result. A response
// carrying errors fails with *GraphQLError.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, result interface{}) error {
	resp, err := c.Do(ctx, query, variables)
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return &GraphQLError{Errors: resp.Errors}
	}
	if result == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, result); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}

// Project is a Project (v2) linked to the repository.
type Project struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListProjects returns the first 100 projects of the repository.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var data struct {
		Repository *struct {
			ProjectsV2 struct {
				Nodes []Project `json:"nodes"`
			} `json:"projectsV2"`
		} `json:"repository"`
	}
	vars := map[string]any{"owner": c.repo.Owner, "name": c.repo.Name}
	if err := c.Query(ctx, projectsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("repository %s not found", c.repo.FullName())
	}
	return data.Repository.ProjectsV2.Nodes, nil
}

// FetchProjectID resolves the configured project title to its node id.
func (c *Client) FetchProjectID(ctx context.Context) (string, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return "", fmt.Errorf("error fetching project ID: %w", err)
	}
	for _, p := range projects {
		if p.Title == c.repo.Project {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("failed to fetch project ID for project: %s", c.repo.Project)
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type fieldValues struct {
	Nodes []map[string]any `json:"nodes"`
}

type issueContent struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Body  string `json:"body"`
}

type projectItem struct {
	ID          string        `json:"id"`
	FieldValues fieldValues   `json:"fieldValues"`
	Content     *issueContent `json:"content"`
}

type itemsPage struct {
	Node *struct {
		Items struct {
			Nodes    []projectItem `json:"nodes"`
			PageInfo pageInfo      `json:"pageInfo"`
		} `json:"items"`
	} `json:"node"`
}

// FetchEpicIssues pages through every item of the project and returns the
// issues whose epic field reads "Epic".
func (c *Client) FetchEpicIssues(ctx context.Context, projectID string) ([]*domain.Issue, error) {
	logging.Verbose(c.logger, fmt.Sprintf("fetching issues for project: %s (%s)", c.repo.Project, projectID))

	var (
		epics  []*domain.Issue
		total  int
		cursor string
	)
	for {
		vars := map[string]any{"projectId": projectID, "first": c.pageSize}
		if cursor != "" {
			vars["after"] = cursor
		}

		var page itemsPage
		if err := c.Query(ctx, itemsQuery, vars, &page); err != nil {
			return nil, fmt.Errorf("error fetching items: %w", err)
		}
		if page.Node == nil {
			return nil, fmt.Errorf("project %s not found", projectID)
		}

		items := page.Node.Items
		total += len(items.Nodes)
		for _, item := range items.Nodes {
			if item.Content == nil || item.Content.URL == "" {
				continue
			}
			issue := c.newIssue(*item.Content, item.FieldValues)
			if issue.IsEpic(c.repo.EpicField) {
				epics = append(epics, issue)
			}
		}

		if !items.PageInfo.HasNextPage {
			break
		}
		cursor = items.PageInfo.EndCursor
	}

	logging.Verbose(c.logger, fmt.Sprintf("found %d epic issues out of %d items", len(epics), total))
	for _, issue := range epics {
		logging.Debug(c.logger, fmt.Sprintf("%d - %s", issue.Number(), issue.Title))
	}
	return epics, nil
}

// FetchIssue loads a single issue and the field values of its first project item.
func (c *Client) FetchIssue(ctx context.Context, number int) (*domain.Issue, error) {
	var data struct {
		Repository *struct {
			Issue *struct {
				issueContent
				ProjectItems struct {
					Nodes []struct {
						FieldValues fieldValues `json:"fieldValues"`
					} `json:"nodes"`
				} `json:"projectItems"`
			} `json:"issue"`
		} `json:"repository"`
	}
	vars := map[string]any{"owner": c.repo.Owner, "name": c.repo.Name, "number": number}
	if err := c.Query(ctx, issueQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("error fetching issue %d: %w", number, err)
	}
	if data.Repository == nil || data.Repository.Issue == nil {
		return nil, fmt.Errorf("issue %d not found in %s", number, c.repo.FullName())
	}

	item := data.Repository.Issue
	content := item.issueContent
	if content.URL == "" {
		content.URL = fmt.Sprintf("https://github.com/%s/issues/%d", c.repo.FullName(), number)
	}
	var values fieldValues
	if len(item.ProjectItems.Nodes) > 0 {
		values = item.ProjectItems.Nodes[0].FieldValues
	}
	return c.newIssue(content, values), nil
}

func (c *Client) newIssue(content issueContent, values fieldValues) *domain.Issue {
	issue := domain.NewIssue(content.URL)
	issue.Title = content.Title
	issue.Body = content.Body
	loadFieldValues(issue, values.Nodes, c.logger)
	return issue
}
