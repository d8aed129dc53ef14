package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zhongkairen/airtable-sync/internal/domain"
)

// ListWorkflowRuns returns up to limit recent runs of a workflow, newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, workflowID string, limit int) ([]domain.WorkflowRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	url := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs?per_page=%d",
		c.BaseURL, c.repo.FullName(), workflowID, limit)

	var response githubWorkflowRunsResponse
	if err := c.DoJSON(ctx, http.MethodGet, url, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get workflow runs: %w", err)
	}

	runs := make([]domain.WorkflowRun, len(response.WorkflowRuns))
	for i, run := range response.WorkflowRuns {
		runs[i] = convertRun(run)
	}
	return runs, nil
}

// DownloadRunLogs returns the zip archive holding the logs of a run.
func (c *Client) DownloadRunLogs(ctx context.Context, runID int64) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%d/logs", c.BaseURL, c.repo.FullName(), runID)
	data, err := c.DoRaw(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download logs of run %d: %w", runID, err)
	}
	return data, nil
}

func convertRun(run githubWorkflowRun) domain.WorkflowRun {
	started := run.RunStartedAt
	if started.IsZero() {
		started = run.CreatedAt
	}
	return domain.WorkflowRun{
		ID:         run.ID,
		Number:     run.RunNumber,
		Event:      run.Event,
		Status:     run.Status,
		Conclusion: run.Conclusion,
		StartedAt:  started,
		UpdatedAt:  run.UpdatedAt,
		WebURL:     run.HTMLURL,
	}
}

// GitHub API response types
type githubWorkflowRunsResponse struct {
	TotalCount   int                 `json:"total_count"`
	WorkflowRuns []githubWorkflowRun `json:"workflow_runs"`
}

type githubWorkflowRun struct {
	ID           int64     `json:"id"`
	RunNumber    int       `json:"run_number"`
	Event        string    `json:"event"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HTMLURL      string    `json:"html_url"`
	CreatedAt    time.Time `json:"created_at"`
	RunStartedAt time.Time `json:"run_started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
