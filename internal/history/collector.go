package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/domain"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// RunSource lists workflow runs and downloads their logs. *github.Client implements it.
type RunSource interface {
	ListWorkflowRuns(ctx context.Context, workflowID string, limit int) ([]domain.WorkflowRun, error)
	DownloadRunLogs(ctx context.Context, runID int64) ([]byte, error)
}

// Collector adds the new completed runs of a workflow to a history.
type Collector struct {
	source      RunSource
	workflowID  string
	concurrency int
	logger      *zap.Logger
}

// NewCollector creates a collector limited to api.MaxConcurrentRequests downloads.
func NewCollector(source RunSource, workflowID string, logger *zap.Logger) *Collector {
	return &Collector{
		source:      source,
		workflowID:  workflowID,
		concurrency: api.MaxConcurrentRequests,
		logger:      logging.OrNop(logger),
	}
}

// Collect fetches the recent runs, skips recorded and unfinished ones, reads
// the version of every other run from its log archive and adds them to h.
// It returns the number of runs added. Any download failure aborts the
// collection and h is left untouched.
func (c *Collector) Collect(ctx context.Context, h *History) (int, error) {
	runs, err := c.source.ListWorkflowRuns(ctx, c.workflowID, 100)
	if err != nil {
		return 0, err
	}

	var pending []domain.WorkflowRun
	for _, run := range runs {
		if h.Contains(run.Number) {
			continue
		}
		if !run.IsCompleted() {
			c.logger.Info(fmt.Sprintf("skipping run %d as %s", run.Number, run.Status))
			continue
		}
		pending = append(pending, run)
	}
	if len(pending) == 0 {
		c.logger.Info("no new runs to process")
		return 0, nil
	}

	items := make([]Item, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, run := range pending {
		i, run := i, run
		g.Go(func() error {
			archive, err := c.source.DownloadRunLogs(gctx, run.ID)
			if err != nil {
				return err
			}
			version, err := ExtractVersion(archive)
			if err != nil {
				return fmt.Errorf("run %d: %w", run.Number, err)
			}
			items[i] = NewItem(run, version)
			logging.Verbose(c.logger, fmt.Sprintf("processed run %d: v%s", run.Number, version))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	h.Add(items...)
	return len(items), nil
}
