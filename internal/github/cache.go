package github

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/domain"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// IssueFetcher is the part of Client the cache decorates.
type IssueFetcher interface {
	FetchProjectID(ctx context.Context) (string, error)
	FetchEpicIssues(ctx context.Context, projectID string) ([]*domain.Issue, error)
	FetchIssue(ctx context.Context, number int) (*domain.Issue, error)
}

// CachingReader wraps an IssueFetcher and remembers every issue it has seen
// for the lifetime of one sync pass. It is not safe for concurrent use.
type CachingReader struct {
	fetcher IssueFetcher
	issues  map[int]*domain.Issue
	logger  *zap.Logger
}

// NewCachingReader creates an empty cache in front of fetcher.
func NewCachingReader(fetcher IssueFetcher, logger *zap.Logger) *CachingReader {
	return &CachingReader{
		fetcher: fetcher,
		issues:  make(map[int]*domain.Issue),
		logger:  logging.OrNop(logger),
	}
}

// LoadEpics resolves the project and caches its epic issues.
func (r *CachingReader) LoadEpics(ctx context.Context) ([]*domain.Issue, error) {
	projectID, err := r.fetcher.FetchProjectID(ctx)
	if err != nil {
		return nil, err
	}
	epics, err := r.fetcher.FetchEpicIssues(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, issue := range epics {
		r.issues[issue.Number()] = issue
	}
	return epics, nil
}

// Issue returns a cached issue, fetching and caching it on a miss.
func (r *CachingReader) Issue(ctx context.Context, number int) (*domain.Issue, error) {
	if issue, ok := r.issues[number]; ok {
		logging.Debug(r.logger, fmt.Sprintf("cache hit: issue %d", number))
		return issue, nil
	}

	logging.Debug(r.logger, fmt.Sprintf("cache miss: issue %d - fetching from API", number))
	issue, err := r.fetcher.FetchIssue(ctx, number)
	if err != nil {
		return nil, err
	}
	r.issues[number] = issue
	return issue, nil
}

// Len returns the number of cached issues.
func (r *CachingReader) Len() int {
	return len(r.issues)
}
