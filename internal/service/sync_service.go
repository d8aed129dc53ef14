// Package service orchestrates one sync pass from a GitHub project to an
// Airtable table.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/airtable"
	"github.com/zhongkairen/airtable-sync/internal/domain"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// IssueReader yields the source issues. *github.CachingReader implements it.
type IssueReader interface {
	LoadEpics(ctx context.Context) ([]*domain.Issue, error)
	Issue(ctx context.Context, number int) (*domain.Issue, error)
}

// RecordStore holds the target rows. *airtable.Store implements it.
type RecordStore interface {
	Schema(ctx context.Context) (*airtable.Schema, error)
	Load(ctx context.Context) error
	Records() []*airtable.Record
	RecordsInRepo(repo string) ([]*airtable.Record, error)
	Commit(ctx context.Context, intents []airtable.WriteIntent) (*airtable.UpdateResult, error)
}

// SchemaError is returned when the table lacks mapped or required fields.
type SchemaError struct {
	Unknown   []string
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown field(s): %s not found in Airtable table schema: %s.",
			quoteList(e.Unknown), quoteList(e.Available)))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("required field(s): %s not found in Airtable table schema: %s.",
			quoteList(e.Missing), quoteList(e.Available)))
	}
	return "sync aborted: " + strings.Join(parts, " ")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}

// SyncService reconciles the rows of one repository with their issues.
type SyncService struct {
	issues  IssueReader
	records RecordStore
	repo    string
	// fieldMap maps normalized GitHub field names to Airtable field names.
	fieldMap map[string]string
	logger   *zap.Logger
}

// NewSyncService creates a sync service. fieldMap keys are GitHub project field
// names as configured; they are normalized once here.
func NewSyncService(issues IssueReader, records RecordStore, repo string, fieldMap map[string]string, logger *zap.Logger) *SyncService {
	normalized := make(map[string]string, len(fieldMap))
	for src, dst := range fieldMap {
		normalized[domain.NormalizeFieldName(src)] = dst
	}
	return &SyncService{
		issues:   issues,
		records:  records,
		repo:     repo,
		fieldMap: normalized,
		logger:   logging.OrNop(logger),
	}
}

// FieldMap returns the normalized field map.
func (s *SyncService) FieldMap() map[string]string {
	out := make(map[string]string, len(s.fieldMap))
	for k, v := range s.fieldMap {
		out[k] = v
	}
	return out
}

// Verify checks that every mapped and every required field exists in the
// table schema.
func (s *SyncService) Verify(ctx context.Context) error {
	schema, err := s.records.Schema(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table schema: %w", err)
	}

	destinations := make([]string, 0, len(s.fieldMap))
	for _, dst := range s.fieldMap {
		destinations = append(destinations, dst)
	}
	sort.Strings(destinations)

	unknown := schema.Missing(destinations...)
	missing := schema.Missing(airtable.RequiredFields...)
	if len(unknown) == 0 && len(missing) == 0 {
		return nil
	}

	schemaErr := &SchemaError{Unknown: unknown, Missing: missing, Available: schema.Names()}
	s.logger.Error(schemaErr.Error())
	return schemaErr
}

// Sync runs one pass: verify, read both sides, stage the mapped fields of every
// row of the repository and commit them in one batch.
func (s *SyncService) Sync(ctx context.Context) (*airtable.UpdateResult, error) {
	if err := s.Verify(ctx); err != nil {
		return nil, err
	}
	if err := s.records.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	if _, err := s.issues.LoadEpics(ctx); err != nil {
		return nil, fmt.Errorf("failed to read issues: %w", err)
	}

	schema, err := s.records.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table schema: %w", err)
	}
	records, err := s.records.RecordsInRepo(s.repo)
	if err != nil {
		return nil, err
	}
	logging.Verbose(s.logger, fmt.Sprintf("syncing %d record(s) from current repo: %s, of total %d record(s).",
		len(records), s.repo, len(s.records.Records())))

	local := airtable.NewUpdateResult()
	var intents []airtable.WriteIntent
	for _, record := range records {
		number, err := record.IssueNumber()
		if err != nil {
			return nil, err
		}
		issue, err := s.issues.Issue(ctx, number)
		if err != nil {
			return nil, err
		}

		intent := record.SetFields(s.mapFields(issue, schema))
		if intent.Empty() {
			local.Add(airtable.RecordOutcome{RecordID: record.ID(), IssueNumber: number, Status: airtable.StatusUnchanged})
			continue
		}
		intents = append(intents, intent)
	}

	result, err := s.records.Commit(ctx, intents)
	if err != nil {
		return nil, err
	}
	result.Merge(local)

	s.report(result, len(records))
	return result, nil
}

// mapFields renames the issue fields that are mapped, known to the schema and
// non-empty.
func (s *SyncService) mapFields(issue *domain.Issue, schema *airtable.Schema) map[string]any {
	fields := make(map[string]any)
	for src, dst := range s.fieldMap {
		value, ok := issue.Field(src)
		if !ok || value.IsEmpty() || !schema.Has(dst) {
			continue
		}
		fields[dst] = value.Value()
	}
	return fields
}

func (s *SyncService) report(result *airtable.UpdateResult, total int) {
	if report := result.ErrorReport(); report != "" {
		s.logger.Error(report)
	}
	if updates := result.Updates(); updates != "" {
		logging.Verbose(s.logger, "\n"+updates)
	}
	s.logger.Info(fmt.Sprintf("synced %d record(s): %s", total, result.Summary()))
}
