package airtable

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// API is the part of Client the store needs.
type API interface {
	ListRecords(ctx context.Context) ([]RecordData, error)
	FetchSchema(ctx context.Context) (*Schema, error)
	UpdateRecords(ctx context.Context, intents []WriteIntent) ([]RecordData, error)
}

// Store holds the rows of one sync pass and the table schema.
type Store struct {
	api     API
	records []*Record
	byID    map[string]*Record
	schema  *Schema
	logger  *zap.Logger
}

// NewStore creates an empty store.
func NewStore(api API, logger *zap.Logger) *Store {
	return &Store{
		api:    api,
		byID:   make(map[string]*Record),
		logger: logging.OrNop(logger),
	}
}

// Load reads every row of the configured view, replacing earlier rows.
func (s *Store) Load(ctx context.Context) error {
	if src, ok := s.api.(fmt.Stringer); ok {
		logging.Verbose(s.logger, "reading Airtable records from "+src.String())
	}

	rows, err := s.api.ListRecords(ctx)
	if err != nil {
		return err
	}

	s.records = make([]*Record, len(rows))
	s.byID = make(map[string]*Record, len(rows))
	lines := make([]string, len(rows))
	for i, row := range rows {
		r := NewRecord(row, s.logger)
		s.records[i] = r
		s.byID[r.ID()] = r
		number, _ := r.IssueNumber()
		lines[i] = fmt.Sprintf("    %d %s", number, r.Title())
	}
	logging.Debug(s.logger, "all records: \n"+strings.Join(lines, "\n"))
	return nil
}

// Records returns every loaded row.
func (s *Store) Records() []*Record {
	return s.records
}

// RecordsInRepo returns the rows whose issue link points into repo. A row
// with a malformed issue link fails the whole call.
func (s *Store) RecordsInRepo(repo string) ([]*Record, error) {
	var out []*Record
	for _, r := range s.records {
		name, err := r.RepoName()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID(), err)
		}
		if name == repo {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordByID returns a loaded row, or nil.
func (s *Store) RecordByID(id string) *Record {
	return s.byID[id]
}

// Schema returns the table schema, fetching it on first use.
func (s *Store) Schema(ctx context.Context) (*Schema, error) {
	if s.schema != nil {
		return s.schema, nil
	}
	schema, err := s.api.FetchSchema(ctx)
	if err != nil {
		return nil, err
	}
	s.schema = schema
	return schema, nil
}

// Commit sends the intents in one batch update and adjudicates every row.
// Acknowledged rows that are not loaded, and sent rows that are not
// acknowledged, are failed. Transport errors abort the commit.
func (s *Store) Commit(ctx context.Context, intents []WriteIntent) (*UpdateResult, error) {
	result := NewUpdateResult()
	if len(intents) == 0 {
		return result, nil
	}

	acks, err := s.api.UpdateRecords(ctx, intents)
	if err != nil {
		return nil, err
	}

	acked := make(map[string]bool, len(acks))
	for _, ack := range acks {
		acked[ack.ID] = true
		record := s.RecordByID(ack.ID)
		if record == nil {
			result.Add(RecordOutcome{RecordID: ack.ID, Status: StatusFailed, Err: &RecordNotFoundError{ID: ack.ID}})
			continue
		}
		result.Add(record.Commit(ack))
	}

	for _, intent := range intents {
		if acked[intent.ID] {
			continue
		}
		outcome := RecordOutcome{RecordID: intent.ID, Status: StatusFailed, Err: &UnacknowledgedError{ID: intent.ID}}
		if record := s.RecordByID(intent.ID); record != nil {
			outcome.IssueNumber, _ = record.IssueNumber()
		}
		result.Add(outcome)
	}
	return result, nil
}
