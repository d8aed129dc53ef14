// Package airtable reads and batch-updates the rows of one Airtable table and
// reconciles every staged write against the API's acknowledgment.
package airtable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// MaxRecordsPerRequest is the Airtable cap on records per batch update.
const MaxRecordsPerRequest = 10

// Table selects the base, table and view a client works on.
type Table struct {
	BaseID   string
	TableID  string
	ViewName string
}

// Client talks to the Airtable REST API.
type Client struct {
	*api.BaseClient
	table  Table
	logger *zap.Logger
}

// NewClient creates a new Airtable client.
func NewClient(config api.ClientConfig, table Table, httpClient api.HTTPClient, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.airtable.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		BaseClient: api.NewBaseClient(config, httpClient),
		table:      table,
		logger:     logging.OrNop(logger),
	}
}

// Table returns the table the client was created for.
func (c *Client) Table() Table {
	return c.table
}

func (c *Client) String() string {
	return fmt.Sprintf("base: %s table: %s view: '%s'", c.table.BaseID, c.table.TableID, c.table.ViewName)
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/v0/%s/%s", c.BaseURL, url.PathEscape(c.table.BaseID), url.PathEscape(c.table.TableID))
}

type listResponse struct {
	Records []RecordData `json:"records"`
	Offset  string       `json:"offset"`
}

// ListRecords returns every row of the configured view, following offsets.
func (c *Client) ListRecords(ctx context.Context) ([]RecordData, error) {
	var records []RecordData
	offset := ""
	for {
		params := url.Values{}
		if c.table.ViewName != "" {
			params.Set("view", c.table.ViewName)
		}
		if offset != "" {
			params.Set("offset", offset)
		}
		reqURL := c.tableURL()
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		var page listResponse
		if err := c.DoJSON(ctx, http.MethodGet, reqURL, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		records = append(records, page.Records...)

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	return records, nil
}

type tablesResponse struct {
	Tables []struct {
		ID     string        `json:"id"`
		Name   string        `json:"name"`
		Fields []SchemaField `json:"fields"`
	} `json:"tables"`
}

// FetchSchema reads the base metadata and returns the configured table's
// schema. The table is matched by id or by name.
func (c *Client) FetchSchema(ctx context.Context) (*Schema, error) {
	reqURL := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.BaseURL, url.PathEscape(c.table.BaseID))

	var resp tablesResponse
	if err := c.DoJSON(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}
	for _, t := range resp.Tables {
		if t.ID == c.table.TableID || t.Name == c.table.TableID {
			return NewSchema(t.ID, t.Name, t.Fields), nil
		}
	}
	return nil, fmt.Errorf("table %s not found in base %s", c.table.TableID, c.table.BaseID)
}

type updateRequest struct {
	Records []WriteIntent `json:"records"`
}

type updateResponse struct {
	Records []RecordData `json:"records"`
}

// UpdateRecords patches the given rows, MaxRecordsPerRequest at a time, and
// returns the rows the API acknowledged.
func (c *Client) UpdateRecords(ctx context.Context, intents []WriteIntent) ([]RecordData, error) {
	var acked []RecordData
	for start := 0; start < len(intents); start += MaxRecordsPerRequest {
		end := start + MaxRecordsPerRequest
		if end > len(intents) {
			end = len(intents)
		}

		var resp updateResponse
		if err := c.DoJSON(ctx, http.MethodPatch, c.tableURL(), updateRequest{Records: intents[start:end]}, &resp); err != nil {
			return nil, fmt.Errorf("failed to update records: %w", err)
		}
		logging.Debug(c.logger, fmt.Sprintf("updated records %d-%d of %d", start+1, end, len(intents)))
		acked = append(acked, resp.Records...)
	}
	return acked, nil
}
