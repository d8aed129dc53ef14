package github

import (
	"context"
	"fmt"
	"net/http"
)

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gist struct {
	Files map[string]gistFile `json:"files"`
}

// GetGistFile returns the content of one file of a gist. Truncated files are
// downloaded again from their raw URL.
func (c *Client) GetGistFile(ctx context.Context, gistID, fileName string) (string, error) {
	var g gist
	if err := c.DoJSON(ctx, http.MethodGet, fmt.Sprintf("%s/gists/%s", c.BaseURL, gistID), nil, &g); err != nil {
		return "", fmt.Errorf("failed to fetch gist %s: %w", gistID, err)
	}

	file, ok := g.Files[fileName]
	if !ok {
		return "", fmt.Errorf("file %s not found in gist %s", fileName, gistID)
	}
	if !file.Truncated || file.RawURL == "" {
		return file.Content, nil
	}

	data, err := c.DoRaw(ctx, file.RawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gist file %s: %w", fileName, err)
	}
	return string(data), nil
}

// UpdateGistFile replaces the content of one file of a gist.
func (c *Client) UpdateGistFile(ctx context.Context, gistID, fileName, content string) error {
	payload := gist{Files: map[string]gistFile{fileName: {Content: content}}}
	if err := c.DoJSON(ctx, http.MethodPatch, fmt.Sprintf("%s/gists/%s", c.BaseURL, gistID), payload, nil); err != nil {
		return fmt.Errorf("failed to update gist %s: %w", gistID, err)
	}
	return nil
}
