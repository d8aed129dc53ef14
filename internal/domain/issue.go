package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var issueNumberPattern = regexp.MustCompile(`/issues/(\d+)`)

// Issue is a GitHub issue as seen through a Project (v2): fixed attributes plus
// the project's dynamically named fields keyed by normalized name.
type Issue struct {
	URL    string
	Title  string
	Body   string
	Fields map[string]FieldValue
}

// NewIssue creates an issue with an empty field map.
func NewIssue(url string) *Issue {
	return &Issue{URL: url, Fields: make(map[string]FieldValue)}
}

// Number parses the issue number from the URL; zero when the URL has none.
func (i *Issue) Number() int {
	m := issueNumberPattern.FindStringSubmatch(i.URL)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// SetField stores a project field. Fields normalizing to "title" or "url"
// overwrite the fixed attributes instead.
func (i *Issue) SetField(name string, value FieldValue) {
	key := NormalizeFieldName(name)
	switch key {
	case "title":
		i.Title = value.String()
	case "url":
		i.URL = value.String()
	default:
		if i.Fields == nil {
			i.Fields = make(map[string]FieldValue)
		}
		i.Fields[key] = value
	}
}

// Field returns a field by normalized name.
func (i *Issue) Field(name string) (FieldValue, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

// IsEpic reports whether the given single-select field reads "Epic", ignoring
// decorations such as emoji ("🚀 Epic").
func (i *Issue) IsEpic(epicField string) bool {
	v, ok := i.Fields[NormalizeFieldName(epicField)]
	if !ok {
		return false
	}
	return stripDecorations(v.Text) == EpicValue
}

func stripDecorations(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// String renders url, title, the first body line and every field, one per line.
func (i *Issue) String() string {
	body := strings.TrimSpace(i.Body)
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[:idx]
	}
	if len(body) > 50 {
		body = body[:50]
	}

	lines := []string{
		"url: " + i.URL,
		"title: " + i.Title,
		"body: " + body,
	}
	names := make([]string, 0, len(i.Fields))
	for name := range i.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, i.Fields[name]))
	}

	for idx, line := range lines {
		lines[idx] = "  " + line
	}
	return strings.Join(lines, "\n")
}
