// Package history keeps the run history of the sync workflow: one line per
// completed run with its duration and the package version it deployed.
package history

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zhongkairen/airtable-sync/internal/domain"
)

// unknownVersion is written when a run log carries no version.
const unknownVersion = "None"

// Item is one run in the history:
//
//	2024-10-18T21:43:46Z,46,workflow_dispatch,success,31s,v0.2.0
type Item struct {
	StartedAt  time.Time
	RunNumber  int
	Event      string
	Conclusion string
	Duration   time.Duration
	// Version is "" when the run log did not name one.
	Version string
}

// NewItem builds the history item of a completed run.
func NewItem(run domain.WorkflowRun, version string) Item {
	return Item{
		StartedAt:  run.StartedAt.UTC(),
		RunNumber:  run.Number,
		Event:      run.Event,
		Conclusion: run.Conclusion,
		Duration:   run.Duration().Truncate(time.Second),
		Version:    version,
	}
}

// ParseItem parses one history line.
func ParseItem(line string) (Item, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 6 {
		return Item{}, fmt.Errorf("invalid history line %q: expected 6 fields, got %d", line, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	started, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Item{}, fmt.Errorf("invalid history line %q: %w", line, err)
	}
	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return Item{}, fmt.Errorf("invalid history line %q: %w", line, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSuffix(parts[4], "s"), 64)
	if err != nil {
		return Item{}, fmt.Errorf("invalid history line %q: %w", line, err)
	}

	version := strings.TrimPrefix(parts[5], "v")
	if version == unknownVersion {
		version = ""
	}

	return Item{
		StartedAt:  started,
		RunNumber:  number,
		Event:      parts[2],
		Conclusion: parts[3],
		Duration:   time.Duration(seconds * float64(time.Second)),
		Version:    version,
	}, nil
}

func (i Item) String() string {
	version := i.Version
	if version == "" {
		version = unknownVersion
	}
	return strings.Join([]string{
		i.StartedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(i.RunNumber),
		i.Event,
		i.Conclusion,
		fmt.Sprintf("%ds", int(i.Duration.Seconds())),
		"v" + version,
	}, ",")
}

// History is the run history, newest run first.
type History struct {
	items   []Item
	known   map[int]bool
	updated bool
}

// New returns an empty history.
func New() *History {
	return &History{known: make(map[int]bool)}
}

// Parse reads a history document, one item per non-blank line.
func Parse(content string) (*History, error) {
	h := New()
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		item, err := ParseItem(line)
		if err != nil {
			return nil, err
		}
		h.items = append(h.items, item)
		h.known[item.RunNumber] = true
	}
	h.sort()
	return h, nil
}

// Contains reports whether a run is already recorded.
func (h *History) Contains(runNumber int) bool {
	return h.known[runNumber]
}

// Add records new items. Runs already recorded are ignored.
func (h *History) Add(items ...Item) {
	for _, item := range items {
		if h.known[item.RunNumber] {
			continue
		}
		h.items = append(h.items, item)
		h.known[item.RunNumber] = true
		h.updated = true
	}
	h.sort()
}

// Items returns the items, newest run first.
func (h *History) Items() []Item {
	return h.items
}

// Len returns the number of items.
func (h *History) Len() int {
	return len(h.items)
}

// Updated reports whether items were added since the history was read or saved.
func (h *History) Updated() bool {
	return h.updated
}

// MarkSaved clears the updated flag.
func (h *History) MarkSaved() {
	h.updated = false
}

func (h *History) sort() {
	sort.SliceStable(h.items, func(a, b int) bool {
		return h.items[a].RunNumber > h.items[b].RunNumber
	})
}

func (h *History) String() string {
	lines := make([]string, len(h.items))
	for i, item := range h.items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}
