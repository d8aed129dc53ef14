// Package dashboard renders the run history as an HTML bar chart and serves it.
package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zhongkairen/airtable-sync/internal/history"
)

// ItemsPerPage is the number of runs in one chart page.
const ItemsPerPage = 24

// Bar colors by run kind.
const (
	ColorFailed    = "rgba(255, 99, 132, 0.5)"
	ColorManual    = "rgba(54, 162, 235, 0.5)"
	ColorScheduled = "rgba(75, 192, 192, 0.5)"
)

// Renderer handles rendering responses to HTTP clients.
type Renderer interface {
	RenderHealth(w io.Writer) error
	RenderHistory(w io.Writer, items []history.Item, page int) error
	RenderHistoryJSON(w io.Writer, items []history.Item) error
}

// HTMLRenderer implements Renderer for HTML responses.
type HTMLRenderer struct {
	location *time.Location
}

// NewHTMLRenderer creates a renderer that shows run times in loc (UTC when nil).
func NewHTMLRenderer(loc *time.Location) *HTMLRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &HTMLRenderer{location: loc}
}

func (r *HTMLRenderer) RenderHealth(w io.Writer) error {
	_, err := w.Write([]byte(`{"status":"ok"}`))
	return err
}

type runJSON struct {
	StartedAt  time.Time `json:"started_at"`
	RunNumber  int       `json:"run_number"`
	Event      string    `json:"event"`
	Conclusion string    `json:"conclusion"`
	Duration   int       `json:"duration_seconds"`
	Version    string    `json:"version"`
}

func (r *HTMLRenderer) RenderHistoryJSON(w io.Writer, items []history.Item) error {
	runs := make([]runJSON, len(items))
	for i, item := range items {
		runs[i] = runJSON{
			StartedAt:  item.StartedAt,
			RunNumber:  item.RunNumber,
			Event:      item.Event,
			Conclusion: item.Conclusion,
			Duration:   int(item.Duration.Seconds()),
			Version:    item.Version,
		}
	}
	return json.NewEncoder(w).Encode(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// RenderHistory writes one chart page. items are newest first; page 0 holds
// the newest ItemsPerPage runs and bars run oldest to newest, left to right.
func (r *HTMLRenderer) RenderHistory(w io.Writer, items []history.Item, page int) error {
	_, err := w.Write([]byte(r.buildHistoryHTML(items, page)))
	return err
}

// pageItems returns the items of a page in display order and whether an older page exists.
func pageItems(items []history.Item, page int) ([]history.Item, bool) {
	if page < 0 {
		page = 0
	}
	start := page * ItemsPerPage
	if start >= len(items) {
		return nil, false
	}
	end := min(start+ItemsPerPage, len(items))

	out := make([]history.Item, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, items[i])
	}
	return out, end < len(items)
}

// BarColor returns the bar color of a run: failures first, then manual runs.
func BarColor(item history.Item) string {
	switch {
	case item.Conclusion != "success":
		return ColorFailed
	case item.Event == "workflow_dispatch":
		return ColorManual
	default:
		return ColorScheduled
	}
}

func statusText(conclusion string) string {
	if conclusion == "success" {
		return "✅" + conclusion
	}
	return "⚠️" + conclusion
}

func (r *HTMLRenderer) buildHistoryHTML(items []history.Item, page int) string {
	var sb strings.Builder

	sb.WriteString(htmlHead("Runs", ""))
	sb.WriteString(pageCSS(`
		.chart { background: var(--bg-secondary); padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px var(--shadow); }
		.bars { display: flex; align-items: flex-end; gap: 4px; height: 320px; border-bottom: 1px solid var(--border-color); }
		.bar { flex: 1; min-width: 12px; border: 1px solid; border-radius: 3px 3px 0 0; position: relative; }
		.bar span { position: absolute; top: -20px; width: 100%; text-align: center; font-size: 11px; color: var(--text-secondary); }
		.labels { display: flex; gap: 4px; margin-top: 6px; }
		.labels div { flex: 1; min-width: 12px; font-size: 10px; color: var(--text-secondary); writing-mode: vertical-rl; transform: rotate(180deg); height: 80px; }
		.pager { display: flex; justify-content: space-between; margin-top: 16px; }
		.legend { display: flex; gap: 16px; margin-bottom: 12px; font-size: 13px; }
		.legend i { display: inline-block; width: 12px; height: 12px; margin-right: 4px; vertical-align: middle; }
	`))
	sb.WriteString(`
<body>
	<div class="container">
		<h1>Run History</h1>
		`)
	sb.WriteString(buildNavigation())

	shown, older := pageItems(items, page)
	if len(shown) == 0 {
		sb.WriteString(`
		<p class="empty">No runs recorded yet.</p>
	</div>`)
		sb.WriteString(htmlFooter())
		return sb.String()
	}

	var longest time.Duration
	for _, item := range shown {
		longest = max(longest, item.Duration)
	}

	fmt.Fprintf(&sb, `
		<p class="meta-text">%d run(s) recorded, showing runs #%d to #%d</p>
		<div class="chart">
			<div class="legend">
				<span><i style="background:%s"></i>scheduled</span>
				<span><i style="background:%s"></i>manual</span>
				<span><i style="background:%s"></i>failed</span>
			</div>
			<div class="bars">`,
		len(items), shown[0].RunNumber, shown[len(shown)-1].RunNumber,
		ColorScheduled, ColorManual, ColorFailed)

	for _, item := range shown {
		r.writeBar(&sb, item, longest)
	}
	sb.WriteString(`
			</div>
			<div class="labels">`)
	for _, item := range shown {
		fmt.Fprintf(&sb, `<div>%s</div>`, escapeHTML(item.StartedAt.In(r.location).Format("01/02 15:04")))
	}
	sb.WriteString(`</div>
			<div class="pager">`)
	if older {
		fmt.Fprintf(&sb, `<a href="/?page=%d">← Older</a>`, page+1)
	} else {
		sb.WriteString(`<span></span>`)
	}
	if page > 0 {
		fmt.Fprintf(&sb, `<a href="/?page=%d">Newer →</a>`, page-1)
	}
	sb.WriteString(`</div>
		</div>
	</div>`)
	sb.WriteString(htmlFooter())
	return sb.String()
}

func (r *HTMLRenderer) writeBar(sb *strings.Builder, item history.Item, longest time.Duration) {
	height := 0.0
	if longest > 0 {
		height = 100 * item.Duration.Seconds() / longest.Seconds()
	}
	version := item.Version
	if version == "" {
		version = "None"
	}
	color := BarColor(item)
	title := fmt.Sprintf("#%d %s %s %ds v%s %s",
		item.RunNumber,
		item.StartedAt.In(r.location).Format("Mon 2006-01-02 15:04:05"),
		item.Event,
		int(item.Duration.Seconds()),
		version,
		statusText(item.Conclusion))

	fmt.Fprintf(sb, `
				<div class="bar" style="height:%.1f%%;background:%s;border-color:%s" title="%s"><span>%ds</span></div>`,
		height, color, strings.Replace(color, "0.5)", "1)", 1), escapeHTML(title), int(item.Duration.Seconds()))
}
