package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/sovgauge/internal/models"
)

// Report is the result of one analysis run as returned to callers.
type Report struct {
	RunID         string    `json:"run_id"`
	Query         string    `json:"query"`
	Metrics       Metrics   `json:"metrics"`
	Insights      []string  `json:"insights"`
	DocsProcessed int       `json:"docs_processed"`
	ExecTimeSec   float64   `json:"exec_time_sec"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// New assembles a Report. Elapsed time is rounded to 10ms.
func New(runID, query string, m Metrics, insights []string, elapsed time.Duration, at time.Time) Report {
	if insights == nil {
		insights = []string{}
	}
	return Report{
		RunID:         runID,
		Query:         query,
		Metrics:       m,
		Insights:      insights,
		DocsProcessed: m.DocsAnalyzed,
		ExecTimeSec:   round(elapsed.Seconds(), 2),
		GeneratedAt:   at.UTC(),
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, r Report) error {
	const textTmpl = `Share of Voice: {{.Query}}
------------------
Run:             {{.RunID}}
Generated:       {{.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC
Duration:        {{printf "%.2f" .ExecTimeSec}}s
Documents:       {{.DocsProcessed}}

Mentions:        {{.Metrics.TotalMentions}} total, {{.Metrics.BrandMentions}} brand
Share of Voice:  {{printf "%.2f" .Metrics.SoVPct}}%
Engagement SoV:  {{printf "%.2f" .Metrics.EngagementSoVPct}}%
Avg Sentiment:   {{printf "%.3f" .Metrics.AvgSentiment}}
Positive Share:  {{printf "%.2f" .Metrics.PositiveSentimentSharePct}}%

Top Competitors:
{{- range .Metrics.TopCompetitors}}
  {{.Name}}: {{.Count}}
{{- else}}
  None
{{- end}}

Insights:
{{- range .Insights}}
  - {{.}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}
	if err := t.Execute(w, r); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

// WriteHTML writes a standalone HTML page.
func WriteHTML(w io.Writer, r Report) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Share of Voice: {{.Query}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Share of Voice: {{.Query}}</h1>
  <p><strong>Run:</strong> {{.RunID}} &middot; {{.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC &middot; {{printf "%.2f" .ExecTimeSec}}s &middot; {{.DocsProcessed}} documents</p>

  <div class="stat-card">
    <div>Share of Voice</div>
    <div class="stat-val" style="color: {{if lt .Metrics.SoVPct 20.0}}red{{else}}green{{end}};">{{printf "%.2f" .Metrics.SoVPct}}%</div>
  </div>
  <div class="stat-card">
    <div>Engagement SoV</div>
    <div class="stat-val">{{printf "%.2f" .Metrics.EngagementSoVPct}}%</div>
  </div>
  <div class="stat-card">
    <div>Avg Sentiment</div>
    <div class="stat-val">{{printf "%.3f" .Metrics.AvgSentiment}}</div>
  </div>
  <div class="stat-card">
    <div>Positive Share</div>
    <div class="stat-val">{{printf "%.2f" .Metrics.PositiveSentimentSharePct}}%</div>
  </div>

  <h3>Top Competitors</h3>
  <table>
    <tr><th>Competitor</th><th>Mentions</th></tr>
    {{- range .Metrics.TopCompetitors}}
    <tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Insights</h3>
  <ul>
    {{- range .Insights}}
    <li>{{.}}</li>
    {{- else}}
    <li>None</li>
    {{- end}}
  </ul>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}
	if err := t.Execute(w, r); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

var csvHeader = []string{"title", "url", "search_q", "score", "brand_mentions", "competitor_mentions", "sentiment"}

// WriteCSV writes one row per document with its manual analysis.
// Competitor counts are encoded as name=count pairs joined by ';'.
func WriteCSV(w io.Writer, docs []models.Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}

	for _, d := range docs {
		var (
			brand     int
			comps     string
			sentiment float64
		)
		if d.Manual != nil {
			brand = d.Manual.BrandMentions
			comps = encodeCounts(d.Manual.CompetitorMentions)
			sentiment = d.Manual.Sentiment
		}
		record := []string{
			d.Title,
			d.URL,
			d.SourceQuery,
			strconv.FormatFloat(d.Score, 'f', -1, 64),
			strconv.Itoa(brand),
			comps,
			strconv.FormatFloat(sentiment, 'f', 3, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return nil
}

func encodeCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strconv.Itoa(counts[name]))
	}
	return strings.Join(parts, ";")
}
