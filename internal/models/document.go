package models

// Document is a single search hit retrieved for a query variant.
type Document struct {
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Content     string          `json:"content"`
	Score       float64         `json:"score"`
	SourceQuery string          `json:"search_q"`
	Manual      *ManualAnalysis `json:"manual,omitempty"`
}

// ManualAnalysis is the deterministic keyword and sentiment scan of a
// document's title and content.
type ManualAnalysis struct {
	BrandMentions      int            `json:"brand_mentions"`
	CompetitorMentions map[string]int `json:"competitor_mentions"`
	Sentiment          float64        `json:"sentiment"`
}

// CompetitorTotal sums all competitor mentions in the analysis.
func (m *ManualAnalysis) CompetitorTotal() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, n := range m.CompetitorMentions {
		total += n
	}
	return total
}
