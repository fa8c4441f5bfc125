package report

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/FranksOps/sovgauge/internal/models"
)

const (
	maxTopCompetitors = 5
	positiveThreshold = 0.1
)

// CompetitorCount is one entry of the competitor ranking. It encodes as a
// two-element JSON array, ["name", count].
type CompetitorCount struct {
	Name  string
	Count int
}

// MarshalJSON implements json.Marshaler.
func (c CompetitorCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Name, c.Count})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CompetitorCount) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.New("report: competitor entry must be [name, count]")
	}
	if err := json.Unmarshal(pair[0], &c.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.Count)
}

// Metrics are the share-of-voice figures for one run.
type Metrics struct {
	DocsAnalyzed              int               `json:"docs_analyzed"`
	TotalMentions             int               `json:"total_mentions"`
	BrandMentions             int               `json:"brand_mentions"`
	CompetitorMentions        map[string]int    `json:"competitor_mentions"`
	SoVPct                    float64           `json:"sov_pct"`
	EngagementSoVPct          float64           `json:"engagement_sov_pct"`
	AvgSentiment              float64           `json:"avg_sentiment"`
	PositiveSentimentSharePct float64           `json:"positive_sentiment_share_pct"`
	TopCompetitors            []CompetitorCount `json:"top_competitors"`
}

// Aggregate computes Metrics from enriched documents. Documents without a
// manual analysis count as zero mentions. competitorOrder breaks ties in the
// ranking; competitors missing from it rank after those listed, by name.
func Aggregate(docs []models.Document, competitorOrder []string) Metrics {
	m := Metrics{
		DocsAnalyzed:       len(docs),
		CompetitorMentions: make(map[string]int),
		TopCompetitors:     []CompetitorCount{},
	}

	var (
		weightedSentiment float64
		sentimentWeight   int
		brandDocs         int
		positiveDocs      int
		engagementAll     float64
		engagementBrand   float64
	)

	for _, d := range docs {
		a := d.Manual
		if a == nil {
			a = &models.ManualAnalysis{}
		}

		brand := a.BrandMentions
		m.BrandMentions += brand
		m.TotalMentions += brand + a.CompetitorTotal()
		for name, n := range a.CompetitorMentions {
			if n > 0 {
				m.CompetitorMentions[name] += n
			}
		}

		engagement := d.Score * float64(utf8.RuneCountInString(d.Content))
		engagementAll += engagement

		if brand > 0 {
			weightedSentiment += a.Sentiment * float64(brand)
			sentimentWeight += brand
			engagementBrand += engagement
			brandDocs++
			if a.Sentiment > positiveThreshold {
				positiveDocs++
			}
		}
	}

	if m.TotalMentions > 0 {
		m.SoVPct = round(float64(m.BrandMentions)/float64(m.TotalMentions)*100, 2)
	}
	if engagementAll > 0 {
		m.EngagementSoVPct = round(engagementBrand/engagementAll*100, 2)
	}
	if sentimentWeight > 0 {
		m.AvgSentiment = round(weightedSentiment/float64(sentimentWeight), 3)
	}
	if brandDocs > 0 {
		m.PositiveSentimentSharePct = round(float64(positiveDocs)/float64(brandDocs)*100, 2)
	}

	m.TopCompetitors = rankCompetitors(m.CompetitorMentions, competitorOrder)
	return m
}

// rankCompetitors sorts totals descending by count, stable in keyword order.
func rankCompetitors(totals map[string]int, order []string) []CompetitorCount {
	ranked := make([]CompetitorCount, 0, len(totals))
	listed := make(map[string]bool, len(order))
	for _, name := range order {
		listed[name] = true
		if n := totals[name]; n > 0 {
			ranked = append(ranked, CompetitorCount{Name: name, Count: n})
		}
	}

	var extra []string
	for name := range totals {
		if !listed[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		ranked = append(ranked, CompetitorCount{Name: name, Count: totals[name]})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > maxTopCompetitors {
		ranked = ranked[:maxTopCompetitors]
	}
	return ranked
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
