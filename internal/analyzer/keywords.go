package analyzer

import (
	"regexp"
	"strings"

	"github.com/FranksOps/sovgauge/internal/models"
)

// DefaultBrandKeywords are the spellings counted as brand mentions.
var DefaultBrandKeywords = []string{
	"atomberg",
	"atom berg",
	"atomberg fan",
	"atomberg smart fan",
	"atomberg ceiling fan",
	"atomberg bldc",
}

// DefaultCompetitorKeywords lists tracked competitors. The order is the
// tie-break order for competitor rankings.
var DefaultCompetitorKeywords = []string{
	"havells",
	"orient",
	"bajaj",
	"crompton",
	"usha",
	"luminous",
	"superfan",
	"gorilla fan",
	"fanzart",
}

// Keywords groups the brand and competitor term lists.
type Keywords struct {
	Brand       []string
	Competitors []string
}

// DefaultKeywords returns copies of the default term lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Brand:       append([]string(nil), DefaultBrandKeywords...),
		Competitors: append([]string(nil), DefaultCompetitorKeywords...),
	}
}

type term struct {
	name string
	re   *regexp.Regexp
}

// Analyzer computes ManualAnalysis values. It holds only compiled,
// read-only state and is safe for concurrent use.
type Analyzer struct {
	brand       []term
	competitors []term
	scorer      SentimentScorer
}

// New compiles the keyword lists. Empty terms are ignored. A nil scorer
// selects VADER with the keyword words neutralized.
func New(kw Keywords, scorer SentimentScorer) *Analyzer {
	if scorer == nil {
		scorer = NewVaderScorer(keywordWords(kw)...)
	}
	return &Analyzer{
		brand:       compileTerms(kw.Brand),
		competitors: compileTerms(kw.Competitors),
		scorer:      scorer,
	}
}

// Competitors returns the competitor names in keyword order.
func (a *Analyzer) Competitors() []string {
	names := make([]string, len(a.competitors))
	for i, t := range a.competitors {
		names[i] = t.name
	}
	return names
}

// Analyze scans the document's title and content. The result depends only
// on the text, so repeated calls return identical values.
func (a *Analyzer) Analyze(doc models.Document) models.ManualAnalysis {
	text := strings.ToLower(doc.Title + " " + doc.Content)

	brand := 0
	for _, t := range a.brand {
		brand += CountTerm(text, t.re)
	}

	competitors := make(map[string]int)
	for _, t := range a.competitors {
		if n := CountTerm(text, t.re); n > 0 {
			competitors[t.name] = n
		}
	}

	return models.ManualAnalysis{
		BrandMentions:      brand,
		CompetitorMentions: competitors,
		Sentiment:          clamp(a.scorer.Polarity(text)),
	}
}

// CountTerm returns the number of non-overlapping matches of re in text.
func CountTerm(text string, re *regexp.Regexp) int {
	return len(re.FindAllStringIndex(text, -1))
}

// WordPattern builds a case-insensitive whole-word matcher for term.
func WordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(term)) + `\b`)
}

func compileTerms(list []string) []term {
	terms := make([]term, 0, len(list))
	for _, raw := range list {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		terms = append(terms, term{name: name, re: WordPattern(name)})
	}
	return terms
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
