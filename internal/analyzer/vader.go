package analyzer

import (
	"fmt"
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer names accepted by NewScorer.
const (
	ScorerVader   = "vader"
	ScorerLexicon = "lexicon"
)

// VaderScorer reports VADER's compound score, which is already in [-1, 1].
// It only reads its lexicon after construction and is safe for concurrent use.
type VaderScorer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon with every word in neutral removed.
// The stock lexicon rates product words such as "fan" and "smart" as
// positive, which would bias every review of a smart fan.
func NewVaderScorer(neutral ...string) *VaderScorer {
	sia := govader.NewSentimentIntensityAnalyzer()
	for _, w := range neutral {
		delete(sia.Lexicon, strings.ToLower(w))
	}
	return &VaderScorer{sia: sia}
}

// Polarity implements SentimentScorer.
func (s *VaderScorer) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return s.sia.PolarityScores(text).Compound
}

// NewScorer returns the named scorer. VADER treats the words of the tracked
// keywords as neutral. An empty name selects VADER.
func NewScorer(name string, kw Keywords) (SentimentScorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScorerVader:
		return NewVaderScorer(keywordWords(kw)...), nil
	case ScorerLexicon:
		return NewLexiconScorer(), nil
	default:
		return nil, fmt.Errorf("analyzer: unknown sentiment scorer %q", name)
	}
}

// keywordWords splits brand and competitor phrases into lowercase words.
func keywordWords(kw Keywords) []string {
	var words []string
	for _, list := range [][]string{kw.Brand, kw.Competitors} {
		for _, phrase := range list {
			words = append(words, strings.Fields(strings.ToLower(phrase))...)
		}
	}
	return words
}
