package analyzer

import (
	"regexp"
	"strings"
)

// SentimentScorer returns a polarity in [-1, 1] for lowercased text.
type SentimentScorer interface {
	Polarity(text string) float64
}

// negationFactor flips and dampens a negated word ("not good" is mildly
// negative rather than strongly negative).
const negationFactor = -0.5

var wordRe = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

// defaultLexicon holds word polarities in [-1, 1], tuned for consumer
// product reviews.
var defaultLexicon = map[string]float64{
	"amazing":       0.6,
	"awesome":       1.0,
	"best":          1.0,
	"better":        0.5,
	"brilliant":     0.9,
	"comfortable":   0.4,
	"convenient":    0.4,
	"durable":       0.5,
	"easy":          0.43,
	"efficient":     0.5,
	"excellent":     1.0,
	"fantastic":     0.4,
	"fast":          0.2,
	"favorite":      0.5,
	"fine":          0.4,
	"good":          0.7,
	"great":         0.8,
	"happy":         0.8,
	"impressive":    1.0,
	"innovative":    0.5,
	"love":          0.5,
	"nice":          0.6,
	"perfect":       1.0,
	"premium":       0.4,
	"quiet":         0.3,
	"recommend":     0.5,
	"recommended":   0.5,
	"reliable":      0.5,
	"silent":        0.3,
	"smart":         0.21,
	"smooth":        0.4,
	"stylish":       0.5,
	"superb":        1.0,
	"top":           0.5,
	"value":         0.3,
	"worth":         0.3,
	"annoying":      -0.8,
	"awful":         -1.0,
	"bad":           -0.7,
	"broken":        -0.4,
	"cheap":         -0.1,
	"complaint":     -0.5,
	"defective":     -0.8,
	"disappointed":  -0.75,
	"disappointing": -0.6,
	"expensive":     -0.5,
	"fail":          -0.5,
	"failed":        -0.5,
	"faulty":        -0.7,
	"hate":          -0.8,
	"issue":         -0.3,
	"issues":        -0.3,
	"loud":          -0.3,
	"noisy":         -0.5,
	"poor":          -0.4,
	"problem":       -0.4,
	"problems":      -0.4,
	"slow":          -0.3,
	"terrible":      -1.0,
	"useless":       -0.5,
	"waste":         -0.6,
	"worse":         -0.4,
	"worst":         -1.0,
}

var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"extremely":  1.5,
	"super":      1.3,
	"highly":     1.3,
	"so":         1.2,
	"incredibly": 1.5,
}

var negations = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"isn't":   true,
	"wasn't":  true,
	"don't":   true,
	"doesn't": true,
	"didn't":  true,
	"can't":   true,
	"won't":   true,
	"hardly":  true,
}

// LexiconScorer averages the polarity of known words, applying intensifiers
// and negations from the two preceding tokens. It is the lightweight
// alternative to VaderScorer, tuned for short product reviews.
type LexiconScorer struct {
	lexicon map[string]float64
}

// NewLexiconScorer returns a scorer using the built-in review lexicon.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{lexicon: defaultLexicon}
}

// Polarity implements SentimentScorer. Text with no known words scores 0.
func (s *LexiconScorer) Polarity(text string) float64 {
	tokens := wordRe.FindAllString(strings.ToLower(text), -1)

	var sum float64
	var scored int
	for i, tok := range tokens {
		p, ok := s.lexicon[tok]
		if !ok {
			continue
		}
		negated := false
		for j := i - 1; j >= 0 && j >= i-2; j-- {
			if w, ok := intensifiers[tokens[j]]; ok && j == i-1 {
				p *= w
			}
			if negations[tokens[j]] {
				negated = true
			}
		}
		if negated {
			p *= negationFactor
		}
		sum += clamp(p)
		scored++
	}

	if scored == 0 {
		return 0
	}
	return clamp(sum / float64(scored))
}
