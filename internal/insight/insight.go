package insight

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FranksOps/sovgauge/internal/report"
)

// Recommendation texts.
const (
	LowVisibility  = "Low SoV (<20 %)—invest in SEO, influencer unboxings and comparison videos."
	NegativeTone   = "Net negative sentiment—launch satisfaction-driven testimonial campaigns."
	PositiveTone   = "Strong positive sentiment—amplify user reviews and case-studies."
	competitorTmpl = "Primary competitor online: %s (%d mentions)."
)

// Thresholds applied by Derive.
const (
	LowSoVPct         = 20.0
	PositiveSentiment = 0.3
)

// Derive applies the threshold rules to m in a fixed order and returns the
// matching messages. Rules are independent; the result has 0 to 4 entries.
func Derive(m report.Metrics) []string {
	insights := []string{}

	if m.SoVPct < LowSoVPct {
		insights = append(insights, LowVisibility)
	}
	if m.AvgSentiment < 0 {
		insights = append(insights, NegativeTone)
	}
	if m.AvgSentiment > PositiveSentiment {
		insights = append(insights, PositiveTone)
	}
	if len(m.TopCompetitors) > 0 {
		top := m.TopCompetitors[0]
		insights = append(insights, fmt.Sprintf(competitorTmpl, cases.Title(language.English).String(top.Name), top.Count))
	}
	return insights
}
