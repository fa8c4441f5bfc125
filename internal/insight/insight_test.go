package insight

import (
	"testing"

	"github.com/FranksOps/sovgauge/internal/report"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		m    report.Metrics
		want []string
	}{
		{
			name: "empty run",
			m:    report.Aggregate(nil, nil),
			want: []string{LowVisibility},
		},
		{
			name: "healthy and positive",
			m: report.Metrics{
				SoVPct:         50,
				AvgSentiment:   0.4,
				TopCompetitors: []report.CompetitorCount{{Name: "havells", Count: 2}},
			},
			want: []string{PositiveTone, "Primary competitor online: Havells (2 mentions)."},
		},
		{
			name: "low and negative",
			m: report.Metrics{
				SoVPct:         10,
				AvgSentiment:   -0.1,
				TopCompetitors: []report.CompetitorCount{{Name: "gorilla fan", Count: 7}, {Name: "usha", Count: 1}},
			},
			want: []string{LowVisibility, NegativeTone, "Primary competitor online: Gorilla Fan (7 mentions)."},
		},
		{
			name: "boundaries are exclusive",
			m:    report.Metrics{SoVPct: 20, AvgSentiment: 0.3},
			want: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.m)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("insight %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}
