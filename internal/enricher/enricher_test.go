package enricher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/sovgauge/internal/analyzer"
	"github.com/FranksOps/sovgauge/internal/models"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type sleeper struct {
	clock *fakeClock
	waits []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.waits = append(s.waits, d)
	s.clock.t = s.clock.t.Add(d)
	return nil
}

type fakeInference struct {
	prompts []string
	err     error
}

func (f *fakeInference) Name() string { return "fake" }

func (f *fakeInference) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return `[{"brands":["atomberg"],"sentiment":"positive"}]`, nil
}

func newHarness(perMinute, perDay int) (*ratelimit.Budget, *sleeper) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return ratelimit.NewBudget(perMinute, perDay, ratelimit.WithClock(clock.Now)), &sleeper{clock: clock}
}

func sampleDocs(n int) []models.Document {
	docs := make([]models.Document, n)
	for i := range docs {
		docs[i] = models.Document{
			Title:   fmt.Sprintf("Doc %d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Content: "The atomberg fan is great, better than havells.",
		}
	}
	return docs
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 5, nil},
		{5, 5, []int{5}},
		{12, 5, []int{5, 5, 2}},
		{3, 0, []int{1, 1, 1}},
	}
	for _, tc := range tests {
		got := Batches(sampleDocs(tc.n), tc.size)
		if len(got) != len(tc.want) {
			t.Errorf("n=%d size=%d: expected %d batches, got %d", tc.n, tc.size, len(tc.want), len(got))
			continue
		}
		for i, b := range got {
			if len(b) != tc.want[i] {
				t.Errorf("n=%d size=%d batch %d: expected %d docs, got %d", tc.n, tc.size, i, tc.want[i], len(b))
			}
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	long := strings.Repeat("é", 600)
	prompt := BuildPrompt([]models.Document{
		{Title: "A", Content: "short"},
		{Title: "B", Content: long},
	})

	want := "For each result below give JSON with brands & sentiment.\n" +
		"Title: A\nContent: short..." +
		"\n---\n" +
		"Title: B\nContent: " + strings.Repeat("é", 500) + "..."
	if prompt != want {
		t.Errorf("unexpected prompt:\n%q", prompt)
	}
}

func TestEnrich_InferenceAlwaysFails(t *testing.T) {
	docs := sampleDocs(7)
	a := analyzer.New(analyzer.DefaultKeywords(), nil)

	budget, sl := newHarness(4, 90)
	failing := &fakeInference{err: errors.New("503 from model")}
	got, err := New(a, failing, budget, Config{}, WithSleep(sl.Sleep)).Enrich(context.Background(), docs)
	if err != nil {
		t.Fatalf("inference failures must not abort enrichment: %v", err)
	}

	cleanBudget, cleanSl := newHarness(4, 90)
	want, _ := New(a, nil, cleanBudget, Config{}, WithSleep(cleanSl.Sleep)).Enrich(context.Background(), docs)

	if len(got) != len(docs) {
		t.Fatalf("expected %d docs, got %d", len(docs), len(got))
	}
	for i := range got {
		if got[i].Manual == nil {
			t.Fatalf("doc %d: expected manual analysis", i)
		}
		if got[i].URL != docs[i].URL {
			t.Errorf("doc %d: order not preserved", i)
		}
		if got[i].Manual.BrandMentions != want[i].Manual.BrandMentions ||
			got[i].Manual.Sentiment != want[i].Manual.Sentiment ||
			got[i].Manual.CompetitorMentions["havells"] != want[i].Manual.CompetitorMentions["havells"] {
			t.Errorf("doc %d: analysis differs from inference-free run", i)
		}
	}

	if len(failing.prompts) != 2 {
		t.Errorf("expected one attempt per batch (2), got %d", len(failing.prompts))
	}
	if got := budget.Remaining(); got != 90 {
		t.Errorf("failed calls must not be recorded, remaining %d", got)
	}
	if len(sl.waits) != 2 || sl.waits[0] != time.Second {
		t.Errorf("expected a 1s pause after each batch, got %v", sl.waits)
	}
}

func TestEnrich_RecordsSuccessfulCalls(t *testing.T) {
	budget, sl := newHarness(4, 90)
	inf := &fakeInference{}
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), inf, budget, Config{}, WithSleep(sl.Sleep))

	if _, err := e.Enrich(context.Background(), sampleDocs(11)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inf.prompts) != 3 {
		t.Errorf("expected 3 batch calls, got %d", len(inf.prompts))
	}
	if got := budget.Remaining(); got != 87 {
		t.Errorf("expected 3 recorded calls, remaining %d", got)
	}
}

func TestEnrich_WaitsForMinuteWindow(t *testing.T) {
	budget, sl := newHarness(1, 90)
	inf := &fakeInference{}
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), inf, budget, Config{}, WithSleep(sl.Sleep))

	if _, err := e.Enrich(context.Background(), sampleDocs(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inf.prompts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(inf.prompts))
	}

	// 1s pause, then 59s until the slot frees plus 1s slack.
	want := []time.Duration{time.Second, 60 * time.Second, time.Second}
	if len(sl.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, sl.waits)
	}
	for i := range want {
		if sl.waits[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], sl.waits[i])
		}
	}
}

func TestEnrich_DailyExhaustedStillAnalyzes(t *testing.T) {
	budget, sl := newHarness(4, 0)
	inf := &fakeInference{}
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), inf, budget, Config{}, WithSleep(sl.Sleep))

	got, err := e.Enrich(context.Background(), sampleDocs(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inf.prompts) != 0 {
		t.Errorf("expected no inference calls with an exhausted budget, got %d", len(inf.prompts))
	}
	for i, d := range got {
		if d.Manual == nil || d.Manual.BrandMentions != 2 {
			t.Errorf("doc %d: expected manual analysis with 2 brand mentions, got %+v", i, d.Manual)
		}
	}
}

func TestEnrich_NoMinuteCapacityStillAnalyzes(t *testing.T) {
	budget, sl := newHarness(0, 90)
	inf := &fakeInference{}
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), inf, budget, Config{}, WithSleep(sl.Sleep))

	got, err := e.Enrich(context.Background(), sampleDocs(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inf.prompts) != 0 {
		t.Errorf("expected no inference calls, got %d", len(inf.prompts))
	}
	if len(got) != 6 || got[5].Manual == nil {
		t.Fatalf("expected all 6 docs analyzed, got %d", len(got))
	}
	// only the per-batch pauses
	if len(sl.waits) != 2 {
		t.Errorf("expected 2 batch pauses, got %v", sl.waits)
	}
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	docs := sampleDocs(2)
	budget, sl := newHarness(4, 90)
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), nil, budget, Config{}, WithSleep(sl.Sleep))

	if _, err := e.Enrich(context.Background(), docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs[0].Manual != nil {
		t.Errorf("input documents should not be modified")
	}
}

func TestEnrich_ContextCanceled(t *testing.T) {
	budget, sl := newHarness(4, 90)
	e := New(analyzer.New(analyzer.DefaultKeywords(), nil), &fakeInference{}, budget, Config{}, WithSleep(sl.Sleep))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Enrich(ctx, sampleDocs(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
