package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailywrap/pipeline/internal/dedup"
	"github.com/dailywrap/pipeline/internal/enrich"
	"github.com/dailywrap/pipeline/internal/feed"
	"github.com/dailywrap/pipeline/internal/store"
)

// Mock implementations

type mockCollector struct {
	items []feed.RawItem
	err   error
}

func (m *mockCollector) Collect(ctx context.Context) ([]feed.RawItem, error) {
	return m.items, m.err
}

type mockSummarizer struct {
	items []enrich.SummarizedItem
	err   error
}

func (m *mockSummarizer) Summarize(ctx context.Context, items []feed.RawItem) ([]enrich.SummarizedItem, error) {
	return m.items, m.err
}

type mockRanker struct {
	ranked map[feed.Category][]enrich.RankedItem
	err    error
}

func (m *mockRanker) Rank(ctx context.Context, items []enrich.SummarizedItem) (map[feed.Category][]enrich.RankedItem, error) {
	return m.ranked, m.err
}

type mockPersister struct {
	result store.SaveResult
	err    error
	called bool
}

func (m *mockPersister) SaveBriefing(ctx context.Context, ranked map[feed.Category][]enrich.RankedItem, date string) (store.SaveResult, error) {
	m.called = true
	return m.result, m.err
}

type mockInvalidator struct {
	called bool
	paths  []string
	err    error
}

func (m *mockInvalidator) Invalidate(ctx context.Context, paths []string) error {
	m.called = true
	m.paths = paths
	return m.err
}

func sampleItems() []feed.RawItem {
	return []feed.RawItem{
		{
			Title:       "대통령 신년 기자회견",
			Link:        "https://example.com/news/1",
			PublishedAt: time.Now().Add(-time.Hour),
			Category:    feed.CategoryPolitics,
			SourceName:  "테스트뉴스",
		},
	}
}

func sampleSummarized() []enrich.SummarizedItem {
	return []enrich.SummarizedItem{
		{
			OriginalTitle: "대통령 신년 기자회견",
			Headline:      "헤드라인",
			Summary:       "요약문",
			Link:          "https://example.com/news/1",
			SourceName:    "테스트뉴스",
			Category:      feed.CategoryPolitics,
		},
	}
}

func sampleRanked() map[feed.Category][]enrich.RankedItem {
	return map[feed.Category][]enrich.RankedItem{
		feed.CategoryPolitics: {
			{SummarizedItem: sampleSummarized()[0], ImportanceRank: 1},
		},
	}
}

func fixedDate() string { return "2026-01-15" }

func newTestRunner(deps Deps) *Runner {
	if deps.RecentHours == 0 {
		deps.RecentHours = 24
	}
	deps.DedupOptions = dedup.DefaultOptions()
	return New(deps, fixedDate)
}

func TestRunSuccess(t *testing.T) {
	persister := &mockPersister{result: store.SaveResult{BriefingID: "b-1", SavedCount: 1}}
	invalidator := &mockInvalidator{}

	r := newTestRunner(Deps{
		Collector:       &mockCollector{items: sampleItems()},
		Summarizer:      &mockSummarizer{items: sampleSummarized()},
		Ranker:          &mockRanker{ranked: sampleRanked()},
		Persister:       persister,
		Invalidator:     invalidator,
		RevalidatePaths: []string{"/", "/archive"},
	})

	result := r.Run(context.Background(), "")
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if result.Date != "2026-01-15" {
		t.Errorf("expected date from clock, got %s", result.Date)
	}
	if result.BriefingID != "b-1" {
		t.Errorf("expected briefing id b-1, got %s", result.BriefingID)
	}
	want := Stats{Fetched: 1, AfterDedup: 1, Summarized: 1, Saved: 1}
	if result.Stats != want {
		t.Errorf("stats = %+v, want %+v", result.Stats, want)
	}
	if !invalidator.called {
		t.Error("expected revalidation after successful persist")
	}
	if len(invalidator.paths) != 2 {
		t.Errorf("expected configured paths passed through, got %v", invalidator.paths)
	}
}

func TestRunZeroCollectionAborts(t *testing.T) {
	persister := &mockPersister{}

	r := newTestRunner(Deps{
		Collector:  &mockCollector{},
		Summarizer: &mockSummarizer{},
		Ranker:     &mockRanker{},
		Persister:  persister,
	})

	result := r.Run(context.Background(), "")
	if result.Success {
		t.Fatal("expected failure for zero collected items")
	}
	if result.Stats.Fetched != 0 {
		t.Errorf("expected fetched = 0, got %d", result.Stats.Fetched)
	}
	if persister.called {
		t.Error("persist must not run when collection is empty")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected a descriptive error")
	}
}

func TestRunStaleItemsCountAsZero(t *testing.T) {
	// Items outside the recency window leave nothing to publish.
	stale := sampleItems()
	stale[0].PublishedAt = time.Now().Add(-72 * time.Hour)

	persister := &mockPersister{}
	r := newTestRunner(Deps{
		Collector:  &mockCollector{items: stale},
		Summarizer: &mockSummarizer{},
		Ranker:     &mockRanker{},
		Persister:  persister,
	})

	result := r.Run(context.Background(), "")
	if result.Success {
		t.Fatal("expected failure when all items are stale")
	}
	if persister.called {
		t.Error("persist must not run")
	}
}

func TestRunSummarizeErrorFailsRun(t *testing.T) {
	persister := &mockPersister{}
	r := newTestRunner(Deps{
		Collector:  &mockCollector{items: sampleItems()},
		Summarizer: &mockSummarizer{err: errors.New("generation service returned malformed JSON")},
		Ranker:     &mockRanker{},
		Persister:  persister,
	})

	result := r.Run(context.Background(), "")
	if result.Success {
		t.Fatal("expected failure from summarize error")
	}
	if persister.called {
		t.Error("persist must not run after a stage failure")
	}
}

func TestRunPersistErrorFailsRun(t *testing.T) {
	invalidator := &mockInvalidator{}
	r := newTestRunner(Deps{
		Collector:   &mockCollector{items: sampleItems()},
		Summarizer:  &mockSummarizer{items: sampleSummarized()},
		Ranker:      &mockRanker{ranked: sampleRanked()},
		Persister:   &mockPersister{err: errors.New("disk full")},
		Invalidator: invalidator,
	})

	result := r.Run(context.Background(), "")
	if result.Success {
		t.Fatal("expected failure from persist error")
	}
	if invalidator.called {
		t.Error("revalidation must not run after a failed persist")
	}
}

func TestRunRevalidationFailureDoesNotFailRun(t *testing.T) {
	r := newTestRunner(Deps{
		Collector:   &mockCollector{items: sampleItems()},
		Summarizer:  &mockSummarizer{items: sampleSummarized()},
		Ranker:      &mockRanker{ranked: sampleRanked()},
		Persister:   &mockPersister{result: store.SaveResult{BriefingID: "b-1", SavedCount: 1}},
		Invalidator: &mockInvalidator{err: errors.New("endpoint unreachable")},
	})

	result := r.Run(context.Background(), "")
	if !result.Success {
		t.Fatalf("revalidation failure must not fail the run, got errors: %v", result.Errors)
	}
}

func TestRunDateOverride(t *testing.T) {
	r := newTestRunner(Deps{
		Collector:  &mockCollector{items: sampleItems()},
		Summarizer: &mockSummarizer{items: sampleSummarized()},
		Ranker:     &mockRanker{ranked: sampleRanked()},
		Persister:  &mockPersister{result: store.SaveResult{BriefingID: "b-2"}},
	})

	result := r.Run(context.Background(), "2025-12-31")
	if result.Date != "2025-12-31" {
		t.Errorf("expected overridden date, got %s", result.Date)
	}
}
