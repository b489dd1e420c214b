// Package runner orchestrates one briefing pipeline run:
// collect -> deduplicate -> summarize -> rank -> persist, with a best-effort
// revalidation notify after a successful persist.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dailywrap/pipeline/internal/dedup"
	"github.com/dailywrap/pipeline/internal/enrich"
	"github.com/dailywrap/pipeline/internal/feed"
	"github.com/dailywrap/pipeline/internal/store"
)

// Collector fetches and normalizes raw items from all configured feeds.
type Collector interface {
	Collect(ctx context.Context) ([]feed.RawItem, error)
}

// Summarizer generates a headline and summary per item.
type Summarizer interface {
	Summarize(ctx context.Context, items []feed.RawItem) ([]enrich.SummarizedItem, error)
}

// Ranker assigns per-category importance ranks.
type Ranker interface {
	Rank(ctx context.Context, items []enrich.SummarizedItem) (map[feed.Category][]enrich.RankedItem, error)
}

// Persister saves the ranked items as the briefing for the date.
type Persister interface {
	SaveBriefing(ctx context.Context, ranked map[feed.Category][]enrich.RankedItem, date string) (store.SaveResult, error)
}

// Invalidator notifies the cache-invalidation endpoint.
type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) error
}

// Stats counts items surviving each pipeline stage.
type Stats struct {
	Fetched    int
	AfterDedup int
	Summarized int
	Saved      int
}

// Result is the fixed record one pipeline run produces. It drives both the
// CLI exit code and programmatic invocation.
type Result struct {
	Success    bool
	BriefingID string
	Date       string
	Stats      Stats
	Errors     []string
}

// Runner sequences the pipeline stages for a single date.
type Runner struct {
	collector       Collector
	summarizer      Summarizer
	ranker          Ranker
	persister       Persister
	invalidator     Invalidator
	dedupOptions    dedup.Options
	recentHours     int
	revalidatePaths []string
	now             func() string // current time as the briefing date string
}

// Deps wires the pipeline stages into a Runner.
type Deps struct {
	Collector       Collector
	Summarizer      Summarizer
	Ranker          Ranker
	Persister       Persister
	Invalidator     Invalidator
	DedupOptions    dedup.Options
	RecentHours     int
	RevalidatePaths []string
}

// New constructs a runner. dateFn returns the briefing date (YYYY-MM-DD)
// for "now" in the publication timezone.
func New(deps Deps, dateFn func() string) *Runner {
	if deps.RecentHours <= 0 {
		deps.RecentHours = 24
	}
	return &Runner{
		collector:       deps.Collector,
		summarizer:      deps.Summarizer,
		ranker:          deps.Ranker,
		persister:       deps.Persister,
		invalidator:     deps.Invalidator,
		dedupOptions:    deps.DedupOptions,
		recentHours:     deps.RecentHours,
		revalidatePaths: deps.RevalidatePaths,
		now:             dateFn,
	}
}

// timeNow is the recency filter's reference clock, overridable in tests.
var timeNow = time.Now

// Run executes the full pipeline once for the given date; an empty date
// means today in the publication timezone. Stage errors never escape: any
// failure converts the run into a Failed result. Durable state only changes
// in the persist stage, so a failed run leaves nothing half-saved.
func (r *Runner) Run(ctx context.Context, date string) Result {
	if date == "" {
		date = r.now()
	}
	result := Result{Date: date}

	log.Printf("[pipeline] starting run for %s", date)

	if err := r.run(ctx, &result); err != nil {
		result.Errors = append(result.Errors, err.Error())
		log.Printf("[pipeline] FAILED: %v", err)
		return result
	}

	result.Success = true
	log.Printf("[pipeline] success: briefing %s, stats %+v", result.BriefingID, result.Stats)

	// Best effort: a revalidation failure is logged but never turns a
	// published run into a failure.
	if r.invalidator != nil {
		if err := r.invalidator.Invalidate(ctx, r.revalidatePaths); err != nil {
			log.Printf("[pipeline] WARNING: revalidation failed: %v", err)
		}
	}

	return result
}

func (r *Runner) run(ctx context.Context, result *Result) error {
	log.Printf("[pipeline] step 1/5: collecting feeds")
	collected, err := r.collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	recent := feed.FilterRecent(collected, r.recentHours, timeNow())
	result.Stats.Fetched = len(recent)
	log.Printf("[pipeline] step 1/5 complete: %d items within %dh window", len(recent), r.recentHours)

	if len(recent) == 0 {
		return fmt.Errorf("no items collected")
	}

	log.Printf("[pipeline] step 2/5: deduplicating")
	unique := dedup.Deduplicate(recent, r.dedupOptions)
	result.Stats.AfterDedup = len(unique)

	log.Printf("[pipeline] step 3/5: summarizing")
	summarized, err := r.summarizer.Summarize(ctx, unique)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	result.Stats.Summarized = len(summarized)

	log.Printf("[pipeline] step 4/5: ranking")
	ranked, err := r.ranker.Rank(ctx, summarized)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	log.Printf("[pipeline] step 5/5: persisting")
	saveResult, err := r.persister.SaveBriefing(ctx, ranked, result.Date)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	result.BriefingID = saveResult.BriefingID
	result.Stats.Saved = saveResult.SavedCount

	return nil
}
