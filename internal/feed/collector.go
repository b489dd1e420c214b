package feed

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// Collector fetches all configured feeds and normalizes their items.
type Collector struct {
	feeds   map[Category][]Source
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
}

// NewCollector builds a collector over the per-category feed table.
// timeout bounds each individual feed fetch, not the whole collection.
func NewCollector(feeds map[Category][]Source, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{
		feeds:   feeds,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		now:     time.Now,
	}
}

// Collect fetches every configured feed concurrently and returns the union
// of their items. A feed that fails to fetch or parse contributes nothing;
// it never aborts the collection.
func (c *Collector) Collect(ctx context.Context) ([]RawItem, error) {
	type result struct {
		category Category
		source   Source
		items    []RawItem
	}

	var wg sync.WaitGroup
	results := make(chan result)

	for category, sources := range c.feeds {
		for _, source := range sources {
			wg.Add(1)
			go func(category Category, source Source) {
				defer wg.Done()
				results <- result{
					category: category,
					source:   source,
					items:    c.fetchFeed(ctx, category, source),
				}
			}(category, source)
		}
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []RawItem
	perCategory := make(map[Category]int)
	for r := range results {
		all = append(all, r.items...)
		perCategory[r.category] += len(r.items)
	}

	for _, category := range Categories {
		log.Printf("[feed] category %s: %d items", category, perCategory[category])
	}
	log.Printf("[feed] total items fetched: %d", len(all))
	return all, nil
}

// fetchFeed pulls a single feed. All failures degrade to an empty slice.
func (c *Collector) fetchFeed(ctx context.Context, category Category, source Source) []RawItem {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		log.Printf("[feed] %s (%s): bad URL: %v", source.SourceName, source.URL, err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[feed] %s: fetch failed: %v", source.SourceName, err)
		return nil
	}
	defer resp.Body.Close()

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		log.Printf("[feed] %s: parse failed: %v", source.SourceName, err)
		return nil
	}

	now := c.now()
	items := make([]RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		items = append(items, RawItem{
			Title:       stripHTML(it.Title),
			Link:        it.Link,
			PublishedAt: publishedTime(it, now),
			Description: itemDescription(it),
			Category:    category,
			SourceName:  source.SourceName,
		})
	}

	log.Printf("[feed] %s: %d items", source.SourceName, len(items))
	return items
}

// publishedTime picks the item's publish timestamp, preferring the published
// date over the updated one. Items without a parseable date get the fetch
// time so the recency filter keeps them.
func publishedTime(it *gofeed.Item, fetchedAt time.Time) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return fetchedAt
}

func itemDescription(it *gofeed.Item) string {
	if it.Description != "" {
		return stripHTML(it.Description)
	}
	return stripHTML(it.Content)
}
