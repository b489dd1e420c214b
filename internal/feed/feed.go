package feed

import (
	"regexp"
	"strings"
	"time"
)

// Category partitions news items into the fixed briefing sections.
type Category string

const (
	CategoryPolitics Category = "politics"
	CategoryEconomy  Category = "economy"
	CategorySociety  Category = "society"
)

// Categories lists all categories in briefing display order.
var Categories = []Category{CategoryPolitics, CategoryEconomy, CategorySociety}

// RawItem is a normalized article as collected from a syndication feed.
// It lives only within a single pipeline run.
type RawItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Description string
	Category    Category
	SourceName  string
}

// Source is one configured syndication feed for a category.
type Source struct {
	URL        string `yaml:"url"`
	SourceName string `yaml:"source_name"`
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup tags that some feeds embed in titles and
// descriptions.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(s, ""))
}

// FilterRecent keeps items published within the trailing window ending at
// now. Items whose publish time could not be parsed carry the fetch time and
// are therefore retained.
func FilterRecent(items []RawItem, hoursAgo int, now time.Time) []RawItem {
	cutoff := now.Add(-time.Duration(hoursAgo) * time.Hour)

	filtered := make([]RawItem, 0, len(items))
	for _, item := range items {
		if !item.PublishedAt.Before(cutoff) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
