// Package dedup collapses near-duplicate coverage of the same story.
//
// Items are scanned newest-first so the most recent version of a story is
// the one that survives. An item is a duplicate when its normalized URL or
// title is close enough to one already accepted; comparison is scoped per
// category unless cross-category mode is on.
package dedup

import (
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/dailywrap/pipeline/internal/feed"
)

// Options tune the duplicate detection heuristics.
type Options struct {
	// URLThreshold is the character-set Jaccard similarity above which two
	// normalized URLs are considered the same article.
	URLThreshold float64
	// TitleThreshold is the n-gram Jaccard similarity above which two
	// normalized titles are considered the same story.
	TitleThreshold float64
	// NgramSize is the n-gram length for title comparison.
	NgramSize int
	// CrossCategory compares items across all categories instead of only
	// within their own.
	CrossCategory bool
}

// DefaultOptions returns the tuned production thresholds.
func DefaultOptions() Options {
	return Options{
		URLThreshold:   0.95,
		TitleThreshold: 0.70,
		NgramSize:      2,
	}
}

// Deduplicate returns the input with duplicate clusters reduced to a single
// representative each. Output order is the scan's acceptance order: publish
// time descending, ties in original input order.
func Deduplicate(items []feed.RawItem, opts Options) []feed.RawItem {
	if opts.URLThreshold == 0 {
		opts.URLThreshold = 0.95
	}
	if opts.TitleThreshold == 0 {
		opts.TitleThreshold = 0.70
	}
	if opts.NgramSize == 0 {
		opts.NgramSize = 2
	}

	sorted := make([]feed.RawItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	unique := make([]feed.RawItem, 0, len(sorted))
	accepted := make(map[feed.Category][]feed.RawItem)

	for _, item := range sorted {
		scope := item.Category
		if opts.CrossCategory {
			scope = "all"
		}

		dup := false
		for _, existing := range accepted[scope] {
			if isDuplicate(item, existing, opts) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		unique = append(unique, item)
		accepted[scope] = append(accepted[scope], item)
	}

	log.Printf("[dedup] removed %d duplicates, %d items remaining", len(items)-len(unique), len(unique))
	return unique
}

func isDuplicate(a, b feed.RawItem, opts Options) bool {
	urlA := NormalizeURL(a.Link)
	urlB := NormalizeURL(b.Link)

	if urlA == urlB {
		return true
	}
	if charJaccard(urlA, urlB) >= opts.URLThreshold {
		return true
	}

	titleA := NormalizeTitle(a.Title)
	titleB := NormalizeTitle(b.Title)

	if titleA == titleB {
		return true
	}
	return ngramJaccard(titleA, titleB, opts.NgramSize) >= opts.TitleThreshold
}

// trackingParams are query parameters that vary between syndicated copies of
// the same article.
var trackingParams = []string{"ref", "source"}

// NormalizeURL strips tracking query parameters and the fragment, then
// lower-cases the whole URL. Unparseable URLs are just lower-cased.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(key, "utm_") {
			query.Del(key)
		}
	}
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	return strings.ToLower(parsed.String())
}

// NormalizeTitle lower-cases the title and keeps only ASCII alphanumerics
// and Hangul, so whitespace and punctuation differences between outlets
// don't defeat the comparison.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 0xAC00 && r <= 0xD7AF: // Hangul syllables
			b.WriteRune(r)
		case r >= 0x1100 && r <= 0x11FF: // Hangul jamo
			b.WriteRune(r)
		}
	}
	return b.String()
}

// charJaccard computes the Jaccard similarity of the two strings' rune sets.
func charJaccard(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ngramJaccard computes the Jaccard similarity of the two strings' rune
// n-gram sets.
func ngramJaccard(a, b string, n int) float64 {
	setA := ngramSet(a, n)
	setB := ngramSet(b, n)

	intersection := 0
	for g := range setA {
		if setB[g] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

func ngramSet(s string, n int) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool)
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = true
	}
	return set
}
