package dedup

import (
	"testing"
	"time"

	"github.com/dailywrap/pipeline/internal/feed"
)

func item(title, link string, category feed.Category, published time.Time) feed.RawItem {
	return feed.RawItem{
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Category:    category,
		SourceName:  "테스트뉴스",
	}
}

func TestDeduplicateIdenticalURLWithTrackingParams(t *testing.T) {
	now := time.Now()
	items := []feed.RawItem{
		item("기사 제목", "https://example.com/news/12345?utm_source=rss&utm_medium=feed", feed.CategoryPolitics, now),
		item("전혀 다른 제목의 같은 기사", "https://example.com/news/12345?ref=newsletter", feed.CategoryPolitics, now.Add(-time.Hour)),
	}

	unique := Deduplicate(items, DefaultOptions())
	if len(unique) != 1 {
		t.Fatalf("expected 1 item after dedup, got %d", len(unique))
	}
}

func TestDeduplicateNearIdenticalTitles(t *testing.T) {
	now := time.Now()
	items := []feed.RawItem{
		item("대통령, 신년 기자회견에서 발표", "https://aaa.example.com/politics/111", feed.CategoryPolitics, now),
		item("대통령 신년 기자회견서 발표", "https://zzz.other.org/x/99999", feed.CategoryPolitics, now.Add(-time.Minute)),
	}

	unique := Deduplicate(items, DefaultOptions())
	if len(unique) != 1 {
		t.Fatalf("expected near-identical titles to collapse, got %d items", len(unique))
	}
}

func TestDeduplicateKeepsLatestRepresentative(t *testing.T) {
	now := time.Now()
	older := item("대통령, 신년 기자회견에서 발표", "https://aaa.example.com/politics/111", feed.CategoryPolitics, now.Add(-2*time.Hour))
	newer := item("대통령 신년 기자회견서 발표", "https://zzz.other.org/x/99999", feed.CategoryPolitics, now)

	unique := Deduplicate([]feed.RawItem{older, newer}, DefaultOptions())
	if len(unique) != 1 {
		t.Fatalf("expected 1 item, got %d", len(unique))
	}
	if unique[0].Link != newer.Link {
		t.Errorf("expected the newer item to survive, got %s", unique[0].Link)
	}
}

func TestDeduplicateDistinctStoriesSurvive(t *testing.T) {
	now := time.Now()
	items := []feed.RawItem{
		item("대통령, 신년 기자회견에서 발표", "https://aaa.example.com/politics/111", feed.CategoryPolitics, now),
		item("코스피 3000 돌파, 사상 최고치 경신", "https://biz.example.net/kospi/3000", feed.CategoryEconomy, now),
	}

	unique := Deduplicate(items, DefaultOptions())
	if len(unique) != 2 {
		t.Fatalf("expected 2 distinct stories, got %d", len(unique))
	}
}

func TestDeduplicateCategoryIndependence(t *testing.T) {
	now := time.Now()
	items := []feed.RawItem{
		item("대통령, 신년 기자회견에서 발표", "https://aaa.example.com/politics/111", feed.CategoryPolitics, now),
		item("대통령 신년 기자회견서 발표", "https://zzz.other.org/x/99999", feed.CategoryEconomy, now.Add(-time.Minute)),
	}

	// Cross-category off: similar titles in different categories both stay.
	unique := Deduplicate(items, DefaultOptions())
	if len(unique) != 2 {
		t.Fatalf("cross-category off: expected 2 items, got %d", len(unique))
	}

	opts := DefaultOptions()
	opts.CrossCategory = true
	unique = Deduplicate(items, opts)
	if len(unique) != 1 {
		t.Fatalf("cross-category on: expected 1 item, got %d", len(unique))
	}
}

func TestDeduplicateOutputOrder(t *testing.T) {
	now := time.Now()
	items := []feed.RawItem{
		item("첫번째 독립 기사", "https://a.example.com/1", feed.CategoryPolitics, now.Add(-2*time.Hour)),
		item("두번째 독립 기사 코스피", "https://b.example.net/2", feed.CategoryPolitics, now),
		item("세번째 독립 기사 부동산", "https://c.example.org/3", feed.CategoryPolitics, now.Add(-time.Hour)),
	}

	unique := Deduplicate(items, DefaultOptions())
	if len(unique) != 3 {
		t.Fatalf("expected 3 items, got %d", len(unique))
	}
	for i := 1; i < len(unique); i++ {
		if unique[i].PublishedAt.After(unique[i-1].PublishedAt) {
			t.Errorf("output not in descending publish order at index %d", i)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm params",
			in:   "https://Example.com/News/1?utm_source=rss&utm_campaign=daily",
			want: "https://example.com/news/1",
		},
		{
			name: "strips ref and source",
			in:   "https://example.com/news/1?ref=home&source=feed",
			want: "https://example.com/news/1",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/news/1#comments",
			want: "https://example.com/news/1",
		},
		{
			name: "keeps content params",
			in:   "https://example.com/news?id=42",
			want: "https://example.com/news?id=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"대통령, 신년 기자회견에서 발표", "대통령신년기자회견에서발표"},
		{"KOSPI 3,000 돌파!", "kospi3000돌파"},
		{"  Hello -- World_1  ", "helloworld_1"},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNgramJaccard(t *testing.T) {
	if got := ngramJaccard("같은제목", "같은제목", 2); got != 1.0 {
		t.Errorf("identical strings: got %f, want 1.0", got)
	}
	if got := ngramJaccard("가나다라", "마바사아", 2); got != 0.0 {
		t.Errorf("disjoint strings: got %f, want 0.0", got)
	}
	if got := ngramJaccard("", "", 2); got != 0.0 {
		t.Errorf("empty strings: got %f, want 0.0", got)
	}
}
