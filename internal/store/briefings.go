package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dailywrap/pipeline/internal/enrich"
	"github.com/dailywrap/pipeline/internal/feed"
)

const timeFmt = "2006-01-02T15:04:05Z"

// Briefing is the persisted daily container for curated news items. Exactly
// one exists per calendar date.
type Briefing struct {
	ID          string
	Date        string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewsItem is the persisted form of a ranked item, owned by exactly one
// briefing.
type NewsItem struct {
	ID             string
	BriefingID     string
	Category       string
	Title          string
	Summary        string
	SourceName     string
	SourceURL      string
	ImportanceRank int
	CreatedAt      time.Time
}

// SaveResult reports what a SaveBriefing call persisted.
type SaveResult struct {
	BriefingID string
	SavedCount int
}

// GetBriefingByDate returns the briefing for the date (YYYY-MM-DD), or nil
// if none exists.
func (s *Store) GetBriefingByDate(ctx context.Context, date string) (*Briefing, error) {
	b := &Briefing{}
	var createdAt string
	var publishedAt *string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, date, created_at, published_at FROM briefings WHERE date = ?`, date).
		Scan(&b.ID, &b.Date, &createdAt, &publishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get briefing: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)
	b.PublishedAt = parseTimePtr(publishedAt)
	return b, nil
}

// ItemsByBriefing returns the briefing's items ordered by category
// (politics, economy, society) and ascending importance rank.
func (s *Store) ItemsByBriefing(ctx context.Context, briefingID string) ([]NewsItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, briefing_id, category, title, summary, source_name, source_url, importance_rank, created_at
		FROM news_items WHERE briefing_id = ?
		ORDER BY CASE category
			WHEN 'politics' THEN 0
			WHEN 'economy' THEN 1
			WHEN 'society' THEN 2
			ELSE 3 END, importance_rank`, briefingID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []NewsItem
	for rows.Next() {
		var item NewsItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.BriefingID, &item.Category, &item.Title,
			&item.Summary, &item.SourceName, &item.SourceURL, &item.ImportanceRank, &createdAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.CreatedAt = parseTime(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// SaveBriefing persists the ranked items for the date. If a briefing for the
// date already exists its id is reused and its item set fully replaced;
// otherwise a new briefing is created with publishedAt set to now. The
// delete-then-insert replace runs inside one transaction, so reruns for the
// same date are idempotent and a crash cannot leave a half-replaced item
// set.
func (s *Store) SaveBriefing(ctx context.Context, ranked map[feed.Category][]enrich.RankedItem, date string) (SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var briefingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM briefings WHERE date = ?`, date).Scan(&briefingID)
	switch {
	case err == sql.ErrNoRows:
		briefingID = uuid.New().String()
		now := time.Now().UTC().Format(timeFmt)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO briefings (id, date, published_at) VALUES (?, ?, ?)`,
			briefingID, date, now); err != nil {
			return SaveResult{}, fmt.Errorf("insert briefing: %w", err)
		}
	case err != nil:
		return SaveResult{}, fmt.Errorf("find briefing: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM news_items WHERE briefing_id = ?`, briefingID); err != nil {
			return SaveResult{}, fmt.Errorf("delete old items: %w", err)
		}
	}

	saved := 0
	for _, category := range feed.Categories {
		for _, item := range ranked[category] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO news_items (id, briefing_id, category, title, summary, source_name, source_url, importance_rank)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), briefingID, string(category),
				item.Headline, item.Summary, item.SourceName, item.Link, item.ImportanceRank); err != nil {
				return SaveResult{}, fmt.Errorf("insert item: %w", err)
			}
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("commit: %w", err)
	}
	return SaveResult{BriefingID: briefingID, SavedCount: saved}, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeFmt, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}
