package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dailywrap/pipeline/internal/feed"
	"github.com/dailywrap/pipeline/internal/llm"
)

// RankedItem is a SummarizedItem with its per-category importance rank,
// 1 = most important.
type RankedItem struct {
	SummarizedItem
	ImportanceRank int
}

const defaultTopPerCategory = 5

const rankSystemPrompt = `당신은 뉴스 편집장으로서 기사의 중요도를 평가합니다.
바쁜 직장인 독자가 가장 먼저 알아야 할 뉴스를 선별하세요.

### 중요도 판단 기준
1. **사회적 영향력**: 많은 사람에게 영향을 미치는 뉴스
2. **시의성**: 지금 당장 알아야 하는 급보
3. **독자 관심도**: 직장인이 관심을 가질 만한 주제
4. **신뢰도**: 주요 언론사의 확인된 보도

### 랭킹 규칙
- 카테고리 내에서 1-N 순위 부여 (1이 가장 중요)
- 비슷한 중요도라도 순위를 명확히 구분
- 같은 순위는 허용하지 않음 (동점 없음)

JSON 형식으로 응답하세요.`

// Ranker assigns per-category importance ranks via the generation client.
type Ranker struct {
	client llm.Client
	topN   int
}

// NewRanker builds a ranker. topN bounds how many items per category
// survive into the briefing; zero means the default of 5.
func NewRanker(client llm.Client, topN int) *Ranker {
	if topN <= 0 {
		topN = defaultTopPerCategory
	}
	return &Ranker{client: client, topN: topN}
}

type rankResponse struct {
	ID     string `json:"id"`
	Rank   int    `json:"rank"`
	Reason string `json:"reason"`
}

// Rank groups items by category, truncates each group to the top N, and
// asks the service for a strict total order per group. Output ranks are
// always a permutation of 1..len(group): the service's ranks are treated as
// advisory and the group is re-sorted by (responded rank, input position)
// and renumbered, so duplicate or missing ranks never produce ties or gaps.
func (r *Ranker) Rank(ctx context.Context, items []SummarizedItem) (map[feed.Category][]RankedItem, error) {
	result := make(map[feed.Category][]RankedItem, len(feed.Categories))

	for _, category := range feed.Categories {
		var group []SummarizedItem
		for _, item := range items {
			if item.Category == category {
				group = append(group, item)
			}
		}

		ranked, err := r.rankCategory(ctx, category, group)
		if err != nil {
			return nil, err
		}
		result[category] = ranked
	}

	return result, nil
}

func (r *Ranker) rankCategory(ctx context.Context, category feed.Category, items []SummarizedItem) ([]RankedItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if len(items) > r.topN {
		items = items[:r.topN]
	}
	log.Printf("[rank] ranking %d %s items", len(items), category)

	response, err := r.client.Complete(ctx, llm.Request{
		System:      rankSystemPrompt,
		Message:     buildRankPrompt(category, items),
		MaxTokens:   1024,
		Temperature: 0.2,
		Fallback:    offlineRankResponse(items),
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: rank call for %s failed: %w", category, err)
	}

	var parsed []rankResponse
	if err := llm.ParseJSON(response, &parsed); err != nil {
		return nil, fmt.Errorf("enrich: rank %s: %w", category, err)
	}

	rankByID := make(map[string]int, len(parsed))
	for _, p := range parsed {
		rankByID[p.ID] = p.Rank
	}

	// Advisory ranks first, input position as tiebreaker; items the
	// service skipped sort after everything it ranked.
	type scored struct {
		item SummarizedItem
		rank int
		pos  int
	}
	order := make([]scored, len(items))
	for i, item := range items {
		rank, ok := rankByID[itemID(i)]
		if !ok || rank < 1 {
			rank = len(items) + 1
		}
		order[i] = scored{item: item, rank: rank, pos: i}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].rank != order[b].rank {
			return order[a].rank < order[b].rank
		}
		return order[a].pos < order[b].pos
	})

	ranked := make([]RankedItem, len(order))
	for i, s := range order {
		ranked[i] = RankedItem{SummarizedItem: s.item, ImportanceRank: i + 1}
	}
	return ranked, nil
}

func buildRankPrompt(category feed.Category, items []SummarizedItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "다음 %s 카테고리의 %d개 뉴스에 중요도 순위를 부여해주세요.\n", category, len(items))
	fmt.Fprintf(&sb, "가장 중요한 뉴스에 1위, 가장 덜 중요한 뉴스에 %d위를 부여하세요.\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&sb, "\n[%s] %s\n- 요약: %s\n- 출처: %s\n",
			itemID(i), item.Headline, item.Summary, item.SourceName)
	}

	sb.WriteString(`
### 출력 형식
` + "```json" + `
[
  {"id": "n1", "rank": 1, "reason": "중요도 판단 이유 (한 문장)"},
  {"id": "n2", "rank": 2, "reason": "..."}
]
` + "```" + `
"id"는 위 목록의 뉴스 id를 그대로 사용하고, 모든 뉴스에 서로 다른 순위를 부여하세요.`)

	return sb.String()
}

// offlineRankResponse templates the deterministic response for this group:
// ranks follow input order.
func offlineRankResponse(items []SummarizedItem) string {
	canned := make([]rankResponse, len(items))
	for i := range items {
		canned[i] = rankResponse{
			ID:     itemID(i),
			Rank:   i + 1,
			Reason: fmt.Sprintf("[오프라인] 순서대로 %d위 부여", i+1),
		}
	}
	data, _ := json.Marshal(canned)
	return string(data)
}
