// Package enrich wraps the text-generation client for the two enrichment
// operations: per-item headline+summary generation and per-category
// importance ranking.
//
// Prompt items carry explicit correlation ids ("n1".."nN") and responses are
// matched back by id, never by array position, so a sparse or reordered
// response cannot silently mis-attribute results.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dailywrap/pipeline/internal/feed"
	"github.com/dailywrap/pipeline/internal/llm"
)

// SummarizedItem is a RawItem enriched with a generated headline and
// summary. Headline and summary are never verbatim copies of the source
// text; the prompt forbids it.
type SummarizedItem struct {
	OriginalTitle string
	Headline      string
	Summary       string
	Link          string
	SourceName    string
	Category      feed.Category
	PublishedAt   time.Time
}

const defaultBatchSize = 10

const summarizeSystemPrompt = `당신은 한국 뉴스를 요약하는 전문 에디터입니다.
독자는 바쁜 직장인으로, 짧은 시간에 핵심 뉴스를 파악하고 싶어합니다.

### 핵심 규칙
1. **원문 문장 절대 복사 금지**: 저작권 문제로 원문의 문장을 그대로 사용하면 안됩니다.
2. **객관적 톤 유지**: 논평이나 의견 없이 팩트만 전달하세요.
3. **한국어로 작성**: 모든 응답은 자연스러운 한국어로 작성하세요.

### 출력 형식
각 뉴스에 대해 다음을 생성하세요:
- headline: 핵심을 담은 한줄 헤드라인 (15-25자)
- summary: 누가/무엇을/언제/왜를 담은 4-5문장 요약 (100-180자)

JSON 형식으로 응답하세요.`

// Summarizer generates headlines and summaries in bounded batches.
type Summarizer struct {
	client    llm.Client
	batchSize int
}

// NewSummarizer builds a summarizer over the generation client. batchSize
// bounds how many items share one prompt; zero means the default of 10.
func NewSummarizer(client llm.Client, batchSize int) *Summarizer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Summarizer{client: client, batchSize: batchSize}
}

type summaryResponse struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// Summarize enriches the items batch by batch, sequentially. Items the
// service omits from a response are dropped; the drop count is logged.
func (s *Summarizer) Summarize(ctx context.Context, items []feed.RawItem) ([]SummarizedItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]SummarizedItem, 0, len(items))
	batches := (len(items) + s.batchSize - 1) / s.batchSize

	for i := 0; i < len(items); i += s.batchSize {
		end := i + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[i:end]
		log.Printf("[summarize] processing batch %d/%d", i/s.batchSize+1, batches)

		enriched, err := s.summarizeBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, enriched...)
	}

	log.Printf("[summarize] completed %d summaries", len(results))
	return results, nil
}

func (s *Summarizer) summarizeBatch(ctx context.Context, batch []feed.RawItem) ([]SummarizedItem, error) {
	response, err := s.client.Complete(ctx, llm.Request{
		System:      summarizeSystemPrompt,
		Message:     buildSummarizePrompt(batch),
		MaxTokens:   2048,
		Temperature: 0.3,
		Fallback:    offlineSummarizeResponse(batch),
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: summarize call failed: %w", err)
	}

	var parsed []summaryResponse
	if err := llm.ParseJSON(response, &parsed); err != nil {
		return nil, fmt.Errorf("enrich: summarize: %w", err)
	}

	byID := make(map[string]summaryResponse, len(parsed))
	for _, p := range parsed {
		byID[p.ID] = p
	}

	results := make([]SummarizedItem, 0, len(batch))
	for i, item := range batch {
		p, ok := byID[itemID(i)]
		if !ok {
			continue
		}
		results = append(results, SummarizedItem{
			OriginalTitle: item.Title,
			Headline:      p.Headline,
			Summary:       p.Summary,
			Link:          item.Link,
			SourceName:    item.SourceName,
			Category:      item.Category,
			PublishedAt:   item.PublishedAt,
		})
	}

	if dropped := len(batch) - len(results); dropped > 0 {
		log.Printf("[summarize] WARNING: %d items missing from response, dropped", dropped)
	}
	return results, nil
}

// itemID is the correlation id for the i-th item of a batch prompt.
func itemID(i int) string {
	return fmt.Sprintf("n%d", i+1)
}

func buildSummarizePrompt(batch []feed.RawItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "다음 %d개 뉴스를 각각 요약해주세요.\n", len(batch))

	for i, item := range batch {
		desc := item.Description
		if desc == "" {
			desc = "(설명 없음)"
		}
		fmt.Fprintf(&sb, "\n[뉴스 %s]\n- 제목: %s\n- 설명: %s\n- 출처: %s\n- 카테고리: %s\n",
			itemID(i), item.Title, desc, item.SourceName, item.Category)
	}

	sb.WriteString(`
### 출력 형식
` + "```json" + `
[
  {"id": "n1", "headline": "...", "summary": "..."},
  {"id": "n2", "headline": "...", "summary": "..."}
]
` + "```" + `
"id"는 위 목록의 뉴스 id를 그대로 사용하세요. 모든 뉴스에 대해 항목을 생성하세요.`)

	return sb.String()
}

// offlineSummarizeResponse templates the deterministic response the offline
// client returns for this batch.
func offlineSummarizeResponse(batch []feed.RawItem) string {
	canned := make([]summaryResponse, len(batch))
	for i, item := range batch {
		title := []rune(item.Title)
		if len(title) > 20 {
			title = title[:20]
		}
		canned[i] = summaryResponse{
			ID:       itemID(i),
			Headline: fmt.Sprintf("[오프라인] %s", string(title)),
			Summary: fmt.Sprintf("이 뉴스는 %s 분야의 소식입니다. %s에서 보도했습니다. "+
				"해당 사안은 최근 주목받고 있는 이슈로, 관련 당사자들의 반응이 주목됩니다. "+
				"향후 추가적인 전개가 예상됩니다. 자세한 내용은 원문을 참고하세요.",
				item.Category, item.SourceName),
		}
	}
	data, _ := json.Marshal(canned)
	return string(data)
}
