/*
 * @Description: 数据库搜索引擎（降级方案），包含手写的相关度打分、摘要与高亮
 * @Author: 晚风
 * @Date: 2025-09-04 10:05:12
 * @LastEditTime: 2025-12-21 00:36:48
 * @LastEditors: 晚风
 */
package search

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"
)

// 打分与截断常量。
// 打分是一个 BM25 风格的启发式手写模型，常量值是契约的一部分，不要随意调整。
const (
	scoreTitleFactor     = 10.0 // 标题命中：titleWeight * 10
	scoreTitlePrefixBump = 5.0  // 标题以词条开头的额外加分
	scoreKeywordFactor   = 8.0  // 关键词命中：keywordWeight * 8
	scoreContentFactor   = 5.0  // 正文命中：contentWeight * 5
	scoreTermFreqStep    = 0.1  // 正文中每次出现的词频加分
	scoreFloor           = 0.1  // 有词条时的最低分
	scoreUniform         = 1.0  // 空查询时的统一分

	summaryLimit     = 200 // 摘要长度上限（按字符数）
	summaryBackoff   = 160 // 回退到空格的最早位置（上限的 80%）
	fragmentLength   = 100 // 高亮片段长度
	maxFragments     = 3   // 每篇文档最多的高亮片段数
	bulkBatchSize    = 100 // 批量索引的内部批大小
	rebuildBatchSize = 1000
)

// DatabaseSearcher 基于关系库的搜索引擎实现。
// 它是永远可用的降级方案：查询构建下推到仓库层，打分、摘要与高亮在进程内完成。
type DatabaseSearcher struct {
	indexRepo repository.SearchIndexRepository
	postRepo  repository.PostRepository
	hotSearch *HotSearchService
	language  string
}

// NewDatabaseSearcher 创建数据库搜索引擎
func NewDatabaseSearcher(
	indexRepo repository.SearchIndexRepository,
	postRepo repository.PostRepository,
	hotSearch *HotSearchService,
	language string,
) *DatabaseSearcher {
	return &DatabaseSearcher{
		indexRepo: indexRepo,
		postRepo:  postRepo,
		hotSearch: hotSearch,
		language:  language,
	}
}

var _ model.SearchEngine = (*DatabaseSearcher)(nil)

// splitTerms 按空白拆分查询词条并统一为小写
func splitTerms(query string) []string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, strings.ToLower(f))
	}
	return terms
}

// Search 执行搜索。内部失败不向上抛：记日志并返回空结果。
func (s *DatabaseSearcher) Search(ctx context.Context, criteria *model.SearchCriteria) (*model.SearchResult, error) {
	start := time.Now()
	criteria.Normalize()
	terms := splitTerms(criteria.Query)

	docs, total, err := s.indexRepo.Query(ctx, &repository.SearchIndexQuery{
		Terms:       terms,
		ContentType: criteria.ContentType,
		StartDate:   criteria.StartDate,
		EndDate:     criteria.EndDate,
		SortBy:      criteria.SortBy,
		SortDir:     criteria.SortDirection,
		Offset:      criteria.Offset(),
		Limit:       criteria.PageSize,
	})
	if err != nil {
		log.Printf("错误: 数据库搜索失败: %v", err)
		return model.EmptySearchResult(), nil
	}

	items := make([]*model.SearchResultItem, 0, len(docs))
	for _, doc := range docs {
		score, matched := scoreDocument(doc, terms)
		item := &model.SearchResultItem{
			EntityID:      doc.EntityID,
			EntityType:    doc.EntityType,
			Title:         doc.Title,
			Summary:       generateSummary(doc.Content),
			Score:         score,
			MatchedFields: matched,
			CreatedAt:     doc.IndexedAt,
		}
		if criteria.EnableHighlight && len(terms) > 0 {
			item.Highlights = buildHighlights(doc, terms)
		}
		items = append(items, item)
	}

	return &model.SearchResult{
		Items:         items,
		TotalCount:    total,
		ExecutionTime: time.Since(start).Milliseconds(),
	}, nil
}

// scoreDocument 对单篇文档按全部查询词条打分，并返回命中的字段列表。
// 空词条列表统一给 1.0 分；否则最低分被抬到 0.1，保证命中的文档永远有非零相关度。
func scoreDocument(doc *model.SearchIndex, terms []string) (float64, []string) {
	if len(terms) == 0 {
		return scoreUniform, nil
	}

	titleLower := strings.ToLower(doc.Title)
	contentLower := strings.ToLower(doc.Content)
	keywordsLower := strings.ToLower(doc.Keywords)

	score := 0.0
	matchedSet := make(map[string]struct{})

	for _, term := range terms {
		if strings.Contains(titleLower, term) {
			score += doc.TitleWeight * scoreTitleFactor
			if strings.HasPrefix(titleLower, term) {
				score += scoreTitlePrefixBump
			}
			matchedSet["title"] = struct{}{}
		}
		if keywordsLower != "" && strings.Contains(keywordsLower, term) {
			score += doc.KeywordWeight * scoreKeywordFactor
			matchedSet["keywords"] = struct{}{}
		}
		if n := strings.Count(contentLower, term); n > 0 {
			score += doc.ContentWeight*scoreContentFactor + scoreTermFreqStep*float64(n)
			matchedSet["content"] = struct{}{}
		}
	}

	if score < scoreFloor {
		score = scoreFloor
	}

	matched := make([]string, 0, len(matchedSet))
	for _, field := range []string{"title", "keywords", "content"} {
		if _, ok := matchedSet[field]; ok {
			matched = append(matched, field)
		}
	}
	return score, matched
}

// generateSummary 把正文截断到 200 字符。
// 截断点落在上限的 80% 之后且存在空格时，回退到最近的空格，再追加省略号。
func generateSummary(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryLimit {
		return content
	}

	cut := runes[:summaryLimit]
	if idx := lastSpaceIndex(cut); idx >= summaryBackoff {
		cut = cut[:idx]
	}
	return string(cut) + "…"
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// buildHighlights 生成按字段分组的高亮片段：标题整字段高亮，正文最多 3 个片段。
func buildHighlights(doc *model.SearchIndex, terms []string) map[string][]string {
	highlights := make(map[string][]string)
	if marked := markOccurrences(doc.Title, terms); marked != doc.Title {
		highlights["title"] = []string{marked}
	}
	if fragments := extractContentFragments(doc.Content, terms); len(fragments) > 0 {
		highlights["content"] = fragments
	}
	if len(highlights) == 0 {
		return nil
	}
	return highlights
}

// markOccurrences 把文本中每个词条的出现（大小写不敏感）包进 <mark> 标记。
// 先收集所有匹配区间并合并重叠，再一次性重建字符串，避免标记互相嵌套。
// 区间统一按 rune 偏移计算：部分字符的小写形式字节长度与原字符不同
// （如 Ⱥ→ⱥ、İ→i），按小写串的字节偏移切原文会越界或切出非法 UTF-8。
func markOccurrences(text string, terms []string) string {
	textRunes := []rune(text)
	lowerRunes := make([]rune, len(textRunes))
	for i, r := range textRunes {
		lowerRunes[i] = unicode.ToLower(r)
	}

	type span struct{ start, end int }
	var spans []span
	for _, term := range terms {
		if term == "" {
			continue
		}
		termRunes := []rune(term)
		for from := 0; ; {
			idx := runeIndex(lowerRunes[from:], termRunes)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, span{start, start + len(termRunes)})
			from = start + len(termRunes)
		}
	}
	if len(spans) == 0 {
		return text
	}

	// 按起点排序并合并重叠区间
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	prev := 0
	for _, sp := range merged {
		b.WriteString(string(textRunes[prev:sp.start]))
		b.WriteString("<mark>")
		b.WriteString(string(textRunes[sp.start:sp.end]))
		b.WriteString("</mark>")
		prev = sp.end
	}
	b.WriteString(string(textRunes[prev:]))
	return b.String()
}

// extractContentFragments 为正文提取至多 3 个以命中点为中心、约 100 字符的片段，
// 片段内部独立高亮，截断处补省略号。
func extractContentFragments(content string, terms []string) []string {
	if content == "" {
		return nil
	}
	runes := []rune(content)
	lowerRunes := make([]rune, len(runes))
	for i, r := range runes {
		lowerRunes[i] = unicode.ToLower(r)
	}

	var fragments []string
	seen := make(map[int]struct{})

	for _, term := range terms {
		if len(fragments) >= maxFragments || term == "" {
			break
		}
		termRunes := []rune(term)
		idx := runeIndex(lowerRunes, termRunes)
		if idx < 0 {
			continue
		}

		start := idx - fragmentLength/2
		if start < 0 {
			start = 0
		}
		end := start + fragmentLength
		if end > len(runes) {
			end = len(runes)
		}
		if _, dup := seen[start]; dup {
			continue
		}
		seen[start] = struct{}{}

		fragment := string(runes[start:end])
		fragment = markOccurrences(fragment, terms)
		if start > 0 {
			fragment = "…" + fragment
		}
		if end < len(runes) {
			fragment = fragment + "…"
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

// runeIndex 在 rune 序列中查找子序列的起始位置
func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// IndexDocument 按 (entityType, entityId) 创建或更新索引
func (s *DatabaseSearcher) IndexDocument(ctx context.Context, doc *model.SearchIndex) bool {
	if doc == nil {
		return false
	}
	applyWeightDefaults(doc)
	doc.Touch()
	if err := s.indexRepo.Upsert(ctx, doc); err != nil {
		log.Printf("错误: 数据库索引文档 (%s, %s) 失败: %v", doc.EntityType, doc.EntityID, err)
		return false
	}
	return true
}

// applyWeightDefaults 补齐未设置的字段权重
func applyWeightDefaults(doc *model.SearchIndex) {
	if doc.TitleWeight == 0 {
		doc.TitleWeight = model.DefaultTitleWeight
	}
	if doc.ContentWeight == 0 {
		doc.ContentWeight = model.DefaultContentWeight
	}
	if doc.KeywordWeight == 0 {
		doc.KeywordWeight = model.DefaultKeywordWeight
	}
}

// BulkIndex 分批写入（每批 100 条），每一批是仓库层的一次多行 upsert。
// 返回成功写入的条数；某一批失败只丢掉该批，不影响其余批次。
func (s *DatabaseSearcher) BulkIndex(ctx context.Context, docs []*model.SearchIndex) int {
	succeeded := 0
	for _, batch := range chunkDocuments(docs, bulkBatchSize) {
		prepared := make([]*model.SearchIndex, 0, len(batch))
		for _, doc := range batch {
			if doc == nil {
				continue
			}
			applyWeightDefaults(doc)
			doc.Touch()
			prepared = append(prepared, doc)
		}
		if len(prepared) == 0 {
			continue
		}
		if err := s.indexRepo.UpsertMany(ctx, prepared); err != nil {
			log.Printf("错误: 数据库批量索引失败 (%d 条): %v", len(prepared), err)
			continue
		}
		succeeded += len(prepared)
	}
	return succeeded
}

// chunkDocuments 把文档列表切成固定大小的批次
func chunkDocuments(docs []*model.SearchIndex, size int) [][]*model.SearchIndex {
	if size <= 0 || len(docs) == 0 {
		return nil
	}
	batches := make([][]*model.SearchIndex, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}
	return batches
}

// DeleteDocument 删除索引。记录不存在视为成功，但会留下一条警告日志。
func (s *DatabaseSearcher) DeleteDocument(ctx context.Context, entityType, entityID string) bool {
	rows, err := s.indexRepo.Delete(ctx, entityType, entityID)
	if err != nil {
		log.Printf("错误: 数据库删除索引 (%s, %s) 失败: %v", entityType, entityID, err)
		return false
	}
	if rows == 0 {
		log.Printf("警告: 索引 (%s, %s) 不存在，删除操作未生效", entityType, entityID)
	}
	return true
}

// UpdateDocument 语义上等同 IndexDocument
func (s *DatabaseSearcher) UpdateDocument(ctx context.Context, doc *model.SearchIndex) bool {
	return s.IndexDocument(ctx, doc)
}

// GetSuggestions 把热搜榜与标题前缀 / 包含匹配混合在一起，大小写不敏感去重。
func (s *DatabaseSearcher) GetSuggestions(ctx context.Context, prefix string, size int) []string {
	if size <= 0 {
		return nil
	}
	trimmed := strings.TrimSpace(prefix)
	lower := strings.ToLower(trimmed)

	suggestions := make([]string, 0, size)
	seen := make(map[string]struct{})
	add := func(candidate string) bool {
		key := strings.ToLower(strings.TrimSpace(candidate))
		if key == "" {
			return len(suggestions) < size
		}
		if _, dup := seen[key]; dup {
			return len(suggestions) < size
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, candidate)
		return len(suggestions) < size
	}

	// 1. 热搜榜中匹配前缀的搜索词优先
	if s.hotSearch != nil {
		for _, q := range s.hotSearch.Top(ctx, size*2) {
			if lower != "" && !strings.HasPrefix(strings.ToLower(q), lower) {
				continue
			}
			if !add(q) {
				return suggestions
			}
		}
	}

	// 2. 标题前缀 / 包含匹配补足
	titles, err := s.indexRepo.ListTitlesByPrefix(ctx, trimmed, size)
	if err != nil {
		log.Printf("警告: 查询标题建议失败: %v", err)
		return suggestions
	}
	for _, title := range titles {
		if !add(title) {
			break
		}
	}
	return suggestions
}

// IsHealthy 用一次轻量计数查询探活
func (s *DatabaseSearcher) IsHealthy(ctx context.Context) bool {
	if _, err := s.indexRepo.Count(ctx); err != nil {
		log.Printf("警告: 数据库搜索引擎健康检查失败: %v", err)
		return false
	}
	return true
}

// RebuildIndex 清空全部索引后，从已发布文章按 1000 条一批重新推导。
// 批次之间检查取消信号；半途退出留下的部分索引是可接受的，重跑即可收敛。
func (s *DatabaseSearcher) RebuildIndex(ctx context.Context) bool {
	if err := s.indexRepo.Clear(ctx); err != nil {
		log.Printf("错误: 重建前清空索引失败: %v", err)
		return false
	}

	offset := 0
	rebuilt := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("警告: 索引重建被取消，已重建 %d 条", rebuilt)
			return false
		default:
		}

		posts, err := s.postRepo.ListPublished(ctx, offset, rebuildBatchSize)
		if err != nil {
			log.Printf("错误: 重建索引拉取文章失败 (offset=%d): %v", offset, err)
			return false
		}
		if len(posts) == 0 {
			break
		}

		for _, post := range posts {
			doc, buildErr := BuildSearchIndexFromPost(post, s.language)
			if buildErr != nil {
				log.Printf("警告: 跳过文章 %d: %v", post.ID, buildErr)
				continue
			}
			if s.IndexDocument(ctx, doc) {
				rebuilt++
			}
		}
		offset += rebuildBatchSize
	}

	log.Printf("✅ 数据库搜索索引重建完成，共 %d 条", rebuilt)
	return true
}

// GetIndexStats 返回文档数与最近更新时间。
// 数据库引擎没有分片概念，健康状态只区分 yellow（降级可用）与 red。
func (s *DatabaseSearcher) GetIndexStats(ctx context.Context) *model.IndexStats {
	stats := &model.IndexStats{Health: "yellow"}

	count, err := s.indexRepo.Count(ctx)
	if err != nil {
		log.Printf("警告: 获取索引统计失败: %v", err)
		stats.Health = "red"
		return stats
	}
	stats.DocumentCount = count

	if latest, err := s.indexRepo.LatestUpdateTime(ctx); err == nil {
		stats.LastUpdated = latest
	}
	return stats
}
