/*
 * @Description: Elasticsearch 搜索引擎（主引擎），负责布尔查询构建与索引生命周期
 * @Author: 晚风
 * @Date: 2025-09-08 11:14:27
 * @LastEditTime: 2025-12-21 01:02:36
 * @LastEditors: 晚风
 */
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/config"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
)

const esRequestTimeout = 10 * time.Second

// esIndexMapping 是索引的初始映射：标准分词器加 html_strip 过滤，
// 标题带 keyword 子字段用于字段排序。
const esIndexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1,
		"analysis": {
			"analyzer": {
				"text_analyzer": {
					"type": "custom",
					"tokenizer": "standard",
					"char_filter": ["html_strip"],
					"filter": ["lowercase", "asciifolding"]
				}
			}
		}
	},
	"mappings": {
		"properties": {
			"entityType": { "type": "keyword" },
			"entityId": { "type": "keyword" },
			"title": {
				"type": "text",
				"analyzer": "text_analyzer",
				"fields": { "keyword": { "type": "keyword" } }
			},
			"content": { "type": "text", "analyzer": "text_analyzer" },
			"keywords": { "type": "text", "analyzer": "text_analyzer" },
			"language": { "type": "keyword" },
			"titleWeight": { "type": "float" },
			"contentWeight": { "type": "float" },
			"keywordWeight": { "type": "float" },
			"indexedAt": { "type": "date" },
			"lastUpdatedAt": { "type": "date" },
			"isActive": { "type": "boolean" }
		}
	}
}`

// ElasticSearcher 把搜索契约委托给外部 Elasticsearch 集群。
// 认证失败与连不上集群同等对待：健康探测失败，由管理器降级到数据库引擎。
type ElasticSearcher struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSearcher 创建 Elasticsearch 搜索引擎。
// 未启用或未配置地址时返回 nil（不是错误），上层只使用数据库引擎。
// 索引的存在性检查与创建在后台发起，不阻塞构造。
func NewElasticSearcher(cfg *config.Config) (*ElasticSearcher, error) {
	if !cfg.GetBool(config.KeyESEnable) {
		log.Println("⚠️  Elasticsearch 未启用，搜索只使用数据库引擎")
		return nil, nil
	}
	addr := cfg.GetString(config.KeyESAddr)
	if addr == "" {
		log.Println("⚠️  Elasticsearch 地址未配置，搜索只使用数据库引擎")
		return nil, nil
	}

	index := cfg.GetString(config.KeyESIndex)
	if index == "" {
		index = "wanfeng_search"
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(addr, ","),
		Username:  cfg.GetString(config.KeyESUser),
		Password:  cfg.GetString(config.KeyESPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}

	s := &ElasticSearcher{client: client, index: index}

	// 索引引导不阻塞构造：失败只影响主引擎，健康检查会让它保持降级状态
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.ensureIndex(ctx); err != nil {
			log.Printf("警告: Elasticsearch 索引引导失败: %v", err)
		}
	}()

	log.Printf("✅ Elasticsearch 搜索引擎已配置 (%s, index=%s)", addr, index)
	return s, nil
}

var _ model.SearchEngine = (*ElasticSearcher)(nil)

// ensureIndex 幂等的索引引导：存在性检查，缺失时带映射创建。
func (s *ElasticSearcher) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("检查索引 %s 是否存在失败: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(esIndexMapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("创建索引 %s 失败: %w", s.index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("创建索引 %s 失败: %s", s.index, createRes.String())
	}

	log.Printf("✅ Elasticsearch 索引 %s 创建成功", s.index)
	return nil
}

// docID 生成确定性的文档 ID，保证按自然键写入是 upsert
func docID(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// buildElasticQuery 把搜索条件翻译为 ES 请求体。
// 子句集合：可选的多字段 best_fields 匹配、entityType 精确过滤、
// indexedAt 范围过滤，以及始终存在的 isActive = true；
// 单个子句直接作为 query，多个子句合并为 bool must。
func buildElasticQuery(criteria *model.SearchCriteria) map[string]interface{} {
	var clauses []map[string]interface{}

	if strings.TrimSpace(criteria.Query) != "" {
		clauses = append(clauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  criteria.Query,
				"type":   "best_fields",
				"fields": []string{"title^3", "keywords^2", "content"},
			},
		})
	}
	if criteria.ContentType != "" {
		clauses = append(clauses, map[string]interface{}{
			"term": map[string]interface{}{"entityType": criteria.ContentType},
		})
	}
	if criteria.StartDate != nil || criteria.EndDate != nil {
		rangeClause := map[string]interface{}{}
		if criteria.StartDate != nil {
			rangeClause["gte"] = criteria.StartDate.Format(time.RFC3339)
		}
		if criteria.EndDate != nil {
			rangeClause["lte"] = criteria.EndDate.Format(time.RFC3339)
		}
		clauses = append(clauses, map[string]interface{}{
			"range": map[string]interface{}{"indexedAt": rangeClause},
		})
	}
	clauses = append(clauses, map[string]interface{}{
		"term": map[string]interface{}{"isActive": true},
	})

	var query map[string]interface{}
	if len(clauses) == 1 {
		query = clauses[0]
	} else {
		query = map[string]interface{}{
			"bool": map[string]interface{}{"must": clauses},
		}
	}

	body := map[string]interface{}{"query": query}

	dir := "desc"
	if criteria.SortDirection == model.SortAsc {
		dir = "asc"
	}
	switch criteria.SortBy {
	case model.SortByDate:
		body["sort"] = []map[string]interface{}{
			{"indexedAt": map[string]interface{}{"order": dir}},
		}
	case model.SortByTitle:
		body["sort"] = []map[string]interface{}{
			{"title.keyword": map[string]interface{}{"order": dir}},
		}
	}

	if criteria.EnableHighlight {
		body["highlight"] = map[string]interface{}{
			"pre_tags":  []string{"<mark>"},
			"post_tags": []string{"</mark>"},
			"fields": map[string]interface{}{
				"title": map[string]interface{}{},
				"content": map[string]interface{}{
					"fragment_size":       fragmentLength,
					"number_of_fragments": maxFragments,
				},
			},
		}
	}
	return body
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Source    model.SearchIndex   `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 执行集群搜索。内部失败不向上抛：记日志并返回空结果。
func (s *ElasticSearcher) Search(ctx context.Context, criteria *model.SearchCriteria) (*model.SearchResult, error) {
	start := time.Now()
	criteria.Normalize()

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(buildElasticQuery(criteria)); err != nil {
		log.Printf("错误: 编码 Elasticsearch 查询失败: %v", err)
		return model.EmptySearchResult(), nil
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&body),
		s.client.Search.WithFrom(criteria.Offset()),
		s.client.Search.WithSize(criteria.PageSize),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		log.Printf("错误: Elasticsearch 搜索失败: %v", err)
		return model.EmptySearchResult(), nil
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("错误: Elasticsearch 搜索返回 %s", res.Status())
		return model.EmptySearchResult(), nil
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		log.Printf("错误: 解析 Elasticsearch 搜索响应失败: %v", err)
		return model.EmptySearchResult(), nil
	}

	items := make([]*model.SearchResultItem, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		score := scoreUniform
		if hit.Score != nil {
			score = *hit.Score
		}
		item := &model.SearchResultItem{
			EntityID:   hit.Source.EntityID,
			EntityType: hit.Source.EntityType,
			Title:      hit.Source.Title,
			Summary:    generateSummary(hit.Source.Content),
			Score:      score,
			CreatedAt:  hit.Source.IndexedAt,
		}
		if len(hit.Highlight) > 0 {
			item.Highlights = hit.Highlight
			for field := range hit.Highlight {
				item.MatchedFields = append(item.MatchedFields, field)
			}
		}
		items = append(items, item)
	}

	return &model.SearchResult{
		Items:         items,
		TotalCount:    parsed.Hits.Total.Value,
		ExecutionTime: time.Since(start).Milliseconds(),
	}, nil
}

// IndexDocument 按确定性文档 ID 写入（天然 upsert）
func (s *ElasticSearcher) IndexDocument(ctx context.Context, doc *model.SearchIndex) bool {
	if doc == nil {
		return false
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		log.Printf("错误: 序列化索引文档 (%s, %s) 失败: %v", doc.EntityType, doc.EntityID, err)
		return false
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(payload),
		s.client.Index.WithDocumentID(docID(doc.EntityType, doc.EntityID)),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		log.Printf("错误: Elasticsearch 索引文档 (%s, %s) 失败: %v", doc.EntityType, doc.EntityID, err)
		return false
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("错误: Elasticsearch 索引文档 (%s, %s) 返回 %s", doc.EntityType, doc.EntityID, res.Status())
		return false
	}
	return true
}

// BulkIndex 把全部文档拼成一次 bulk 请求，返回成功写入的条数
func (s *ElasticSearcher) BulkIndex(ctx context.Context, docs []*model.SearchIndex) int {
	if len(docs) == 0 {
		return 0
	}

	var body bytes.Buffer
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": s.index,
				"_id":    docID(doc.EntityType, doc.EntityID),
			},
		}
		metaLine, _ := json.Marshal(meta)
		docLine, err := json.Marshal(doc)
		if err != nil {
			log.Printf("警告: 序列化批量文档 (%s, %s) 失败: %v", doc.EntityType, doc.EntityID, err)
			continue
		}
		body.Write(metaLine)
		body.WriteByte('\n')
		body.Write(docLine)
		body.WriteByte('\n')
	}
	if body.Len() == 0 {
		return 0
	}

	res, err := s.client.Bulk(
		bytes.NewReader(body.Bytes()),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		log.Printf("错误: Elasticsearch 批量索引失败: %v", err)
		return 0
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("错误: Elasticsearch 批量索引返回 %s", res.Status())
		return 0
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		log.Printf("错误: 解析批量索引响应失败: %v", err)
		return 0
	}

	succeeded := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Status < 300 {
				succeeded++
			}
		}
	}
	return succeeded
}

// findDocID 按自然键查找内部文档 ID，未命中返回空串
func (s *ElasticSearcher) findDocID(ctx context.Context, entityType, entityID string) (string, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{"term": map[string]interface{}{"entityType": entityType}},
					{"term": map[string]interface{}{"entityId": entityID}},
				},
			},
		},
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return "", err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&body),
		s.client.Search.WithSize(1),
		s.client.Search.WithSourceIncludes("entityId"),
	)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("查找文档返回 %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Hits.Hits) == 0 {
		return "", nil
	}
	return parsed.Hits.Hits[0].ID, nil
}

// DeleteDocument 两步删除：先按自然键查内部 ID，再按 ID 删除。
// 查不到视为已经删除，直接返回成功。
func (s *ElasticSearcher) DeleteDocument(ctx context.Context, entityType, entityID string) bool {
	id, err := s.findDocID(ctx, entityType, entityID)
	if err != nil {
		log.Printf("错误: 查找待删除文档 (%s, %s) 失败: %v", entityType, entityID, err)
		return false
	}
	if id == "" {
		return true
	}

	res, err := s.client.Delete(
		s.index,
		id,
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		log.Printf("错误: Elasticsearch 删除文档 (%s, %s) 失败: %v", entityType, entityID, err)
		return false
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return true
	}
	if res.IsError() {
		log.Printf("错误: Elasticsearch 删除文档 (%s, %s) 返回 %s", entityType, entityID, res.Status())
		return false
	}
	return true
}

// UpdateDocument 语义上等同 IndexDocument
func (s *ElasticSearcher) UpdateDocument(ctx context.Context, doc *model.SearchIndex) bool {
	return s.IndexDocument(ctx, doc)
}

// GetSuggestions 对标题做短语前缀查询
func (s *ElasticSearcher) GetSuggestions(ctx context.Context, prefix string, size int) []string {
	if size <= 0 || strings.TrimSpace(prefix) == "" {
		return nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				"title": prefix,
			},
		},
		"_source": []string{"title"},
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return nil
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&body),
		s.client.Search.WithSize(size),
	)
	if err != nil {
		log.Printf("警告: Elasticsearch 建议查询失败: %v", err)
		return nil
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("警告: Elasticsearch 建议查询返回 %s", res.Status())
		return nil
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil
	}

	suggestions := make([]string, 0, len(parsed.Hits.Hits))
	seen := make(map[string]struct{})
	for _, hit := range parsed.Hits.Hits {
		key := strings.ToLower(hit.Source.Title)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, hit.Source.Title)
	}
	return suggestions
}

// IsHealthy 探测集群健康端点，red 或任何通信失败都视为不健康
func (s *ElasticSearcher) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, esRequestTimeout)
	defer cancel()

	res, err := s.client.Cluster.Health(s.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		log.Printf("警告: Elasticsearch 健康检查失败: %v", err)
		return false
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("警告: Elasticsearch 健康检查返回 %s", res.Status())
		return false
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return false
	}
	return health.Status != "red"
}

// RebuildIndex 删除并按映射重建索引；文档的重新灌入由索引管理器负责。
func (s *ElasticSearcher) RebuildIndex(ctx context.Context) bool {
	res, err := s.client.Indices.Delete(
		[]string{s.index},
		s.client.Indices.Delete.WithContext(ctx),
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		log.Printf("错误: 删除 Elasticsearch 索引失败: %v", err)
		return false
	}
	res.Body.Close()

	if err := s.ensureIndex(ctx); err != nil {
		log.Printf("错误: 重建 Elasticsearch 索引失败: %v", err)
		return false
	}
	return true
}

// GetIndexStats 汇总集群健康与索引统计
func (s *ElasticSearcher) GetIndexStats(ctx context.Context) *model.IndexStats {
	stats := &model.IndexStats{Health: "unknown"}

	healthRes, err := s.client.Cluster.Health(s.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		log.Printf("警告: 获取集群健康失败: %v", err)
		return stats
	}
	func() {
		defer healthRes.Body.Close()
		var health struct {
			Status              string `json:"status"`
			ActivePrimaryShards int    `json:"active_primary_shards"`
			ActiveShards        int    `json:"active_shards"`
		}
		if decodeErr := json.NewDecoder(healthRes.Body).Decode(&health); decodeErr == nil {
			stats.Health = health.Status
			stats.ShardCount = health.ActivePrimaryShards
			stats.ReplicaCount = health.ActiveShards - health.ActivePrimaryShards
		}
	}()

	statsRes, err := s.client.Indices.Stats(
		s.client.Indices.Stats.WithContext(ctx),
		s.client.Indices.Stats.WithIndex(s.index),
	)
	if err != nil {
		log.Printf("警告: 获取索引统计失败: %v", err)
		return stats
	}
	defer statsRes.Body.Close()
	if statsRes.IsError() {
		return stats
	}

	var parsed struct {
		All struct {
			Primaries struct {
				Docs struct {
					Count int64 `json:"count"`
				} `json:"docs"`
				Store struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"store"`
			} `json:"primaries"`
		} `json:"_all"`
	}
	if err := json.NewDecoder(statsRes.Body).Decode(&parsed); err == nil {
		stats.DocumentCount = parsed.All.Primaries.Docs.Count
		stats.IndexSize = parsed.All.Primaries.Store.SizeInBytes
	}

	now := time.Now()
	stats.LastUpdated = &now
	return stats
}
