/*
 * @Description: 搜索子系统的核心数据模型与接口契约
 * @Author: 晚风
 * @Date: 2025-09-02 10:12:40
 * @LastEditTime: 2025-12-19 21:30:11
 * @LastEditors: 晚风
 */
package model

import (
	"context"
	"time"
)

// SearchEngine 定义了搜索引擎的统一行为。
// 两个实现：DatabaseSearcher（数据库降级方案）与 ElasticSearcher（外部搜索集群）。
// 所有方法都不向调用方抛出异常：内部失败记录日志并返回空结果 / false / 0。
type SearchEngine interface {
	// Search 执行搜索并返回结果，内部失败时返回空结果（TotalCount = 0）
	Search(ctx context.Context, criteria *SearchCriteria) (*SearchResult, error)
	// IndexDocument 按 (entityType, entityId) 创建或更新索引文档
	IndexDocument(ctx context.Context, doc *SearchIndex) bool
	// BulkIndex 批量索引，返回成功写入的文档数
	BulkIndex(ctx context.Context, docs []*SearchIndex) int
	// DeleteDocument 删除索引文档，幂等
	DeleteDocument(ctx context.Context, entityType, entityID string) bool
	// UpdateDocument 更新索引文档（语义上等同 IndexDocument）
	UpdateDocument(ctx context.Context, doc *SearchIndex) bool
	// GetSuggestions 返回至多 size 个去重后的搜索建议
	GetSuggestions(ctx context.Context, prefix string, size int) []string
	// IsHealthy 轻量存活探测
	IsHealthy(ctx context.Context) bool
	// RebuildIndex 清空全部文档并从权威数据源重建
	RebuildIndex(ctx context.Context) bool
	// GetIndexStats 返回索引统计信息
	GetIndexStats(ctx context.Context) *IndexStats
}

// SearchIndexManager 是搜索子系统对外的统一门面。
// 它协调主引擎（集群）与降级引擎（数据库），提供双写、健康路由、
// 增量同步、全量重建与异步索引队列。
type SearchIndexManager interface {
	Search(ctx context.Context, criteria *SearchCriteria) (*SearchResult, error)
	IndexDocument(ctx context.Context, doc *SearchIndex) bool
	BulkIndex(ctx context.Context, docs []*SearchIndex) int
	DeleteDocument(ctx context.Context, entityType, entityID string) bool
	UpdateDocument(ctx context.Context, doc *SearchIndex) bool
	GetSuggestions(ctx context.Context, prefix string, size int) []string
	// RebuildIndex 全量重建，已有重建任务进行中时立即返回 false
	RebuildIndex(ctx context.Context) bool
	// IncrementalSync 重新索引 since 之后发生变更的文档；since 为零值时使用上次同步水位
	IncrementalSync(ctx context.Context, since time.Time) bool
	// HealthCheck 探测两个引擎并刷新主引擎健康标记，任一健康即整体健康
	HealthCheck(ctx context.Context) bool
	// QueueIndexOperation 将索引操作放入内存队列，由外部调度触发消费
	QueueIndexOperation(op *IndexOperation)
	// ProcessIndexQueue 批量消费队列（单次至多 100 条）
	ProcessIndexQueue(ctx context.Context)
	GetIndexStats(ctx context.Context) *IndexStats
}

// SortBy 搜索结果排序字段
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByDate      SortBy = "date"
	SortByTitle     SortBy = "title"
)

// SortDirection 排序方向
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SearchCriteria 定义了搜索请求的参数
type SearchCriteria struct {
	Query           string        `json:"query"`
	ContentType     string        `json:"contentType,omitempty"`
	StartDate       *time.Time    `json:"startDate,omitempty"`
	EndDate         *time.Time    `json:"endDate,omitempty"`
	SortBy          SortBy        `json:"sortBy,omitempty"`
	SortDirection   SortDirection `json:"sortDirection,omitempty"`
	Page            int           `json:"page"`
	PageSize        int           `json:"pageSize"`
	EnableHighlight bool          `json:"enableHighlight"`
}

// Normalize 纠正非法的分页与排序参数
func (c *SearchCriteria) Normalize() {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		c.PageSize = 10
	}
	if c.SortBy == "" {
		c.SortBy = SortByRelevance
	}
	if c.SortDirection == "" {
		c.SortDirection = SortDesc
	}
}

// Offset 返回分页偏移量
func (c *SearchCriteria) Offset() int {
	return (c.Page - 1) * c.PageSize
}

// SearchResult 定义了搜索结果的统一结构
type SearchResult struct {
	Items         []*SearchResultItem `json:"items"`
	TotalCount    int64               `json:"totalCount"`
	ExecutionTime int64               `json:"executionTime"` // 毫秒
}

// EmptySearchResult 返回一个空结果（内部失败时的统一返回值）
func EmptySearchResult() *SearchResult {
	return &SearchResult{Items: []*SearchResultItem{}, TotalCount: 0}
}

// SearchResultItem 定义了搜索结果中的单条记录
type SearchResultItem struct {
	EntityID      string              `json:"entityId"`
	EntityType    string              `json:"entityType"`
	Title         string              `json:"title"`
	Summary       string              `json:"summary"`
	Score         float64             `json:"score"`
	MatchedFields []string            `json:"matchedFields,omitempty"`
	Highlights    map[string][]string `json:"highlights,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// IndexStats 定义了索引统计信息
type IndexStats struct {
	DocumentCount int64      `json:"documentCount"`
	IndexSize     int64      `json:"indexSize"`
	ShardCount    int        `json:"shardCount,omitempty"`
	ReplicaCount  int        `json:"replicaCount,omitempty"`
	Health        string     `json:"health"` // green / yellow / red / degraded / unknown
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// IndexOperationType 队列中索引操作的类型标记
type IndexOperationType string

const (
	IndexOpIndex  IndexOperationType = "index"
	IndexOpUpdate IndexOperationType = "update"
	IndexOpDelete IndexOperationType = "delete"
)

// IndexOperation 是索引队列中的一个工作单元。
// 队列仅存在于内存中，进程重启即丢失；关系库仍是权威数据源，
// 丢失的操作可由增量同步或全量重建补回。
type IndexOperation struct {
	Type       IndexOperationType `json:"type"`
	EntityType string             `json:"entityType"`
	EntityID   string             `json:"entityId"`
	Document   *SearchIndex       `json:"document,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}
