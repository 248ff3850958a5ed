/*
 * @Description: 搜索索引数据仓库接口
 * @Author: 晚风
 * @Date: 2025-09-02 11:06:12
 * @LastEditTime: 2025-12-08 22:51:20
 * @LastEditors: 晚风
 */
package repository

import (
	"context"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
)

// SearchIndexQuery 定义了数据库搜索引擎的查询条件。
// Terms 之间是 AND 关系；每个词条在标题 / 正文 / 关键词三个字段上是 OR 关系。
type SearchIndexQuery struct {
	Terms       []string
	ContentType string
	StartDate   *time.Time
	EndDate     *time.Time
	SortBy      model.SortBy
	SortDir     model.SortDirection
	Offset      int
	Limit       int
}

// SearchIndexRepository 定义了搜索索引文档在关系库中的持久化接口。
// 它同时服务两类调用方：数据库搜索引擎（查询路径）和索引管理器（镜像写入与同步路径）。
type SearchIndexRepository interface {
	// Upsert 按 (entityType, entityId) 创建或更新索引记录
	Upsert(ctx context.Context, doc *model.SearchIndex) error

	// UpsertMany 用一条多行语句按 (entityType, entityId) 批量创建或更新索引记录
	UpsertMany(ctx context.Context, docs []*model.SearchIndex) error

	// FindByEntity 按自然键查找记录，不存在时返回 (nil, nil)
	FindByEntity(ctx context.Context, entityType, entityID string) (*model.SearchIndex, error)

	// Delete 按自然键删除记录，返回受影响的行数
	Delete(ctx context.Context, entityType, entityID string) (int64, error)

	// Query 按查询条件返回匹配的活跃文档与总数
	Query(ctx context.Context, q *SearchIndexQuery) ([]*model.SearchIndex, int64, error)

	// ListUpdatedSince 返回 lastUpdatedAt 或 indexedAt 晚于 since 的全部记录
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.SearchIndex, error)

	// ListTitlesByPrefix 返回标题以 prefix 开头（优先）或包含 prefix 的活跃文档标题
	ListTitlesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error)

	// Count 统计活跃文档总数
	Count(ctx context.Context) (int64, error)

	// LatestUpdateTime 返回全部文档中最近一次变更的时间，无文档时返回 nil
	LatestUpdateTime(ctx context.Context) (*time.Time, error)

	// Clear 清空全部索引记录（全量重建的第一步）
	Clear(ctx context.Context) error
}
