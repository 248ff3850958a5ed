/*
 * @Description: 搜索索引仓库的 GORM 实现（含数据库搜索引擎的查询构建）
 * @Author: 晚风
 * @Date: 2025-09-02 13:40:09
 * @LastEditTime: 2025-12-20 23:18:55
 * @LastEditors: 晚风
 */
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormSearchIndexRepository struct {
	db *gorm.DB
}

// NewSearchIndexRepository 创建搜索索引仓库实例
func NewSearchIndexRepository(db *gorm.DB) repository.SearchIndexRepository {
	return &gormSearchIndexRepository{db: db}
}

// Upsert 按 (entity_type, entity_id) 去重：已存在时就地更新内容与权重，不产生重复行。
func (r *gormSearchIndexRepository) Upsert(ctx context.Context, doc *model.SearchIndex) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "content", "keywords", "language",
				"title_weight", "content_weight", "keyword_weight",
				"last_updated_at", "is_active",
			}),
		}).
		Create(doc).Error
	if err != nil {
		return fmt.Errorf("写入搜索索引 (%s, %s) 失败: %w", doc.EntityType, doc.EntityID, err)
	}
	return nil
}

// UpsertMany 批量版 Upsert：整批文档进同一条多行 INSERT，冲突键走相同的就地更新。
func (r *gormSearchIndexRepository) UpsertMany(ctx context.Context, docs []*model.SearchIndex) error {
	if len(docs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "content", "keywords", "language",
				"title_weight", "content_weight", "keyword_weight",
				"last_updated_at", "is_active",
			}),
		}).
		Create(&docs).Error
	if err != nil {
		return fmt.Errorf("批量写入搜索索引 (%d 条) 失败: %w", len(docs), err)
	}
	return nil
}

func (r *gormSearchIndexRepository) FindByEntity(ctx context.Context, entityType, entityID string) (*model.SearchIndex, error) {
	var doc model.SearchIndex
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询搜索索引 (%s, %s) 失败: %w", entityType, entityID, err)
	}
	return &doc, nil
}

func (r *gormSearchIndexRepository) Delete(ctx context.Context, entityType, entityID string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Delete(&model.SearchIndex{})
	if tx.Error != nil {
		return 0, fmt.Errorf("删除搜索索引 (%s, %s) 失败: %w", entityType, entityID, tx.Error)
	}
	return tx.RowsAffected, nil
}

// Query 构建搜索查询：始终限定 is_active = true；
// 词条之间 AND，每个词条在标题 / 正文 / 关键词三个字段上 OR（大小写不敏感的子串匹配）。
func (r *gormSearchIndexRepository) Query(ctx context.Context, q *repository.SearchIndexQuery) ([]*model.SearchIndex, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.SearchIndex{}).Where("is_active = ?", true)

	for _, term := range q.Terms {
		pattern := "%" + strings.ToLower(term) + "%"
		tx = tx.Where(
			"LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(keywords) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if q.ContentType != "" {
		tx = tx.Where("entity_type = ?", q.ContentType)
	}
	if q.StartDate != nil {
		tx = tx.Where("indexed_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		tx = tx.Where("indexed_at <= ?", *q.EndDate)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计搜索结果失败: %w", err)
	}

	dir := "DESC"
	if q.SortDir == model.SortAsc {
		dir = "ASC"
	}
	switch q.SortBy {
	case model.SortByTitle:
		tx = tx.Order("title " + dir)
	case model.SortByDate:
		tx = tx.Order("COALESCE(last_updated_at, indexed_at) " + dir)
	default:
		// 默认排序：有效时间降序，权重之和作为次级排序键
		tx = tx.Order("COALESCE(last_updated_at, indexed_at) DESC").
			Order("(title_weight + content_weight + keyword_weight) DESC")
	}

	var docs []*model.SearchIndex
	if err := tx.Offset(q.Offset).Limit(q.Limit).Find(&docs).Error; err != nil {
		return nil, 0, fmt.Errorf("查询搜索结果失败: %w", err)
	}
	return docs, total, nil
}

func (r *gormSearchIndexRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.SearchIndex, error) {
	var docs []*model.SearchIndex
	err := r.db.WithContext(ctx).
		Where("last_updated_at > ? OR indexed_at > ?", since, since).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("查询增量变更的索引记录失败: %w", err)
	}
	return docs, nil
}

// ListTitlesByPrefix 前缀命中的标题排在包含命中的标题之前。
func (r *gormSearchIndexRepository) ListTitlesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	lower := strings.ToLower(prefix)
	var prefixed []string
	err := r.db.WithContext(ctx).
		Model(&model.SearchIndex{}).
		Where("is_active = ? AND LOWER(title) LIKE ?", true, lower+"%").
		Order("title ASC").
		Limit(limit).
		Pluck("title", &prefixed).Error
	if err != nil {
		return nil, fmt.Errorf("查询标题前缀建议失败: %w", err)
	}
	if len(prefixed) >= limit {
		return prefixed, nil
	}

	var contains []string
	err = r.db.WithContext(ctx).
		Model(&model.SearchIndex{}).
		Where("is_active = ? AND LOWER(title) LIKE ? AND LOWER(title) NOT LIKE ?",
			true, "%"+lower+"%", lower+"%").
		Order("title ASC").
		Limit(limit - len(prefixed)).
		Pluck("title", &contains).Error
	if err != nil {
		return nil, fmt.Errorf("查询标题包含建议失败: %w", err)
	}
	return append(prefixed, contains...), nil
}

func (r *gormSearchIndexRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SearchIndex{}).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计活跃索引文档失败: %w", err)
	}
	return count, nil
}

func (r *gormSearchIndexRepository) LatestUpdateTime(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := r.db.WithContext(ctx).
		Model(&model.SearchIndex{}).
		Select("MAX(COALESCE(last_updated_at, indexed_at))").
		Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("查询索引最近更新时间失败: %w", err)
	}
	return latest, nil
}

func (r *gormSearchIndexRepository) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.SearchIndex{}).Error; err != nil {
		return fmt.Errorf("清空搜索索引失败: %w", err)
	}
	return nil
}
