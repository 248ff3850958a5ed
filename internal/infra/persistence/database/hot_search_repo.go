/*
 * @Description: 热门搜索词仓库的 GORM 实现
 * @Author: 晚风
 * @Date: 2025-09-05 20:02:44
 * @LastEditTime: 2025-09-18 10:33:21
 * @LastEditors: 晚风
 */
package database

import (
	"context"
	"fmt"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormHotSearchRepository struct {
	db *gorm.DB
}

// NewHotSearchRepository 创建热门搜索词仓库实例
func NewHotSearchRepository(db *gorm.DB) repository.HotSearchRepository {
	return &gormHotSearchRepository{db: db}
}

func (r *gormHotSearchRepository) Increment(ctx context.Context, query string) error {
	record := &model.HotSearch{Query: query, SearchCount: 1}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "query"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"search_count": gorm.Expr("search_count + 1"),
			}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("累加热搜词 '%s' 失败: %w", query, err)
	}
	return nil
}

func (r *gormHotSearchRepository) TopQueries(ctx context.Context, limit int) ([]string, error) {
	var queries []string
	err := r.db.WithContext(ctx).
		Model(&model.HotSearch{}).
		Order("search_count DESC").
		Limit(limit).
		Pluck("query", &queries).Error
	if err != nil {
		return nil, fmt.Errorf("查询热搜榜失败: %w", err)
	}
	return queries, nil
}
