/*
 * @Description: 文章仓库的 GORM 实现
 * @Author: 晚风
 * @Date: 2025-09-02 13:18:26
 * @LastEditTime: 2025-10-12 21:55:40
 * @LastEditors: 晚风
 */
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"

	"gorm.io/gorm"
)

type gormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建文章仓库实例
func NewPostRepository(db *gorm.DB) repository.PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询文章 %d 失败: %w", id, err)
	}
	return &post, nil
}

func (r *gormPostRepository) ListPublished(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Where("is_published = ? AND is_deleted = ?", true, false).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("分页查询已发布文章失败: %w", err)
	}
	return posts, nil
}

func (r *gormPostRepository) CountPublished(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("is_published = ? AND is_deleted = ?", true, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计已发布文章失败: %w", err)
	}
	return count, nil
}
