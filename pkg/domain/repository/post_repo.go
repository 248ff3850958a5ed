/*
 * @Description: 文章数据仓库接口（搜索子系统的只读数据来源）
 * @Author: 晚风
 * @Date: 2025-09-02 11:02:31
 * @LastEditTime: 2025-11-04 09:15:47
 * @LastEditors: 晚风
 */
package repository

import (
	"context"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
)

// PostRepository 定义了文章数据仓库的接口。
// 它是数据持久化层的抽象，所有方法都使用领域模型，与具体的 ORM 解耦。
// 搜索子系统只依赖可发布文章的分页读取能力。
type PostRepository interface {
	// FindByID 根据主键获取单篇文章
	FindByID(ctx context.Context, id uint) (*model.Post, error)

	// ListPublished 分页获取已发布且未删除的文章（按主键升序），用于全量重建
	ListPublished(ctx context.Context, offset, limit int) ([]*model.Post, error)

	// CountPublished 统计已发布且未删除的文章总数
	CountPublished(ctx context.Context) (int64, error)
}
