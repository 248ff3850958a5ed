/*
 * @Description: 热门搜索词数据仓库接口
 * @Author: 晚风
 * @Date: 2025-09-05 19:45:10
 * @LastEditTime: 2025-09-05 19:45:10
 * @LastEditors: 晚风
 */
package repository

import "context"

// HotSearchRepository 定义了热门搜索词的持久化接口，仅用于搜索建议排序。
type HotSearchRepository interface {
	// Increment 将 query 的搜索次数加一（不存在时创建）
	Increment(ctx context.Context, query string) error

	// TopQueries 按搜索次数降序返回前 limit 个搜索词
	TopQueries(ctx context.Context, limit int) ([]string, error)
}
