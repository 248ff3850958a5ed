/*
 * @Description: 热门搜索词服务（Redis 榜单优先，数据库兜底）
 * @Author: 晚风
 * @Date: 2025-09-05 20:31:17
 * @LastEditTime: 2025-11-22 15:44:03
 * @LastEditors: 晚风
 */
package search

import (
	"context"
	"log"
	"strings"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"

	"github.com/redis/go-redis/v9"
)

// Redis Key 前缀
const (
	KeyNamespace    = "wanfeng:"
	KeyHotSearchSet = KeyNamespace + "search:hot"
)

// HotSearchService 维护热门搜索词榜单。
// Redis 可用时使用 ZSET 计数并读取榜单；否则完全落到 hot_searches 表。
// 记录是尽力而为的：任何失败只记日志，绝不影响搜索主流程。
type HotSearchService struct {
	rdb  *redis.Client // 可能为 nil
	repo repository.HotSearchRepository
}

// NewHotSearchService 创建热门搜索词服务
func NewHotSearchService(rdb *redis.Client, repo repository.HotSearchRepository) *HotSearchService {
	return &HotSearchService{rdb: rdb, repo: repo}
}

// Record 记录一次搜索（空查询不记录）
func (s *HotSearchService) Record(ctx context.Context, query string) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return
	}

	if s.rdb != nil {
		if err := s.rdb.ZIncrBy(ctx, KeyHotSearchSet, 1, query).Err(); err != nil {
			log.Printf("警告: 累加 Redis 热搜榜失败: %v", err)
		}
	}
	if s.repo != nil {
		if err := s.repo.Increment(ctx, query); err != nil {
			log.Printf("警告: 累加热搜词失败: %v", err)
		}
	}
}

// Top 按搜索次数降序返回前 limit 个搜索词
func (s *HotSearchService) Top(ctx context.Context, limit int) []string {
	if limit <= 0 {
		return nil
	}

	if s.rdb != nil {
		queries, err := s.rdb.ZRevRange(ctx, KeyHotSearchSet, 0, int64(limit-1)).Result()
		if err == nil && len(queries) > 0 {
			return queries
		}
		if err != nil {
			log.Printf("警告: 读取 Redis 热搜榜失败: %v，降级到数据库", err)
		}
	}

	if s.repo == nil {
		return nil
	}
	queries, err := s.repo.TopQueries(ctx, limit)
	if err != nil {
		log.Printf("警告: 读取热搜榜失败: %v", err)
		return nil
	}
	return queries
}
