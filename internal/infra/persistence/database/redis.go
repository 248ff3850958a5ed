/*
 * @Description: Redis 客户端构造（未配置时返回 nil 以便降级）
 * @Author: 晚风
 * @Date: 2025-09-01 23:05:12
 * @LastEditTime: 2025-10-30 19:42:58
 * @LastEditors: 晚风
 */
package database

import (
	"context"
	"log"
	"strconv"

	"github.com/wanfeng-x/wanfeng-blog/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient 接收配置并返回 Redis 客户端或 nil。
// Redis 未配置或连接失败不是错误：热搜榜会自动降级到数据库。
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisAddr := cfg.GetString(config.KeyRedisAddr)
	redisPassword := cfg.GetString(config.KeyRedisPassword)

	if redisAddr == "" {
		log.Println("⚠️  Redis 地址未配置，热搜榜将降级到数据库")
		return nil, nil
	}

	redisDB := 0
	if dbStr := cfg.GetString(config.KeyRedisDB); dbStr != "" {
		var err error
		redisDB, err = strconv.Atoi(dbStr)
		if err != nil {
			log.Printf("⚠️  无效的 Redis.DB 值 '%s': %v，将使用 0 号数据库", dbStr, err)
			redisDB = 0
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  连接 Redis (%s, DB %d) 失败: %v，热搜榜将降级到数据库", redisAddr, redisDB, err)
		rdb.Close()
		return nil, nil
	}

	log.Printf("✅ Redis 连接成功 (%s, DB %d)", redisAddr, redisDB)
	return rdb, nil
}
