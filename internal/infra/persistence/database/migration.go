/*
 * @Description: 数据库表结构迁移
 * @Author: 晚风
 * @Date: 2025-09-01 22:48:30
 * @LastEditTime: 2025-09-06 17:21:09
 * @LastEditors: 晚风
 */
package database

import (
	"fmt"
	"log"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"

	"gorm.io/gorm"
)

// Migrate 同步搜索子系统依赖的三张表。
func Migrate(db *gorm.DB) error {
	log.Println("--- 开始同步数据库 Schema ---")
	if err := db.AutoMigrate(
		&model.Post{},
		&model.SearchIndex{},
		&model.HotSearch{},
	); err != nil {
		return fmt.Errorf("数据库 schema 同步失败: %w", err)
	}
	log.Println("--- 数据库 Schema 同步成功 ---")
	return nil
}
