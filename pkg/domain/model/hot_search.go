/*
 * @Description: 热门搜索词模型（仅用于搜索建议排序）
 * @Author: 晚风
 * @Date: 2025-09-05 19:40:56
 * @LastEditTime: 2025-09-05 19:40:56
 * @LastEditors: 晚风
 */
package model

import "time"

// HotSearch 记录某个搜索词被搜索的累计次数
type HotSearch struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Query       string    `json:"query" gorm:"size:128;not null;uniqueIndex"`
	SearchCount int64     `json:"searchCount" gorm:"default:0;index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (HotSearch) TableName() string {
	return "hot_searches"
}
