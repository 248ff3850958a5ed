/*
 * @Description: 搜索索引文档模型
 * @Author: 晚风
 * @Date: 2025-09-02 10:20:05
 * @LastEditTime: 2025-11-28 16:02:33
 * @LastEditors: 晚风
 */
package model

import "time"

// 默认的字段权重（标题 > 关键词 > 正文）
const (
	DefaultTitleWeight   = 3.0
	DefaultContentWeight = 1.0
	DefaultKeywordWeight = 2.0
)

// SearchIndex 是被索引与被搜索的文档单元。
// (EntityType, EntityID) 构成自然键：同一实体至多存在一条活跃索引记录，
// 重复索引是就地更新而不是新增。
type SearchIndex struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	EntityType    string     `json:"entityType" gorm:"size:32;not null;uniqueIndex:idx_entity,priority:1"`
	EntityID      string     `json:"entityId" gorm:"size:64;not null;uniqueIndex:idx_entity,priority:2"`
	Title         string     `json:"title" gorm:"size:512"`
	Content       string     `json:"content" gorm:"type:text"`
	Keywords      string     `json:"keywords" gorm:"size:512"`
	Language      string     `json:"language" gorm:"size:16;default:zh-CN"`
	TitleWeight   float64    `json:"titleWeight" gorm:"default:3"`
	ContentWeight float64    `json:"contentWeight" gorm:"default:1"`
	KeywordWeight float64    `json:"keywordWeight" gorm:"default:2"`
	IndexedAt     time.Time  `json:"indexedAt" gorm:"autoCreateTime"`
	LastUpdatedAt *time.Time `json:"lastUpdatedAt"`
	IsActive      bool       `json:"isActive" gorm:"default:true;index"`
}

// TableName 指定表名
func (SearchIndex) TableName() string {
	return "search_indexes"
}

// WeightSum 返回三个字段权重之和，用作默认排序的次级排序键
func (s *SearchIndex) WeightSum() float64 {
	return s.TitleWeight + s.ContentWeight + s.KeywordWeight
}

// EffectiveTime 返回文档的有效时间：优先取最后更新时间，否则取索引时间
func (s *SearchIndex) EffectiveTime() time.Time {
	if s.LastUpdatedAt != nil {
		return *s.LastUpdatedAt
	}
	return s.IndexedAt
}

// Touch 刷新最后更新时间
func (s *SearchIndex) Touch() {
	now := time.Now()
	s.LastUpdatedAt = &now
}
