/*
 * @Description: 文章领域模型（搜索子系统的权威数据来源）
 * @Author: 晚风
 * @Date: 2025-09-02 10:25:18
 * @LastEditTime: 2025-10-21 14:47:02
 * @LastEditors: 晚风
 */
package model

import "time"

// EntityTypePost 是文章在搜索索引中的实体类型标记
const EntityTypePost = "post"

// Post 文章模型。
// 搜索子系统只读取它：全量重建与增量同步都从已发布且未删除的文章重新推导索引。
type Post struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:512;not null"`
	ContentMD   string     `json:"contentMd" gorm:"type:text"`
	ContentHTML string     `json:"contentHtml" gorm:"type:text"`
	AuthorID    uint       `json:"authorId" gorm:"index"`
	IsPublished bool       `json:"isPublished" gorm:"default:false;index"`
	IsDeleted   bool       `json:"isDeleted" gorm:"default:false;index"`
	Tags        string     `json:"tags" gorm:"size:512"` // 逗号分隔的标签名
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// Indexable 判断文章当前是否应该存在于搜索索引中
func (p *Post) Indexable() bool {
	return p.IsPublished && !p.IsDeleted
}
