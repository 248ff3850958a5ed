/*
 * @Description: 从文章推导搜索索引文档
 * @Author: 晚风
 * @Date: 2025-09-04 09:50:33
 * @LastEditTime: 2025-12-06 22:40:19
 * @LastEditors: 晚风
 */
package search

import (
	"fmt"

	"github.com/wanfeng-x/wanfeng-blog/internal/pkg/parser"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/idgen"
)

// BuildSearchIndexFromPost 把一篇文章转换为待索引的文档。
// 正文优先取已渲染的 HTML；没有时用 goldmark 渲染 Markdown，
// 最后统一剥掉标签只保留纯文本。标签名作为关键词字段。
func BuildSearchIndexFromPost(post *model.Post, language string) (*model.SearchIndex, error) {
	if post == nil {
		return nil, fmt.Errorf("文章为空")
	}

	publicID, err := idgen.GeneratePublicID(post.ID, idgen.EntityTypeIDPost)
	if err != nil {
		return nil, fmt.Errorf("生成文章 %d 的公共ID失败: %w", post.ID, err)
	}

	contentHTML := post.ContentHTML
	if contentHTML == "" && post.ContentMD != "" {
		rendered, renderErr := parser.MarkdownToHTML(post.ContentMD)
		if renderErr != nil {
			return nil, fmt.Errorf("渲染文章 %d 的 Markdown 失败: %w", post.ID, renderErr)
		}
		contentHTML = rendered
	}

	if language == "" {
		language = "zh-CN"
	}

	doc := &model.SearchIndex{
		EntityType:    model.EntityTypePost,
		EntityID:      publicID,
		Title:         post.Title,
		Content:       parser.StripHTML(contentHTML),
		Keywords:      post.Tags,
		Language:      language,
		TitleWeight:   model.DefaultTitleWeight,
		ContentWeight: model.DefaultContentWeight,
		KeywordWeight: model.DefaultKeywordWeight,
		IsActive:      true,
	}
	doc.Touch()
	return doc, nil
}
