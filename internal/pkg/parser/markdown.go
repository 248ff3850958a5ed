/*
 * @Description: Markdown 渲染（索引前把文章正文统一转成 HTML）
 * @Author: 晚风
 * @Date: 2025-09-03 15:02:11
 * @LastEditTime: 2025-10-09 11:36:24
 * @LastEditors: 晚风
 */
package parser

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var mdParser goldmark.Markdown
var policy *bluemonday.Policy

func init() {
	mdParser = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,           // GitHub Flavored Markdown
			extension.Linkify,       // 自动识别链接
			extension.Strikethrough, // 删除线
			extension.Table,         // 表格
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(), // 信任原始 HTML，渲染后由 bluemonday 清理
		),
	)

	// UGCPolicy 适用于用户生成的内容
	policy = bluemonday.UGCPolicy()
}

// MarkdownToHTML 将 Markdown 字符串转换为安全的 HTML 字符串
func MarkdownToHTML(mdContent string) (string, error) {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(mdContent), &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}
