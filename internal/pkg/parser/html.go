/*
 * @Description: HTML 纯文本化（索引与摘要只保留正文文字）
 * @Author: 晚风
 * @Date: 2025-09-03 15:10:42
 * @LastEditTime: 2025-09-03 15:10:42
 * @LastEditors: 晚风
 */
package parser

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripTagsPolicy *bluemonday.Policy

func init() {
	// StripTagsPolicy 会移除所有的 HTML 标签
	stripTagsPolicy = bluemonday.StripTagsPolicy()
}

// StripHTML 接受一个 HTML 字符串，返回去除了所有标签并折叠空白后的纯文本。
func StripHTML(htmlContent string) string {
	text := stripTagsPolicy.Sanitize(htmlContent)
	return strings.Join(strings.Fields(text), " ")
}
