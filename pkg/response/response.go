/*
 * @Description: 统一的 API 返回结构
 * @Author: 晚风
 * @Date: 2025-09-01 23:55:08
 * @LastEditTime: 2025-09-14 12:10:33
 * @LastEditors: 晚风
 */
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 是统一的API返回结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Fail 失败响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ServiceUnavailable 服务降级响应（搜索引擎全部不可用时使用）
func ServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, Response{
		Code:    http.StatusServiceUnavailable,
		Message: message,
		Data:    nil,
	})
}
