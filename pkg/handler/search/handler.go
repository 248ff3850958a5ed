/*
 * @Description: 搜索处理器
 * @Author: 晚风
 * @Date: 2025-09-12 11:02:19
 * @LastEditTime: 2025-12-21 02:15:48
 * @LastEditors: 晚风
 */
package search

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/response"
	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"
)

type Handler struct {
	manager *search.Manager
}

func NewHandler(manager *search.Manager) *Handler {
	return &Handler{manager: manager}
}

// Search 搜索接口
// @Summary      搜索
// @Description  全站搜索文章内容
// @Tags         搜索
// @Produce      json
// @Param        q          query  string  true   "搜索关键词"
// @Param        type       query  string  false  "内容类型过滤"
// @Param        page       query  int     false  "页码"  default(1)
// @Param        size       query  int     false  "每页数量"  default(10)
// @Param        sortBy     query  string  false  "排序字段 relevance/date/title"
// @Param        sortDir    query  string  false  "排序方向 asc/desc"
// @Param        highlight  query  bool    false  "是否返回高亮片段"
// @Router       /public/search [get]
func (h *Handler) Search(c *gin.Context) {
	criteria := &model.SearchCriteria{
		Query:           c.Query("q"),
		ContentType:     c.Query("type"),
		SortBy:          model.SortBy(c.DefaultQuery("sortBy", string(model.SortByRelevance))),
		SortDirection:   model.SortDirection(c.DefaultQuery("sortDir", string(model.SortDesc))),
		EnableHighlight: c.Query("highlight") == "true",
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		criteria.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("size", "10")); err == nil {
		criteria.PageSize = size
	}
	if start, err := time.Parse(time.RFC3339, c.Query("startDate")); err == nil {
		criteria.StartDate = &start
	}
	if end, err := time.Parse(time.RFC3339, c.Query("endDate")); err == nil {
		criteria.EndDate = &end
	}

	result, err := h.manager.Search(c.Request.Context(), criteria)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "搜索失败: "+err.Error())
		return
	}
	response.Success(c, result, "搜索成功")
}

// Suggestions 搜索建议接口
// @Summary      搜索建议
// @Tags         搜索
// @Produce      json
// @Param        q     query  string  true   "输入前缀"
// @Param        size  query  int     false  "建议数量"  default(10)
// @Router       /public/search/suggestions [get]
func (h *Handler) Suggestions(c *gin.Context) {
	prefix := c.Query("q")
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 20 {
		size = 10
	}

	suggestions := h.manager.GetSuggestions(c.Request.Context(), prefix, size)
	response.Success(c, suggestions, "获取建议成功")
}

// Stats 索引统计接口
// @Summary      索引统计
// @Tags         搜索管理
// @Produce      json
// @Router       /search/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	stats := h.manager.GetIndexStats(c.Request.Context())
	response.Success(c, gin.H{
		"index":       stats,
		"queueLength": h.manager.QueueLength(),
	}, "获取索引统计成功")
}

// EnqueueRequest 是索引队列接口的请求体
type EnqueueRequest struct {
	PostID uint   `json:"postId" binding:"required"`
	Op     string `json:"op"`
}

// Enqueue 把一篇文章的索引维护操作放入队列
// @Summary      异步索引一篇文章
// @Description  操作入队后由后台任务批量消费，不阻塞请求
// @Tags         搜索管理
// @Accept       json
// @Produce      json
// @Param        request  body  EnqueueRequest  true  "文章ID与操作类型 index/update/delete"
// @Router       /search/queue [post]
func (h *Handler) Enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}

	opType := model.IndexOperationType(req.Op)
	if req.Op == "" {
		opType = model.IndexOpIndex
	}
	switch opType {
	case model.IndexOpIndex, model.IndexOpUpdate, model.IndexOpDelete:
	default:
		response.Fail(c, http.StatusBadRequest, "无效的操作类型，支持 index/update/delete")
		return
	}

	if err := h.manager.EnqueuePost(c.Request.Context(), req.PostID, opType); err != nil {
		response.Fail(c, http.StatusInternalServerError, "索引操作入队失败: "+err.Error())
		return
	}
	response.Success(c, gin.H{"queueLength": h.manager.QueueLength()}, "索引操作已入队")
}

// Health 搜索健康检查接口
// @Summary      搜索健康检查
// @Tags         搜索管理
// @Produce      json
// @Router       /search/health [get]
func (h *Handler) Health(c *gin.Context) {
	healthy := h.manager.HealthCheck(c.Request.Context())
	if !healthy {
		response.ServiceUnavailable(c, "搜索服务不可用")
		return
	}
	response.Success(c, gin.H{"healthy": true}, "搜索服务正常")
}

// Rebuild 全量重建接口
// @Summary      全量重建搜索索引
// @Description  清空两个引擎的索引并从已发布文章重新构建；已有重建进行中时返回 409
// @Tags         搜索管理
// @Produce      json
// @Router       /search/rebuild [post]
func (h *Handler) Rebuild(c *gin.Context) {
	if h.manager.RebuildInProgress() {
		response.Fail(c, http.StatusConflict, "已有索引重建正在进行")
		return
	}

	// 重建可能耗时很长，脱离请求上下文在后台执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		h.manager.RebuildIndex(ctx)
	}()

	response.Success(c, nil, "索引重建已开始")
}

// Sync 手动触发一次增量同步
// @Summary      增量同步搜索索引
// @Tags         搜索管理
// @Produce      json
// @Param        since  query  string  false  "RFC3339 时间水位，缺省使用内部水位"
// @Router       /search/sync [post]
func (h *Handler) Sync(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "无效的 since 参数，需要 RFC3339 格式")
			return
		}
		since = parsed
	}

	if ok := h.manager.IncrementalSync(c.Request.Context(), since); !ok {
		response.Fail(c, http.StatusInternalServerError, "增量同步失败")
		return
	}
	response.Success(c, nil, "增量同步完成")
}
