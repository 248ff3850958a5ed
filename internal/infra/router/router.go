/*
 * @Description: 路由注册
 * @Author: 晚风
 * @Date: 2025-09-12 11:40:28
 * @LastEditTime: 2025-12-21 02:22:17
 * @LastEditors: 晚风
 */
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/wanfeng-x/wanfeng-blog/internal/app/middleware"
	search_handler "github.com/wanfeng-x/wanfeng-blog/pkg/handler/search"
)

// Router 持有全部 handler 并负责挂载路由。
type Router struct {
	searchHandler *search_handler.Handler
}

// NewRouter 创建路由注册器
func NewRouter(searchHandler *search_handler.Handler) *Router {
	return &Router{searchHandler: searchHandler}
}

// Setup 在 gin 引擎上挂载中间件与全部路由。
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Cors())

	apiGroup := engine.Group("/api")

	// 公开接口
	publicGroup := apiGroup.Group("/public")
	{
		publicGroup.GET("/search", r.searchHandler.Search)
		publicGroup.GET("/search/suggestions", r.searchHandler.Suggestions)
	}

	// 管理接口（索引维护）
	searchGroup := apiGroup.Group("/search")
	{
		searchGroup.GET("/stats", r.searchHandler.Stats)
		searchGroup.GET("/health", r.searchHandler.Health)
		searchGroup.POST("/rebuild", r.searchHandler.Rebuild)
		searchGroup.POST("/sync", r.searchHandler.Sync)
		searchGroup.POST("/queue", r.searchHandler.Enqueue)
	}
}
