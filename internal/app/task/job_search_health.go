/*
 * @Description: 搜索引擎健康检查任务
 * @Author: 晚风
 * @Date: 2025-09-11 21:30:12
 * @LastEditTime: 2025-11-19 18:07:45
 * @LastEditors: 晚风
 */
package task

import (
	"context"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"
)

// SearchHealthCheckJob 周期性探测两个搜索引擎并刷新主引擎的健康标记。
type SearchHealthCheckJob struct {
	manager *search.Manager
}

// NewSearchHealthCheckJob 是任务的构造函数。
func NewSearchHealthCheckJob(manager *search.Manager) *SearchHealthCheckJob {
	return &SearchHealthCheckJob{manager: manager}
}

// Name 返回任务的可读名称
func (j *SearchHealthCheckJob) Name() string {
	return "SearchHealthCheckJob"
}

// Run 执行一次健康检查。重建进行中时跳过本周期。
func (j *SearchHealthCheckJob) Run() {
	if j.manager.RebuildInProgress() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	j.manager.HealthCheck(ctx)
}
