/*
 * @Description: 搜索索引增量同步任务
 * @Author: 晚风
 * @Date: 2025-09-11 21:38:27
 * @LastEditTime: 2025-11-19 18:09:12
 * @LastEditors: 晚风
 */
package task

import (
	"context"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"
)

// IncrementalSyncJob 周期性把关系库中水位之后变更的索引记录重新写入两个引擎。
// 主引擎降级期间跳过的写入依赖这个任务收敛。
type IncrementalSyncJob struct {
	manager *search.Manager
}

// NewIncrementalSyncJob 是任务的构造函数。
func NewIncrementalSyncJob(manager *search.Manager) *IncrementalSyncJob {
	return &IncrementalSyncJob{manager: manager}
}

// Name 返回任务的可读名称
func (j *IncrementalSyncJob) Name() string {
	return "IncrementalSyncJob"
}

// Run 执行一次增量同步（使用内部水位）。重建进行中时跳过本周期。
func (j *IncrementalSyncJob) Run() {
	if j.manager.RebuildInProgress() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	j.manager.IncrementalSync(ctx, time.Time{})
}
