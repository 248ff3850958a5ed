/*
 * @Description: 索引队列消费任务
 * @Author: 晚风
 * @Date: 2025-09-11 21:44:50
 * @LastEditTime: 2025-10-26 09:58:33
 * @LastEditors: 晚风
 */
package task

import (
	"context"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"
)

// IndexQueueJob 消费内存索引队列，把请求路径上的索引操作从同步延迟中解耦出来。
type IndexQueueJob struct {
	manager *search.Manager
}

// NewIndexQueueJob 是任务的构造函数。
func NewIndexQueueJob(manager *search.Manager) *IndexQueueJob {
	return &IndexQueueJob{manager: manager}
}

// Name 返回任务的可读名称
func (j *IndexQueueJob) Name() string {
	return "IndexQueueJob"
}

// Run 消费一批队列操作（至多 100 条）。重建进行中时跳过本周期。
func (j *IndexQueueJob) Run() {
	if j.manager.RebuildInProgress() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	j.manager.ProcessIndexQueue(ctx)
}
