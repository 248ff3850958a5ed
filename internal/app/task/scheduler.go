/*
 * @Description: 定时任务调度器
 * @Author: 晚风
 * @Date: 2025-09-11 20:52:08
 * @LastEditTime: 2025-12-14 17:26:31
 * @LastEditors: 晚风
 */
package task

import (
	"log/slog"
	"os"

	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"

	"github.com/robfig/cron/v3"
)

// Scheduler 封装了 cron 实例和其依赖。
// 它是整个定时任务模块的核心协调者，负责任务的注册、启动和停止。
// 每个任务都被日志与 panic 恢复装饰器包裹：单个周期的失败不会影响后续周期。
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	manager *search.Manager
}

// NewScheduler 是 Scheduler 的构造函数。
func NewScheduler(manager *search.Manager) *Scheduler {
	slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "cron")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Scheduler{
		cron:    c,
		logger:  logger,
		manager: manager,
	}
}

// RegisterJobs 在调度器中注册所有定义好的定时任务。
func (s *Scheduler) RegisterJobs() {
	s.logger.Info("Registering all periodic jobs...")

	// --- 任务1: 每分钟一次的搜索引擎健康检查 ---
	if _, err := s.cron.AddJob("0 * * * * *", NewSearchHealthCheckJob(s.manager)); err != nil {
		s.logger.Error("Failed to add 'SearchHealthCheckJob'", slog.Any("error", err))
		os.Exit(1)
	}
	s.logger.Info("-> Successfully registered 'SearchHealthCheckJob'", "schedule", "every minute")

	// --- 任务2: 每五分钟一次的索引增量同步 ---
	if _, err := s.cron.AddJob("0 */5 * * * *", NewIncrementalSyncJob(s.manager)); err != nil {
		s.logger.Error("Failed to add 'IncrementalSyncJob'", slog.Any("error", err))
		os.Exit(1)
	}
	s.logger.Info("-> Successfully registered 'IncrementalSyncJob'", "schedule", "every 5 minutes")

	// --- 任务3: 每十秒一次的索引队列消费 ---
	if _, err := s.cron.AddJob("*/10 * * * * *", NewIndexQueueJob(s.manager)); err != nil {
		s.logger.Error("Failed to add 'IndexQueueJob'", slog.Any("error", err))
		os.Exit(1)
	}
	s.logger.Info("-> Successfully registered 'IndexQueueJob'", "schedule", "every 10 seconds")

	s.logger.Info("All periodic jobs registered.")
}

// Start 启动 cron 调度器。
func (s *Scheduler) Start() {
	s.logger.Info("Cron scheduler started.")
	s.cron.Start()
}

// Stop 优雅地停止 cron 调度器。
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler gracefully stopped.")
}
