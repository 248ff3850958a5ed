/*
 * @Description: 提供了用于 cron 任务的健壮的中间件（装饰器）。
 * @Author: 晚风
 * @Date: 2025-09-11 21:05:44
 * @LastEditTime: 2025-10-02 12:18:30
 * @LastEditors: 晚风
 */
package task

import (
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// JobWrapper 是 cron.JobWrapper 的类型别名，用于简化代码。
type JobWrapper = cron.JobWrapper

// NewLoggingWrapper 创建一个日志装饰器。
// 它使用结构化日志记录每个任务的开始和结束，并包含一个唯一的执行ID。
func NewLoggingWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			executionID := uuid.New().String()
			jobName := getJobName(j)

			jobLogger := logger.With(
				slog.String("job_name", jobName),
				slog.String("execution_id", executionID),
			)

			startTime := time.Now()
			jobLogger.Info("Job execution started")

			j.Run()

			jobLogger.Info("Job execution finished", slog.Duration("duration", time.Since(startTime)))
		})
	}
}

// NewPanicRecoveryWrapper 创建一个 panic 恢复装饰器。
// 任何一次任务周期的 panic 都被就地捕获并记录，绝不会终止后续周期。
func NewPanicRecoveryWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", getJobName(j)),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()

			j.Run()
		})
	}
}

// getJobName 从 cron.Job 中获取可读的任务名。
// 优先使用任务自定义的 Name() 方法，否则通过反射取类型名。
func getJobName(j cron.Job) string {
	if namedJob, ok := j.(interface{ Name() string }); ok {
		return namedJob.Name()
	}

	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
