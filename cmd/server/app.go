/*
 * @Description: 应用组装与生命周期管理
 * @Author: 晚风
 * @Date: 2025-09-12 14:05:33
 * @LastEditTime: 2025-12-21 02:40:55
 * @LastEditors: 晚风
 */
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wanfeng-x/wanfeng-blog/internal/app/task"
	"github.com/wanfeng-x/wanfeng-blog/internal/infra/persistence/database"
	"github.com/wanfeng-x/wanfeng-blog/internal/infra/router"
	"github.com/wanfeng-x/wanfeng-blog/pkg/config"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	search_handler "github.com/wanfeng-x/wanfeng-blog/pkg/handler/search"
	"github.com/wanfeng-x/wanfeng-blog/pkg/idgen"
	"github.com/wanfeng-x/wanfeng-blog/pkg/service/search"
)

// App 聚合了应用的全部运行时组件。
type App struct {
	engine    *gin.Engine
	scheduler *task.Scheduler
	cfg       *config.Config
}

// NewApp 手动完成依赖注入，返回应用实例与资源清理函数。
func NewApp() (*App, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	if err := idgen.InitSqidsEncoder(); err != nil {
		return nil, nil, fmt.Errorf("初始化 ID 编码器失败: %w", err)
	}

	db, err := database.NewGormDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rdb, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化 Redis 失败: %w", err)
	}

	// 仓库层
	postRepo := database.NewPostRepository(db)
	indexRepo := database.NewSearchIndexRepository(db)
	hotSearchRepo := database.NewHotSearchRepository(db)

	// 搜索子系统
	language := cfg.GetString(config.KeySearchLanguage)
	hotSearchSvc := search.NewHotSearchService(rdb, hotSearchRepo)
	dbSearcher := search.NewDatabaseSearcher(indexRepo, postRepo, hotSearchSvc, language)
	esSearcher, err := search.NewElasticSearcher(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化 Elasticsearch 搜索引擎失败: %w", err)
	}

	// 直接把 nil 具体指针赋给接口会得到非 nil 的接口值，这里显式规避
	var primary model.SearchEngine
	if esSearcher != nil {
		primary = esSearcher
	}
	manager := search.NewManager(primary, dbSearcher, indexRepo, postRepo, hotSearchSvc, language)

	// 启动时立即做一次健康检查，尽快校正主引擎的初始健康假定
	go func() {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer probeCancel()
		manager.HealthCheck(probeCtx)
	}()

	// 定时任务
	scheduler := task.NewScheduler(manager)
	scheduler.RegisterJobs()
	scheduler.Start()

	// HTTP 层
	if !cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	router.NewRouter(search_handler.NewHandler(manager)).Setup(engine)

	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		closeDB(db)
	}

	return &App{
		engine:    engine,
		scheduler: scheduler,
		cfg:       cfg,
	}, cleanup, nil
}

// Run 启动 HTTP 服务并阻塞到收到退出信号。
func (a *App) Run() error {
	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✅ HTTP 服务已启动，监听端口 %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务异常退出: %w", err)
	case sig := <-quit:
		log.Printf("收到退出信号 %s，开始优雅关闭...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP 服务关闭失败: %w", err)
	}
	log.Println("HTTP 服务已关闭。")
	return nil
}

// Stop 停止后台任务。
func (a *App) Stop() {
	a.scheduler.Stop()
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}
}
