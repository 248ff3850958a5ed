/*
 * @Description: 数据库连接管理 (支持多种数据库)
 * @Author: 晚风
 * @Date: 2025-09-01 22:30:05
 * @LastEditTime: 2025-12-10 10:14:52
 * @LastEditors: 晚风
 */
package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB 根据配置创建并返回一个 GORM 数据库连接，支持 mysql/mariadb、postgres 与 sqlite。
func NewGormDB(cfg *config.Config) (*gorm.DB, error) {
	driver := cfg.GetString(config.KeyDBType)
	if driver == "" {
		log.Println("提示: 配置文件中未指定 'Database.Type'，将默认使用 'sqlite'")
		driver = "sqlite"
	}

	dbUser := cfg.GetString(config.KeyDBUser)
	dbPass := cfg.GetString(config.KeyDBPassword)
	dbHost := cfg.GetString(config.KeyDBHost)
	dbPort := cfg.GetString(config.KeyDBPort)
	dbName := cfg.GetString(config.KeyDBName)

	logLevel := logger.Warn
	if cfg.GetBool(config.KeyDBDebug) {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error

	switch driver {
	case "mysql", "mariadb":
		if dbUser == "" || dbHost == "" || dbPort == "" || dbName == "" {
			return nil, fmt.Errorf("MySQL 连接参数不完整 (需要 User, Host, Port, Name)")
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbUser, dbPass, dbHost, dbPort, dbName)
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	case "postgres":
		if dbUser == "" || dbHost == "" || dbPort == "" || dbName == "" {
			return nil, fmt.Errorf("PostgreSQL 连接参数不完整 (需要 User, Host, Port, Name)")
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPass, dbName)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite", "sqlite3":
		dataDir := "./data"
		if mkErr := os.MkdirAll(dataDir, os.ModePerm); mkErr != nil {
			return nil, fmt.Errorf("无法创建 data 目录: %w", mkErr)
		}
		finalDbName := dbName
		if finalDbName == "" {
			finalDbName = "wanfeng_blog.db"
		}
		finalPath := filepath.Join(dataDir, finalDbName)
		log.Printf("【提示】SQLite 数据库路径: %s\n", finalPath)
		db, err = gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?_fk=1&cache=shared", finalPath)), gormCfg)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s (支持: mysql/mariadb, postgres, sqlite)", driver)
	}

	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败 (驱动: %s): %w", driver, err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("无法 Ping 通数据库 (驱动: %s): %w", driver, err)
	}

	log.Printf("✅ %s 数据库连接池创建成功！\n", strings.Title(driver))
	return db, nil
}
