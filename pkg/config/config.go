/*
 * @Description: 统一配置管理（ini 文件 + 环境变量覆盖，手动加载）
 * @Author: 晚风
 * @Date: 2025-09-01 23:40:15
 * @LastEditTime: 2025-12-02 18:26:40
 * @LastEditors: 晚风
 */
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// 定义所有已知的配置键
var allKeys = []string{
	KeyServerPort, KeyServerDebug,
	KeyDBType, KeyDBHost, KeyDBPort, KeyDBUser, KeyDBPassword, KeyDBName, KeyDBDebug,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyESEnable, KeyESAddr, KeyESUser, KeyESPassword, KeyESIndex,
	KeySearchLanguage,
}

const (
	KeyServerPort     = "System.Port"
	KeyServerDebug    = "System.Debug"
	KeyDBType         = "Database.Type"
	KeyDBHost         = "Database.Host"
	KeyDBPort         = "Database.Port"
	KeyDBUser         = "Database.User"
	KeyDBPassword     = "Database.Password"
	KeyDBName         = "Database.Name"
	KeyDBDebug        = "Database.Debug"
	KeyRedisAddr      = "Redis.Addr"
	KeyRedisPassword  = "Redis.Password"
	KeyRedisDB        = "Redis.DB"
	KeyESEnable       = "Elasticsearch.Enable"
	KeyESAddr         = "Elasticsearch.Addr"
	KeyESUser         = "Elasticsearch.User"
	KeyESPassword     = "Elasticsearch.Password"
	KeyESIndex        = "Elasticsearch.Index"
	KeySearchLanguage = "Search.Language"
)

type Config struct {
	vp *viper.Viper
}

// NewConfig 手动加载配置：先读 data/conf.ini 作为默认值，再用环境变量逐键覆盖。
func NewConfig() (*Config, error) {
	vp := viper.New()
	filePath := "data/conf.ini"

	// --- 步骤 1: 使用 go-ini 从文件加载配置（作为默认值） ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("提示: 未找到 %s，将创建默认配置文件。", filePath)
			if err := createDefaultConfigFile(filePath); err != nil {
				log.Printf("警告: 创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
			} else {
				log.Printf("✅ 已创建默认配置文件: %s", filePath)
				iniCfg, err = ini.Load(filePath)
				if err != nil {
					log.Printf("警告: 重新加载配置文件失败: %v", err)
				}
			}
		} else {
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
	}

	// 文件加载成功时，把所有键值写入 Viper
	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				if section.Name() == "DEFAULT" {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Println("从 data/conf.ini 文件加载了默认配置。")
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	envReplacer := strings.NewReplacer(".", "_")
	envPrefix := "WANFENG"

	for _, key := range allKeys {
		// 例如 WANFENG_ELASTICSEARCH_ADDR
		envVarName := fmt.Sprintf("%s_%s", envPrefix, envReplacer.Replace(strings.ToUpper(key)))
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	// 默认配置内容（SQLite 作为默认数据库，搜索降级到数据库引擎）
	defaultConfig := `[System]
Port = 8091
Debug = false

[Database]
Type = sqlite
Name = wanfeng_blog.db
Debug = false

# Redis 配置（可选）
# 不配置 Addr 时，热搜榜自动降级到数据库
[Redis]
Addr =
Password =
DB = 0

# Elasticsearch 配置（可选）
# Enable = false 或 Addr 留空时，搜索只使用数据库引擎
[Elasticsearch]
Enable = false
Addr =
User =
Password =
Index = wanfeng_search

[Search]
Language = zh-CN
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}
