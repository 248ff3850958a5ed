/*
 * @Description:
 * @Author: 晚风
 * @Date: 2025-09-12 13:58:02
 * @LastEditTime: 2025-12-21 02:47:18
 * @LastEditors: 晚风
 */
package main

import (
	"log"

	"github.com/wanfeng-x/wanfeng-blog/cmd/server"
)

// @title           Wanfeng Blog API
// @version         1.0
// @description     晚风博客搜索服务接口文档

// @contact.name   晚风
// @contact.url    https://github.com/wanfeng-x/wanfeng-blog

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8091
// @BasePath  /api
func main() {
	app, cleanup, err := server.NewApp()
	if err != nil {
		log.Fatalf("应用初始化失败: %v", err)
	}
	defer cleanup()
	defer app.Stop()

	if err := app.Run(); err != nil {
		log.Fatalf("应用运行失败: %v", err)
	}
}
