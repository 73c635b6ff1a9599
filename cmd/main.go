package main

import (
	"fmt"
	"log"
	"os"

	api "firestocks/cmd/firestocks"
	"firestocks/conf"
	"firestocks/internal/middleware"
	"firestocks/pkg/cache"
	"firestocks/pkg/db"
	"firestocks/pkg/logger"
)

func main() {

	// 加载配置文件
	err := conf.LoadConfig("conf/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig
	logger.InitLogger(&appCfg.Log, appCfg.AppName)

	// 容器部署时环境变量优先
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	if dbUser == "" || dbPass == "" || dbHost == "" {
		dbUser = conf.AppConfig.Username
		dbPass = conf.AppConfig.Db.Password
		dbHost = conf.AppConfig.Host
		dbPort = conf.AppConfig.Port
		dbName = conf.AppConfig.DbName
	}

	// 初始化数据库
	datasource := db.Init(db.Config{
		User:      dbUser,
		Password:  dbPass,
		Host:      dbHost,
		Port:      dbPort,
		DBName:    dbName,
		ParseTime: true,
	})

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort)
	if redisHost == "" || redisPort == "" {
		redisAddr = conf.AppConfig.Redis.Addr
	}
	if redisPassword != "" {
		appCfg.Redis.Password = redisPassword
	}
	appCfg.Redis.Addr = redisAddr

	// 初始化redis缓存
	cache.InitRedis(appCfg.Redis)

	app := api.InitApp(datasource)

	// 创建并启动服务，Run在收到退出信号且http侧关停后才返回
	srv := api.NewServer(&appCfg)
	srv.Run(middleware.NewMiddleware(), app.Router)

	// 先等在途的广播/通知任务收尾，再断开存储
	app.Close()

	if datasource != nil {
		// 关闭主库链接
		if m, err := datasource.DB(); err == nil {
			_ = m.Close()
		}
	}

	cache.CloseRedis()
}
