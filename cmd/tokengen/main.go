package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"firestocks/conf"
	"firestocks/pkg/jwt"
)

// 签发调试/后台用的jwt，后台token可代任意用户触发价格检查
func main() {
	cfgPath := flag.String("conf", "conf/config.yaml", "配置文件路径")
	uid := flag.Int64("uid", 0, "用户id")
	backend := flag.Bool("backend", false, "签发后台身份token")
	ttl := flag.Duration("ttl", 24*time.Hour, "有效期")
	flag.Parse()

	if *uid == 0 {
		log.Fatal("uid is required")
	}
	if err := conf.LoadConfig(*cfgPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	claims := jwt.BuildClaims(time.Now().Add(*ttl), *uid, *backend)
	token, err := jwt.GenToken(claims, conf.AppConfig.Jwt.Secret)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
