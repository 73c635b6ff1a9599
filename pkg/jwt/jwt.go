package jwt

import (
	"context"
	"strconv"
	"strings"
	"time"

	"firestocks/conf"
	"firestocks/pkg/cache"
	"firestocks/pkg/logger"
	"firestocks/utils/security"

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
)

type CustomClaims struct {
	UserId int64  `json:"user_id"`
	Sub    string `json:"sub"` // 鉴权的主题，目前有user 和 backend两种
	jwt.RegisteredClaims
}

// 是否为可信的后台调用（定时巡检等内部触发）
func (claims *CustomClaims) IsBackend() bool {
	return strings.HasPrefix(claims.Sub, "backend")
}

func BuildClaims(exp time.Time, uid int64, isBackend bool) *CustomClaims {
	var sub = "user"
	if isBackend {
		sub = "backend"
	}
	return &CustomClaims{
		UserId: uid,
		Sub:    sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    conf.AppConfig.AppName,
		},
	}
}

func GenToken(c *CustomClaims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secretKey))
}

// 解析jwt token
func ParseToken(jwtStr, secretKey string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(jwtStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

func getBlackListKey(token string) string {
	return "jwt_black_list:" + security.Md5(token)
}

// JoinBlackList 注销后把token拉黑到过期为止
func JoinBlackList(ctx context.Context, tokenStr string, secretKey string) (err error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return err
	}
	nowUnix := time.Now().Unix()
	timer := time.Duration(token.Claims.(*CustomClaims).ExpiresAt.Unix()-nowUnix) * time.Second
	rc := cache.GetRedisClient()
	return rc.SetNX(ctx, getBlackListKey(token.Raw), nowUnix, timer).Err()
}

func IsInBlackList(ctx context.Context, token string) bool {
	rc := cache.GetRedisClient()
	joinUnixStr, err := rc.Get(ctx, getBlackListKey(token)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Errorf("Redis连接异常:%v", err.Error())
		}
		return false
	}
	joinUnix, _ := strconv.ParseInt(joinUnixStr, 10, 64)
	if time.Now().Unix()-joinUnix < conf.AppConfig.Jwt.JwtBlacklistGracePeriod {
		return false
	}
	return true
}
