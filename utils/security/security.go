package security

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
)

func Md5(str string) string {
	sum := md5.Sum([]byte(str))
	return hex.EncodeToString(sum[:])
}

// SignatureEqual 常数时间比较两个签名
func SignatureEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
