package ecode

// 业务错误码，0表示成功
const (
	Success = 0

	Unknown     = 10001 // 未知错误
	ValidateErr = 10002 // 参数校验失败
	NotFoundErr = 10003 // 资源不存在
	AuthErr     = 10004 // 未授权或token失效
	InternalErr = 10005 // 内部错误（数据库等）

	QuotaExceededErr = 20001 // 当日检查额度用尽
	RunConflictErr   = 20002 // 同一用户已有运行中的检查
	RunTimeoutErr    = 20003 // 检查运行超时，部分结果已落库
	SignatureErr     = 20004 // webhook签名校验失败
)

var messages = map[int]string{
	Success:          "OK",
	Unknown:          "Unknown error",
	ValidateErr:      "Validation failed",
	NotFoundErr:      "Resource not found",
	AuthErr:          "Unauthorized",
	InternalErr:      "Internal error",
	QuotaExceededErr: "Daily check quota exceeded",
	RunConflictErr:   "Another check is already running for this user",
	RunTimeoutErr:    "Check run timed out",
	SignatureErr:     "Invalid webhook signature",
}

// Text 返回错误码的默认文案
func Text(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[Unknown]
}
