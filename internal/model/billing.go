package model

// CancelSubscriptionRes 退订结果
// 本地降级是权威；provider侧取消失败也按成功上报（见错误处理约定）
type CancelSubscriptionRes struct {
	Success     bool `json:"success"`
	AlreadyFree bool `json:"already_free,omitempty"`
}
