package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId = "request_id"
	UserID    = "user_id"
	// IsBackend 后台身份标记，巡检等内部调用可代任意用户触发检查
	IsBackend = "is_backend"

	// quota计数器的key前缀，完整key形如 quota:check:<userID>:<yyyy-mm-dd>
	QuotaCheckPrefix = "quota:check:"
	// 单用户价格检查运行锁的key前缀
	CheckRunLockPrefix = "lock:check:"

	// 默认redis过期时间
	RedisExrDefault = time.Hour * 24 * 5
)

const (
	LanguageId    = "T-Language-Id"
	PlatformType  = "T-Platform-Type"
	ClientId      = "T-App-Id"
	ClientVersion = "T-App-Version"
	DeviceId      = "T-D-Id"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

// Classification 单条预测在一次检查中的归类结果
type Classification string

const (
	ClassTargetReached    Classification = "target_reached"
	ClassStopLossHit      Classification = "stop_loss_triggered"
	ClassCheckedNoChange  Classification = "checked_no_change"
	ClassNoData           Classification = "no_data"
	ClassAfterMarketClose Classification = "after_market_close"
)

// 广播状态，只允许单向推进 pending -> sending -> completed|failed
const (
	BroadcastStatusPending   = "pending"
	BroadcastStatusSending   = "sending"
	BroadcastStatusCompleted = "completed"
	BroadcastStatusFailed    = "failed"
)

// 广播接收者的圈定方式
const (
	RecipientTypeFollowers      = "followers"
	RecipientTypeAllSubscribers = "all_subscribers"
	RecipientTypeManual         = "manual"
)

// 通知记录状态
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// NotifyChannel 通知渠道
type NotifyChannel string

const (
	ChannelTelegram NotifyChannel = "telegram"
	ChannelWhatsApp NotifyChannel = "whatsapp"
	ChannelEmail    NotifyChannel = "email"
	ChannelPush     NotifyChannel = "push"
)

// 订阅者可单独开关的通知类型
const (
	NotifyTypeBroadcast  = "broadcast"
	NotifyTypeNewPost    = "new_post"
	NotifyTypeResolution = "resolution"
)

// 用户套餐
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

const (
	PlatformIOS     = "iOS"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
