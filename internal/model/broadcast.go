package model

// BroadcastCreateReq 发起一次Telegram广播
// 投递在响应返回之后由后台任务完成
type BroadcastCreateReq struct {
	BotID              int64   `json:"bot_id" binding:"required"`
	Title              string  `json:"title" binding:"required"`
	Message            string  `json:"message"`
	SelectedPosts      []int64 `json:"selected_posts"`
	SelectedRecipients []int64 `json:"selected_recipients"`
	RecipientType      string  `json:"recipient_type" binding:"required,oneof=followers all_subscribers manual"`
}

type BroadcastCreateRes struct {
	Success     bool  `json:"success"`
	BroadcastID int64 `json:"broadcast_id"`
}

type BroadcastStatusRes struct {
	BroadcastID int64                   `json:"broadcast_id"`
	Status      string                  `json:"status"`
	SentCount   int                     `json:"sent_count"`
	FailedCount int                     `json:"failed_count"`
	Deliveries  []BroadcastDeliveryItem `json:"deliveries"`
}

// BroadcastDeliveryItem 单个接收者的投递明细
type BroadcastDeliveryItem struct {
	ChatID            int64  `json:"chat_id"`
	Status            string `json:"status"`
	ProviderMessageID int64  `json:"provider_message_id,omitempty"`
	Error             string `json:"error,omitempty"`
}
