package model

import (
	"time"

	"firestocks/internal/consts"
)

// Outcome 单条预测在一次运行中的结果，产出后不可变
type Outcome struct {
	PostID        int64                 `json:"post_id"`
	Symbol        string                `json:"symbol"`
	CompanyName   string                `json:"company_name"`
	CurrentPrice  float64               `json:"current_price"`
	TargetPrice   float64               `json:"target_price"`
	StopLossPrice float64               `json:"stop_loss_price"`
	Class         consts.Classification `json:"classification"`
	Closed        bool                  `json:"closed"`
}

type RunPriceCheckReq struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type RunPriceCheckRes struct {
	Success         bool      `json:"success"`
	CheckedPosts    int       `json:"checked_posts"`
	UpdatedPosts    int       `json:"updated_posts"`
	UsageCount      int       `json:"usage_count"`
	RemainingChecks int       `json:"remaining_checks"`
	Results         []Outcome `json:"results"`
}

// CheckMutation 评估器对单条预测计算出的数据库变更
// Version是读取时的版本号，落库走条件更新实现compare-and-swap
type CheckMutation struct {
	PostID  int64
	Version int64

	CheckedAt time.Time // last_price_check推到该时刻

	// nil表示不更新价格（no_data / after_market_close）
	CurrentPrice *float64

	Closed            bool
	TargetReached     bool
	StopLossTriggered bool
	ResolvedAt        *time.Time // 到价/止损的发生时刻
}

// RunEvent 写入kafka事件流的运行汇总
type RunEvent struct {
	RunID        int64     `json:"run_id"`
	UserID       int64     `json:"user_id"`
	StartedAt    time.Time `json:"started_at"`
	CheckedPosts int       `json:"checked_posts"`
	UpdatedPosts int       `json:"updated_posts"`
	Success      bool      `json:"success"`
	Outcomes     []Outcome `json:"outcomes"`
}

// CheckRunHistory 历史接口返回的一条运行记录
type CheckRunHistory struct {
	RunID           int64     `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	CheckedPosts    int       `json:"checked_posts"`
	UpdatedPosts    int       `json:"updated_posts"`
	UsageCount      int       `json:"usage_count"`
	RemainingChecks int       `json:"remaining_checks"`
	Success         bool      `json:"success"`
	Message         string    `json:"message,omitempty"`
	Results         []Outcome `json:"results"`
}
