package model

import "time"

// PostCreateReq 发布一条预测
type PostCreateReq struct {
	Symbol        string  `json:"symbol" binding:"required"`
	Exchange      string  `json:"exchange"`
	Country       string  `json:"country"`
	CompanyName   string  `json:"company_name"`
	Strategy      string  `json:"strategy"`
	Content       string  `json:"content"`
	InitialPrice  float64 `json:"initial_price" binding:"required,gt=0"`
	TargetPrice   float64 `json:"target_price" binding:"required,gt=0"`
	StopLossPrice float64 `json:"stop_loss_price" binding:"required,gt=0"`
}

type PostCreateRes struct {
	Success bool  `json:"success"`
	PostID  int64 `json:"post_id"`
}

type PostItem struct {
	PostID            int64      `json:"post_id"`
	Symbol            string     `json:"symbol"`
	Exchange          string     `json:"exchange,omitempty"`
	CompanyName       string     `json:"company_name"`
	Content           string     `json:"content,omitempty"`
	InitialPrice      float64    `json:"initial_price"`
	CurrentPrice      float64    `json:"current_price"`
	TargetPrice       float64    `json:"target_price"`
	StopLossPrice     float64    `json:"stop_loss_price"`
	Strategy          string     `json:"strategy"`
	Closed            bool       `json:"closed"`
	TargetReached     bool       `json:"target_reached"`
	StopLossTriggered bool       `json:"stop_loss_triggered"`
	LastPriceCheck    *time.Time `json:"last_price_check"`
	CreatedAt         time.Time  `json:"created_at"`
}

type PostListRes struct {
	Posts []PostItem `json:"posts"`
}
