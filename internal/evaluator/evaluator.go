package evaluator

import (
	"time"

	"firestocks/internal/consts"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
)

// Observation 取价器对单条预测的观测输入
// Price为nil表示行情侧拿不到有效报价
type Observation struct {
	Price      *float64
	MarketOpen bool
}

// Evaluate 对单条未关闭预测做一次纯函数评估
// 不碰数据库，输出本次的归类结果和待落库的变更
func Evaluate(post *entity.Post, obs Observation, now time.Time) (model.Outcome, *model.CheckMutation) {
	out := model.Outcome{
		PostID:        post.ID,
		Symbol:        post.Symbol,
		CompanyName:   post.CompanyName,
		CurrentPrice:  post.CurrentPrice,
		TargetPrice:   post.TargetPrice,
		StopLossPrice: post.StopLossPrice,
	}
	mut := &model.CheckMutation{
		PostID:    post.ID,
		Version:   post.Version,
		CheckedAt: now,
	}

	// 闭市/无数据时只推进last_price_check，保留已存价格
	if !obs.MarketOpen {
		out.Class = consts.ClassAfterMarketClose
		return out, mut
	}
	if obs.Price == nil {
		out.Class = consts.ClassNoData
		return out, mut
	}

	price := *obs.Price
	out.CurrentPrice = price
	mut.CurrentPrice = obs.Price

	// 方向由目标价相对初始价的位置推断；目标价等于初始价按看涨处理
	upward := post.TargetPrice >= post.InitialPrice

	// 同时命中时到价优先于止损，保持原有偏乐观的顺序
	switch {
	case hitTarget(upward, price, post.TargetPrice):
		out.Class = consts.ClassTargetReached
		out.Closed = true
		mut.Closed = true
		mut.TargetReached = true
		mut.ResolvedAt = &now
	case hitStopLoss(upward, price, post.StopLossPrice):
		out.Class = consts.ClassStopLossHit
		out.Closed = true
		mut.Closed = true
		mut.StopLossTriggered = true
		mut.ResolvedAt = &now
	default:
		out.Class = consts.ClassCheckedNoChange
	}
	return out, mut
}

func hitTarget(upward bool, price, target float64) bool {
	if upward {
		return price >= target
	}
	return price <= target
}

func hitStopLoss(upward bool, price, stopLoss float64) bool {
	if upward {
		return price <= stopLoss
	}
	return price >= stopLoss
}

// Updated 判断一次评估是否算作"有更新"（发生转变或价格变化）
func Updated(post *entity.Post, out model.Outcome) bool {
	switch out.Class {
	case consts.ClassTargetReached, consts.ClassStopLossHit:
		return true
	case consts.ClassCheckedNoChange:
		return out.CurrentPrice != post.CurrentPrice
	default:
		return false
	}
}
