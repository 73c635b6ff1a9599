package evaluator

import (
	"testing"
	"time"

	"firestocks/internal/consts"
	"firestocks/internal/model/entity"
)

func openObs(price float64) Observation {
	return Observation{Price: &price, MarketOpen: true}
}

func newPost(initial, target, stopLoss float64) *entity.Post {
	return &entity.Post{
		ID:            1001,
		Symbol:        "AAPL",
		CompanyName:   "Apple Inc",
		InitialPrice:  initial,
		CurrentPrice:  initial,
		TargetPrice:   target,
		StopLossPrice: stopLoss,
		Version:       3,
	}
}

func TestEvaluateTransitions(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name       string
		post       *entity.Post
		price      float64
		wantClass  consts.Classification
		wantClosed bool
	}{
		// 多头：initial=100 target=120 stop=90
		{"做多到价", newPost(100, 120, 90), 125, consts.ClassTargetReached, true},
		{"做多止损", newPost(100, 120, 90), 85, consts.ClassStopLossHit, true},
		{"做多区间内", newPost(100, 120, 90), 105, consts.ClassCheckedNoChange, false},
		{"做多恰好到价", newPost(100, 120, 90), 120, consts.ClassTargetReached, true},
		{"做多恰好止损", newPost(100, 120, 90), 90, consts.ClassStopLossHit, true},
		// 空头镜像：initial=100 target=80 stop=110
		{"做空到价", newPost(100, 80, 110), 75, consts.ClassTargetReached, true},
		{"做空止损", newPost(100, 80, 110), 115, consts.ClassStopLossHit, true},
		{"做空区间内", newPost(100, 80, 110), 95, consts.ClassCheckedNoChange, false},
	}

	for _, c := range cases {
		out, mut := Evaluate(c.post, openObs(c.price), now)
		if out.Class != c.wantClass {
			t.Fatalf("%s: class = %s, want %s", c.name, out.Class, c.wantClass)
		}
		if out.Closed != c.wantClosed {
			t.Fatalf("%s: closed = %v, want %v", c.name, out.Closed, c.wantClosed)
		}
		if mut.Closed != c.wantClosed {
			t.Fatalf("%s: mutation closed = %v, want %v", c.name, mut.Closed, c.wantClosed)
		}
		if mut.CurrentPrice == nil || *mut.CurrentPrice != c.price {
			t.Fatalf("%s: mutation should carry observed price %v", c.name, c.price)
		}
		if mut.Version != c.post.Version {
			t.Fatalf("%s: mutation version = %d, want %d", c.name, mut.Version, c.post.Version)
		}
	}
}

// 到价和止损同时命中时（病态配置），到价优先
func TestEvaluateTieBreakPrefersTarget(t *testing.T) {
	now := time.Now()
	// target和stop_loss落在同侧，价格同时满足两边
	post := newPost(100, 110, 120)

	out, mut := Evaluate(post, openObs(125), now)
	if out.Class != consts.ClassTargetReached {
		t.Fatalf("class = %s, want %s", out.Class, consts.ClassTargetReached)
	}
	if !mut.TargetReached || mut.StopLossTriggered {
		t.Fatalf("target_reached=%v stop_loss_triggered=%v, want true/false",
			mut.TargetReached, mut.StopLossTriggered)
	}
}

// 目标价等于初始价的退化预测按看涨处理
func TestEvaluateTargetEqualsInitialTreatedUpward(t *testing.T) {
	now := time.Now()
	post := newPost(100, 100, 90)

	out, mut := Evaluate(post, openObs(100), now)
	if out.Class != consts.ClassTargetReached {
		t.Fatalf("class = %s, want %s", out.Class, consts.ClassTargetReached)
	}
	if !mut.TargetReached {
		t.Fatal("目标价等于初始价时到价判定应按看涨方向")
	}

	out, _ = Evaluate(post, openObs(95), now)
	if out.Class != consts.ClassCheckedNoChange {
		t.Fatalf("区间内价格 class = %s, want %s", out.Class, consts.ClassCheckedNoChange)
	}
}

// 到价后绝不同时置位止损，反向同理
func TestEvaluateTerminalFlagsExclusive(t *testing.T) {
	now := time.Now()

	_, mut := Evaluate(newPost(100, 120, 90), openObs(130), now)
	if mut.StopLossTriggered {
		t.Fatal("target hit should never set stop_loss_triggered")
	}
	if mut.ResolvedAt == nil {
		t.Fatal("terminal transition should carry resolved time")
	}

	_, mut = Evaluate(newPost(100, 120, 90), openObs(80), now)
	if mut.TargetReached {
		t.Fatal("stop loss hit should never set target_reached")
	}
}

func TestEvaluateNoData(t *testing.T) {
	now := time.Now()
	post := newPost(100, 120, 90)

	out, mut := Evaluate(post, Observation{Price: nil, MarketOpen: true}, now)
	if out.Class != consts.ClassNoData {
		t.Fatalf("class = %s, want %s", out.Class, consts.ClassNoData)
	}
	// 无数据时保留已存价格，只推进检查时间
	if out.CurrentPrice != post.CurrentPrice {
		t.Fatalf("outcome price = %v, want stored %v", out.CurrentPrice, post.CurrentPrice)
	}
	if mut.CurrentPrice != nil {
		t.Fatal("no_data mutation must not touch current_price")
	}
	if mut.Closed || mut.TargetReached || mut.StopLossTriggered {
		t.Fatal("no_data must not transition state")
	}
	if !mut.CheckedAt.Equal(now) {
		t.Fatalf("checked_at = %v, want %v", mut.CheckedAt, now)
	}
}

func TestEvaluateAfterMarketClose(t *testing.T) {
	now := time.Now()
	price := 125.0

	// 闭市时即使带着价格也不评估
	out, mut := Evaluate(newPost(100, 120, 90), Observation{Price: &price, MarketOpen: false}, now)
	if out.Class != consts.ClassAfterMarketClose {
		t.Fatalf("class = %s, want %s", out.Class, consts.ClassAfterMarketClose)
	}
	if mut.CurrentPrice != nil || mut.Closed {
		t.Fatal("after_market_close must only touch last_price_check")
	}
}

func TestUpdated(t *testing.T) {
	post := newPost(100, 120, 90)

	out, _ := Evaluate(post, openObs(125), time.Now())
	if !Updated(post, out) {
		t.Fatal("terminal transition should count as updated")
	}

	out, _ = Evaluate(post, openObs(105), time.Now())
	if !Updated(post, out) {
		t.Fatal("price change should count as updated")
	}

	// 价格没动
	out, _ = Evaluate(post, openObs(100), time.Now())
	if Updated(post, out) {
		t.Fatal("unchanged price should not count as updated")
	}

	out, _ = Evaluate(post, Observation{MarketOpen: true}, time.Now())
	if Updated(post, out) {
		t.Fatal("no_data should not count as updated")
	}
}
