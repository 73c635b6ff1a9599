package quote

import (
	"context"
	"fmt"
	"time"

	"firestocks/conf"

	"github.com/go-resty/resty/v2"
)

// 行情提供方的REST客户端
// 单个symbol失败只影响该symbol，调用方把错误降级为 no_data

type Quote struct {
	Symbol    string
	Price     float64
	PrevClose float64
	Timestamp time.Time
}

type Provider interface {
	GetQuote(ctx context.Context, symbol string, exchange string) (*Quote, error)
}

type quoteResp struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
	Timestamp int64   `json:"t"`
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(cfg conf.QuoteConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout.Std()).
		SetRetryCount(1)
	return &Client{http: c, apiKey: cfg.ApiKey}
}

func (c *Client) GetQuote(ctx context.Context, symbol string, exchange string) (*Quote, error) {
	var out quoteResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"exchange": exchange,
			"token":    c.apiKey,
		}).
		SetResult(&out).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request for %s failed: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote provider returned %d for %s", resp.StatusCode(), symbol)
	}
	// 行情源对未知symbol返回c=0而不是错误
	if out.Current <= 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}
	ts := time.Now()
	if out.Timestamp > 0 {
		ts = time.Unix(out.Timestamp, 0)
	}
	return &Quote{
		Symbol:    symbol,
		Price:     out.Current,
		PrevClose: out.PrevClose,
		Timestamp: ts,
	}, nil
}
