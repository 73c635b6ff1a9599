package whatsapp

import (
	"context"
	"fmt"

	"firestocks/conf"

	"github.com/go-resty/resty/v2"
)

// WhatsApp Business Cloud API 客户端
// 发送新预测通知给关注者，per-recipient互不影响

type Sender interface {
	SendText(ctx context.Context, to string, body string) (string, error)
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Client struct {
	http    *resty.Client
	phoneID string
}

func NewClient(cfg conf.WhatsAppConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.ApiBase).
		SetAuthToken(cfg.AccessToken)
	return &Client{http: c, phoneID: cfg.PhoneNumberID}
}

// SendText 发送文本消息，返回provider的message id
func (c *Client) SendText(ctx context.Context, to string, body string) (string, error) {
	p := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	p.Text.Body = body

	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/%s/messages", c.phoneID))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("whatsapp send failed: %s (code %d)", out.Error.Message, out.Error.Code)
		}
		return "", fmt.Errorf("whatsapp send failed with status %d", resp.StatusCode())
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("whatsapp send returned no message id")
	}
	return out.Messages[0].ID, nil
}
