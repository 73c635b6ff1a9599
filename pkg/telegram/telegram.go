package telegram

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Telegram Bot API 的最小客户端
// 只封装本服务用到的 sendMessage / answerCallbackQuery

type Sender interface {
	SendMessage(ctx context.Context, botToken string, chatID int64, text string) (int64, error)
	SendMessageWithKeyboard(ctx context.Context, botToken string, chatID int64, text string, markup *ReplyMarkup) (int64, error)
	AnswerCallbackQuery(ctx context.Context, botToken, callbackID, text string) error
}

var _ Sender = (*Client)(nil)

type sendMessageReq struct {
	ChatID                int64        `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview"`
	ReplyMarkup           *ReplyMarkup `json:"reply_markup,omitempty"`
}

type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

type Client struct {
	http *resty.Client
}

func NewClient(apiBase string) *Client {
	return &Client{
		http: resty.New().SetBaseURL(apiBase),
	}
}

// SendMessage 发送Markdown消息，返回provider的message id
func (c *Client) SendMessage(ctx context.Context, botToken string, chatID int64, text string) (int64, error) {
	return c.sendMessage(ctx, botToken, sendMessageReq{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
}

// SendMessageWithKeyboard 带inline键盘的消息（/start、/settings菜单用）
func (c *Client) SendMessageWithKeyboard(ctx context.Context, botToken string, chatID int64, text string, markup *ReplyMarkup) (int64, error) {
	return c.sendMessage(ctx, botToken, sendMessageReq{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	})
}

func (c *Client) sendMessage(ctx context.Context, botToken string, req sendMessageReq) (int64, error) {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/bot%s/sendMessage", botToken))
	if err != nil {
		return 0, err
	}
	if resp.IsError() || !out.Ok {
		return 0, fmt.Errorf("telegram sendMessage failed: %s", out.Description)
	}
	return out.Result.MessageID, nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, botToken, callbackID, text string) error {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"callback_query_id": callbackID,
			"text":              text,
		}).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/bot%s/answerCallbackQuery", botToken))
	if err != nil {
		return err
	}
	if resp.IsError() || !out.Ok {
		return fmt.Errorf("telegram answerCallbackQuery failed: %s", out.Description)
	}
	return nil
}
