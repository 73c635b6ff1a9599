package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	msgID, err := c.SendMessage(context.Background(), "123:ABC", 555, "*hello*")
	if err != nil {
		t.Fatal(err)
	}
	if msgID != 42 {
		t.Fatalf("想要message_id 42，拿到 %d", msgID)
	}
	if gotPath != "/bot123:ABC/sendMessage" {
		t.Fatalf("路径不对: %s", gotPath)
	}
	if gotBody.ChatID != 555 || gotBody.Text != "*hello*" {
		t.Fatalf("请求体不对: %+v", gotBody)
	}
	if gotBody.ParseMode != "Markdown" || !gotBody.DisableWebPagePreview {
		t.Fatalf("固定参数不对: %+v", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SendMessage(context.Background(), "123:ABC", 555, "hi")
	if err == nil {
		t.Fatal("API错误应返回error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("错误里应带上provider的描述: %v", err)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var gotBody sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	markup := &ReplyMarkup{InlineKeyboard: [][]InlineButton{
		{{Text: "广播通知: 开", CallbackData: "toggle_bc_10_0"}},
	}}
	c := NewClient(srv.URL)
	if _, err := c.SendMessageWithKeyboard(context.Background(), "tok", 1, "设置", markup); err != nil {
		t.Fatal(err)
	}
	if gotBody.ReplyMarkup == nil || len(gotBody.ReplyMarkup.InlineKeyboard) != 1 {
		t.Fatalf("键盘没有带上: %+v", gotBody.ReplyMarkup)
	}
	if gotBody.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "toggle_bc_10_0" {
		t.Fatalf("callback data不对: %+v", gotBody.ReplyMarkup)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.AnswerCallbackQuery(context.Background(), "tok", "cb-1", "已更新"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/bottok/answerCallbackQuery" {
		t.Fatalf("路径不对: %s", gotPath)
	}
	if gotBody["callback_query_id"] != "cb-1" {
		t.Fatalf("callback id不对: %v", gotBody)
	}
}
