package whatsapp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"firestocks/conf"

	"github.com/goccy/go-json"
)

func newTestClient(srvURL string) *Client {
	return NewClient(conf.WhatsAppConfig{
		ApiBase:       srvURL,
		AccessToken:   "test-token",
		PhoneNumberID: "10086",
	})
}

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody textPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.ABC123"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	msgID, err := c.SendText(context.Background(), "+14155550100", "AAPL 新预测")
	if err != nil {
		t.Fatal(err)
	}
	if msgID != "wamid.ABC123" {
		t.Fatalf("想要provider的message id，拿到 %s", msgID)
	}
	if gotPath != "/10086/messages" {
		t.Fatalf("路径不对: %s", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("鉴权头不对: %s", gotAuth)
	}
	if gotBody.MessagingProduct != "whatsapp" || gotBody.Type != "text" {
		t.Fatalf("Cloud API固定字段不对: %+v", gotBody)
	}
	if gotBody.To != "+14155550100" || gotBody.Text.Body != "AAPL 新预测" {
		t.Fatalf("收件人或正文不对: %+v", gotBody)
	}
}

func TestSendTextProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SendText(context.Background(), "+14155550100", "hi")
	if err == nil {
		t.Fatal("provider错误应返回error")
	}
}

func TestSendTextMissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SendText(context.Background(), "+14155550100", "hi")
	if err == nil {
		t.Fatal("没有message id应视为失败")
	}
}
