package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firestocks/conf"
)

func newTestClient(srvURL string) *Client {
	return NewClient(conf.QuoteConfig{
		BaseURL: srvURL,
		ApiKey:  "k-test",
		Timeout: conf.Duration(2 * time.Second),
	})
}

func TestGetQuote(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"symbol":   r.URL.Query().Get("symbol"),
			"exchange": r.URL.Query().Get("exchange"),
			"token":    r.URL.Query().Get("token"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"c":189.45,"pc":187.2,"t":1756555800}`))
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).GetQuote(context.Background(), "AAPL", "NASDAQ")
	if err != nil {
		t.Fatal(err)
	}
	if q.Price != 189.45 || q.PrevClose != 187.2 {
		t.Fatalf("价格解析不对: %+v", q)
	}
	if q.Timestamp.Unix() != 1756555800 {
		t.Fatalf("时间戳不对: %v", q.Timestamp)
	}
	if gotQuery["symbol"] != "AAPL" || gotQuery["exchange"] != "NASDAQ" || gotQuery["token"] != "k-test" {
		t.Fatalf("查询参数不对: %v", gotQuery)
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 行情源对未知symbol返回c=0而不是4xx
		_, _ = w.Write([]byte(`{"c":0,"pc":0,"t":0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetQuote(context.Background(), "NOPE", "NASDAQ")
	if err == nil {
		t.Fatal("c=0应视为无数据")
	}
}

func TestGetQuoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetQuote(context.Background(), "AAPL", "NASDAQ")
	if err == nil {
		t.Fatal("5xx应返回error")
	}
}
