package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func TestCreateRejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBroadcastHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"缺bot_id", `{"title":"周报","recipient_type":"followers"}`},
		{"非法接收者口径", `{"bot_id":10,"title":"周报","recipient_type":"group_chat"}`},
	}

	for _, c := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest(http.MethodPost, "/api/broadcasts", strings.NewReader(c.body))
		ctx.Request.Header.Set("Content-Type", "application/json")

		h.Create()(ctx)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: http状态 = %d, want 400", c.name, w.Code)
		}
		var res response.ApiResponse
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if res.Code != ecode.ValidateErr {
			t.Fatalf("%s: code = %d, want %d", c.name, res.Code, ecode.ValidateErr)
		}
	}
}
