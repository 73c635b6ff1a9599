package apns

import (
	"crypto/tls"
	"net/http"

	"firestocks/conf"
	"firestocks/pkg/logger"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"golang.org/x/net/http2"
)

type PushMessage struct {
	Category  string                 `json:"category,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	ExtParams map[string]interface{} `json:"ext_params,omitempty"`
}

type PushResponse struct {
	ApnsID string
	Reason string
}

// 基于token鉴权的APNs推送，预测到价/止损时推给作者的iOS设备
type Apns struct {
	cfg    *conf.Apns
	client *apns2.Client
}

func NewTokenApns() *Apns {
	cfg := &conf.AppConfig.Apns
	// 密钥是在apple dev官网 - 用户与访问权限中创建的p8文件
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		logger.Fatalf("failed to create APNS auth key: %v", err)
	}

	host := apns2.HostDevelopment
	if cfg.IsProd {
		host = apns2.HostProduction
	}

	return &Apns{
		cfg,
		&apns2.Client{
			Token: &token.Token{
				AuthKey: authKey,
				KeyID:   cfg.KeyID,
				TeamID:  cfg.TeamID,
			},
			HTTPClient: &http.Client{
				Transport: &http2.Transport{
					DialTLS:         apns2.DialTLS,
					TLSClientConfig: &tls.Config{},
				},
				Timeout: apns2.HTTPClientTimeout,
			},
			Host: host,
		},
	}
}

// Push 给单个设备推送，失败返回apns的Reason
func (a *Apns) Push(deviceToken string, msg PushMessage) (*PushResponse, error) {
	pl := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body)
	if msg.Sound != "" {
		pl = pl.Sound(msg.Sound)
	}
	if msg.Category != "" {
		pl = pl.Category(msg.Category)
	}
	for k, v := range msg.ExtParams {
		pl = pl.Custom(k, v)
	}

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.cfg.Topic,
		Payload:     pl,
	}
	res, err := a.client.Push(n)
	if err != nil {
		return nil, err
	}
	out := &PushResponse{ApnsID: res.ApnsID, Reason: res.Reason}
	if !res.Sent() {
		logger.Warnf("apns push rejected: token=%s reason=%s", deviceToken, res.Reason)
	}
	return out, nil
}
