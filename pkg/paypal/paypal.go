package paypal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"firestocks/conf"

	"github.com/goccy/go-json"

	"github.com/go-resty/resty/v2"
)

// PayPal REST 客户端：OAuth token缓存、webhook验签、订阅退订
// 本地记录才是权威，provider调用失败只记日志（见 BillingService）

// VerifyHeaders PayPal回调必须携带的传输头
type VerifyHeaders struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	TransmissionSig  string
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type verifyReq struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResp struct {
	VerificationStatus string `json:"verification_status"`
}

type Client struct {
	http      *resty.Client
	clientID  string
	secret    string
	webhookID string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg conf.PayPalConfig) *Client {
	return &Client{
		http:      resty.New().SetBaseURL(cfg.ApiBase),
		clientID:  cfg.ClientID,
		secret:    cfg.Secret,
		webhookID: cfg.WebhookID,
	}
}

// ensureToken client_credentials换token，带过期缓存
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	var out tokenResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.secret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&out).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("paypal oauth failed: %w", err)
	}
	if resp.IsError() || out.AccessToken == "" {
		return "", fmt.Errorf("paypal oauth returned status %d", resp.StatusCode())
	}
	c.token = out.AccessToken
	// 提前60秒过期，避免边界上用到失效token
	c.tokenExp = time.Now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return c.token, nil
}

// VerifyWebhookSignature 调用verify-webhook-signature接口校验回调真伪
func (c *Client) VerifyWebhookSignature(ctx context.Context, h VerifyHeaders, rawEvent []byte) (bool, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return false, err
	}
	var out verifyResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(verifyReq{
			AuthAlgo:         h.AuthAlgo,
			CertURL:          h.CertURL,
			TransmissionID:   h.TransmissionID,
			TransmissionSig:  h.TransmissionSig,
			TransmissionTime: h.TransmissionTime,
			WebhookID:        c.webhookID,
			WebhookEvent:     rawEvent,
		}).
		SetResult(&out).
		Post("/v1/notifications/verify-webhook-signature")
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("paypal verify returned status %d", resp.StatusCode())
	}
	return out.VerificationStatus == "SUCCESS", nil
}

// CancelSubscription 取消订阅，204视为成功
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"reason": reason}).
		Post(fmt.Sprintf("/v1/billing/subscriptions/%s/cancel", subscriptionID))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusNoContent && resp.IsError() {
		return fmt.Errorf("paypal cancel subscription returned status %d", resp.StatusCode())
	}
	return nil
}
