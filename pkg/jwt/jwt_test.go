package jwt

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"

	claims := BuildClaims(time.Now().Add(time.Hour), 42, false)
	token, err := GenToken(claims, secret)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseToken(token, secret)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.UserId != 42 {
		t.Fatalf("user_id = %d, want 42", parsed.UserId)
	}
	if parsed.IsBackend() {
		t.Fatal("普通用户token不应带后台身份")
	}

	if _, err := ParseToken(token, "wrong-secret"); err == nil {
		t.Fatal("错误密钥签发的token必须解析失败")
	}
}

func TestBackendClaims(t *testing.T) {
	claims := BuildClaims(time.Now().Add(time.Hour), 1, true)
	if claims.Sub != "backend" {
		t.Fatalf("sub = %s, want backend", claims.Sub)
	}

	token, err := GenToken(claims, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseToken(token, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.IsBackend() {
		t.Fatal("后台token解析后应保留后台身份")
	}
}

func TestParseExpiredToken(t *testing.T) {
	claims := BuildClaims(time.Now().Add(-time.Minute), 1, false)
	token, err := GenToken(claims, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(token, "test-secret"); err == nil {
		t.Fatal("过期token必须解析失败")
	}
}
