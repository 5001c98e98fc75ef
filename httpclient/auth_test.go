package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://orders.internal/v1/users", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestBasicAuth(t *testing.T) {
	req := newRequest(t)
	if err := BasicAuth("ada", "secret").apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}

	user, pass, ok := req.BasicAuth()
	if !ok || user != "ada" || pass != "secret" {
		t.Errorf("BasicAuth = %q/%q/%v", user, pass, ok)
	}
}

func TestAPIKeyAuthHeader(t *testing.T) {
	req := newRequest(t)
	if err := APIKeyAuth("key-123").apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.Header.Get("X-API-Key"); got != "key-123" {
		t.Errorf("X-API-Key = %q", got)
	}
}

func TestAPIKeyAuthQuery(t *testing.T) {
	req := newRequest(t)
	if err := APIKeyAuthQuery("key-123", "api_key").apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.URL.Query().Get("api_key"); got != "key-123" {
		t.Errorf("api_key = %q", got)
	}
}

func TestCustomAuth(t *testing.T) {
	req := newRequest(t)
	auth := CustomAuth(func(r *http.Request) {
		r.Header.Set("X-Signature", "sig")
	})
	if err := auth.apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := req.Header.Get("X-Signature"); got != "sig" {
		t.Errorf("X-Signature = %q", got)
	}
}

func TestNilAuthIsNoop(t *testing.T) {
	req := newRequest(t)
	var auth *AuthConfig
	if err := auth.apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(req.Header) != 0 {
		t.Errorf("headers = %v, want none", req.Header)
	}
}

func TestServiceTokenAuth(t *testing.T) {
	secret := []byte("shared-secret")
	auth := ServiceTokenAuth("orders", "billing", secret)

	req := newRequest(t)
	if err := auth.apply(req); err != nil {
		t.Fatalf("apply: %v", err)
	}

	raw := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		t.Fatalf("Authorization = %q", raw)
	}

	token, err := jwt.ParseWithClaims(raw[len(prefix):], &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("ParseWithClaims: %v", err)
	}

	claims := token.Claims.(*jwt.RegisteredClaims)
	if claims.Issuer != "orders" {
		t.Errorf("iss = %q, want orders", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "billing" {
		t.Errorf("aud = %v, want [billing]", claims.Audience)
	}
	if claims.ID == "" {
		t.Error("expected a jti claim")
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > time.Minute {
		t.Errorf("exp = %v, want at most 60s out", claims.ExpiresAt)
	}
}

func TestServiceTokenIsFreshPerRequest(t *testing.T) {
	auth := ServiceTokenAuth("orders", "billing", []byte("shared-secret"))

	first := newRequest(t)
	second := newRequest(t)
	if err := auth.apply(first); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := auth.apply(second); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Header.Get("Authorization") == second.Header.Get("Authorization") {
		t.Error("expected a distinct token per request")
	}
}

func TestServiceTokenAuthEndToEnd(t *testing.T) {
	secret := []byte("shared-secret")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := mustClient(t, Config{
		BaseURL: srv.URL,
		Auth:    ServiceTokenAuth("orders", "billing", secret),
	})

	if _, err := c.Get(context.Background(), "/"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth == "" {
		t.Fatal("expected Authorization header on outgoing request")
	}
	if _, err := jwt.Parse(gotAuth[len("Bearer "):], func(tok *jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		t.Errorf("server received unverifiable token: %v", err)
	}
}
