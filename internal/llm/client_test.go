package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "test-model" || req.MaxTokens != 42 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Dust "},{"type":"text","text":"settles."}],"usage":{"input_tokens":10,"output_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithModel("test-model"))
	got, err := c.Send(context.Background(), "sys", "user", 42)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "Dust settles." {
		t.Fatalf("text = %q", got)
	}
}

func TestClientErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrAuth},
		{"forbidden", http.StatusForbidden, `{}`, ErrAuth},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"server error", http.StatusBadGateway, `{}`, ErrNetwork},
		{"bad request", http.StatusBadRequest, `{"error":"nope"}`, ErrMalformed},
		{"not json", http.StatusOK, `<html>`, ErrMalformed},
		{"empty content", http.StatusOK, `{"content":[]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).Send(context.Background(), "", "u", 10)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient("k", WithBaseURL(srv.URL)).Send(ctx, "", "u", 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("")
	if c.Enabled() {
		t.Fatal("client without key is enabled")
	}
	if _, err := c.Send(context.Background(), "", "", 1); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
