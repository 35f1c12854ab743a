package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"review_sentiment/internal/adapters/llm"
)

func TestNew_NoToken(t *testing.T) {
	c, err := llm.New(llm.Config{})
	if err != nil || c != nil {
		t.Fatalf("want nil client without token, got %v, %v", c, err)
	}
}

func TestComplete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  {\"sentiment\":\"Positive\"}  "}}]}`))
	}))
	defer ts.Close()

	c, err := llm.New(llm.Config{Token: "tok", Endpoint: ts.URL, Model: "m1", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := c.Complete(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"sentiment":"Positive"}` {
		t.Fatalf("content = %q", out)
	}
	if got.Model != "m1" || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "usr" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestComplete_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	}))
	defer ts.Close()

	c, _ := llm.New(llm.Config{Token: "tok", Endpoint: ts.URL, Timeout: time.Second})
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error on 500")
	}
}
