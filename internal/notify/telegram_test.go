package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTelegram_Send(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	n := NewTelegram(srv.URL, "TOKEN", time.Second)
	if err := n.Send(context.Background(), 42, "✅ Ваш заказ принят. Ожидайте приготовления."); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ChatID != 42 || !strings.HasPrefix(got.Text, "✅") {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestTelegram_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "TOKEN", time.Second).Send(context.Background(), 1, "hi")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("expected blocked error, got %v", err)
	}
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewTelegram(srv.URL, "SECRET-TOKEN", time.Second).Send(context.Background(), 1, "hi")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestTelegram_NotConfigured(t *testing.T) {
	if err := NewTelegram("", "", 0).Send(context.Background(), 1, "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
