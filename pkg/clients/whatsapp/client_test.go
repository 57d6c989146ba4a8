package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nicefood/prodtrack/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL + "/", APIVersion: "v20.0"}, nil)
	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "8801700000000", Body: "daily report"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.1" {
		t.Fatalf("resp = %+v", resp)
	}
	if gotPath != "/v20.0/123/messages" || gotAuth != "Bearer tok" {
		t.Fatalf("path = %q auth = %q", gotPath, gotAuth)
	}
	if gotBody["to"] != "8801700000000" || gotBody["type"] != "text" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid recipient","code":131030}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"}, nil)
	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "1", Body: "x"})
	if err == nil || !strings.Contains(err.Error(), "code=131030") || !strings.Contains(err.Error(), "Invalid recipient") {
		t.Fatalf("err = %v", err)
	}

	if _, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{Body: "x"}); err == nil {
		t.Fatal("expected missing recipient error")
	}
}
