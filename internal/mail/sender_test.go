package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendGridSend(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewSendGrid("sg-key", "noreply@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}

	err = sender.Send(context.Background(), "user@example.com", "Your password reset code",
		"Your password reset code is: 123456",
		"<p>Your password reset code is: <b>123456</b></p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if auth != "Bearer sg-key" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
	if got.From.Email != "noreply@example.com" {
		t.Fatalf("unexpected from: %v", got.From)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "user@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.Personalizations)
	}
	if len(got.Content) != 2 || got.Content[0].Type != "text/plain" || got.Content[1].Type != "text/html" {
		t.Fatalf("unexpected content: %+v", got.Content)
	}
}

func TestSendGridSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender, err := NewSendGrid("bad-key", "noreply@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}
	if err := sender.Send(context.Background(), "user@example.com", "subject", "text", ""); err == nil {
		t.Fatal("expected error for rejected delivery")
	}
}

func TestSendGridRequiresConfig(t *testing.T) {
	if _, err := NewSendGrid("", "noreply@example.com"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewSendGrid("key", ""); err == nil {
		t.Fatal("expected error for missing sender address")
	}
}
