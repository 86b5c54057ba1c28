package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
)

func TestHTTPClientDeliver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/submissions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected auth header, got %s", got)
		}
		var req submissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SessionID != "s1" || req.Account.Username != "abc" {
			t.Errorf("unexpected request %#v", req)
		}
		if req.Account.ConfirmPassword != "" {
			t.Errorf("expected confirm password to be stripped")
		}
		if len(req.Attachments) != 1 || req.Attachments[0].EncodedPayload == "" {
			t.Errorf("expected encoded attachment, got %#v", req.Attachments)
		}
		_ = json.NewEncoder(w).Encode(Receipt{ID: "r-1", Status: "accepted"})
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", Path: "/v1/submissions", APIKey: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	payload := []byte("resume")
	receipt, err := client.Deliver(context.Background(), Envelope{
		SessionID:   "s1",
		SubmittedAt: time.Now(),
		Submission: wizard.Submission{
			Account: wizard.AccountRecord{Username: "abc", Password: "Passw0rd", ConfirmPassword: "Passw0rd"},
			Attachments: []wizard.Attachment{{
				Name:           "cv.txt",
				SizeBytes:      int64(len(payload)),
				MimeType:       "text/plain",
				EncodedPayload: wizard.EncodeDataURL("text/plain", payload),
			}},
		},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if receipt.ID != "r-1" {
		t.Fatalf("unexpected receipt %#v", receipt)
	}
}

func TestHTTPClientRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Deliver(context.Background(), Envelope{SessionID: "s1"}); err == nil {
		t.Fatalf("expected remote error")
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
