package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
)

// HTTPConfig configures the HTTP delivery client.
type HTTPConfig struct {
	BaseURL    string
	Path       string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient posts submissions as JSON to a registration backend.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient builds a client for the configured endpoint. Path defaults
// to "/submissions".
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("delivery: base url is required")
	}
	path := cfg.Path
	if path == "" {
		path = "/submissions"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		apiKey:   cfg.APIKey,
		client:   httpClient,
	}, nil
}

// Deliver implements Client.
func (c *HTTPClient) Deliver(ctx context.Context, envelope Envelope) (Receipt, error) {
	var receipt Receipt
	if err := c.do(ctx, http.MethodPost, newSubmissionRequest(envelope), &receipt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

func (c *HTTPClient) do(ctx context.Context, method string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("delivery: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("delivery: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("delivery: decode response: %w", err)
	}
	return nil
}

type submissionRequest struct {
	SessionID   string                      `json:"session_id"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	Account     wizard.AccountRecord        `json:"account"`
	Personal    wizard.PersonalRecord       `json:"personal"`
	Advanced    wizard.AdvancedRecord       `json:"advanced"`
	Attachments []wizard.AttachmentMetadata `json:"attachments"`
}

func newSubmissionRequest(envelope Envelope) submissionRequest {
	account := envelope.Submission.Account
	account.ConfirmPassword = ""
	attachments := make([]wizard.AttachmentMetadata, 0, len(envelope.Submission.Attachments))
	for _, att := range envelope.Submission.Attachments {
		attachments = append(attachments, att.Metadata())
	}
	return submissionRequest{
		SessionID:   envelope.SessionID,
		SubmittedAt: envelope.SubmittedAt.UTC(),
		Account:     account,
		Personal:    envelope.Submission.Personal,
		Advanced:    envelope.Submission.Advanced,
		Attachments: attachments,
	}
}
