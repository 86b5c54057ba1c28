// Package delivery forwards finalized wizard submissions to downstream
// services.
package delivery

import (
	"context"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
)

// Envelope is one finalized submission addressed to a downstream service.
type Envelope struct {
	SessionID   string
	SubmittedAt time.Time
	Submission  wizard.Submission
}

// Receipt is the acknowledgement returned by the downstream service.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client delivers submissions.
type Client interface {
	Deliver(ctx context.Context, envelope Envelope) (Receipt, error)
}
