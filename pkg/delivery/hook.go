package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/internal/logging"
)

// HookOptions configures the submission hook.
type HookOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Hook is a wizard.EventHook that delivers submissions when a session is
// finalized. Other events are ignored.
type Hook struct {
	client Client
	opts   HookOptions
}

// NewHook adapts client into an event hook.
func NewHook(client Client, opts HookOptions) *Hook {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Hook{client: client, opts: opts}
}

var _ wizard.EventHook = (*Hook)(nil)

// WizardUpdated implements wizard.EventHook.
func (h *Hook) WizardUpdated(ctx context.Context, event wizard.WizardEvent) error {
	if event.Reason != wizard.ReasonSubmit || event.Submission == nil || h.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()
	receipt, err := h.client.Deliver(ctx, Envelope{
		SessionID:   event.SessionID,
		SubmittedAt: h.opts.Now(),
		Submission:  *event.Submission,
	})
	if err != nil {
		return fmt.Errorf("delivery: session %s: %w", event.SessionID, err)
	}
	h.opts.Logger.Info("wizard submission delivered", "session", event.SessionID, "receipt", receipt.ID, "status", receipt.Status)
	return nil
}
