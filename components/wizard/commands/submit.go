package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

// SubmitInput finalizes a session. When Result is set it receives the
// submission.
type SubmitInput struct {
	Session string             `json:"session"`
	Result  *wizard.Submission `json:"-"`
	Actor
}

// SubmitCommand wraps Wizard.Finalize.
type SubmitCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewSubmitCommand creates the command.
func NewSubmitCommand(sessions Sessions, telemetry wizard.Telemetry) *SubmitCommand {
	return &SubmitCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SubmitInput] = (*SubmitCommand)(nil)

// Execute finalizes the wizard.
func (c *SubmitCommand) Execute(ctx context.Context, msg SubmitInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	submission, err := w.Finalize(msg.Actor.context(ctx))
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = submission
	}
	c.telemetry.Record(ctx, "wizard.command.submit", map[string]any{
		"session":     msg.Session,
		"attachments": len(submission.Attachments),
	})
	return nil
}
