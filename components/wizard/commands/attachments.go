package commands

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

// AttachInput adds a file to a session. When Result is set it receives the
// (pending) attachment.
type AttachInput struct {
	Session      string             `json:"session"`
	Name         string             `json:"name"`
	MimeType     string             `json:"mime_type"`
	LastModified time.Time          `json:"last_modified"`
	Content      []byte             `json:"content"`
	Result       *wizard.Attachment `json:"-"`
	Actor
}

// AttachCommand wraps Wizard.AddAttachment.
type AttachCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewAttachCommand creates the command.
func NewAttachCommand(sessions Sessions, telemetry wizard.Telemetry) *AttachCommand {
	return &AttachCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AttachInput] = (*AttachCommand)(nil)

// Execute attaches the file.
func (c *AttachCommand) Execute(ctx context.Context, msg AttachInput) error {
	if msg.Name == "" {
		return errors.New("attach command requires file name")
	}
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	modified := msg.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}
	att, err := w.AddAttachment(msg.Actor.context(ctx), wizard.NewFile(msg.Name, msg.MimeType, modified, msg.Content))
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = att
	}
	c.telemetry.Record(ctx, "wizard.command.attach", map[string]any{
		"session":    msg.Session,
		"size_bytes": att.SizeBytes,
	})
	return nil
}

// DetachInput removes the attachment at Index.
type DetachInput struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
	Actor
}

// DetachCommand wraps Wizard.RemoveAttachment. Out of range indexes are a
// no-op, not an error.
type DetachCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewDetachCommand creates the command.
func NewDetachCommand(sessions Sessions, telemetry wizard.Telemetry) *DetachCommand {
	return &DetachCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DetachInput] = (*DetachCommand)(nil)

// Execute removes the attachment.
func (c *DetachCommand) Execute(ctx context.Context, msg DetachInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	removed := w.RemoveAttachment(msg.Actor.context(ctx), msg.Index)
	c.telemetry.Record(ctx, "wizard.command.detach", map[string]any{
		"session": msg.Session,
		"index":   msg.Index,
		"removed": removed,
	})
	return nil
}
