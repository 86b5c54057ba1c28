package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

// NavigateInput addresses a session for step navigation.
type NavigateInput struct {
	Session string `json:"session"`
	Actor
}

// AdvanceCommand wraps Wizard.Advance. A rejected step surfaces as a
// *wizard.ValidationError carrying the field errors.
type AdvanceCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewAdvanceCommand creates the command.
func NewAdvanceCommand(sessions Sessions, telemetry wizard.Telemetry) *AdvanceCommand {
	return &AdvanceCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[NavigateInput] = (*AdvanceCommand)(nil)

// Execute advances the session.
func (c *AdvanceCommand) Execute(ctx context.Context, msg NavigateInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	if _, err := w.Advance(msg.Actor.context(ctx)); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "wizard.command.advance", map[string]any{
		"session":      msg.Session,
		"current_step": w.CurrentStep(),
	})
	return nil
}

// RetreatCommand wraps Wizard.Retreat.
type RetreatCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewRetreatCommand creates the command.
func NewRetreatCommand(sessions Sessions, telemetry wizard.Telemetry) *RetreatCommand {
	return &RetreatCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[NavigateInput] = (*RetreatCommand)(nil)

// Execute moves the session back one step.
func (c *RetreatCommand) Execute(ctx context.Context, msg NavigateInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	step := w.Retreat(msg.Actor.context(ctx))
	c.telemetry.Record(ctx, "wizard.command.retreat", map[string]any{
		"session":      msg.Session,
		"current_step": step,
	})
	return nil
}

// ResetCommand wraps Wizard.Reset.
type ResetCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewResetCommand creates the command.
func NewResetCommand(sessions Sessions, telemetry wizard.Telemetry) *ResetCommand {
	return &ResetCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[NavigateInput] = (*ResetCommand)(nil)

// Execute resets the session.
func (c *ResetCommand) Execute(ctx context.Context, msg NavigateInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	w.Reset(msg.Actor.context(ctx))
	c.telemetry.Record(ctx, "wizard.command.reset", map[string]any{"session": msg.Session})
	return nil
}
