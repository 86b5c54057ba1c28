package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

// UpdateStepInput merges partial data into one step.
type UpdateStepInput struct {
	Session string         `json:"session"`
	Step    string         `json:"step"`
	Data    map[string]any `json:"data"`
	Actor
}

// UpdateStepCommand wraps Wizard.UpdateStepData.
type UpdateStepCommand struct {
	sessions  Sessions
	telemetry wizard.Telemetry
}

// NewUpdateStepCommand creates the command.
func NewUpdateStepCommand(sessions Sessions, telemetry wizard.Telemetry) *UpdateStepCommand {
	return &UpdateStepCommand{sessions: sessions, telemetry: wizard.NormalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateStepInput] = (*UpdateStepCommand)(nil)

// Execute resolves the step and merges the data.
func (c *UpdateStepCommand) Execute(ctx context.Context, msg UpdateStepInput) error {
	w, err := open(ctx, c.sessions, msg.Session)
	if err != nil {
		return err
	}
	step, err := wizard.ParseStepID(msg.Step)
	if err != nil {
		return err
	}
	if err := w.UpdateStepData(msg.Actor.context(ctx), step, msg.Data); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "wizard.command.update", map[string]any{
		"session": msg.Session,
		"step":    string(step),
		"fields":  len(msg.Data),
	})
	return nil
}
