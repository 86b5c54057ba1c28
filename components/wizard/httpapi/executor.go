package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/queries"
)

// Executor is the operation surface shared by the HTTP transports.
type Executor interface {
	UpdateStep(ctx context.Context, input commands.UpdateStepInput) error
	Advance(ctx context.Context, input commands.NavigateInput) error
	Retreat(ctx context.Context, input commands.NavigateInput) error
	Submit(ctx context.Context, input commands.SubmitInput) error
	Reset(ctx context.Context, input commands.NavigateInput) error
	Attach(ctx context.Context, input commands.AttachInput) error
	Detach(ctx context.Context, input commands.DetachInput) error
	State(ctx context.Context, input queries.SessionInput) (queries.View, error)
	Validate(ctx context.Context, input queries.ValidationInput) (wizard.ValidationResult, error)
}

// CommandExecutor implements Executor on go-command commanders and queriers.
type CommandExecutor struct {
	UpdateCommand   gocommand.Commander[commands.UpdateStepInput]
	AdvanceCommand  gocommand.Commander[commands.NavigateInput]
	RetreatCommand  gocommand.Commander[commands.NavigateInput]
	SubmitCommand   gocommand.Commander[commands.SubmitInput]
	ResetCommand    gocommand.Commander[commands.NavigateInput]
	AttachCommand   gocommand.Commander[commands.AttachInput]
	DetachCommand   gocommand.Commander[commands.DetachInput]
	StateQuery      gocommand.Querier[queries.SessionInput, queries.View]
	ValidationQuery gocommand.Querier[queries.ValidationInput, wizard.ValidationResult]
}

// NewExecutor wires every command and query against sessions.
func NewExecutor(sessions *wizard.Manager, telemetry wizard.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		UpdateCommand:   commands.NewUpdateStepCommand(sessions, telemetry),
		AdvanceCommand:  commands.NewAdvanceCommand(sessions, telemetry),
		RetreatCommand:  commands.NewRetreatCommand(sessions, telemetry),
		SubmitCommand:   commands.NewSubmitCommand(sessions, telemetry),
		ResetCommand:    commands.NewResetCommand(sessions, telemetry),
		AttachCommand:   commands.NewAttachCommand(sessions, telemetry),
		DetachCommand:   commands.NewDetachCommand(sessions, telemetry),
		StateQuery:      queries.NewStateQuery(sessions),
		ValidationQuery: queries.NewValidationQuery(sessions),
	}
}

var errNotConfigured = errors.New("httpapi: operation not configured")

func (e *CommandExecutor) UpdateStep(ctx context.Context, input commands.UpdateStepInput) error {
	if e.UpdateCommand == nil {
		return errNotConfigured
	}
	return e.UpdateCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Advance(ctx context.Context, input commands.NavigateInput) error {
	if e.AdvanceCommand == nil {
		return errNotConfigured
	}
	return e.AdvanceCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Retreat(ctx context.Context, input commands.NavigateInput) error {
	if e.RetreatCommand == nil {
		return errNotConfigured
	}
	return e.RetreatCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Submit(ctx context.Context, input commands.SubmitInput) error {
	if e.SubmitCommand == nil {
		return errNotConfigured
	}
	return e.SubmitCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Reset(ctx context.Context, input commands.NavigateInput) error {
	if e.ResetCommand == nil {
		return errNotConfigured
	}
	return e.ResetCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Attach(ctx context.Context, input commands.AttachInput) error {
	if e.AttachCommand == nil {
		return errNotConfigured
	}
	return e.AttachCommand.Execute(ctx, input)
}

func (e *CommandExecutor) Detach(ctx context.Context, input commands.DetachInput) error {
	if e.DetachCommand == nil {
		return errNotConfigured
	}
	return e.DetachCommand.Execute(ctx, input)
}

func (e *CommandExecutor) State(ctx context.Context, input queries.SessionInput) (queries.View, error) {
	if e.StateQuery == nil {
		return queries.View{}, errNotConfigured
	}
	return e.StateQuery.Query(ctx, input)
}

func (e *CommandExecutor) Validate(ctx context.Context, input queries.ValidationInput) (wizard.ValidationResult, error) {
	if e.ValidationQuery == nil {
		return wizard.ValidationResult{}, errNotConfigured
	}
	return e.ValidationQuery.Query(ctx, input)
}
