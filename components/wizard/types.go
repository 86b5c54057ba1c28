package wizard

import (
	"context"
	"errors"
)

// DefaultStorageKey is the snapshot key used when no session is involved.
const DefaultStorageKey = "multi-step-form-storage"

var (
	// ErrStepInvalid is returned when a transition is rejected because the
	// current step does not validate.
	ErrStepInvalid = errors.New("wizard: step data is invalid")
	// ErrUnknownStep is returned for step ids outside the catalogue.
	ErrUnknownStep = errors.New("wizard: unknown step")
	// ErrNotFinalStep is returned when Finalize is called before the last step.
	ErrNotFinalStep = errors.New("wizard: finalize requires the final step")
	// ErrFinalStep is returned when advancing from the last step, which only
	// Finalize may complete.
	ErrFinalStep = errors.New("wizard: the final step completes through finalize")
	// ErrWizardComplete is returned when advancing a completed wizard.
	ErrWizardComplete = errors.New("wizard: wizard already complete")
	// ErrSnapshotNotFound is returned by snapshot stores for missing keys.
	ErrSnapshotNotFound = errors.New("wizard: snapshot not found")
	// ErrSessionRequired is returned when a session id is blank.
	ErrSessionRequired = errors.New("wizard: session id is required")
)

// SnapshotStore persists raw snapshot payloads under a key. Implementations
// must be safe for concurrent use.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// StepValidator validates partial step data.
type StepValidator interface {
	Validate(ctx context.Context, step StepID, data map[string]any) ValidationResult
}

// EventHook notifies transports about wizard transitions.
type EventHook interface {
	WizardUpdated(ctx context.Context, event WizardEvent) error
}

// EventHookFunc adapts a function into an EventHook.
type EventHookFunc func(ctx context.Context, event WizardEvent) error

// WizardUpdated calls f.
func (f EventHookFunc) WizardUpdated(ctx context.Context, event WizardEvent) error {
	return f(ctx, event)
}

// Event reasons emitted by the wizard.
const (
	ReasonUpdate  = "update"
	ReasonAdvance = "advance"
	ReasonRetreat = "retreat"
	ReasonSubmit  = "submit"
	ReasonReset   = "reset"
	ReasonAttach  = "attach"
	ReasonDetach  = "detach"
	ReasonEncoded = "encoded"
	ReasonRestore = "restore"
)

// WizardEvent describes a state change that transports might care about.
type WizardEvent struct {
	SessionID  string      `json:"session_id,omitempty"`
	Reason     string      `json:"reason"`
	Step       int         `json:"current_step"`
	StepID     StepID      `json:"step_id,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
}

// Redacted returns a copy of the event without the submission, suitable for
// subscribers outside the process.
func (e WizardEvent) Redacted() WizardEvent {
	e.Submission = nil
	return e
}

// ValidationResult is the outcome of validating one step.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"field_errors"`
}

// State is a detached copy of the wizard state.
type State struct {
	CurrentStep int                       `json:"current_step"`
	StepData    map[StepID]map[string]any `json:"step_data"`
	Attachments []Attachment              `json:"attachments"`
}

// Complete reports whether the state is the terminal completed state.
func (s State) Complete() bool {
	return s.CurrentStep >= NumSteps
}

// Submission is the combined output produced by Finalize.
type Submission struct {
	Account     AccountRecord  `json:"account"`
	Personal    PersonalRecord `json:"personal"`
	Advanced    AdvancedRecord `json:"advanced"`
	Attachments []Attachment   `json:"attachments"`
}

type noopEventHook struct{}

func (noopEventHook) WizardUpdated(context.Context, WizardEvent) error { return nil }

// SnapshotLister is implemented by stores that can enumerate their keys.
type SnapshotLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}
