package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-wizard/internal/logging"
	"github.com/goliatone/go-wizard/pkg/activity"
)

var errNilFile = errors.New("wizard: attachment file is required")

// ValidationError reports a rejected transition together with the failing
// step result. It matches ErrStepInvalid with errors.Is.
type ValidationError struct {
	Step   StepID
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%d field errors)", ErrStepInvalid.Error(), e.Step, len(e.Result.FieldErrors))
}

// Unwrap returns ErrStepInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrStepInvalid
}

// FieldErrorsOf returns the field errors carried by a ValidationError in
// err's chain, or nil.
func FieldErrorsOf(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Result.FieldErrors
	}
	return nil
}

// Options configures a Wizard. Every collaborator is optional.
type Options struct {
	Validator       StepValidator
	Translator      TranslationService
	Store           SnapshotStore
	StorageKey      string
	SessionID       string
	EventHook       EventHook
	Telemetry       Telemetry
	Logger          *slog.Logger
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	ResetOnFinalize bool
}

// Wizard is the multi-step form state machine. All state changes are
// serialized; every mutation is persisted before the call returns.
type Wizard struct {
	mu          sync.Mutex
	opts        Options
	currentStep int
	stepData    map[StepID]map[string]any
	attachments *AttachmentStore
	persistence *PersistenceAdapter
	activity    *activity.Emitter
	logger      *slog.Logger
}

// New builds a wizard and restores any snapshot found in the store.
func New(ctx context.Context, opts Options) *Wizard {
	if opts.Validator == nil {
		opts.Validator = NewRuleValidator(opts.Translator)
	}
	if opts.EventHook == nil {
		opts.EventHook = noopEventHook{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.StorageKey == "" {
		opts.StorageKey = StorageKeyFor(opts.SessionID)
	}
	opts.Telemetry = NormalizeTelemetry(opts.Telemetry)

	w := &Wizard{
		opts:        opts,
		stepData:    emptyStepData(),
		attachments: NewAttachmentStore(),
		persistence: NewPersistenceAdapter(opts.Store, opts.StorageKey, opts.Logger),
		activity:    activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
		logger:      opts.Logger.With("session", opts.SessionID),
	}
	w.attachments.OnEncoded(w.attachmentEncoded)
	w.restore(ctx)
	return w
}

// StorageKeyFor returns the snapshot key of a session.
func StorageKeyFor(sessionID string) string {
	if sessionID == "" {
		return DefaultStorageKey
	}
	return DefaultStorageKey + ":" + sessionID
}

func (w *Wizard) restore(ctx context.Context) {
	state, ok := w.persistence.Load(ctx, w.attachments)
	if !ok {
		return
	}
	w.mu.Lock()
	w.currentStep = clampStep(state.CurrentStep)
	for id, data := range state.StepData {
		w.stepData[id] = cloneRecord(data)
	}
	w.mu.Unlock()
	w.logger.Debug("wizard restored", "step", state.CurrentStep, "attachments", len(state.Attachments))
	stepID, _ := StepAt(state.CurrentStep)
	w.emit(ctx, WizardEvent{Reason: ReasonRestore, Step: state.CurrentStep, StepID: stepID}, map[string]any{
		"attachments": len(state.Attachments),
	})
}

// SessionID returns the configured session id.
func (w *Wizard) SessionID() string {
	return w.opts.SessionID
}

// StorageKey returns the snapshot key.
func (w *Wizard) StorageKey() string {
	return w.persistence.Key()
}

// State returns a detached copy of the current state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// CurrentStep returns the current step index.
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentStep
}

// Complete reports whether the wizard was finalized.
func (w *Wizard) Complete() bool {
	return w.CurrentStep() >= NumSteps
}

// Attachments exposes the attachment store.
func (w *Wizard) Attachments() *AttachmentStore {
	return w.attachments
}

// Wait blocks until pending attachment encodes finished and were persisted.
func (w *Wizard) Wait() {
	w.attachments.Wait()
}

// Validate runs the validator for step against the current data.
func (w *Wizard) Validate(ctx context.Context, step StepID) (ValidationResult, error) {
	if _, ok := IndexOf(step); !ok {
		return ValidationResult{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked(ctx, step), nil
}

// UpdateStepData shallow-merges partial into the data of step.
func (w *Wizard) UpdateStepData(ctx context.Context, step StepID, partial map[string]any) error {
	if _, ok := IndexOf(step); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	w.mu.Lock()
	existing := w.stepData[step]
	merged := make(map[string]any, len(existing)+len(partial))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = cloneValue(v)
	}
	w.stepData[step] = merged
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonUpdate, Step: current, StepID: step}, map[string]any{
		"fields": len(partial),
	})
	return nil
}

// Advance moves to the next step when the current step validates. On
// failure the state is unchanged and the error wraps ErrStepInvalid. The last
// step is left through Finalize only, so Advance there returns ErrFinalStep.
func (w *Wizard) Advance(ctx context.Context) (ValidationResult, error) {
	w.mu.Lock()
	if w.currentStep >= NumSteps {
		w.mu.Unlock()
		return ValidationResult{Valid: true, FieldErrors: map[string]string{}}, ErrWizardComplete
	}
	if w.currentStep == NumSteps-1 {
		w.mu.Unlock()
		return ValidationResult{Valid: true, FieldErrors: map[string]string{}}, ErrFinalStep
	}
	step, _ := StepAt(w.currentStep)
	result := w.validateLocked(ctx, step)
	if !result.Valid {
		w.mu.Unlock()
		w.recordTelemetry(ctx, "wizard.step.invalid", map[string]any{
			"session": w.opts.SessionID,
			"step":    string(step),
			"errors":  len(result.FieldErrors),
		})
		return result, &ValidationError{Step: step, Result: result}
	}
	w.currentStep++
	w.persistLocked(ctx)
	next := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonAdvance, Step: next, StepID: step}, nil)
	return result, nil
}

// Retreat moves back one step without validating. It stays at 0.
func (w *Wizard) Retreat(ctx context.Context) int {
	w.mu.Lock()
	if w.currentStep > 0 {
		w.currentStep--
	}
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	stepID, _ := StepAt(current)
	w.emit(ctx, WizardEvent{Reason: ReasonRetreat, Step: current, StepID: stepID}, nil)
	return current
}

// Finalize assembles the submission from the final step. Every step is
// validated again; the first failing one is reported.
func (w *Wizard) Finalize(ctx context.Context) (Submission, error) {
	w.attachments.Wait()

	w.mu.Lock()
	if w.currentStep != NumSteps-1 {
		step := w.currentStep
		w.mu.Unlock()
		return Submission{}, fmt.Errorf("%w: current step is %d", ErrNotFinalStep, step)
	}
	for _, def := range defaultSteps {
		result := w.validateLocked(ctx, def.ID)
		if !result.Valid {
			w.mu.Unlock()
			return Submission{}, &ValidationError{Step: def.ID, Result: result}
		}
	}
	submission := Submission{
		Account:     DecodeAccount(w.stepData[StepAccount]),
		Personal:    DecodePersonal(w.stepData[StepPersonal]),
		Advanced:    DecodeAdvanced(w.advancedDataLocked()),
		Attachments: w.attachments.List(),
	}
	if w.opts.ResetOnFinalize {
		w.resetLocked()
	} else {
		w.currentStep = NumSteps
	}
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonSubmit, Step: current, StepID: StepAdvanced, Submission: &submission}, map[string]any{
		"attachments": len(submission.Attachments),
	})
	return submission, nil
}

// Reset returns to the first step and discards all data and attachments.
func (w *Wizard) Reset(ctx context.Context) {
	w.mu.Lock()
	w.resetLocked()
	w.persistLocked(ctx)
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonReset, Step: 0, StepID: StepAccount}, nil)
}

// AddAttachment appends file. The attachment is persisted once its payload
// has been encoded.
func (w *Wizard) AddAttachment(ctx context.Context, file *File) (Attachment, error) {
	if file == nil {
		return Attachment{}, errNilFile
	}
	w.mu.Lock()
	att := w.attachments.Add(file)
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonAttach, Step: current, StepID: StepAdvanced}, map[string]any{
		"name":       att.Name,
		"size_bytes": att.SizeBytes,
	})
	return att, nil
}

// RemoveAttachment removes the attachment at index. Out of range indexes
// leave the wizard untouched and return false.
func (w *Wizard) RemoveAttachment(ctx context.Context, index int) bool {
	w.mu.Lock()
	if !w.attachments.RemoveAt(index) {
		w.mu.Unlock()
		return false
	}
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonDetach, Step: current, StepID: StepAdvanced}, map[string]any{
		"index": index,
	})
	return true
}

func (w *Wizard) attachmentEncoded(att Attachment) {
	ctx := context.Background()
	w.mu.Lock()
	w.persistLocked(ctx)
	current := w.currentStep
	w.mu.Unlock()

	w.emit(ctx, WizardEvent{Reason: ReasonEncoded, Step: current, StepID: StepAdvanced}, map[string]any{
		"name": att.Name,
	})
}

func (w *Wizard) resetLocked() {
	w.currentStep = 0
	w.stepData = emptyStepData()
	w.attachments.Clear()
}

func (w *Wizard) validateLocked(ctx context.Context, step StepID) ValidationResult {
	data := w.stepData[step]
	if step == StepAdvanced {
		data = w.advancedDataLocked()
	}
	result := w.opts.Validator.Validate(ctx, step, data)
	if result.FieldErrors == nil {
		result.FieldErrors = map[string]string{}
	}
	return result
}

// advancedDataLocked overlays the attachment names as the files field.
func (w *Wizard) advancedDataLocked() map[string]any {
	data := make(map[string]any, len(w.stepData[StepAdvanced])+1)
	for k, v := range w.stepData[StepAdvanced] {
		data[k] = v
	}
	data["files"] = w.attachments.Names()
	return data
}

func (w *Wizard) stateLocked() State {
	data := make(map[StepID]map[string]any, len(w.stepData))
	for id, record := range w.stepData {
		data[id] = cloneRecord(record)
	}
	return State{
		CurrentStep: w.currentStep,
		StepData:    data,
		Attachments: w.attachments.List(),
	}
}

func (w *Wizard) persistLocked(ctx context.Context) {
	if err := w.persistence.Save(ctx, w.stateLocked()); err != nil {
		w.logger.Warn("wizard snapshot not saved", "error", err)
		w.recordTelemetry(ctx, "wizard.persist.error", map[string]any{
			"session": w.opts.SessionID,
			"error":   err.Error(),
		})
	}
}

func (w *Wizard) emit(ctx context.Context, event WizardEvent, meta map[string]any) {
	event.SessionID = w.opts.SessionID
	if err := w.opts.EventHook.WizardUpdated(ctx, event); err != nil {
		w.logger.Warn("wizard event hook failed", "reason", event.Reason, "error", err)
	}
	payload := map[string]any{
		"session":      event.SessionID,
		"current_step": event.Step,
		"step_id":      string(event.StepID),
	}
	for k, v := range meta {
		payload[k] = v
	}
	w.recordTelemetry(ctx, "wizard."+event.Reason, payload)
	w.emitActivity(ctx, event, payload)
}

func (w *Wizard) emitActivity(ctx context.Context, event WizardEvent, payload map[string]any) {
	if !w.activity.Enabled() {
		return
	}
	actor := activityContextFrom(ctx)
	objectID := event.SessionID
	if objectID == "" {
		objectID = w.persistence.Key()
	}
	err := w.activity.Emit(ctx, activity.Event{
		Verb:       activityVerb(event.Reason),
		ActorID:    actor.ActorID,
		UserID:     actor.UserID,
		TenantID:   actor.TenantID,
		ObjectType: "wizard_session",
		ObjectID:   objectID,
		Metadata:   payload,
	})
	if err != nil {
		w.logger.Warn("wizard activity hook failed", "reason", event.Reason, "error", err)
	}
}

func activityVerb(reason string) string {
	switch reason {
	case ReasonSubmit, ReasonReset, ReasonRestore:
		return "wizard." + reason
	case ReasonAttach:
		return "wizard.attachment.add"
	case ReasonDetach:
		return "wizard.attachment.remove"
	case ReasonEncoded:
		return "wizard.attachment.encoded"
	default:
		return "wizard.step." + reason
	}
}

func (w *Wizard) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	w.opts.Telemetry.Record(ctx, event, payload)
}

func emptyStepData() map[StepID]map[string]any {
	data := make(map[StepID]map[string]any, NumSteps)
	for _, def := range defaultSteps {
		data[def.ID] = map[string]any{}
	}
	return data
}

func clampStep(step int) int {
	if step < 0 {
		return 0
	}
	if step > NumSteps {
		return NumSteps
	}
	return step
}

func cloneRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneRecord(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}
