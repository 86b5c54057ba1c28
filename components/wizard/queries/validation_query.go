package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

// ValidationInput selects the step to validate. An empty step validates the
// current one.
type ValidationInput struct {
	Session string `json:"session"`
	Step    string `json:"step"`
}

// ValidationQuery runs the step validator without changing state.
type ValidationQuery struct {
	sessions Sessions
}

// NewValidationQuery builds the query.
func NewValidationQuery(sessions Sessions) *ValidationQuery {
	return &ValidationQuery{sessions: sessions}
}

var _ gocommand.Querier[ValidationInput, wizard.ValidationResult] = (*ValidationQuery)(nil)

// Query validates the requested step.
func (q *ValidationQuery) Query(ctx context.Context, input ValidationInput) (wizard.ValidationResult, error) {
	if q.sessions == nil {
		return wizard.ValidationResult{}, errMissingSessions
	}
	w, err := q.sessions.Open(ctx, input.Session)
	if err != nil {
		return wizard.ValidationResult{}, err
	}
	var step wizard.StepID
	if input.Step == "" {
		current, ok := wizard.StepAt(w.CurrentStep())
		if !ok {
			return wizard.ValidationResult{}, wizard.ErrWizardComplete
		}
		step = current
	} else {
		step, err = wizard.ParseStepID(input.Step)
		if err != nil {
			return wizard.ValidationResult{}, err
		}
	}
	return w.Validate(ctx, step)
}
