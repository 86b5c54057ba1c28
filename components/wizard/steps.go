package wizard

import (
	"fmt"
	"strconv"
)

// StepID identifies a wizard step.
type StepID string

// Known steps, in order.
const (
	StepAccount  StepID = "account"
	StepPersonal StepID = "personal"
	StepAdvanced StepID = "advanced"
)

// NumSteps is the number of steps; CurrentStep == NumSteps means complete.
const NumSteps = 3

// StepDefinition describes one step of the wizard.
type StepDefinition struct {
	ID          StepID `json:"id" yaml:"id"`
	Index       int    `json:"index" yaml:"index"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

var defaultSteps = []StepDefinition{
	{ID: StepAccount, Index: 0, Title: "Account Information", Description: "Enter your account details"},
	{ID: StepPersonal, Index: 1, Title: "Personal Information", Description: "Set up personal information"},
	{ID: StepAdvanced, Index: 2, Title: "Advanced Settings", Description: "Settings and additional files"},
}

// Steps returns the ordered step catalogue.
func Steps() []StepDefinition {
	return append([]StepDefinition{}, defaultSteps...)
}

// StepAt returns the step id for an index.
func StepAt(index int) (StepID, bool) {
	if index < 0 || index >= len(defaultSteps) {
		return "", false
	}
	return defaultSteps[index].ID, true
}

// IndexOf returns the index of a step id.
func IndexOf(id StepID) (int, bool) {
	for _, def := range defaultSteps {
		if def.ID == id {
			return def.Index, true
		}
	}
	return -1, false
}

// ParseStepID accepts a step id or its 1-based number ("1", "2", "3").
func ParseStepID(raw string) (StepID, error) {
	id := StepID(raw)
	if _, ok := IndexOf(id); ok {
		return id, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if step, ok := StepAt(n - 1); ok {
			return step, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, raw)
}
