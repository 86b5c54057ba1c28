package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/queries"
)

type statusCmd struct{}

func (cmd *statusCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		return g.printState(ctx, e)
	})
}

type setCmd struct {
	Step   string   `arg:"" help:"Step id (account, personal, advanced) or 1-based number."`
	Values []string `arg:"" optional:"" help:"key=value pairs. Keys are camel cased; values are parsed as JSON when possible."`
	Raw    bool     `help:"Store every value as a plain string."`
}

func (cmd *setCmd) Run(ctx context.Context, g *Globals) error {
	data, err := parseAssignments(cmd.Values, cmd.Raw)
	if err != nil {
		return err
	}
	return g.withEnv(func(e *env) error {
		err := e.api.UpdateStep(ctx, commands.UpdateStepInput{Session: g.Session, Step: cmd.Step, Data: data})
		if err != nil {
			return err
		}
		return g.printState(ctx, e)
	})
}

type validateCmd struct {
	Step string `arg:"" optional:"" help:"Step to validate (defaults to the current step)."`
}

func (cmd *validateCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		result, err := e.api.Validate(ctx, queries.ValidationInput{Session: g.Session, Step: cmd.Step})
		if err != nil {
			return err
		}
		return g.print(result)
	})
}

type nextCmd struct{}

func (cmd *nextCmd) Run(ctx context.Context, g *Globals) error {
	return g.navigate(ctx, func(e *env, input commands.NavigateInput) error {
		return e.api.Advance(ctx, input)
	})
}

type backCmd struct{}

func (cmd *backCmd) Run(ctx context.Context, g *Globals) error {
	return g.navigate(ctx, func(e *env, input commands.NavigateInput) error {
		return e.api.Retreat(ctx, input)
	})
}

type resetCmd struct{}

func (cmd *resetCmd) Run(ctx context.Context, g *Globals) error {
	return g.navigate(ctx, func(e *env, input commands.NavigateInput) error {
		return e.api.Reset(ctx, input)
	})
}

type attachCmd struct {
	Paths []string `arg:"" type:"path" help:"Files to attach."`
}

func (cmd *attachCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		for _, path := range cmd.Paths {
			file, err := wizard.ReadFile(g.filesystem(), path)
			if err != nil {
				return err
			}
			err = e.api.Attach(ctx, commands.AttachInput{
				Session:      g.Session,
				Name:         file.Name,
				MimeType:     file.MimeType,
				LastModified: file.LastModified,
				Content:      file.Bytes(),
			})
			if err != nil {
				return err
			}
		}
		e.manager.Wait()
		return g.printState(ctx, e)
	})
}

type detachCmd struct {
	Index int `arg:"" help:"Zero-based attachment index."`
}

func (cmd *detachCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		if err := e.api.Detach(ctx, commands.DetachInput{Session: g.Session, Index: cmd.Index}); err != nil {
			return err
		}
		return g.printState(ctx, e)
	})
}

type submitCmd struct {
	ShowSecrets bool `name:"show-secrets" help:"Print passwords instead of masking them."`
}

func (cmd *submitCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		var submission wizard.Submission
		if err := e.api.Submit(ctx, commands.SubmitInput{Session: g.Session, Result: &submission}); err != nil {
			return describeError(err)
		}
		return g.print(newSubmissionOutput(submission, cmd.ShowSecrets))
	})
}

type sessionsCmd struct{}

func (cmd *sessionsCmd) Run(ctx context.Context, g *Globals) error {
	return g.withEnv(func(e *env) error {
		sessions, err := queries.NewSessionsQuery(e.manager).Query(ctx, queries.ListSessionsInput{})
		if err != nil {
			return err
		}
		return g.print(sessions)
	})
}

func (g *Globals) withEnv(fn func(*env) error) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	runErr := fn(e)
	if err := e.close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("wizardctl: close store: %w", err)
	}
	return runErr
}

func (g *Globals) navigate(ctx context.Context, op func(*env, commands.NavigateInput) error) error {
	return g.withEnv(func(e *env) error {
		if err := op(e, commands.NavigateInput{Session: g.Session}); err != nil {
			return describeError(err)
		}
		return g.printState(ctx, e)
	})
}

func (g *Globals) printState(ctx context.Context, e *env) error {
	view, err := e.api.State(ctx, queries.SessionInput{Session: g.Session})
	if err != nil {
		return err
	}
	return g.print(view)
}

// describeError expands validation failures into one line per field.
func describeError(err error) error {
	fields := wizard.FieldErrorsOf(err)
	if len(fields) == 0 {
		return err
	}
	lines := make([]string, 0, len(fields))
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		lines = append(lines, fmt.Sprintf("  %s: %s", field, fields[field]))
	}
	return fmt.Errorf("%w\n%s", err, strings.Join(lines, "\n"))
}

// parseAssignments turns key=value pairs into step data.
func parseAssignments(values []string, raw bool) (map[string]any, error) {
	data := make(map[string]any, len(values))
	for _, pair := range values {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("wizardctl: expected key=value, got %q", pair)
		}
		data[strcase.ToCamel(key)] = parseValue(value, raw)
	}
	return data, nil
}

func parseValue(value string, raw bool) any {
	if raw {
		return value
	}
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return value
	}
	// no step field is numeric
	if _, number := decoded.(float64); number {
		return value
	}
	return decoded
}

type submissionOutput struct {
	Account     wizard.AccountRecord  `json:"account"`
	Personal    wizard.PersonalRecord `json:"personal"`
	Advanced    wizard.AdvancedRecord `json:"advanced"`
	Attachments []attachmentOutput    `json:"attachments"`
}

type attachmentOutput struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

func newSubmissionOutput(submission wizard.Submission, showSecrets bool) submissionOutput {
	account := submission.Account
	if !showSecrets {
		account.Password = mask(account.Password)
		account.ConfirmPassword = mask(account.ConfirmPassword)
	}
	out := submissionOutput{
		Account:     account,
		Personal:    submission.Personal,
		Advanced:    submission.Advanced,
		Attachments: make([]attachmentOutput, len(submission.Attachments)),
	}
	for i, att := range submission.Attachments {
		out.Attachments[i] = attachmentOutput{Name: att.Name, SizeBytes: att.SizeBytes, MimeType: att.MimeType}
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
