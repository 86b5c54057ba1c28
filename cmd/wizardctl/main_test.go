package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wizard/components/wizard"
)

func TestParseAssignments(t *testing.T) {
	data, err := parseAssignments([]string{
		"confirm-password=Passw0rd",
		"phone=09123456789",
		"newsletter=false",
		`language=["en","fr"]`,
		"age=42",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "Passw0rd", data["confirmPassword"])
	assert.Equal(t, "09123456789", data["phone"])
	assert.Equal(t, false, data["newsletter"])
	assert.Equal(t, []any{"en", "fr"}, data["language"])
	assert.Equal(t, "42", data["age"])

	raw, err := parseAssignments([]string{"terms=true"}, true)
	require.NoError(t, err)
	assert.Equal(t, "true", raw["terms"])

	_, err = parseAssignments([]string{"novalue"}, false)
	assert.Error(t, err)
}

func TestRenderYAMLUsesJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, "yaml", wizard.ValidationResult{Valid: true}))
	assert.Contains(t, buf.String(), "valid: true")

	buf.Reset()
	require.NoError(t, render(&buf, "json", wizard.ValidationResult{Valid: false, FieldErrors: map[string]string{"bio": "Bio is required"}}))
	assert.Contains(t, buf.String(), `"field_errors"`)
}

func TestSubmissionOutputMasksSecrets(t *testing.T) {
	out := newSubmissionOutput(wizard.Submission{Account: wizard.AccountRecord{Password: "Passw0rd"}}, false)
	assert.Equal(t, "********", out.Account.Password)
	assert.Equal(t, "", out.Account.ConfirmPassword)
}

func TestCommandsPersistAcrossInvocations(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	globals := func() *Globals {
		buf.Reset()
		return &Globals{Session: "cli", Store: "file", Dir: "/state", Output: "json", LogLevel: "error", stdout: &buf, fs: fs}
	}

	err := (&setCmd{Step: "1", Values: []string{
		"username=abc",
		"email=abc@example.com",
		"password=Passw0rd",
		"confirm-password=Passw0rd",
		"phone=09123456789",
		"website=https://example.com",
	}}).Run(ctx, globals())
	require.NoError(t, err)
	require.NoError(t, (&nextCmd{}).Run(ctx, globals()))

	err = (&nextCmd{}).Run(ctx, globals())
	require.Error(t, err)
	assert.ErrorIs(t, err, wizard.ErrStepInvalid)
	assert.Contains(t, err.Error(), "firstName:")

	require.NoError(t, afero.WriteFile(fs, "/uploads/cv.txt", []byte("resume"), 0o644))
	require.NoError(t, (&attachCmd{Paths: []string{"/uploads/cv.txt"}}).Run(ctx, globals()))

	g := globals()
	require.NoError(t, (&statusCmd{}).Run(ctx, g))
	var view struct {
		CurrentStep int `json:"current_step"`
		Attachments []struct {
			Name    string `json:"name"`
			Pending bool   `json:"pending"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	assert.Equal(t, 1, view.CurrentStep)
	require.Len(t, view.Attachments, 1)
	assert.Equal(t, "cv.txt", view.Attachments[0].Name)
	assert.False(t, view.Attachments[0].Pending)

	require.NoError(t, (&sessionsCmd{}).Run(ctx, globals()))
	assert.True(t, strings.Contains(buf.String(), `"cli"`))
}
