package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/queries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier[T any, R any] struct {
	last   T
	result R
	err    error
}

func (s *stubQuerier[T, R]) Query(ctx context.Context, msg T) (R, error) {
	s.last = msg
	return s.result, s.err
}

func TestHandleUpdateStepPropagatesInput(t *testing.T) {
	update := &stubCommander[commands.UpdateStepInput]{}
	state := &stubQuerier[queries.SessionInput, queries.View]{result: queries.View{SessionID: "s1"}}
	api := &Handlers{API: &CommandExecutor{UpdateCommand: update, StateQuery: state}}

	body, _ := json.Marshal(map[string]any{"username": "abc"})
	req := httptest.NewRequest(http.MethodPatch, "/wizard/s1/steps/account", bytes.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	api.HandleUpdateStep(rec, req, "s1", "account")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	assert.Equal(t, 1, update.calls)
	assert.Equal(t, "s1", update.last.Session)
	assert.Equal(t, "account", update.last.Step)
	assert.Equal(t, "abc", update.last.Data["username"])
	assert.Equal(t, "user-1", update.last.UserID)
	assert.Equal(t, "s1", state.last.Session)
}

func TestHandleUpdateStepRejectsMalformedBody(t *testing.T) {
	update := &stubCommander[commands.UpdateStepInput]{}
	api := &Handlers{API: &CommandExecutor{UpdateCommand: update}}
	req := httptest.NewRequest(http.MethodPatch, "/wizard/s1/steps/account", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	api.HandleUpdateStep(rec, req, "s1", "account")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if update.calls != 0 {
		t.Fatalf("expected command to be skipped")
	}
}

func TestHandleAdvanceReportsFieldErrors(t *testing.T) {
	advance := &stubCommander[commands.NavigateInput]{err: &wizard.ValidationError{
		Step:   wizard.StepAccount,
		Result: wizard.ValidationResult{FieldErrors: map[string]string{"username": "Username is required"}},
	}}
	api := &Handlers{API: &CommandExecutor{AdvanceCommand: advance}}
	req := httptest.NewRequest(http.MethodPost, "/wizard/s1/next", nil)
	rec := httptest.NewRecorder()
	api.HandleAdvance(rec, req, "s1")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, wizard.StepAccount, resp.Step)
	assert.Equal(t, "Username is required", resp.FieldErrors["username"])
}

func TestHandleDetachParsesIndex(t *testing.T) {
	detach := &stubCommander[commands.DetachInput]{}
	state := &stubQuerier[queries.SessionInput, queries.View]{}
	api := &Handlers{API: &CommandExecutor{DetachCommand: detach, StateQuery: state}}

	rec := httptest.NewRecorder()
	api.HandleDetach(rec, httptest.NewRequest(http.MethodDelete, "/wizard/s1/attachments/2", nil), "s1", "2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, detach.last.Index)

	rec = httptest.NewRecorder()
	api.HandleDetach(rec, httptest.NewRequest(http.MethodDelete, "/wizard/s1/attachments/x", nil), "s1", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, detach.calls)
}

func TestHandleAttachDecodesContent(t *testing.T) {
	attach := &stubCommander[commands.AttachInput]{}
	state := &stubQuerier[queries.SessionInput, queries.View]{}
	api := &Handlers{API: &CommandExecutor{AttachCommand: attach, StateQuery: state}}

	body, _ := json.Marshal(AttachRequest{
		Name:         "cv.txt",
		MimeType:     "text/plain",
		LastModified: 1700000000000,
		Content:      wizard.EncodeDataURL("text/plain", []byte("hello")),
	})
	rec := httptest.NewRecorder()
	api.HandleAttach(rec, httptest.NewRequest(http.MethodPost, "/wizard/s1/attachments", bytes.NewReader(body)), "s1")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cv.txt", attach.last.Name)
	assert.Equal(t, []byte("hello"), attach.last.Content)
	assert.Equal(t, int64(1700000000000), attach.last.LastModified.UnixMilli())
}

func TestHandleAttachRejectsBadPayload(t *testing.T) {
	attach := &stubCommander[commands.AttachInput]{}
	api := &Handlers{API: &CommandExecutor{AttachCommand: attach}}
	body, _ := json.Marshal(AttachRequest{Name: "cv.txt", Content: "%%%"})
	rec := httptest.NewRecorder()
	api.HandleAttach(rec, httptest.NewRequest(http.MethodPost, "/wizard/s1/attachments", bytes.NewReader(body)), "s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, attach.calls)
}

func TestUnconfiguredExecutorFails(t *testing.T) {
	api := &Handlers{API: &CommandExecutor{}}
	rec := httptest.NewRecorder()
	api.HandleState(rec, httptest.NewRequest(http.MethodGet, "/wizard/s1", nil), "s1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{wizard.ErrSessionRequired, http.StatusBadRequest},
		{wizard.ErrStepInvalid, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %q", wizard.ErrUnknownStep, "x"), http.StatusNotFound},
		{wizard.ErrNotFinalStep, http.StatusConflict},
		{wizard.ErrFinalStep, http.StatusConflict},
		{wizard.ErrWizardComplete, http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "error %v", tc.err)
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	assert.Equal(t, "es-mx", ParseAcceptLanguage("es-MX;q=0.9, en;q=0.8"))
	assert.Equal(t, "", ParseAcceptLanguage(""))
}

func TestMuxDrivesWizardEndToEnd(t *testing.T) {
	manager := wizard.NewManager(wizard.Options{})
	t.Cleanup(manager.Wait)
	mux := http.NewServeMux()
	(&Handlers{API: NewExecutor(manager, nil)}).Register(mux, "/admin")

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(buf)
		} else {
			reader = bytes.NewReader(nil)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	rec := do(http.MethodPost, "/admin/wizard/s1/next", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(http.MethodPatch, "/admin/wizard/s1/steps/account", map[string]any{
		"username":        "abc",
		"email":           "abc@example.com",
		"password":        "Passw0rd",
		"confirmPassword": "Passw0rd",
		"phone":           "09123456789",
		"website":         "https://example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/admin/wizard/s1/steps/account/validation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result wizard.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)

	rec = do(http.MethodPost, "/admin/wizard/s1/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, float64(1), view["current_step"])

	rec = do(http.MethodPost, "/admin/wizard/s1/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodGet, "/admin/wizard/s1/steps/unknown/validation", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodPost, "/admin/wizard/s1/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, float64(0), view["current_step"])
}
