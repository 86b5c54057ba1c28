package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/queries"
)

// AttachRequest is the JSON body of the attachment upload endpoint. Content
// is a base64 string or a base64 data URL.
type AttachRequest struct {
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	LastModified int64  `json:"last_modified"`
	Content      string `json:"content"`
}

// Input converts the request into the attach command input.
func (r AttachRequest) Input(session string, actor commands.Actor) (commands.AttachInput, error) {
	if strings.TrimSpace(r.Name) == "" {
		return commands.AttachInput{}, errors.New("attachment name is required")
	}
	data, err := wizard.DecodePayload(r.Content)
	if err != nil {
		return commands.AttachInput{}, err
	}
	input := commands.AttachInput{
		Session:  session,
		Name:     r.Name,
		MimeType: r.MimeType,
		Content:  data,
		Actor:    actor,
	}
	if r.LastModified > 0 {
		input.LastModified = time.UnixMilli(r.LastModified)
	}
	return input, nil
}

// SubmitResponse is returned by the submit endpoint.
type SubmitResponse struct {
	Submission wizard.Submission `json:"submission"`
	State      queries.View      `json:"state"`
}

// ErrorResponse is the JSON error body. Validation failures carry the step
// and field errors.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Step        wizard.StepID     `json:"step,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// StatusFor maps wizard errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wizard.ErrSessionRequired):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrStepInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrNotFinalStep), errors.Is(err, wizard.ErrFinalStep), errors.Is(err, wizard.ErrWizardComplete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the error body for err.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		resp.Step = verr.Step
		resp.FieldErrors = verr.Result.FieldErrors
	}
	return resp
}

// ActorFromHeaders reads the X-Actor-ID, X-User-ID and X-Tenant-ID headers.
func ActorFromHeaders(header func(string) string) commands.Actor {
	return commands.Actor{
		ActorID:  strings.TrimSpace(header("X-Actor-ID")),
		UserID:   strings.TrimSpace(header("X-User-ID")),
		TenantID: strings.TrimSpace(header("X-Tenant-ID")),
	}
}

// ParseAcceptLanguage returns the first language tag of an Accept-Language
// header, lower cased.
func ParseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}
