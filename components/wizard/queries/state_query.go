package queries

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-wizard/components/wizard"
)

var errMissingSessions = errors.New("query requires session manager")

// Sessions resolves the wizard of a session.
type Sessions interface {
	Open(ctx context.Context, session string) (*wizard.Wizard, error)
}

// SessionInput addresses one session.
type SessionInput struct {
	Session string `json:"session"`
}

// AttachmentView is the transport projection of an attachment.
type AttachmentView struct {
	Index        int       `json:"index"`
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	LastModified time.Time `json:"last_modified"`
	Pending      bool      `json:"pending"`
}

// View is the read model of a wizard session.
type View struct {
	SessionID   string                           `json:"session_id"`
	CurrentStep int                              `json:"current_step"`
	Complete    bool                             `json:"complete"`
	Steps       []wizard.StepDefinition          `json:"steps"`
	StepData    map[wizard.StepID]map[string]any `json:"step_data"`
	Attachments []AttachmentView                 `json:"attachments"`
}

// StateQuery returns the View of a session.
type StateQuery struct {
	sessions Sessions
}

// NewStateQuery builds the query.
func NewStateQuery(sessions Sessions) *StateQuery {
	return &StateQuery{sessions: sessions}
}

var _ gocommand.Querier[SessionInput, View] = (*StateQuery)(nil)

// Query loads the session and projects its state.
func (q *StateQuery) Query(ctx context.Context, input SessionInput) (View, error) {
	if q.sessions == nil {
		return View{}, errMissingSessions
	}
	w, err := q.sessions.Open(ctx, input.Session)
	if err != nil {
		return View{}, err
	}
	return NewView(w.SessionID(), w.State()), nil
}

// NewView projects state into a View.
func NewView(session string, state wizard.State) View {
	attachments := make([]AttachmentView, len(state.Attachments))
	for i, att := range state.Attachments {
		attachments[i] = AttachmentView{
			Index:        i,
			Name:         att.Name,
			SizeBytes:    att.SizeBytes,
			MimeType:     att.MimeType,
			LastModified: att.LastModified,
			Pending:      att.Pending(),
		}
	}
	return View{
		SessionID:   session,
		CurrentStep: state.CurrentStep,
		Complete:    state.Complete(),
		Steps:       wizard.Steps(),
		StepData:    state.StepData,
		Attachments: attachments,
	}
}
