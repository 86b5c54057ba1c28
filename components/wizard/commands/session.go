package commands

import (
	"context"
	"errors"

	"github.com/goliatone/go-wizard/components/wizard"
)

var errMissingSessions = errors.New("command requires session manager")

// Sessions resolves the wizard of a session. *wizard.Manager satisfies it.
type Sessions interface {
	Open(ctx context.Context, session string) (*wizard.Wizard, error)
}

// Actor identifies who triggered a command for activity events.
type Actor struct {
	ActorID  string `json:"actor_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

func (a Actor) context(ctx context.Context) context.Context {
	if a == (Actor{}) {
		return ctx
	}
	return wizard.ContextWithActivity(ctx, wizard.ActivityContext{
		ActorID:  a.ActorID,
		UserID:   a.UserID,
		TenantID: a.TenantID,
	})
}

func open(ctx context.Context, sessions Sessions, session string) (*wizard.Wizard, error) {
	if sessions == nil {
		return nil, errMissingSessions
	}
	return sessions.Open(ctx, session)
}
