package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
)

type sessionLister interface {
	Sessions(ctx context.Context) ([]string, error)
}

// ListSessionsInput is the (empty) input of SessionsQuery.
type ListSessionsInput struct{}

// SessionsQuery lists known session ids.
type SessionsQuery struct {
	lister sessionLister
}

// NewSessionsQuery builds the query.
func NewSessionsQuery(lister sessionLister) *SessionsQuery {
	return &SessionsQuery{lister: lister}
}

var _ gocommand.Querier[ListSessionsInput, []string] = (*SessionsQuery)(nil)

// Query returns the session ids.
func (q *SessionsQuery) Query(ctx context.Context, _ ListSessionsInput) ([]string, error) {
	if q.lister == nil {
		return nil, errMissingSessions
	}
	return q.lister.Sessions(ctx)
}
