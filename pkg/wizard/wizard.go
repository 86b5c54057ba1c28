package wizard

import (
	"context"

	core "github.com/goliatone/go-wizard/components/wizard"
)

// Wizard exposes the underlying components/wizard.Wizard type.
type Wizard = core.Wizard

// Manager exposes the session manager.
type Manager = core.Manager

// Options re-export for convenience.
type Options = core.Options

// Submission is the finalized, typed form payload.
type Submission = core.Submission

// New proxies to the internal constructor.
func New(ctx context.Context, opts Options) *Wizard {
	return core.New(ctx, opts)
}

// NewManager proxies to the internal constructor.
func NewManager(opts Options) *Manager {
	return core.NewManager(opts)
}
