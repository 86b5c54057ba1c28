package goadmin

import (
	"context"
	"errors"

	activitypkg "github.com/goliatone/go-wizard/pkg/activity"
	wizardpkg "github.com/goliatone/go-wizard/pkg/wizard"
)

// MenuBuilder ensures wizard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures wizard link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the wizard session manager and feature flags into an admin shell.
type Config struct {
	EnableWizard    bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Options         wizardpkg.Options
	DefaultMenuItem MenuItem
	ActivityHooks   activitypkg.Hooks
	ActivityConfig  activitypkg.Config
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg     Config
	manager *wizardpkg.Manager
}

// New creates an Admin helper. When the wizard is enabled it builds the
// session manager, forwarding the activity hooks into the wizard options.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableWizard && cfg.Options.Store == nil {
		return nil, errors.New("goadmin: snapshot store is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Registration"
	}
	if cfg.DefaultMenuItem.Route == "" {
		cfg.DefaultMenuItem.Route = "admin.wizard"
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "user-plus"
	}
	admin := &Admin{cfg: cfg}
	if cfg.EnableWizard {
		opts := cfg.Options
		if len(cfg.ActivityHooks) > 0 {
			opts.ActivityHooks = append(opts.ActivityHooks, cfg.ActivityHooks...)
			opts.ActivityConfig = cfg.ActivityConfig
		}
		admin.manager = wizardpkg.NewManager(opts)
	}
	return admin, nil
}

// Wizard exposes the session manager when enabled.
func (a *Admin) Wizard() *wizardpkg.Manager {
	if !a.cfg.EnableWizard {
		return nil
	}
	return a.manager
}

// Bootstrap seeds menu entries when wizard support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableWizard || a.cfg.MenuBuilder == nil {
		return nil
	}
	return a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, a.cfg.DefaultMenuItem)
}
