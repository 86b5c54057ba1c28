package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/httpapi"
	"github.com/goliatone/go-wizard/components/wizard/storage/filestore"
	"github.com/goliatone/go-wizard/components/wizard/storage/redisstore"
	"github.com/goliatone/go-wizard/internal/logging"
)

type cli struct {
	Globals

	Status   statusCmd   `cmd:"" help:"Show the current step, step data and attachments."`
	Set      setCmd      `cmd:"" help:"Merge key=value pairs into a step."`
	Validate validateCmd `cmd:"" help:"Validate a step without changing state."`
	Next     nextCmd     `cmd:"" help:"Advance to the next step when the current one validates."`
	Back     backCmd     `cmd:"" help:"Return to the previous step."`
	Attach   attachCmd   `cmd:"" help:"Attach files to the advanced step."`
	Detach   detachCmd   `cmd:"" help:"Remove the attachment at an index."`
	Submit   submitCmd   `cmd:"" help:"Finalize the wizard and print the submission."`
	Reset    resetCmd    `cmd:"" help:"Discard all step data and attachments."`
	Sessions sessionsCmd `cmd:"" help:"List known sessions."`
	Serve    serveCmd    `cmd:"" help:"Serve the wizard HTTP API."`
}

// Globals are shared by every subcommand.
type Globals struct {
	Session       string        `short:"s" default:"default" env:"WIZARD_SESSION" help:"Session id to operate on."`
	Store         string        `enum:"memory,file,redis" default:"file" env:"WIZARD_STORE" help:"Snapshot store (memory, file, redis)."`
	Dir           string        `type:"path" default:".wizard" env:"WIZARD_DIR" help:"Directory of the file store."`
	RedisAddr     string        `default:"localhost:6379" env:"WIZARD_REDIS_ADDR" help:"Redis address for the redis store."`
	RedisPassword string        `env:"WIZARD_REDIS_PASSWORD" help:"Redis password."`
	RedisDB       int           `default:"0" env:"WIZARD_REDIS_DB" help:"Redis database."`
	RedisTTL      time.Duration `env:"WIZARD_REDIS_TTL" help:"Expire idle sessions after this duration (0 keeps them)."`
	Output        string        `short:"o" enum:"yaml,json" default:"yaml" help:"Output format (yaml, json)."`
	LogLevel      string        `default:"warn" env:"WIZARD_LOG_LEVEL" help:"Log level (debug, info, warn, error)."`

	stdout io.Writer `kong:"-"`
	fs     afero.Fs  `kong:"-"`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("wizardctl"),
		kong.Description("Drive a persisted multi-step registration wizard."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}

// env is an opened session manager plus its operation surface.
type env struct {
	manager *wizard.Manager
	api     *httpapi.CommandExecutor
	logger  *slog.Logger
	close   func() error
}

func (g *Globals) options() (wizard.Options, func() error, error) {
	logger := logging.New(logging.ParseLevel(g.LogLevel))
	opts := wizard.Options{Logger: logger}
	closer := func() error { return nil }
	switch g.Store {
	case "", "file":
		opts.Store = filestore.New(g.filesystem(), g.Dir)
	case "memory":
		opts.Store = wizard.NewInMemorySnapshotStore()
	case "redis":
		var storeOpts []redisstore.Option
		if g.RedisTTL > 0 {
			storeOpts = append(storeOpts, redisstore.WithTTL(g.RedisTTL))
		}
		store := redisstore.New(g.RedisAddr, g.RedisPassword, g.RedisDB, storeOpts...)
		opts.Store = store
		closer = store.Close
	default:
		return wizard.Options{}, nil, fmt.Errorf("wizardctl: unknown store %q", g.Store)
	}
	return opts, closer, nil
}

func (g *Globals) open() (*env, error) {
	opts, closer, err := g.options()
	if err != nil {
		return nil, err
	}
	manager := wizard.NewManager(opts)
	return &env{
		manager: manager,
		api:     httpapi.NewExecutor(manager, nil),
		logger:  opts.Logger,
		close: func() error {
			manager.Wait()
			return closer()
		},
	}, nil
}

func (g *Globals) filesystem() afero.Fs {
	if g.fs == nil {
		return afero.NewOsFs()
	}
	return g.fs
}

func (g *Globals) writer() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *Globals) print(v any) error {
	return render(g.writer(), g.Output, v)
}

// render writes v as indented JSON or as YAML. YAML output goes through a
// JSON round trip so keys follow the json tags.
func render(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("wizardctl: encode output: %w", err)
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("wizardctl: encode output: %w", err)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("wizardctl: write yaml: %w", err)
	}
	return nil
}
