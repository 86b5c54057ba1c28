package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/gorouter"
	"github.com/goliatone/go-wizard/components/wizard/httpapi"
	"github.com/goliatone/go-wizard/pkg/activity"
	"github.com/goliatone/go-wizard/pkg/delivery"
	"github.com/goliatone/go-wizard/pkg/telemetry/prom"
)

type serveCmd struct {
	Addr        string `default:":9876" env:"WIZARD_ADDR" help:"HTTP listen address."`
	BasePath    string `default:"/admin" help:"Route prefix."`
	MetricsAddr string `env:"WIZARD_METRICS_ADDR" help:"Serve Prometheus metrics on this address (disabled when empty)."`
	DeliverURL  string `env:"WIZARD_DELIVER_URL" help:"Forward finalized submissions to this base URL."`
	DeliverKey  string `env:"WIZARD_DELIVER_KEY" help:"Bearer token for the delivery endpoint."`
	Audit       bool   `help:"Log activity events."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, closeStore, err := g.options()
	if err != nil {
		return err
	}
	defer closeStore()
	logger := opts.Logger

	broadcast := wizard.NewBroadcastHook()
	hooks := wizard.MultiHook{broadcast}
	if cmd.DeliverURL != "" {
		client, err := delivery.NewHTTPClient(delivery.HTTPConfig{BaseURL: cmd.DeliverURL, APIKey: cmd.DeliverKey})
		if err != nil {
			return err
		}
		hooks = append(hooks, delivery.NewHook(client, delivery.HookOptions{Logger: logger}))
	}
	opts.EventHook = hooks

	if cmd.Audit {
		opts.ActivityHooks = activity.Hooks{activity.HookFunc(func(_ context.Context, event activity.Event) error {
			logger.Info("wizard activity", "verb", event.Verb, "object", event.ObjectID, "actor", event.ActorID, "user", event.UserID)
			return nil
		})}
		opts.ActivityConfig = activity.Config{Enabled: true}
	}

	var metrics *http.Server
	if cmd.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		telemetry, err := prom.New(prom.Options{Registerer: registry})
		if err != nil {
			return err
		}
		opts.Telemetry = telemetry
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metrics = &http.Server{Addr: cmd.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics server listening", "addr", cmd.MetricsAddr)
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	manager := wizard.NewManager(opts)
	defer manager.Wait()

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		API:       httpapi.NewExecutor(manager, opts.Telemetry),
		Broadcast: broadcast,
		BasePath:  cmd.BasePath,
	}); err != nil {
		return fmt.Errorf("wizardctl: register routes: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("wizard api listening", "addr", cmd.Addr, "base", cmd.BasePath)
		errs <- server.Serve(cmd.Addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metrics != nil {
		_ = metrics.Shutdown(shutdownCtx)
	}
	return server.Shutdown(shutdownCtx)
}
