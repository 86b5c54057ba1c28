package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/httpapi"
	"github.com/goliatone/go-wizard/components/wizard/queries"
)

// ActorResolver extracts the acting identity from a request.
type ActorResolver func(router.Context) commands.Actor

// Config wires go-router with the wizard API and broadcast hook.
type Config[T any] struct {
	Router        router.Router[T]
	API           httpapi.Executor
	Broadcast     *wizard.BroadcastHook
	ActorResolver ActorResolver
	BasePath      string
	Routes        RouteConfig
}

// RouteConfig customizes the relative paths of the wizard endpoints.
type RouteConfig struct {
	State       string
	Step        string
	Validation  string
	Next        string
	Back        string
	Submit      string
	Reset       string
	Attachments string
	Attachment  string
	WebSocket   string
}

// Register mounts the wizard JSON and WebSocket routes on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	resolver := cfg.ActorResolver
	if resolver == nil {
		resolver = defaultActorResolver
	}

	group := cfg.Router.Group(base)
	registerAPI(group, cfg.API, resolver, routes)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ActorResolver, routes RouteConfig) {
	r.Get(routes.State, router.WrapHandler(func(ctx router.Context) error {
		return respondState(ctx, api, requestContext(ctx), ctx.Param("session"))
	}))

	r.Patch(routes.Step, router.WrapHandler(func(ctx router.Context) error {
		var data map[string]any
		if err := json.Unmarshal(ctx.Body(), &data); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		session := ctx.Param("session")
		c := requestContext(ctx)
		err := api.UpdateStep(c, commands.UpdateStepInput{
			Session: session,
			Step:    ctx.Param("step"),
			Data:    data,
			Actor:   resolver(ctx),
		})
		if err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return respondState(ctx, api, c, session)
	}))

	r.Get(routes.Validation, router.WrapHandler(func(ctx router.Context) error {
		result, err := api.Validate(requestContext(ctx), queries.ValidationInput{
			Session: ctx.Param("session"),
			Step:    ctx.Param("step"),
		})
		if err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, result)
	}))

	navigate := func(op func(context.Context, commands.NavigateInput) error) router.HandlerFunc {
		return router.WrapHandler(func(ctx router.Context) error {
			session := ctx.Param("session")
			c := requestContext(ctx)
			if err := op(c, commands.NavigateInput{Session: session, Actor: resolver(ctx)}); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return respondState(ctx, api, c, session)
		})
	}
	r.Post(routes.Next, navigate(api.Advance))
	r.Post(routes.Back, navigate(api.Retreat))
	r.Post(routes.Reset, navigate(api.Reset))

	r.Post(routes.Submit, router.WrapHandler(func(ctx router.Context) error {
		session := ctx.Param("session")
		c := requestContext(ctx)
		var submission wizard.Submission
		if err := api.Submit(c, commands.SubmitInput{Session: session, Result: &submission, Actor: resolver(ctx)}); err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		view, err := api.State(c, queries.SessionInput{Session: session})
		if err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, httpapi.SubmitResponse{Submission: submission, State: view})
	}))

	r.Post(routes.Attachments, router.WrapHandler(func(ctx router.Context) error {
		var req httpapi.AttachRequest
		if err := json.Unmarshal(ctx.Body(), &req); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		session := ctx.Param("session")
		input, err := req.Input(session, resolver(ctx))
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		c := requestContext(ctx)
		if err := api.Attach(c, input); err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		view, err := api.State(c, queries.SessionInput{Session: session})
		if err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return ctx.JSON(http.StatusCreated, view)
	}))

	r.Delete(routes.Attachment, router.WrapHandler(func(ctx router.Context) error {
		index, err := strconv.Atoi(ctx.Param("index"))
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, errors.New("attachment index must be an integer"))
		}
		session := ctx.Param("session")
		c := requestContext(ctx)
		if err := api.Detach(c, commands.DetachInput{Session: session, Index: index, Actor: resolver(ctx)}); err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return respondState(ctx, api, c, session)
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *wizard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.SubscribeSession(ws.Query("session"))
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func respondState(ctx router.Context, api httpapi.Executor, c context.Context, session string) error {
	view, err := api.State(c, queries.SessionInput{Session: session})
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusOK, view)
}

func requestContext(ctx router.Context) context.Context {
	c := ctx.Context()
	if locale := inferLocale(ctx); locale != "" {
		c = wizard.ContextWithLocale(c, locale)
	}
	return c
}

func defaultActorResolver(ctx router.Context) commands.Actor {
	actor := httpapi.ActorFromHeaders(ctx.Header)
	if v, ok := ctx.Locals("actor_id").(string); ok && v != "" {
		actor.ActorID = v
	}
	if v, ok := ctx.Locals("user_id").(string); ok && v != "" {
		actor.UserID = v
	}
	if v, ok := ctx.Locals("tenant_id").(string); ok && v != "" {
		actor.TenantID = v
	}
	return actor
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return httpapi.ParseAcceptLanguage(ctx.Header("Accept-Language"))
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, httpapi.NewErrorResponse(err))
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.State == "" {
		routes.State = "/wizard/:session"
	}
	if routes.Step == "" {
		routes.Step = "/wizard/:session/steps/:step"
	}
	if routes.Validation == "" {
		routes.Validation = "/wizard/:session/steps/:step/validation"
	}
	if routes.Next == "" {
		routes.Next = "/wizard/:session/next"
	}
	if routes.Back == "" {
		routes.Back = "/wizard/:session/back"
	}
	if routes.Submit == "" {
		routes.Submit = "/wizard/:session/submit"
	}
	if routes.Reset == "" {
		routes.Reset = "/wizard/:session/reset"
	}
	if routes.Attachments == "" {
		routes.Attachments = "/wizard/:session/attachments"
	}
	if routes.Attachment == "" {
		routes.Attachment = "/wizard/:session/attachments/:index"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/wizard-ws"
	}
	return routes
}
