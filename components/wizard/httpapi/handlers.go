package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-wizard/components/wizard"
	"github.com/goliatone/go-wizard/components/wizard/commands"
	"github.com/goliatone/go-wizard/components/wizard/queries"
)

// maxBodyBytes bounds request bodies, attachment uploads included.
const maxBodyBytes = 16 << 20

// Handlers exposes the wizard operations through net/http handlers.
type Handlers struct {
	API       Executor
	Broadcast *wizard.BroadcastHook
}

// Register mounts the handlers on mux under base, e.g. "/admin".
func (h *Handlers) Register(mux *http.ServeMux, base string) {
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		base = ""
	}
	prefix := base + "/wizard/{session}"
	mux.HandleFunc("GET "+prefix, func(w http.ResponseWriter, r *http.Request) {
		h.HandleState(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("PATCH "+prefix+"/steps/{step}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleUpdateStep(w, r, r.PathValue("session"), r.PathValue("step"))
	})
	mux.HandleFunc("GET "+prefix+"/steps/{step}/validation", func(w http.ResponseWriter, r *http.Request) {
		h.HandleValidate(w, r, r.PathValue("session"), r.PathValue("step"))
	})
	mux.HandleFunc("POST "+prefix+"/next", func(w http.ResponseWriter, r *http.Request) {
		h.HandleAdvance(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("POST "+prefix+"/back", func(w http.ResponseWriter, r *http.Request) {
		h.HandleRetreat(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("POST "+prefix+"/submit", func(w http.ResponseWriter, r *http.Request) {
		h.HandleSubmit(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("POST "+prefix+"/reset", func(w http.ResponseWriter, r *http.Request) {
		h.HandleReset(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("POST "+prefix+"/attachments", func(w http.ResponseWriter, r *http.Request) {
		h.HandleAttach(w, r, r.PathValue("session"))
	})
	mux.HandleFunc("DELETE "+prefix+"/attachments/{index}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleDetach(w, r, r.PathValue("session"), r.PathValue("index"))
	})
	if h.Broadcast != nil {
		mux.HandleFunc("GET "+base+"/wizard-events", h.Broadcast.ServeSSE)
		mux.HandleFunc("GET "+base+"/wizard-ws", h.Broadcast.ServeWebSocket)
	}
}

// HandleState returns the session view.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request, session string) {
	h.respondState(w, requestContext(r), session)
}

// HandleUpdateStep merges the JSON object body into a step.
func (h *Handlers) HandleUpdateStep(w http.ResponseWriter, r *http.Request, session, step string) {
	var data map[string]any
	if err := decodeBody(w, r, &data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := requestContext(r)
	err := h.API.UpdateStep(ctx, commands.UpdateStepInput{
		Session: session,
		Step:    step,
		Data:    data,
		Actor:   actorFrom(r),
	})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	h.respondState(w, ctx, session)
}

// HandleValidate validates a step without changing state.
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request, session, step string) {
	result, err := h.API.Validate(requestContext(r), queries.ValidationInput{Session: session, Step: step})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleAdvance moves to the next step. A failed validation answers 422
// with the field errors.
func (h *Handlers) HandleAdvance(w http.ResponseWriter, r *http.Request, session string) {
	h.navigate(w, r, session, h.API.Advance)
}

// HandleRetreat moves to the previous step.
func (h *Handlers) HandleRetreat(w http.ResponseWriter, r *http.Request, session string) {
	h.navigate(w, r, session, h.API.Retreat)
}

// HandleReset clears the session.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request, session string) {
	h.navigate(w, r, session, h.API.Reset)
}

// HandleSubmit finalizes the session and returns the submission.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request, session string) {
	ctx := requestContext(r)
	var submission wizard.Submission
	err := h.API.Submit(ctx, commands.SubmitInput{Session: session, Result: &submission, Actor: actorFrom(r)})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	view, err := h.API.State(ctx, queries.SessionInput{Session: session})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{Submission: submission, State: view})
}

// HandleAttach adds a base64 encoded file to the session.
func (h *Handlers) HandleAttach(w http.ResponseWriter, r *http.Request, session string) {
	var req AttachRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	input, err := req.Input(session, actorFrom(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := requestContext(r)
	if err := h.API.Attach(ctx, input); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	view, err := h.API.State(ctx, queries.SessionInput{Session: session})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleDetach removes the attachment at index.
func (h *Handlers) HandleDetach(w http.ResponseWriter, r *http.Request, session, index string) {
	idx, err := strconv.Atoi(index)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("attachment index must be an integer"))
		return
	}
	ctx := requestContext(r)
	if err := h.API.Detach(ctx, commands.DetachInput{Session: session, Index: idx, Actor: actorFrom(r)}); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	h.respondState(w, ctx, session)
}

func (h *Handlers) navigate(w http.ResponseWriter, r *http.Request, session string, op func(context.Context, commands.NavigateInput) error) {
	ctx := requestContext(r)
	if err := op(ctx, commands.NavigateInput{Session: session, Actor: actorFrom(r)}); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	h.respondState(w, ctx, session)
}

func (h *Handlers) respondState(w http.ResponseWriter, ctx context.Context, session string) {
	view, err := h.API.State(ctx, queries.SessionInput{Session: session})
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if locale := ParseAcceptLanguage(r.Header.Get("Accept-Language")); locale != "" {
		ctx = wizard.ContextWithLocale(ctx, locale)
	}
	return ctx
}

func actorFrom(r *http.Request) commands.Actor {
	return ActorFromHeaders(r.Header.Get)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, NewErrorResponse(err))
}
