package wizard

import (
	"context"
	"errors"
	"sync"
	"time"
)

func validAccount() map[string]any {
	return map[string]any{
		"username":        "abc",
		"email":           "abc@example.com",
		"password":        "Passw0rd",
		"confirmPassword": "Passw0rd",
		"phone":           "09123456789",
		"website":         "https://example.com",
	}
}

func validPersonal() map[string]any {
	return map[string]any{
		"firstName":        "Ada",
		"lastName":         "Lovelace",
		"country":          "uk",
		"language":         []any{"en"},
		"gender":           "female",
		"birthDate":        "1990-01-01",
		"registrationDate": "2024-01-01",
		"experience":       "senior",
		"skills":           []any{"go", "sql"},
		"newsletter":       false,
		"terms":            true,
	}
}

func validAdvanced() map[string]any {
	return map[string]any{
		"bio":           "Builds analytical engines.",
		"notifications": []any{"email"},
		"priority":      "high",
	}
}

func sampleFile(name string) *File {
	return NewFile(name, "text/plain", time.UnixMilli(1700000000000), []byte("hello "+name))
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (failingStore) Put(context.Context, string, []byte) error   { return errStoreDown }
func (failingStore) Delete(context.Context, string) error        { return errStoreDown }

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type recordingHook struct {
	mu     sync.Mutex
	events []WizardEvent
}

func (h *recordingHook) WizardUpdated(_ context.Context, event WizardEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHook) reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.Reason
	}
	return out
}

func (h *recordingHook) last() WizardEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[len(h.events)-1]
}
