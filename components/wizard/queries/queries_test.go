package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-wizard/components/wizard"
)

func TestStateQuery(t *testing.T) {
	ctx := context.Background()
	m := wizard.NewManager(wizard.Options{})
	t.Cleanup(m.Wait)
	w, _ := m.Open(ctx, "s-1")
	_ = w.UpdateStepData(ctx, wizard.StepAccount, map[string]any{"username": "abc"})
	_, _ = w.AddAttachment(ctx, wizard.NewFile("a.txt", "text/plain", time.UnixMilli(1700000000000), []byte("x")))
	w.Wait()

	view, err := NewStateQuery(m).Query(ctx, SessionInput{Session: "s-1"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if view.SessionID != "s-1" || view.CurrentStep != 0 || view.Complete {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Steps) != wizard.NumSteps {
		t.Fatalf("expected %d steps, got %d", wizard.NumSteps, len(view.Steps))
	}
	if view.StepData[wizard.StepAccount]["username"] != "abc" {
		t.Fatalf("expected step data in view, got %v", view.StepData)
	}
	if len(view.Attachments) != 1 || view.Attachments[0].Pending || view.Attachments[0].Name != "a.txt" {
		t.Fatalf("unexpected attachments %+v", view.Attachments)
	}
}

func TestValidationQuery(t *testing.T) {
	ctx := context.Background()
	m := wizard.NewManager(wizard.Options{})
	query := NewValidationQuery(m)

	result, err := query.Query(ctx, ValidationInput{Session: "s-1"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if result.Valid || result.FieldErrors["username"] == "" {
		t.Fatalf("expected account errors for current step, got %+v", result)
	}

	result, err = query.Query(ctx, ValidationInput{Session: "s-1", Step: "personal"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if _, ok := result.FieldErrors["firstName"]; !ok {
		t.Fatalf("expected personal errors, got %+v", result)
	}

	_, err = query.Query(ctx, ValidationInput{Session: "s-1", Step: "9"})
	if !errors.Is(err, wizard.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
}

func TestSessionsQuery(t *testing.T) {
	ctx := context.Background()
	m := wizard.NewManager(wizard.Options{})
	_, _ = m.Open(ctx, "b")
	_, _ = m.Open(ctx, "a")
	ids, err := NewSessionsQuery(m).Query(ctx, ListSessionsInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected sessions %v", ids)
	}
	if _, err := NewSessionsQuery(nil).Query(ctx, ListSessionsInput{}); err == nil {
		t.Fatalf("expected error without lister")
	}
}
