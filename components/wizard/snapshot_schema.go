package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	snapshotSchemaName       = "wizard.snapshot"
	legacySnapshotSchemaName = "wizard.snapshot.legacy"
)

var snapshotSchemas = map[string]map[string]any{
	snapshotSchemaName: {
		"type":     "object",
		"required": []string{"stepData", "currentStep"},
		"properties": map[string]any{
			"currentStep": map[string]any{"type": "integer", "minimum": 0, "maximum": NumSteps},
			"stepData": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"account":  map[string]any{"type": []string{"object", "null"}},
					"personal": map[string]any{"type": []string{"object", "null"}},
					"advanced": map[string]any{"type": []string{"object", "null"}},
				},
			},
			"attachmentMetadata": map[string]any{"type": []string{"array", "null"}},
		},
	},
	legacySnapshotSchemaName: {
		"type":     "object",
		"required": []string{"state"},
		"properties": map[string]any{
			"state": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"currentStep":    map[string]any{"type": "integer", "minimum": 0, "maximum": NumSteps},
					"step1Data":      map[string]any{"type": []string{"object", "null"}},
					"step2Data":      map[string]any{"type": []string{"object", "null"}},
					"step3Data":      map[string]any{"type": []string{"object", "null"}},
					"persistedFiles": map[string]any{"type": []string{"array", "null"}},
				},
			},
		},
	},
}

// SnapshotGuard compiles the snapshot schemas once and checks decoded
// payloads against them before they are trusted.
type SnapshotGuard struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewSnapshotGuard builds a guard backed by jsonschema v5.
func NewSnapshotGuard() *SnapshotGuard {
	return &SnapshotGuard{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks payload (a value produced by json.Unmarshal) against the
// named schema.
func (g *SnapshotGuard) Validate(name string, payload any) error {
	schema, err := g.schemaFor(name)
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("wizard: snapshot failed %s validation: %w", name, err)
	}
	return nil
}

func (g *SnapshotGuard) schemaFor(name string) (*jsonschema.Schema, error) {
	g.mu.RLock()
	schema, ok := g.compiled[name]
	g.mu.RUnlock()
	if ok {
		return schema, nil
	}
	def, ok := snapshotSchemas[name]
	if !ok {
		return nil, fmt.Errorf("wizard: unknown snapshot schema %s", name)
	}
	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("wizard: marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("wizard: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("wizard: compile schema %s: %w", name, err)
	}
	g.mu.Lock()
	g.compiled[name] = compiled
	g.mu.Unlock()
	return compiled, nil
}
