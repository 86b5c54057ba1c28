package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-wizard/internal/logging"
)

// Snapshot is the whitelisted, serializable subset of the wizard state.
type Snapshot struct {
	StepData           SnapshotStepData     `json:"stepData"`
	CurrentStep        int                  `json:"currentStep"`
	AttachmentMetadata []AttachmentMetadata `json:"attachmentMetadata"`
}

// SnapshotStepData holds the partial record of every step.
type SnapshotStepData struct {
	Account  map[string]any `json:"account"`
	Personal map[string]any `json:"personal"`
	Advanced map[string]any `json:"advanced"`
}

type rawSnapshot struct {
	StepData           SnapshotStepData  `json:"stepData"`
	CurrentStep        int               `json:"currentStep"`
	AttachmentMetadata []json.RawMessage `json:"attachmentMetadata"`
}

// legacyEnvelope is the layout written by the browser store this module
// replaces: a persist envelope around numbered step records.
type legacyEnvelope struct {
	State struct {
		CurrentStep    int               `json:"currentStep"`
		Step1Data      map[string]any    `json:"step1Data"`
		Step2Data      map[string]any    `json:"step2Data"`
		Step3Data      map[string]any    `json:"step3Data"`
		PersistedFiles []json.RawMessage `json:"persistedFiles"`
	} `json:"state"`
}

type legacyFile struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
	DataURL      string `json:"dataUrl"`
}

// PersistenceAdapter writes snapshots to a SnapshotStore and restores them.
// Loading is fail-open: any problem yields "absent" and is only logged.
type PersistenceAdapter struct {
	store  SnapshotStore
	key    string
	guard  *SnapshotGuard
	logger *slog.Logger
}

// NewPersistenceAdapter builds an adapter writing under key. An empty key
// uses DefaultStorageKey and a nil logger discards output.
func NewPersistenceAdapter(store SnapshotStore, key string, logger *slog.Logger) *PersistenceAdapter {
	if key == "" {
		key = DefaultStorageKey
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PersistenceAdapter{
		store:  store,
		key:    key,
		guard:  NewSnapshotGuard(),
		logger: logger,
	}
}

// Key returns the storage key.
func (p *PersistenceAdapter) Key() string {
	return p.key
}

// Save persists the whitelisted projection of state. Pending attachments
// are skipped.
func (p *PersistenceAdapter) Save(ctx context.Context, state State) error {
	if p.store == nil {
		return nil
	}
	data, err := json.Marshal(SnapshotOf(state))
	if err != nil {
		return fmt.Errorf("wizard: marshal snapshot: %w", err)
	}
	if err := p.store.Put(ctx, p.key, data); err != nil {
		return fmt.Errorf("wizard: save snapshot %s: %w", p.key, err)
	}
	return nil
}

// Load reads the snapshot, restores its attachments into attachments and
// returns the resulting state. It returns false when nothing usable exists.
func (p *PersistenceAdapter) Load(ctx context.Context, attachments *AttachmentStore) (State, bool) {
	if p.store == nil {
		return State{}, false
	}
	data, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			p.logger.Warn("wizard snapshot unavailable", "key", p.key, "error", err)
		}
		return State{}, false
	}
	snapshot, err := p.decode(data)
	if err != nil {
		p.logger.Warn("wizard snapshot discarded", "key", p.key, "error", err)
		return State{}, false
	}
	if attachments == nil {
		attachments = NewAttachmentStore()
	}
	restored, err := attachments.RestoreFromEncoded(snapshot.AttachmentMetadata)
	if err != nil {
		p.logger.Warn("wizard attachments dropped on restore", "key", p.key, "error", err)
	}
	attachments.Replace(restored)
	return State{
		CurrentStep: snapshot.CurrentStep,
		StepData: map[StepID]map[string]any{
			StepAccount:  nonNilRecord(snapshot.StepData.Account),
			StepPersonal: nonNilRecord(snapshot.StepData.Personal),
			StepAdvanced: nonNilRecord(snapshot.StepData.Advanced),
		},
		Attachments: attachments.List(),
	}, true
}

// Clear removes the stored snapshot.
func (p *PersistenceAdapter) Clear(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Delete(ctx, p.key); err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return fmt.Errorf("wizard: clear snapshot %s: %w", p.key, err)
	}
	return nil
}

func (p *PersistenceAdapter) decode(data []byte) (Snapshot, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Snapshot{}, fmt.Errorf("wizard: parse snapshot: %w", err)
	}
	if obj, ok := generic.(map[string]any); ok {
		if _, legacy := obj["state"]; legacy {
			return p.decodeLegacy(data, generic)
		}
	}
	if err := p.guard.Validate(snapshotSchemaName, generic); err != nil {
		return Snapshot{}, err
	}
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("wizard: decode snapshot: %w", err)
	}
	snapshot := Snapshot{StepData: raw.StepData, CurrentStep: raw.CurrentStep}
	for idx, item := range raw.AttachmentMetadata {
		var meta AttachmentMetadata
		if err := json.Unmarshal(item, &meta); err != nil {
			p.logger.Warn("wizard attachment metadata skipped", "index", idx, "error", err)
			continue
		}
		snapshot.AttachmentMetadata = append(snapshot.AttachmentMetadata, meta)
	}
	return snapshot, nil
}

func (p *PersistenceAdapter) decodeLegacy(data []byte, generic any) (Snapshot, error) {
	if err := p.guard.Validate(legacySnapshotSchemaName, generic); err != nil {
		return Snapshot{}, err
	}
	var env legacyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("wizard: decode legacy snapshot: %w", err)
	}
	snapshot := Snapshot{
		CurrentStep: env.State.CurrentStep,
		StepData: SnapshotStepData{
			Account:  env.State.Step1Data,
			Personal: env.State.Step2Data,
			Advanced: env.State.Step3Data,
		},
	}
	for idx, item := range env.State.PersistedFiles {
		var file legacyFile
		if err := json.Unmarshal(item, &file); err != nil {
			p.logger.Warn("wizard legacy file skipped", "index", idx, "error", err)
			continue
		}
		snapshot.AttachmentMetadata = append(snapshot.AttachmentMetadata, AttachmentMetadata{
			Name:           file.Name,
			SizeBytes:      file.Size,
			MimeType:       file.Type,
			LastModified:   file.LastModified,
			EncodedPayload: file.DataURL,
		})
	}
	return snapshot, nil
}

// SnapshotOf projects state onto its persisted form.
func SnapshotOf(state State) Snapshot {
	metadata := make([]AttachmentMetadata, 0, len(state.Attachments))
	for _, att := range state.Attachments {
		if att.Pending() {
			continue
		}
		metadata = append(metadata, att.Metadata())
	}
	return Snapshot{
		StepData: SnapshotStepData{
			Account:  nonNilRecord(state.StepData[StepAccount]),
			Personal: nonNilRecord(state.StepData[StepPersonal]),
			Advanced: nonNilRecord(state.StepData[StepAdvanced]),
		},
		CurrentStep:        state.CurrentStep,
		AttachmentMetadata: metadata,
	}
}

func nonNilRecord(record map[string]any) map[string]any {
	if record == nil {
		return map[string]any{}
	}
	return record
}
