package wizard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceSaveLayout(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	adapter := NewPersistenceAdapter(store, "", nil)
	require.Equal(t, DefaultStorageKey, adapter.Key())

	state := State{
		CurrentStep: 1,
		StepData: map[StepID]map[string]any{
			StepAccount: {"username": "abc"},
		},
		Attachments: []Attachment{
			{Name: "a.txt", SizeBytes: 2, MimeType: "text/plain", EncodedPayload: "data:text/plain;base64,aGk="},
			{Name: "pending.txt", SizeBytes: 4},
		},
	}
	require.NoError(t, adapter.Save(ctx, state))

	raw, err := store.Get(ctx, DefaultStorageKey)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, float64(1), decoded["currentStep"])
	stepData := decoded["stepData"].(map[string]any)
	assert.Equal(t, map[string]any{"username": "abc"}, stepData["account"])
	assert.Equal(t, map[string]any{}, stepData["personal"])
	assert.Equal(t, map[string]any{}, stepData["advanced"])
	metadata := decoded["attachmentMetadata"].([]any)
	require.Len(t, metadata, 1)
	assert.Equal(t, "a.txt", metadata[0].(map[string]any)["name"])
	assert.Len(t, decoded, 3)
}

func TestPersistenceLoadRestoresAttachments(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	require.NoError(t, store.Put(ctx, DefaultStorageKey, []byte(`{
		"stepData": {"account": {"username": "abc"}, "personal": {}, "advanced": {"bio": "hello world"}},
		"currentStep": 2,
		"attachmentMetadata": [
			{"name": "a.txt", "sizeBytes": 2, "mimeType": "text/plain", "lastModified": 1700000000000, "encodedPayload": "data:text/plain;base64,aGk="},
			{"name": "broken.txt", "sizeBytes": 2, "mimeType": "text/plain", "lastModified": 0, "encodedPayload": "%%%"},
			"not-an-object"
		]
	}`)))

	attachments := NewAttachmentStore()
	state, ok := NewPersistenceAdapter(store, "", nil).Load(ctx, attachments)
	require.True(t, ok)
	assert.Equal(t, 2, state.CurrentStep)
	assert.Equal(t, "abc", state.StepData[StepAccount]["username"])
	assert.Equal(t, "hello world", state.StepData[StepAdvanced]["bio"])
	require.Len(t, state.Attachments, 1)
	assert.Equal(t, "a.txt", state.Attachments[0].Name)
	assert.Equal(t, []string{"a.txt"}, attachments.Names())
}

func TestPersistenceLoadWithoutAttachmentMetadata(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	require.NoError(t, store.Put(ctx, "k", []byte(`{"stepData":{"account":{"email":"a@b.co"}},"currentStep":0}`)))

	state, ok := NewPersistenceAdapter(store, "k", nil).Load(ctx, nil)
	require.True(t, ok)
	assert.Empty(t, state.Attachments)
	assert.Equal(t, "a@b.co", state.StepData[StepAccount]["email"])
	assert.NotNil(t, state.StepData[StepPersonal])
}

func TestPersistenceLoadFailsOpen(t *testing.T) {
	cases := map[string]string{
		"not json":          `{not json`,
		"wrong type":        `{"stepData":{},"currentStep":"two"}`,
		"step out of range": `{"stepData":{},"currentStep":7}`,
		"missing stepData":  `{"currentStep":1}`,
		"array root":        `[]`,
		"bad step record":   `{"stepData":{"account":"abc"},"currentStep":0}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewInMemorySnapshotStore()
			require.NoError(t, store.Put(context.Background(), DefaultStorageKey, []byte(payload)))
			_, ok := NewPersistenceAdapter(store, "", nil).Load(context.Background(), nil)
			assert.False(t, ok)
		})
	}
}

func TestPersistenceLoadMissingAndFailingStore(t *testing.T) {
	_, ok := NewPersistenceAdapter(NewInMemorySnapshotStore(), "", nil).Load(context.Background(), nil)
	assert.False(t, ok)

	_, ok = NewPersistenceAdapter(failingStore{}, "", nil).Load(context.Background(), nil)
	assert.False(t, ok)

	err := NewPersistenceAdapter(failingStore{}, "", nil).Save(context.Background(), State{})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestPersistenceLoadLegacyEnvelope(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	require.NoError(t, store.Put(ctx, DefaultStorageKey, []byte(`{
		"state": {
			"currentStep": 1,
			"step1Data": {"username": "legacy_user"},
			"step2Data": {"firstName": "Ada"},
			"step3Data": null,
			"persistedFiles": [
				{"name": "cv.pdf", "size": 4, "type": "application/pdf", "lastModified": 1700000000000, "dataUrl": "data:application/pdf;base64,JVBERg=="}
			]
		},
		"version": 0
	}`)))

	attachments := NewAttachmentStore()
	state, ok := NewPersistenceAdapter(store, "", nil).Load(ctx, attachments)
	require.True(t, ok)
	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, "legacy_user", state.StepData[StepAccount]["username"])
	assert.Equal(t, "Ada", state.StepData[StepPersonal]["firstName"])
	assert.Empty(t, state.StepData[StepAdvanced])
	require.Len(t, state.Attachments, 1)
	assert.Equal(t, "cv.pdf", state.Attachments[0].Name)
	assert.Equal(t, []byte("%PDF"), state.Attachments[0].File.Bytes())
}

func TestPersistenceClear(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	adapter := NewPersistenceAdapter(store, "", nil)
	require.NoError(t, adapter.Save(ctx, State{}))
	require.NoError(t, adapter.Clear(ctx))
	_, err := store.Get(ctx, DefaultStorageKey)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.NoError(t, adapter.Clear(ctx))
}

func TestSnapshotGuardUnknownSchema(t *testing.T) {
	err := NewSnapshotGuard().Validate("missing", map[string]any{})
	assert.Error(t, err)
}
